package document

import (
	orderdomain "github.com/smallbiznis/doorcalc/internal/order/domain"
	"go.uber.org/fx"
)

func provideEvaluator(orders orderdomain.Service) Evaluator {
	return orders
}

func provideReporter(orders orderdomain.Service) Reporter {
	return orders
}

var Module = fx.Module("document.service",
	fx.Provide(provideEvaluator),
	fx.Provide(provideReporter),
	fx.Provide(New),
)
