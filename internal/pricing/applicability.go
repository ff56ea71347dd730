package pricing

import (
	"sort"

	"github.com/bwmarrin/snowflake"
)

// ScopeKind names the shape of an applicability rule.
type ScopeKind string

const (
	ScopeGlobal     ScopeKind = "global"
	ScopeCategories ScopeKind = "categories"
	ScopeProducts   ScopeKind = "products"
	ScopeMixed      ScopeKind = "categories_and_products"
	ScopeNone       ScopeKind = "none"
)

// Scope is the eligibility rule carried by an addition or a coefficient.
// A global scope matches every selection; otherwise the entity matches when
// any selected product is listed directly or belongs to a listed category.
type Scope struct {
	Global      bool           `json:"global"`
	CategoryIDs []snowflake.ID `json:"category_ids,omitempty"`
	ProductIDs  []snowflake.ID `json:"product_ids,omitempty"`
}

func (s Scope) Kind() ScopeKind {
	switch {
	case s.Global:
		return ScopeGlobal
	case len(s.CategoryIDs) > 0 && len(s.ProductIDs) > 0:
		return ScopeMixed
	case len(s.CategoryIDs) > 0:
		return ScopeCategories
	case len(s.ProductIDs) > 0:
		return ScopeProducts
	default:
		return ScopeNone
	}
}

// SelectedProduct is the part of a product the resolver needs.
type SelectedProduct struct {
	ID         snowflake.ID
	CategoryID *snowflake.ID
}

// Selection indexes selected products by id and by category.
type Selection struct {
	products   map[snowflake.ID]struct{}
	categories map[snowflake.ID]struct{}
}

func NewSelection(products []SelectedProduct) Selection {
	sel := Selection{
		products:   make(map[snowflake.ID]struct{}, len(products)),
		categories: make(map[snowflake.ID]struct{}, len(products)),
	}
	for _, p := range products {
		sel.products[p.ID] = struct{}{}
		if p.CategoryID != nil {
			sel.categories[*p.CategoryID] = struct{}{}
		}
	}
	return sel
}

// Matches reports whether the scope makes its owner eligible for the selection.
func (s Scope) Matches(sel Selection) bool {
	if s.Global {
		return true
	}
	for _, id := range s.ProductIDs {
		if _, ok := sel.products[id]; ok {
			return true
		}
	}
	for _, id := range s.CategoryIDs {
		if _, ok := sel.categories[id]; ok {
			return true
		}
	}
	return false
}

// Applicable filters candidates down to the ones eligible for the selected
// products. Duplicate ids collapse to one entry and the result is sorted by
// name (ties broken by id) so repeated calls render identically.
func Applicable[T any](
	candidates []T,
	selected []SelectedProduct,
	id func(T) snowflake.ID,
	name func(T) string,
	scope func(T) Scope,
) []T {
	sel := NewSelection(selected)
	seen := make(map[snowflake.ID]struct{}, len(candidates))
	out := make([]T, 0, len(candidates))
	for _, c := range candidates {
		key := id(c)
		if _, dup := seen[key]; dup {
			continue
		}
		if !scope(c).Matches(sel) {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := name(out[i]), name(out[j])
		if ni != nj {
			return ni < nj
		}
		return id(out[i]) < id(out[j])
	})
	return out
}
