package pricing

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

type scopedStub struct {
	id    snowflake.ID
	name  string
	scope Scope
}

func resolve(candidates []scopedStub, selected []SelectedProduct) []string {
	out := Applicable(candidates, selected,
		func(s scopedStub) snowflake.ID { return s.id },
		func(s scopedStub) string { return s.name },
		func(s scopedStub) Scope { return s.scope },
	)
	names := make([]string, 0, len(out))
	for _, s := range out {
		names = append(names, s.name)
	}
	return names
}

func catPtr(id snowflake.ID) *snowflake.ID { return &id }

func TestApplicable_Scoping(t *testing.T) {
	const (
		catInterior snowflake.ID = 100
		catExterior snowflake.ID = 200
		prodSlider  snowflake.ID = 11
		prodEntry   snowflake.ID = 12
	)

	candidates := []scopedStub{
		{id: 1, name: "Veneer", scope: Scope{CategoryIDs: []snowflake.ID{catInterior}}},
		{id: 2, name: "Arched top", scope: Scope{Global: true}},
		{id: 3, name: "Armored", scope: Scope{CategoryIDs: []snowflake.ID{catExterior}}},
		{id: 4, name: "Soft close", scope: Scope{ProductIDs: []snowflake.ID{prodSlider}}},
		{id: 5, name: "Orphan", scope: Scope{}},
	}

	t.Run("empty selection returns only global", func(t *testing.T) {
		assert.Equal(t, []string{"Arched top"}, resolve(candidates, nil))
	})

	t.Run("category scoped", func(t *testing.T) {
		got := resolve(candidates, []SelectedProduct{{ID: prodEntry, CategoryID: catPtr(catInterior)}})
		assert.Equal(t, []string{"Arched top", "Veneer"}, got)
	})

	t.Run("product scoped", func(t *testing.T) {
		got := resolve(candidates, []SelectedProduct{{ID: prodSlider}})
		assert.Equal(t, []string{"Arched top", "Soft close"}, got)
	})

	t.Run("union across products", func(t *testing.T) {
		got := resolve(candidates, []SelectedProduct{
			{ID: prodSlider, CategoryID: catPtr(catInterior)},
			{ID: prodEntry, CategoryID: catPtr(catExterior)},
		})
		assert.Equal(t, []string{"Arched top", "Armored", "Soft close", "Veneer"}, got)
	})

	t.Run("unscoped never matches", func(t *testing.T) {
		got := resolve(candidates, []SelectedProduct{
			{ID: prodSlider, CategoryID: catPtr(catInterior)},
			{ID: prodEntry, CategoryID: catPtr(catExterior)},
		})
		assert.NotContains(t, got, "Orphan")
	})
}

func TestApplicable_DistinctAndStable(t *testing.T) {
	candidates := []scopedStub{
		{id: 9, name: "Same", scope: Scope{Global: true}},
		{id: 3, name: "Same", scope: Scope{Global: true}},
		{id: 3, name: "Same", scope: Scope{Global: true}},
	}

	out := Applicable(candidates, nil,
		func(s scopedStub) snowflake.ID { return s.id },
		func(s scopedStub) string { return s.name },
		func(s scopedStub) Scope { return s.scope },
	)

	if assert.Len(t, out, 2) {
		assert.EqualValues(t, 3, out[0].id)
		assert.EqualValues(t, 9, out[1].id)
	}
}

func TestScope_Kind(t *testing.T) {
	assert.Equal(t, ScopeGlobal, Scope{Global: true, CategoryIDs: []snowflake.ID{1}}.Kind())
	assert.Equal(t, ScopeCategories, Scope{CategoryIDs: []snowflake.ID{1}}.Kind())
	assert.Equal(t, ScopeProducts, Scope{ProductIDs: []snowflake.ID{1}}.Kind())
	assert.Equal(t, ScopeMixed, Scope{CategoryIDs: []snowflake.ID{1}, ProductIDs: []snowflake.ID{2}}.Kind())
	assert.Equal(t, ScopeNone, Scope{}.Kind())
}
