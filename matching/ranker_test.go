package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modaapi/models"
)

func scoredSet(n int) []Scored {
	out := make([]Scored, 0, n)
	for i := 1; i <= n; i++ {
		g := garment(uint(i), func(g *models.Garment) {
			g.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
			g.Price = decimal.NewNullDecimal(decimal.NewFromInt(int64(10 + i)))
			g.ViewCount = i
		})
		out = append(out, Scored{Garment: g, Score: float64(i)})
	}
	return out
}

func TestRankPaginationScenario(t *testing.T) {
	scored := scoredSet(25)

	page1 := Rank(scored, SortRelevance, OrderDesc, 1, 10)
	assert.Len(t, page1.Items, 10)
	assert.Equal(t, 25, page1.TotalCount)
	assert.True(t, page1.HasMore)

	page3 := Rank(scored, SortRelevance, OrderDesc, 3, 10)
	assert.Len(t, page3.Items, 5)
	assert.False(t, page3.HasMore)

	page4 := Rank(scored, SortRelevance, OrderDesc, 4, 10)
	assert.Empty(t, page4.Items)
	assert.False(t, page4.HasMore)
	assert.Equal(t, 25, page4.TotalCount)
}

func TestRankHasMoreBoundary(t *testing.T) {
	scored := scoredSet(20)

	exact := Rank(scored, SortRelevance, OrderDesc, 2, 10)
	assert.Len(t, exact.Items, 10)
	assert.False(t, exact.HasMore)
}

func TestRankIsDeterministic(t *testing.T) {
	scored := scoredSet(30)
	for i := range scored {
		scored[i].Score = 50
	}

	first := Rank(scored, SortRelevance, OrderDesc, 1, 30)
	second := Rank(scored, SortRelevance, OrderDesc, 1, 30)

	require.Equal(t, len(first.Items), len(second.Items))
	for i := range first.Items {
		assert.Equal(t, first.Items[i].ID, second.Items[i].ID)
	}
	// Equal scores fall back to id order.
	for i := 1; i < len(first.Items); i++ {
		assert.Greater(t, first.Items[i].ID, first.Items[i-1].ID)
	}
}

func TestRankRelevanceDescendingByDefault(t *testing.T) {
	scored := scoredSet(5)

	page := Rank(scored, "", "", 1, 5)
	require.Len(t, page.Items, 5)
	assert.Equal(t, uint(5), page.Items[0].ID)
	assert.Equal(t, uint(1), page.Items[4].ID)
}

func TestRankByPrice(t *testing.T) {
	scored := scoredSet(3)
	scored = append(scored, Scored{Garment: garment(99, func(g *models.Garment) {
		g.Price = decimal.NullDecimal{}
	})})

	asc := Rank(scored, SortPrice, OrderAsc, 1, 10)
	require.Len(t, asc.Items, 4)
	assert.Equal(t, uint(1), asc.Items[0].ID)
	// Unpriced listings sort last.
	assert.Equal(t, uint(99), asc.Items[3].ID)

	desc := Rank(scored, SortPrice, OrderDesc, 1, 10)
	assert.Equal(t, uint(3), desc.Items[0].ID)
}

func TestRankByCondition(t *testing.T) {
	scored := []Scored{
		{Garment: garment(1, func(g *models.Garment) { g.Condition = models.ConditionFair })},
		{Garment: garment(2, func(g *models.Garment) { g.Condition = models.ConditionNewWithTags })},
		{Garment: garment(3, func(g *models.Garment) { g.Condition = models.ConditionVintage })},
	}

	page := Rank(scored, SortCondition, "", 1, 10)
	require.Len(t, page.Items, 3)
	assert.Equal(t, uint(2), page.Items[0].ID)
	assert.Equal(t, uint(1), page.Items[1].ID)
	assert.Equal(t, uint(3), page.Items[2].ID)
}

func TestRankByBrand(t *testing.T) {
	a, z := "Acne Studios", "Zara"
	scored := []Scored{
		{Garment: garment(1, func(g *models.Garment) { g.Brand = &z })},
		{Garment: garment(2, func(g *models.Garment) { g.Brand = nil })},
		{Garment: garment(3, func(g *models.Garment) { g.Brand = &a })},
	}

	page := Rank(scored, SortBrand, "", 1, 10)
	require.Len(t, page.Items, 3)
	assert.Equal(t, uint(3), page.Items[0].ID)
	assert.Equal(t, uint(1), page.Items[1].ID)
	assert.Equal(t, uint(2), page.Items[2].ID)
}

func TestRankByDistance(t *testing.T) {
	near, far := 2.5, 40.0
	scored := []Scored{
		{Garment: garment(1, nil), Distance: &far},
		{Garment: garment(2, nil), Distance: &near},
		{Garment: garment(3, nil)},
	}

	page := Rank(scored, SortDistance, "", 1, 10)
	require.Len(t, page.Items, 3)
	assert.Equal(t, uint(2), page.Items[0].ID)
	assert.Equal(t, uint(1), page.Items[1].ID)
	assert.Equal(t, uint(3), page.Items[2].ID)
}

func TestRankByDateAdded(t *testing.T) {
	scored := scoredSet(3)

	page := Rank(scored, SortDateAdded, "", 1, 10)
	require.Len(t, page.Items, 3)
	assert.Equal(t, uint(3), page.Items[0].ID)
}

func TestRankByPopularity(t *testing.T) {
	scored := []Scored{
		{Garment: garment(1, func(g *models.Garment) { g.ViewCount = 10 })},
		{Garment: garment(2, func(g *models.Garment) { g.ViewCount = 1; g.SaveCount = 5 })},
	}

	page := Rank(scored, SortPopularity, "", 1, 10)
	require.Len(t, page.Items, 2)
	// 1 view + 5 saves outweighs 10 plain views.
	assert.Equal(t, uint(2), page.Items[0].ID)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	scored := scoredSet(5)
	original := make([]uint, len(scored))
	for i, s := range scored {
		original[i] = s.Garment.ID
	}

	Rank(scored, SortRelevance, OrderDesc, 1, 2)

	for i, s := range scored {
		assert.Equal(t, original[i], s.Garment.ID)
	}
}
