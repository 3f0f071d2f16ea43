package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/mercari-shopper/internal/models"
)

func i64(v int64) *int64 { return &v }
func intp(v int) *int    { return &v }

func query(t *testing.T, in models.QueryInput) *models.SearchQuery {
	t.Helper()
	if len(in.Keywords) == 0 {
		in.Keywords = []string{"switch"}
	}
	q, err := models.NewSearchQuery(in)
	require.NoError(t, err)
	return q
}

func listing(title string, price int64) models.Listing {
	return models.Listing{Title: title, PriceJPY: price, URL: "https://jp.mercari.com/item/" + title}
}

func titles(ls []models.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Title
	}
	return out
}

func TestApply_BrandMustAppear(t *testing.T) {
	t.Parallel()
	q := query(t, models.QueryInput{Brand: []string{"Nike"}})
	in := []models.Listing{
		listing("adidas runner", 3000),
		{Title: "sneaker", PriceJPY: 4000, URL: "https://jp.mercari.com/item/m2", DescriptionSnippet: "NIKE air max"},
	}

	out := Apply(in, q)

	assert.Equal(t, []string{"sneaker"}, titles(out))
}

func TestApply_BrandAndColorAreANDed(t *testing.T) {
	t.Parallel()
	q := query(t, models.QueryInput{Brand: []string{"nintendo"}, Color: []string{"white"}})
	in := []models.Listing{
		listing("Nintendo Switch White", 1),
		listing("Nintendo Switch Neon", 2),
		listing("Sony White", 3),
	}

	assert.Equal(t, []string{"Nintendo Switch White"}, titles(Apply(in, q)))
}

func TestMatchBudget_OpenRange(t *testing.T) {
	t.Parallel()
	onlyMax := query(t, models.QueryInput{BudgetMax: i64(3000)})
	onlyMin := query(t, models.QueryInput{BudgetMin: i64(1000)})
	none := query(t, models.QueryInput{})

	assert.True(t, MatchBudget(listing("a", 3000), onlyMax))
	assert.False(t, MatchBudget(listing("a", 3001), onlyMax))
	assert.True(t, MatchBudget(listing("a", 0), onlyMax))
	assert.False(t, MatchBudget(listing("a", 999), onlyMin))
	assert.True(t, MatchBudget(listing("a", 1_000_000), onlyMin))
	assert.True(t, MatchBudget(listing("a", 1_000_000), none))
}

func TestApply_BothWithinBudgetSurvive(t *testing.T) {
	t.Parallel()
	q := query(t, models.QueryInput{BudgetMax: i64(3000)})
	in := []models.Listing{listing("A", 1000), listing("B", 2000)}

	assert.Len(t, Apply(in, q), 2)
}

func TestMatchCondition_Substring(t *testing.T) {
	t.Parallel()
	q := query(t, models.QueryInput{Condition: []string{"未使用に近い", "新品、未使用"}})

	embedded := listing("a", 1)
	embedded.Condition = "商品の状態: 未使用に近い"
	unknown := listing("b", 1)
	worn := listing("c", 1)
	worn.Condition = "傷や汚れあり"

	assert.True(t, MatchCondition(embedded, q))
	assert.False(t, MatchCondition(unknown, q))
	assert.False(t, MatchCondition(worn, q))
	assert.True(t, MatchCondition(worn, query(t, models.QueryInput{})))
}

func TestSort_PriceIdempotentAndStable(t *testing.T) {
	t.Parallel()
	in := []models.Listing{listing("c", 300), listing("a1", 100), listing("b", 200), listing("a2", 100)}

	Sort(in, models.SortPriceAsc)
	first := titles(in)
	Sort(in, models.SortPriceAsc)

	assert.Equal(t, []string{"a1", "a2", "b", "c"}, first)
	assert.Equal(t, first, titles(in))

	Sort(in, models.SortPriceDesc)
	assert.Equal(t, []string{"c", "b", "a1", "a2"}, titles(in))
}

func TestSort_RelevanceAndNewKeepOrder(t *testing.T) {
	t.Parallel()
	for _, by := range []models.Sort{models.SortRelevance, models.SortNew} {
		in := []models.Listing{listing("z", 1), listing("a", 9), listing("m", 5)}
		Sort(in, by)
		assert.Equal(t, []string{"z", "a", "m"}, titles(in), by)
	}
}

func TestApply_LimitAndNoMutation(t *testing.T) {
	t.Parallel()
	in := make([]models.Listing, 0, 120)
	for i := 0; i < 120; i++ {
		in = append(in, listing(string(rune('A'+i%26))+string(rune('a'+i/26)), int64(120-i)))
	}
	original := titles(in)

	out := Apply(in, query(t, models.QueryInput{Limit: intp(500), Sort: "price_asc"}))
	assert.Len(t, out, 100)
	assert.Equal(t, original, titles(in))

	out = Apply(in, query(t, models.QueryInput{Limit: intp(0)}))
	assert.Len(t, out, 1)
}

func TestLimit_ClampsDirectly(t *testing.T) {
	t.Parallel()
	in := []models.Listing{listing("a", 1), listing("b", 2)}
	assert.Len(t, Limit(in, -3), 1)
	assert.Len(t, Limit(in, 50), 2)
}
