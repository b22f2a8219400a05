package history_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/exceptions"
	"philcali.me/groceries/internal/history"
	"philcali.me/groceries/internal/shopping"
	"philcali.me/groceries/internal/test"
)

const owner = "ana@example.com"

var now = time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)

func finalized(store *test.MemoryStore, at time.Time, total *float64, items ...data.ShoppingItemDTO) data.ShoppingListDTO {
	return store.PutList(data.ShoppingListDTO{
		Owner:        owner,
		Type:         data.ACTIVE,
		Status:       data.STATUS_FINALIZED,
		TotalValue:   total,
		FinalizeTime: &at,
		CreateTime:   at.Add(-time.Hour),
		UpdateTime:   at,
	}, items...)
}

func purchased(name string, quantity int) data.ShoppingItemDTO {
	return data.ShoppingItemDTO{Name: name, Quantity: quantity, Purchased: true}
}

func seeded() (*history.Service, *test.MemoryStore) {
	store := test.NewMemoryStore()
	store.Now = func() time.Time { return now }
	finalized(store, time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC), aws.Float64(50), purchased("Milk", 2), purchased("Bread", 1))
	finalized(store, time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC), aws.Float64(30), purchased(" milk ", 1), purchased("Eggs", 12))
	finalized(store, time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC), aws.Float64(10), purchased("Coffee", 1))
	finalized(store, time.Date(2025, time.January, 2, 10, 0, 0, 0, time.UTC), aws.Float64(999), purchased("Caviar", 100))
	service := history.NewService(store.Lists(), store.Items(), time.UTC)
	service.Now = func() time.Time { return now }
	return service, store
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	service, _ := seeded()

	all, err := service.History(ctx, owner, history.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].List.FinalizeTime.After(*all[i].List.FinalizeTime), "newest first")
	}
	assert.Len(t, all[0].Items, 2)

	march, err := service.History(ctx, owner, history.HistoryQuery{Month: 3, Year: 2026})
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, 30.0, *march[0].List.TotalValue)

	limited, err := service.History(ctx, owner, history.HistoryQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	monthOnly, err := service.History(ctx, owner, history.HistoryQuery{Month: 3})
	require.NoError(t, err)
	assert.Len(t, monthOnly, 4, "a month without a year is ignored")

	_, err = service.History(ctx, owner, history.HistoryQuery{Month: 13, Year: 2026})
	assert.Equal(t, http.StatusBadRequest, exceptions.StatusCode(err))

	others, err := service.History(ctx, "bob@example.com", history.HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestMonthly(t *testing.T) {
	ctx := context.Background()
	service, _ := seeded()

	summaries, err := service.Monthly(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, history.MonthlySummary{
		Month:         "January",
		Year:          2026,
		MonthNum:      1,
		TotalSpent:    10,
		PurchaseCount: 1,
		AverageTicket: 10,
	}, summaries[0])
	assert.Equal(t, history.MonthlySummary{
		Month:         "March",
		Year:          2026,
		MonthNum:      3,
		TotalSpent:    80,
		PurchaseCount: 2,
		AverageTicket: 40,
	}, summaries[1])

	recent, err := service.Monthly(ctx, owner, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 3, recent[0].MonthNum)

	wide, err := service.Monthly(ctx, owner, 24)
	require.NoError(t, err)
	assert.Len(t, wide, 3)

	_, err = service.Monthly(ctx, owner, -1)
	assert.Equal(t, http.StatusBadRequest, exceptions.StatusCode(err))
}

func TestTopProducts(t *testing.T) {
	ctx := context.Background()
	service, _ := seeded()

	top, err := service.TopProducts(ctx, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, history.ProductSummary{Name: "Eggs", TotalQuantity: 12, TimesPurchased: 1}, top[0])
	assert.Contains(t, top, history.ProductSummary{Name: "milk", TotalQuantity: 3, TimesPurchased: 2}, "newest spelling wins")
	for _, product := range top {
		assert.NotEqual(t, "Caviar", product.Name, "outside the trailing year")
	}

	limited, err := service.TopProducts(ctx, owner, 1, 0)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	t.Run("SkipsUnpurchased", func(t *testing.T) {
		service, store := seeded()
		finalized(store, now.Add(-time.Hour), nil, data.ShoppingItemDTO{Name: "Cake", Quantity: 50})
		top, err := service.TopProducts(ctx, owner, 10, 12)
		require.NoError(t, err)
		for _, product := range top {
			assert.NotEqual(t, "Cake", product.Name)
		}
	})
}

func TestMilkPurchase(t *testing.T) {
	ctx := context.Background()
	store := test.NewMemoryStore()
	lists := shopping.NewService(store.Lists(), store.Items())
	_, err := lists.AddItem(ctx, owner, data.ACTIVE, data.ShoppingItemInputDTO{
		Name:      aws.String("Milk"),
		Quantity:  aws.Int(2),
		UnitPrice: aws.Float64(3.5),
	})
	require.NoError(t, err)
	_, err = lists.FinishPurchase(ctx, owner, aws.Float64(7))
	require.NoError(t, err)

	service := history.NewService(store.Lists(), store.Items(), time.UTC)
	top, err := service.TopProducts(ctx, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, history.ProductSummary{Name: "Milk", TotalQuantity: 2, TimesPurchased: 1}, top[0])
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	service, store := seeded()

	stats, err := service.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, history.Stats{
		TotalPurchases: 3,
		TotalSpent:     90,
		AverageTicket:  30,
		CurrentMonth: history.MonthTotals{
			Spent:     80,
			Purchases: 2,
		},
		ActiveItemsCount: 0,
	}, stats)
	assert.Len(t, store.AllLists(owner), 4, "stats never creates an active list")

	lists := shopping.NewService(store.Lists(), store.Items())
	_, err = lists.AddItem(ctx, owner, data.ACTIVE, data.ShoppingItemInputDTO{Name: aws.String("Tea")})
	require.NoError(t, err)
	_, err = lists.AddItem(ctx, owner, data.ACTIVE, data.ShoppingItemInputDTO{Name: aws.String("Honey")})
	require.NoError(t, err)
	stats, err = service.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveItemsCount)

	empty, err := service.Stats(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, history.Stats{}, empty)
}

func TestGroupByMonthLocation(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	at := time.Date(2026, time.March, 1, 2, 0, 0, 0, time.UTC)
	lists := []data.ShoppingListDTO{{FinalizeTime: &at, TotalValue: aws.Float64(12.345)}}

	utc := history.GroupByMonth(lists, time.UTC)
	require.Len(t, utc, 1)
	assert.Equal(t, "March", utc[0].Month)
	assert.Equal(t, 12.35, utc[0].TotalSpent)

	local := history.GroupByMonth(lists, saoPaulo)
	require.Len(t, local, 1)
	assert.Equal(t, "February", local[0].Month)
}
