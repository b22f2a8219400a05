package history

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"philcali.me/groceries/internal/data"
)

type totals struct {
	spent decimal.Decimal
	count int
}

func (t *totals) add(list data.ShoppingListDTO) {
	if list.TotalValue != nil {
		t.spent = t.spent.Add(decimal.NewFromFloat(*list.TotalValue))
	}
	t.count++
}

func (t *totals) average() decimal.Decimal {
	if t.count == 0 {
		return decimal.Zero
	}
	return t.spent.Div(decimal.NewFromInt(int64(t.count))).Round(2)
}

// Summarize totals the lists as a single bucket.
func Summarize(lists []data.ShoppingListDTO) MonthlySummary {
	var sum totals
	for _, list := range lists {
		sum.add(list)
	}
	return MonthlySummary{
		TotalSpent:    sum.spent.Round(2).InexactFloat64(),
		PurchaseCount: sum.count,
		AverageTicket: sum.average().InexactFloat64(),
	}
}

type monthBucket struct {
	year  int
	month time.Month
	totals
}

func (b *monthBucket) key() int {
	return b.year*100 + int(b.month)
}

// GroupByMonth buckets finalized lists by the calendar month of their
// finalize time in loc, oldest month first.
func GroupByMonth(lists []data.ShoppingListDTO, loc *time.Location) []MonthlySummary {
	buckets := make(map[int]*monthBucket)
	for _, list := range lists {
		if list.FinalizeTime == nil {
			continue
		}
		at := list.FinalizeTime.In(loc)
		bucket := &monthBucket{year: at.Year(), month: at.Month()}
		if existing, ok := buckets[bucket.key()]; ok {
			bucket = existing
		} else {
			buckets[bucket.key()] = bucket
		}
		bucket.add(list)
	}
	ordered := maps.Values(buckets)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].key() < ordered[j].key()
	})
	summaries := make([]MonthlySummary, len(ordered))
	for i, bucket := range ordered {
		summaries[i] = MonthlySummary{
			Month:         bucket.month.String(),
			Year:          bucket.year,
			MonthNum:      int(bucket.month),
			TotalSpent:    bucket.spent.Round(2).InexactFloat64(),
			PurchaseCount: bucket.count,
			AverageTicket: bucket.average().InexactFloat64(),
		}
	}
	return summaries
}

// RankProducts groups items by normalized name, keeping the first spelling
// seen, and orders them by total quantity. Ties keep first seen order.
func RankProducts(items []data.ShoppingItemDTO) []ProductSummary {
	index := make(map[string]int)
	var ranked []ProductSummary
	for _, item := range items {
		key := data.NormalizeName(item.Name)
		i, ok := index[key]
		if !ok {
			i = len(ranked)
			index[key] = i
			ranked = append(ranked, ProductSummary{Name: strings.TrimSpace(item.Name)})
		}
		ranked[i].TotalQuantity += item.Quantity
		ranked[i].TimesPurchased++
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalQuantity > ranked[j].TotalQuantity
	})
	if ranked == nil {
		return make([]ProductSummary, 0)
	}
	return ranked
}
