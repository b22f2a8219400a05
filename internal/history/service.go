package history

import (
	"context"
	"time"

	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/exceptions"
)

const (
	DEFAULT_MONTHS_BACK   = 6
	DEFAULT_PRODUCT_LIMIT = 10
	STATS_MONTHS_BACK     = 12
)

type Service struct {
	Lists    data.ShoppingListRepository
	Items    data.ShoppingItemRepository
	Location *time.Location
	Now      func() time.Time
}

func NewService(lists data.ShoppingListRepository, items data.ShoppingItemRepository, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		Lists:    lists,
		Items:    items,
		Location: location,
		Now:      time.Now,
	}
}

// HistoryQuery narrows history to one calendar month when both Month and
// Year are set.
type HistoryQuery struct {
	Month int
	Year  int
	Limit int
}

type MonthlySummary struct {
	Month         string
	Year          int
	MonthNum      int
	TotalSpent    float64
	PurchaseCount int
	AverageTicket float64
}

type ProductSummary struct {
	Name           string
	TotalQuantity  int
	TimesPurchased int
}

type MonthTotals struct {
	Spent     float64
	Purchases int
}

type Stats struct {
	TotalPurchases   int
	TotalSpent       float64
	AverageTicket    float64
	CurrentMonth     MonthTotals
	ActiveItemsCount int
}

func (s *Service) now() time.Time {
	return s.Now().In(s.Location)
}

func (s *Service) withItems(ctx context.Context, lists []data.ShoppingListDTO) ([]data.ShoppingListDetails, error) {
	details := make([]data.ShoppingListDetails, 0, len(lists))
	for _, list := range lists {
		items, err := s.Items.List(ctx, list.SK)
		if err != nil {
			return nil, err
		}
		details = append(details, data.ShoppingListDetails{List: list, Items: items})
	}
	return details, nil
}

func (s *Service) window(ctx context.Context, owner string, monthsBack int) ([]data.ShoppingListDTO, time.Time, error) {
	now := s.now()
	lists, err := s.Lists.Finalized(ctx, owner, data.FinalizedQuery{
		From:  now.AddDate(0, -monthsBack, 0),
		To:    now,
		Limit: data.UNLIMITED,
	})
	return lists, now, err
}

// History returns finalized purchases with their items, newest first.
func (s *Service) History(ctx context.Context, owner string, query HistoryQuery) ([]data.ShoppingListDetails, error) {
	if query.Limit < 0 {
		return nil, exceptions.InvalidInput("Limit must be at least 1")
	}
	finalized := data.FinalizedQuery{
		To:    s.now(),
		Limit: query.Limit,
	}
	if query.Month != 0 && query.Year != 0 {
		if query.Month < 1 || query.Month > 12 {
			return nil, exceptions.InvalidInput("Month must be between 1 and 12")
		}
		finalized.From = time.Date(query.Year, time.Month(query.Month), 1, 0, 0, 0, 0, s.Location)
		finalized.To = finalized.From.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}
	lists, err := s.Lists.Finalized(ctx, owner, finalized)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, lists)
}

// Monthly buckets the trailing months of purchases by calendar month.
func (s *Service) Monthly(ctx context.Context, owner string, monthsBack int) ([]MonthlySummary, error) {
	if monthsBack < 0 {
		return nil, exceptions.InvalidInput("Months must be at least 1")
	}
	if monthsBack == 0 {
		monthsBack = DEFAULT_MONTHS_BACK
	}
	lists, _, err := s.window(ctx, owner, monthsBack)
	if err != nil {
		return nil, err
	}
	return GroupByMonth(lists, s.Location), nil
}

// TopProducts ranks purchased products by quantity over the trailing months.
func (s *Service) TopProducts(ctx context.Context, owner string, limit int, monthsBack int) ([]ProductSummary, error) {
	if limit < 0 || monthsBack < 0 {
		return nil, exceptions.InvalidInput("Limit and months must be at least 1")
	}
	if limit == 0 {
		limit = DEFAULT_PRODUCT_LIMIT
	}
	if monthsBack == 0 {
		monthsBack = STATS_MONTHS_BACK
	}
	lists, _, err := s.window(ctx, owner, monthsBack)
	if err != nil {
		return nil, err
	}
	details, err := s.withItems(ctx, lists)
	if err != nil {
		return nil, err
	}
	var purchased []data.ShoppingItemDTO
	for _, detail := range details {
		for _, item := range detail.Items {
			if item.Purchased {
				purchased = append(purchased, item)
			}
		}
	}
	ranked := RankProducts(purchased)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Stats summarizes the last year of purchases. The active list is counted
// but never created here.
func (s *Service) Stats(ctx context.Context, owner string) (Stats, error) {
	lists, now, err := s.window(ctx, owner, STATS_MONTHS_BACK)
	if err != nil {
		return Stats{}, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.Location)
	var thisMonth []data.ShoppingListDTO
	for _, list := range lists {
		if list.FinalizeTime != nil && !list.FinalizeTime.Before(monthStart) {
			thisMonth = append(thisMonth, list)
		}
	}
	total := Summarize(lists)
	current := Summarize(thisMonth)
	stats := Stats{
		TotalPurchases: total.PurchaseCount,
		TotalSpent:     total.TotalSpent,
		AverageTicket:  total.AverageTicket,
		CurrentMonth: MonthTotals{
			Spent:     current.TotalSpent,
			Purchases: current.PurchaseCount,
		},
	}
	active, err := s.Lists.Current(ctx, owner, data.ACTIVE)
	if exceptions.IsNotFound(err) {
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	stats.ActiveItemsCount, err = s.Items.Count(ctx, active.SK)
	return stats, err
}
