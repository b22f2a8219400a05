package history

import "philcali.me/groceries/internal/history"

type MonthlyAnalytics struct {
	Month         string  `json:"month"`
	Year          int     `json:"year"`
	MonthNum      int     `json:"monthNum"`
	TotalSpent    float64 `json:"totalSpent"`
	PurchaseCount int     `json:"purchaseCount"`
	AverageTicket float64 `json:"averageTicket"`
}

func NewMonthlyAnalytics(summary history.MonthlySummary) MonthlyAnalytics {
	return MonthlyAnalytics{
		Month:         summary.Month,
		Year:          summary.Year,
		MonthNum:      summary.MonthNum,
		TotalSpent:    summary.TotalSpent,
		PurchaseCount: summary.PurchaseCount,
		AverageTicket: summary.AverageTicket,
	}
}

type TopProduct struct {
	Name           string `json:"name"`
	TotalQuantity  int    `json:"totalQuantity"`
	TimesPurchased int    `json:"timesPurchased"`
}

func NewTopProduct(product history.ProductSummary) TopProduct {
	return TopProduct{
		Name:           product.Name,
		TotalQuantity:  product.TotalQuantity,
		TimesPurchased: product.TimesPurchased,
	}
}

type CurrentMonth struct {
	Spent     float64 `json:"spent"`
	Purchases int     `json:"purchases"`
}

type GeneralStats struct {
	TotalPurchases   int          `json:"totalPurchases"`
	TotalSpent       float64      `json:"totalSpent"`
	AverageTicket    float64      `json:"averageTicket"`
	CurrentMonth     CurrentMonth `json:"currentMonth"`
	ActiveItemsCount int          `json:"activeItemsCount"`
}

func NewGeneralStats(stats history.Stats) GeneralStats {
	return GeneralStats{
		TotalPurchases: stats.TotalPurchases,
		TotalSpent:     stats.TotalSpent,
		AverageTicket:  stats.AverageTicket,
		CurrentMonth: CurrentMonth{
			Spent:     stats.CurrentMonth.Spent,
			Purchases: stats.CurrentMonth.Purchases,
		},
		ActiveItemsCount: stats.ActiveItemsCount,
	}
}
