package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/athallaarl66/crazwash-api/internal/cache"
	"github.com/athallaarl66/crazwash-api/internal/database"
)

var ErrInvalidRange = errors.New("rentang waktu tidak valid")

const topServicesLimit = 5

// DashboardStore defines the aggregate queries behind the admin
// dashboard. Satisfied by *database.Queries.
type DashboardStore interface {
	GetPeriodSummary(ctx context.Context, arg database.PeriodParams) (database.GetPeriodSummaryRow, error)
	CountDistinctCustomers(ctx context.Context, arg database.PeriodParams) (int64, error)
	GetRevenueSeries(ctx context.Context, arg database.RevenueSeriesParams) ([]database.RevenueSeriesRow, error)
	CountOrdersByStatus(ctx context.Context, arg database.PeriodParams) ([]database.StatusCountRow, error)
	GetPaymentBreakdown(ctx context.Context, arg database.PeriodParams) ([]database.PaymentBreakdownRow, error)
	GetCategoryRevenue(ctx context.Context, arg database.PeriodParams) ([]database.CategoryRevenueRow, error)
	GetTopProducts(ctx context.Context, arg database.TopProductsParams) ([]database.TopProductRow, error)
	GetOrderAlerts(ctx context.Context) (database.GetOrderAlertsRow, error)
	CountLowStockProducts(ctx context.Context, threshold int32) (int64, error)
}

// Period is a resolved reporting window.
type Period struct {
	Start time.Time
	End   time.Time
	// PrevStart..Start is the comparison window for growth figures.
	PrevStart time.Time
	// Monthly selects month buckets for the revenue series.
	Monthly bool
}

// ResolvePeriod maps a range keyword (7d, 30d, 90d, 6m, 1y, all) to a
// concrete window ending now. Ranges up to 90 days produce daily revenue
// buckets, longer ones monthly.
func ResolvePeriod(rng string, now time.Time) (Period, error) {
	p := Period{End: now}
	switch rng {
	case "7d":
		p.Start = now.AddDate(0, 0, -7)
		p.PrevStart = now.AddDate(0, 0, -14)
	case "30d":
		p.Start = now.AddDate(0, 0, -30)
		p.PrevStart = now.AddDate(0, 0, -60)
	case "90d":
		p.Start = now.AddDate(0, 0, -90)
		p.PrevStart = now.AddDate(0, 0, -180)
	case "6m":
		p.Start = now.AddDate(0, -6, 0)
		p.PrevStart = now.AddDate(0, -12, 0)
		p.Monthly = true
	case "1y":
		p.Start = now.AddDate(-1, 0, 0)
		p.PrevStart = now.AddDate(-2, 0, 0)
		p.Monthly = true
	case "all":
		p.Start = time.Unix(0, 0).UTC()
		p.PrevStart = p.Start
		p.Monthly = true
	default:
		return Period{}, ErrInvalidRange
	}
	return p, nil
}

// SeriesPoint is one revenue bucket, labeled YYYY-MM-DD or YYYY-MM.
type SeriesPoint struct {
	Label      string `json:"label"`
	Revenue    string `json:"revenue"`
	OrderCount int64  `json:"order_count"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type PaymentSlice struct {
	Status  string `json:"status"`
	Count   int64  `json:"count"`
	Revenue string `json:"revenue"`
}

type CategorySlice struct {
	Category string `json:"category"`
	Revenue  string `json:"revenue"`
}

type TopService struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Revenue  string    `json:"revenue"`
	Quantity int64     `json:"quantity"`
}

type Alerts struct {
	PendingOrders    int64 `json:"pending_orders"`
	UnpaidOrders     int64 `json:"unpaid_orders"`
	UnpaidWithProof  int64 `json:"unpaid_with_proof"`
	LowStockServices int64 `json:"low_stock_services"`
}

// Summary is the full dashboard payload for one range.
type Summary struct {
	Range             string          `json:"range"`
	TotalRevenue      string          `json:"total_revenue"`
	TotalOrders       int64           `json:"total_orders"`
	PreviousRevenue   string          `json:"previous_revenue"`
	PreviousOrders    int64           `json:"previous_orders"`
	RevenueGrowth     float64         `json:"revenue_growth"`
	OrderGrowth       float64         `json:"order_growth"`
	AverageOrderValue string          `json:"average_order_value"`
	ActiveCustomers   int64           `json:"active_customers"`
	RevenueSeries     []SeriesPoint   `json:"revenue_series"`
	StatusCounts      []StatusCount   `json:"status_counts"`
	PaymentBreakdown  []PaymentSlice  `json:"payment_breakdown"`
	CategoryRevenue   []CategorySlice `json:"category_revenue"`
	TopServices       []TopService    `json:"top_services"`
	Alerts            Alerts          `json:"alerts"`
}

// DashboardService assembles the admin dashboard.
type DashboardService struct {
	store    DashboardStore
	cache    *cache.Cache
	lowStock int32
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService. lowStock is the
// threshold below which a service counts as low on stock.
func NewDashboardService(store DashboardStore, c *cache.Cache, lowStock int32) *DashboardService {
	return &DashboardService{
		store:    store,
		cache:    c,
		lowStock: lowStock,
		now:      time.Now,
	}
}

// GrowthPercent computes the percentage change from previous to current,
// rounded to two decimals. A zero previous value yields 0, not infinity.
func GrowthPercent(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	pct := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	f, _ := pct.Round(2).Float64()
	return f
}

// Summary builds the dashboard payload for the given range keyword,
// serving from cache when possible.
func (s *DashboardService) Summary(ctx context.Context, rng string) (*Summary, error) {
	period, err := ResolvePeriod(rng, s.now())
	if err != nil {
		return nil, err
	}

	cacheKey := cache.PrefixDashboard + rng
	var cached Summary
	if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err != nil {
		zap.L().Warn("dashboard cache read", zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	current := database.PeriodParams{Start: period.Start, End: period.End}
	previous := database.PeriodParams{Start: period.PrevStart, End: period.Start}

	curSummary, err := s.store.GetPeriodSummary(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("period summary: %w", err)
	}
	prevSummary, err := s.store.GetPeriodSummary(ctx, previous)
	if err != nil {
		return nil, fmt.Errorf("previous period summary: %w", err)
	}

	activeCustomers, err := s.store.CountDistinctCustomers(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("distinct customers: %w", err)
	}

	bucketFormat := "YYYY-MM-DD"
	if period.Monthly {
		bucketFormat = "YYYY-MM"
	}
	series, err := s.store.GetRevenueSeries(ctx, database.RevenueSeriesParams{
		Start:        period.Start,
		End:          period.End,
		BucketFormat: bucketFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("revenue series: %w", err)
	}

	statusCounts, err := s.store.CountOrdersByStatus(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	payments, err := s.store.GetPaymentBreakdown(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("payment breakdown: %w", err)
	}
	categories, err := s.store.GetCategoryRevenue(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("category revenue: %w", err)
	}
	top, err := s.store.GetTopProducts(ctx, database.TopProductsParams{
		Start: period.Start,
		End:   period.End,
		Limit: topServicesLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	alerts, err := s.store.GetOrderAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("order alerts: %w", err)
	}
	lowStock, err := s.store.CountLowStockProducts(ctx, s.lowStock)
	if err != nil {
		return nil, fmt.Errorf("low stock count: %w", err)
	}

	curRevenue := database.NumericDecimal(curSummary.PaidRevenue)
	prevRevenue := database.NumericDecimal(prevSummary.PaidRevenue)

	// AOV divides paid revenue by ALL orders in the period, matching the
	// storefront's historical reporting. Zero orders means zero AOV.
	aov := decimal.Zero
	if curSummary.TotalOrders > 0 {
		aov = curRevenue.Div(decimal.NewFromInt(curSummary.TotalOrders)).Round(2)
	}

	out := &Summary{
		Range:             rng,
		TotalRevenue:      curRevenue.StringFixed(2),
		TotalOrders:       curSummary.TotalOrders,
		PreviousRevenue:   prevRevenue.StringFixed(2),
		PreviousOrders:    prevSummary.TotalOrders,
		RevenueGrowth:     GrowthPercent(curRevenue, prevRevenue),
		OrderGrowth:       GrowthPercent(decimal.NewFromInt(curSummary.TotalOrders), decimal.NewFromInt(prevSummary.TotalOrders)),
		AverageOrderValue: aov.StringFixed(2),
		ActiveCustomers:   activeCustomers,
		RevenueSeries:     make([]SeriesPoint, 0, len(series)),
		StatusCounts:      make([]StatusCount, 0, len(statusCounts)),
		PaymentBreakdown:  make([]PaymentSlice, 0, len(payments)),
		CategoryRevenue:   make([]CategorySlice, 0, len(categories)),
		TopServices:       make([]TopService, 0, len(top)),
		Alerts: Alerts{
			PendingOrders:    alerts.PendingCount,
			UnpaidOrders:     alerts.UnpaidCount,
			UnpaidWithProof:  alerts.UnpaidWithProofCount,
			LowStockServices: lowStock,
		},
	}
	for _, p := range series {
		out.RevenueSeries = append(out.RevenueSeries, SeriesPoint{
			Label:      p.Bucket,
			Revenue:    database.NumericDecimal(p.Revenue).StringFixed(2),
			OrderCount: p.OrderCount,
		})
	}
	for _, c := range statusCounts {
		out.StatusCounts = append(out.StatusCounts, StatusCount{Status: c.Status, Count: c.OrderCount})
	}
	for _, p := range payments {
		out.PaymentBreakdown = append(out.PaymentBreakdown, PaymentSlice{
			Status:  p.PaymentStatus,
			Count:   p.OrderCount,
			Revenue: database.NumericDecimal(p.TotalRevenue).StringFixed(2),
		})
	}
	for _, c := range categories {
		out.CategoryRevenue = append(out.CategoryRevenue, CategorySlice{
			Category: c.Category,
			Revenue:  database.NumericDecimal(c.Revenue).StringFixed(2),
		})
	}
	for _, t := range top {
		out.TopServices = append(out.TopServices, TopService{
			ID:       t.ProductID,
			Name:     t.ProductName,
			Revenue:  database.NumericDecimal(t.TotalRevenue).StringFixed(2),
			Quantity: t.TotalQty,
		})
	}

	if err := s.cache.SetJSON(ctx, cacheKey, out); err != nil {
		zap.L().Warn("dashboard cache write", zap.Error(err))
	}

	return out, nil
}
