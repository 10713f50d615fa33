package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type PeriodParams struct {
	Start time.Time
	End   time.Time
}

type GetPeriodSummaryRow struct {
	TotalOrders int64
	PaidRevenue pgtype.Numeric
}

// GetPeriodSummary counts all orders in [start, end) and sums revenue for
// the PAID ones. Unpaid and refunded orders contribute no revenue.
func (q *Queries) GetPeriodSummary(ctx context.Context, arg PeriodParams) (GetPeriodSummaryRow, error) {
	const query = `
SELECT COUNT(*),
       COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'PAID'), 0)
FROM orders
WHERE created_at >= $1 AND created_at < $2
`
	var row GetPeriodSummaryRow
	err := q.db.QueryRow(ctx, query, arg.Start, arg.End).Scan(&row.TotalOrders, &row.PaidRevenue)
	return row, err
}

// CountDistinctCustomers counts distinct phone numbers behind
// non-cancelled orders in the period.
func (q *Queries) CountDistinctCustomers(ctx context.Context, arg PeriodParams) (int64, error) {
	const query = `
SELECT COUNT(DISTINCT customer_phone)
FROM orders
WHERE created_at >= $1 AND created_at < $2 AND status <> 'CANCELLED'
`
	var n int64
	err := q.db.QueryRow(ctx, query, arg.Start, arg.End).Scan(&n)
	return n, err
}

type RevenueSeriesParams struct {
	Start time.Time
	End   time.Time
	// BucketFormat is a to_char pattern: YYYY-MM-DD for daily buckets,
	// YYYY-MM for monthly.
	BucketFormat string
}

type RevenueSeriesRow struct {
	Bucket     string
	Revenue    pgtype.Numeric
	OrderCount int64
}

// GetRevenueSeries buckets PAID orders by a Jakarta-localized date label.
func (q *Queries) GetRevenueSeries(ctx context.Context, arg RevenueSeriesParams) ([]RevenueSeriesRow, error) {
	const query = `
SELECT to_char(created_at AT TIME ZONE 'Asia/Jakarta', $3) AS bucket,
       COALESCE(SUM(total_price), 0),
       COUNT(*)
FROM orders
WHERE created_at >= $1 AND created_at < $2 AND payment_status = 'PAID'
GROUP BY bucket
ORDER BY bucket
`
	rows, err := q.db.Query(ctx, query, arg.Start, arg.End, arg.BucketFormat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []RevenueSeriesRow
	for rows.Next() {
		var r RevenueSeriesRow
		if err := rows.Scan(&r.Bucket, &r.Revenue, &r.OrderCount); err != nil {
			return nil, err
		}
		series = append(series, r)
	}
	return series, rows.Err()
}

type StatusCountRow struct {
	Status     string
	OrderCount int64
}

func (q *Queries) CountOrdersByStatus(ctx context.Context, arg PeriodParams) ([]StatusCountRow, error) {
	const query = `
SELECT status, COUNT(*)
FROM orders
WHERE created_at >= $1 AND created_at < $2
GROUP BY status
`
	rows, err := q.db.Query(ctx, query, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []StatusCountRow
	for rows.Next() {
		var r StatusCountRow
		if err := rows.Scan(&r.Status, &r.OrderCount); err != nil {
			return nil, err
		}
		counts = append(counts, r)
	}
	return counts, rows.Err()
}

type PaymentBreakdownRow struct {
	PaymentStatus string
	OrderCount    int64
	TotalRevenue  pgtype.Numeric
}

// GetPaymentBreakdown groups orders by payment status. Unlike the revenue
// KPI this view includes unpaid and refunded totals.
func (q *Queries) GetPaymentBreakdown(ctx context.Context, arg PeriodParams) ([]PaymentBreakdownRow, error) {
	const query = `
SELECT payment_status, COUNT(*), COALESCE(SUM(total_price), 0)
FROM orders
WHERE created_at >= $1 AND created_at < $2
GROUP BY payment_status
`
	rows, err := q.db.Query(ctx, query, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breakdown []PaymentBreakdownRow
	for rows.Next() {
		var r PaymentBreakdownRow
		if err := rows.Scan(&r.PaymentStatus, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, r)
	}
	return breakdown, rows.Err()
}

type CategoryRevenueRow struct {
	Category string
	Revenue  pgtype.Numeric
}

// GetCategoryRevenue sums line-item revenue of PAID orders per service
// category, using the snapshot unit prices.
func (q *Queries) GetCategoryRevenue(ctx context.Context, arg PeriodParams) ([]CategoryRevenueRow, error) {
	const query = `
SELECT p.category, COALESCE(SUM(oi.unit_price * oi.quantity), 0)
FROM order_items oi
JOIN products p ON p.id = oi.product_id
JOIN orders o ON o.id = oi.order_id
WHERE o.created_at >= $1 AND o.created_at < $2 AND o.payment_status = 'PAID'
GROUP BY p.category
ORDER BY 2 DESC
`
	rows, err := q.db.Query(ctx, query, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revenue []CategoryRevenueRow
	for rows.Next() {
		var r CategoryRevenueRow
		if err := rows.Scan(&r.Category, &r.Revenue); err != nil {
			return nil, err
		}
		revenue = append(revenue, r)
	}
	return revenue, rows.Err()
}

type TopProductsParams struct {
	Start time.Time
	End   time.Time
	Limit int32
}

type TopProductRow struct {
	ProductID    uuid.UUID
	ProductName  string
	TotalRevenue pgtype.Numeric
	TotalQty     int64
}

// GetTopProducts ranks services by line-item revenue within PAID orders.
func (q *Queries) GetTopProducts(ctx context.Context, arg TopProductsParams) ([]TopProductRow, error) {
	const query = `
SELECT p.id, p.name,
       COALESCE(SUM(oi.unit_price * oi.quantity), 0) AS revenue,
       COALESCE(SUM(oi.quantity), 0)
FROM order_items oi
JOIN products p ON p.id = oi.product_id
JOIN orders o ON o.id = oi.order_id
WHERE o.created_at >= $1 AND o.created_at < $2 AND o.payment_status = 'PAID'
GROUP BY p.id, p.name
ORDER BY revenue DESC
LIMIT $3
`
	rows, err := q.db.Query(ctx, query, arg.Start, arg.End, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []TopProductRow
	for rows.Next() {
		var r TopProductRow
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.TotalRevenue, &r.TotalQty); err != nil {
			return nil, err
		}
		top = append(top, r)
	}
	return top, rows.Err()
}

type GetOrderAlertsRow struct {
	PendingCount         int64
	UnpaidCount          int64
	UnpaidWithProofCount int64
}

// GetOrderAlerts returns the operational counters shown on the dashboard.
// These are deliberately unbounded by the selected time range.
func (q *Queries) GetOrderAlerts(ctx context.Context) (GetOrderAlertsRow, error) {
	const query = `
SELECT COUNT(*) FILTER (WHERE status = 'PENDING'),
       COUNT(*) FILTER (WHERE payment_status = 'UNPAID' AND status <> 'CANCELLED'),
       COUNT(*) FILTER (WHERE payment_status = 'UNPAID' AND payment_proof IS NOT NULL)
FROM orders
`
	var row GetOrderAlertsRow
	err := q.db.QueryRow(ctx, query).
		Scan(&row.PendingCount, &row.UnpaidCount, &row.UnpaidWithProofCount)
	return row, err
}
