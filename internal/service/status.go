package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/athallaarl66/crazwash-api/internal/cache"
	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/enum"
	"github.com/athallaarl66/crazwash-api/internal/metrics"
)

var (
	ErrOrderNotFound        = errors.New("pesanan tidak ditemukan")
	ErrInvalidStatus        = errors.New("status tidak valid")
	ErrTransitionNotAllowed = errors.New("perubahan status tidak diizinkan")
)

// orderTransitions is the expected fulfilment flow. The keys are current
// statuses, the values the statuses reachable from them. COMPLETED->READY
// and CANCELLED->PENDING exist as admin correction paths.
var orderTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
	enum.OrderStatusCompleted: {enum.OrderStatusReady},
	enum.OrderStatusCancelled: {enum.OrderStatusPending},
}

var paymentTransitions = map[string][]string{
	enum.PaymentStatusUnpaid:   {enum.PaymentStatusPaid, enum.PaymentStatusRefunded},
	enum.PaymentStatusPaid:     {enum.PaymentStatusRefunded},
	enum.PaymentStatusRefunded: {enum.PaymentStatusPaid},
}

// collapseStatus folds the legacy in-process statuses into READY, the
// state the admin UI works with.
func collapseStatus(status string) string {
	switch status {
	case enum.OrderStatusPickedUp, enum.OrderStatusInProgress:
		return enum.OrderStatusReady
	default:
		return status
	}
}

// CanTransitionOrder reports whether moving an order from current to next
// follows the expected flow.
func CanTransitionOrder(current, next string) bool {
	for _, allowed := range orderTransitions[collapseStatus(current)] {
		if allowed == collapseStatus(next) {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether moving a payment from current to
// next follows the expected flow.
func CanTransitionPayment(current, next string) bool {
	for _, allowed := range paymentTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatusStore defines the DB methods for order status management.
// Satisfied by *database.Queries.
type StatusStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error)
	SetOrderPaymentProof(ctx context.Context, arg database.SetOrderPaymentProofParams) (database.Order, error)
	SetOrderAdminNotes(ctx context.Context, arg database.SetOrderAdminNotesParams) (database.Order, error)
	InsertStatusHistory(ctx context.Context, arg database.InsertStatusHistoryParams) (database.OrderStatusHistory, error)
}

// StatusService manages the order and payment status lifecycle.
type StatusService struct {
	store   StatusStore
	cache   *cache.Cache
	events  EventBroadcaster
	enforce bool
	now     func() time.Time
}

// NewStatusService creates a new StatusService. When enforce is true,
// transitions outside the expected flow are rejected instead of logged.
func NewStatusService(store StatusStore, c *cache.Cache, events EventBroadcaster, enforce bool) *StatusService {
	return &StatusService{
		store:   store,
		cache:   c,
		events:  events,
		enforce: enforce,
		now:     time.Now,
	}
}

// UpdateOrderStatus sets the order status and appends an audit entry.
// Setting the current status again is a no-op. completed_at is stamped
// on the transition into COMPLETED and kept on the way out.
func (s *StatusService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus, adminNote string) (database.Order, error) {
	if !enum.IsValidOrderStatus(newStatus) {
		return database.Order{}, ErrInvalidStatus
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if order.Status == newStatus {
		return order, nil
	}

	if !CanTransitionOrder(order.Status, newStatus) {
		if s.enforce {
			return database.Order{}, ErrTransitionNotAllowed
		}
		zap.L().Warn("order status transition outside expected flow",
			zap.String("order_number", order.OrderNumber),
			zap.String("from", order.Status),
			zap.String("to", newStatus))
	}

	completedAt := pgtype.Timestamptz{}
	if newStatus == enum.OrderStatusCompleted {
		completedAt = pgtype.Timestamptz{Time: s.now(), Valid: true}
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:          orderID,
		Status:      newStatus,
		CompletedAt: completedAt,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	note := adminNote
	if note == "" {
		note = fmt.Sprintf("Status diperbarui menjadi %s", newStatus)
	}
	if _, err := s.store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID: orderID,
		Status:  newStatus,
		Note:    note,
	}); err != nil {
		return database.Order{}, fmt.Errorf("insert status history: %w", err)
	}
	if adminNote != "" {
		if updated, err = s.store.SetOrderAdminNotes(ctx, database.SetOrderAdminNotesParams{
			ID:         orderID,
			AdminNotes: adminNote,
		}); err != nil {
			return database.Order{}, fmt.Errorf("set admin notes: %w", err)
		}
	}

	metrics.OrderStatusTransitionsTotal.WithLabelValues(newStatus).Inc()
	s.invalidateViews(ctx)
	if s.events != nil {
		s.events.Broadcast("order.status_changed", map[string]any{
			"order_id":     updated.ID,
			"order_number": updated.OrderNumber,
			"status":       updated.Status,
		})
	}

	return updated, nil
}

// UpdatePaymentStatus sets the payment status and appends an audit entry.
// Setting the current status again is a no-op.
func (s *StatusService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, newStatus, adminNote string) (database.Order, error) {
	if !enum.IsValidPaymentStatus(newStatus) {
		return database.Order{}, ErrInvalidStatus
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if order.PaymentStatus == newStatus {
		return order, nil
	}

	if !CanTransitionPayment(order.PaymentStatus, newStatus) {
		if s.enforce {
			return database.Order{}, ErrTransitionNotAllowed
		}
		zap.L().Warn("payment status transition outside expected flow",
			zap.String("order_number", order.OrderNumber),
			zap.String("from", order.PaymentStatus),
			zap.String("to", newStatus))
	}

	updated, err := s.store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
		ID:            orderID,
		PaymentStatus: newStatus,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update payment status: %w", err)
	}

	note := adminNote
	if note == "" {
		note = fmt.Sprintf("Status pembayaran diperbarui menjadi %s", newStatus)
	}
	if _, err := s.store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID: orderID,
		Status:  updated.Status,
		Note:    note,
	}); err != nil {
		return database.Order{}, fmt.Errorf("insert status history: %w", err)
	}

	metrics.PaymentStatusTransitionsTotal.WithLabelValues(newStatus).Inc()
	s.invalidateViews(ctx)
	if s.events != nil {
		s.events.Broadcast("order.payment_changed", map[string]any{
			"order_id":       updated.ID,
			"order_number":   updated.OrderNumber,
			"payment_status": updated.PaymentStatus,
		})
	}

	return updated, nil
}

// AttachPaymentProof stores a payment proof reference on the order.
func (s *StatusService) AttachPaymentProof(ctx context.Context, orderID uuid.UUID, proof string) (database.Order, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	updated, err := s.store.SetOrderPaymentProof(ctx, database.SetOrderPaymentProofParams{
		ID:           orderID,
		PaymentProof: proof,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("set payment proof: %w", err)
	}

	s.invalidateViews(ctx)
	return updated, nil
}

func (s *StatusService) invalidateViews(ctx context.Context) {
	if err := s.cache.InvalidateOrderViews(ctx); err != nil {
		zap.L().Warn("invalidate order views", zap.Error(err))
	}
}
