package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

// sweepBatchSize bounds how many stale reservations one store call returns.
const sweepBatchSize = 100

type inventoryService struct {
	store  domain.InventoryStore
	logger *slog.Logger
	now    func() time.Time
}

var _ domain.InventoryService = (*inventoryService)(nil)

// NewInventoryService creates the reservation manager.
func NewInventoryService(store domain.InventoryStore, logger *slog.Logger) domain.InventoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &inventoryService{store: store, logger: logger, now: time.Now}
}

// ReserveItems tries a full reservation of every line. A line that cannot
// be covered is retried with whatever stock is left; lines with no stock
// are dropped. Both cases are reported as error items.
//
// When the store fails, reservations already taken by this call are
// returned to stock before the error is reported.
func (s *inventoryService) ReserveItems(ctx context.Context, sessionID string, items []domain.CartItem) ([]domain.CartItem, []domain.ErrorItem, error) {
	reserved := make([]domain.CartItem, 0, len(items))
	errorItems := make([]domain.ErrorItem, 0)

	for _, item := range items {
		got, err := s.reserveLine(ctx, sessionID, item)
		if err != nil {
			s.rollback(ctx, sessionID, reserved)
			return nil, nil, err
		}

		switch {
		case got == item.Qty:
			reserved = append(reserved, item)
			countReservation(domain.ReserveFull)
		case got > 0:
			line := item
			line.Qty = got
			reserved = append(reserved, line)
			errorItems = append(errorItems, domain.ErrorItem{CartItem: line, Requested: item.Qty, Outcome: domain.ReservePartial})
			countReservation(domain.ReservePartial)
			s.logger.Info("reserved partial quantity", "sku", item.SKU, "requested", item.Qty, "reserved", got)
		default:
			line := item
			line.Qty = 0
			errorItems = append(errorItems, domain.ErrorItem{CartItem: line, Requested: item.Qty, Outcome: domain.ReserveOutOfStock})
			countReservation(domain.ReserveOutOfStock)
			s.logger.Info("item out of stock at checkout", "sku", item.SKU, "requested", item.Qty)
		}
	}

	return reserved, errorItems, nil
}

// reserveLine returns how many units of item ended up reserved.
func (s *inventoryService) reserveLine(ctx context.Context, sessionID string, item domain.CartItem) (int, error) {
	ok, err := s.store.Reserve(ctx, item.SKU, item.Qty, sessionID)
	if err != nil {
		return 0, err
	}
	if ok {
		return item.Qty, nil
	}

	available, err := s.store.Available(ctx, item.SKU)
	if errors.Is(err, domain.ErrVariantNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if available <= 0 {
		return 0, nil
	}
	if available > item.Qty {
		// Stock came back between the two calls.
		available = item.Qty
	}

	ok, err = s.store.Reserve(ctx, item.SKU, available, sessionID)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Another session took the remainder first.
		return 0, nil
	}
	return available, nil
}

func (s *inventoryService) rollback(ctx context.Context, sessionID string, reserved []domain.CartItem) {
	if len(reserved) == 0 {
		return
	}
	if err := s.ReleaseItems(context.WithoutCancel(ctx), sessionID, reserved); err != nil {
		s.logger.Error("failed to roll back reservations", "session_id", sessionID, "error", err)
	}
}

// ReleaseItems returns every reservation the session holds for items. It
// keeps going after a failure and reports the first one.
func (s *inventoryService) ReleaseItems(ctx context.Context, sessionID string, items []domain.CartItem) error {
	var firstErr error
	released := 0

	for _, item := range items {
		ok, err := s.store.Release(ctx, item.SKU, sessionID)
		if err != nil {
			s.logger.Error("failed to release reservation", "sku", item.SKU, "session_id", sessionID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !ok {
			s.logger.Debug("no reservation to release", "sku", item.SKU, "session_id", sessionID)
			continue
		}
		released++
	}

	countReleased("abandon", released)
	return firstErr
}

// SweepStale releases reservations older than maxAge held by sessions that
// have expired or been deleted, in batches until none are left.
func (s *inventoryService) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	total := 0

	for {
		stale, err := s.store.StaleReservations(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return total, err
		}

		released := 0
		for _, r := range stale {
			ok, err := s.store.Release(ctx, r.SKU, r.SessionID)
			if err != nil {
				return total, err
			}
			if ok {
				released++
			}
		}
		total += released

		if len(stale) < sweepBatchSize || released == 0 {
			break
		}
	}

	countReleased("stale", total)
	if total > 0 {
		s.logger.Info("released stale reservations", "count", total, "cutoff", cutoff)
	}
	return total, nil
}

func countReservation(outcome domain.ReserveOutcome) {
	if telemetry.Business != nil {
		telemetry.Business.ReservationOutcomes.WithLabelValues(string(outcome)).Inc()
	}
}

func countReleased(reason string, n int) {
	if telemetry.Business != nil && n > 0 {
		telemetry.Business.ReservationsReleased.WithLabelValues(reason).Add(float64(n))
	}
}
