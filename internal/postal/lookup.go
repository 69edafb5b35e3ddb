// Package postal resolves Indian PIN codes to district and state.
package postal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/fusionx/internal/cache"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

const cachePrefix = "postal:"

// Service implements domain.PostalLookup. Lookups try the cache, then the
// pincodes table, then the remote directory.
type Service struct {
	cache   cache.Store
	store   domain.PincodeStore
	fetcher Fetcher
	logger  *slog.Logger
}

var _ domain.PostalLookup = (*Service)(nil)

// NewService creates a lookup service. store may be nil, in which case
// remote results are only cached in memory.
func NewService(c cache.Store, store domain.PincodeStore, fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: c, store: store, fetcher: fetcher, logger: logger}
}

// Lookup resolves code. Codes that are not six characters long are
// rejected before any I/O.
func (s *Service) Lookup(ctx context.Context, code string) (*domain.PostalRecord, error) {
	if len(code) != domain.PostalCodeLength {
		return nil, ErrInvalidCode
	}

	rec, err := cache.Fetch(ctx, s.cache, cachePrefix+code, 0, func(ctx context.Context) (domain.PostalRecord, error) {
		return s.load(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) load(ctx context.Context, code string) (domain.PostalRecord, error) {
	if s.store != nil {
		rec, err := s.store.GetPincode(ctx, code)
		switch {
		case err == nil:
			countLookup("table")
			return *rec, nil
		case !errors.Is(err, domain.ErrPostalCodeNotFound):
			s.logger.Warn("pincode table read failed", "code", code, "error", err)
		}
	}

	rec, err := s.fetcher.Fetch(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			countLookup("not_found")
		} else {
			s.logger.Error("postal directory lookup failed", "code", code, "error", err)
		}
		return domain.PostalRecord{}, err
	}
	countLookup("remote")

	if s.store != nil {
		if err := s.store.PutPincode(ctx, *rec); err != nil {
			s.logger.Warn("pincode table write failed", "code", code, "error", err)
		}
	}
	return *rec, nil
}

func countLookup(source string) {
	if telemetry.Business != nil {
		telemetry.Business.PostalLookups.WithLabelValues(source).Inc()
	}
}
