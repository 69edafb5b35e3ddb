package postal

import (
	"context"
	"fmt"

	"github.com/dukerupert/fusionx/internal/domain"
)

// MockFetcher is a test implementation of Fetcher.
type MockFetcher struct {
	// FetchFunc allows customizing lookup behavior
	FetchFunc func(ctx context.Context, code string) (*domain.PostalRecord, error)

	// Records answers lookups when FetchFunc is nil
	Records map[string]domain.PostalRecord

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockFetcher creates a mock fetcher with no known codes.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Records: make(map[string]domain.PostalRecord),
		CallLog: []string{},
	}
}

// Fetch delegates to FetchFunc or answers from Records.
func (m *MockFetcher) Fetch(ctx context.Context, code string) (*domain.PostalRecord, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("Fetch(%s)", code))

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, code)
	}

	rec, ok := m.Records[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}
