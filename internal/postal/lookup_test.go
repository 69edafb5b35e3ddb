package postal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/cache"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/postal"
)

type memPincodes struct {
	rows   map[string]domain.PostalRecord
	getErr error
	puts   int
}

func (m *memPincodes) GetPincode(ctx context.Context, code string) (*domain.PostalRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.rows[code]
	if !ok {
		return nil, domain.ErrPostalCodeNotFound
	}
	return &rec, nil
}

func (m *memPincodes) PutPincode(ctx context.Context, rec domain.PostalRecord) error {
	m.puts++
	m.rows[rec.PostalCode] = rec
	return nil
}

var churchgate = domain.PostalRecord{PostalCode: "400020", District: "Mumbai", State: "Maharashtra"}

func TestLookup_RejectsBadLength(t *testing.T) {
	fetcher := postal.NewMockFetcher()
	svc := postal.NewService(cache.New(), nil, fetcher, nil)

	for _, code := range []string{"", "40002", "4000201"} {
		_, err := svc.Lookup(context.Background(), code)
		assert.ErrorIs(t, err, postal.ErrInvalidCode, code)
	}
	assert.Empty(t, fetcher.CallLog)
}

func TestLookup_PrefersLocalTable(t *testing.T) {
	store := &memPincodes{rows: map[string]domain.PostalRecord{"400020": churchgate}}
	fetcher := postal.NewMockFetcher()
	svc := postal.NewService(cache.New(), store, fetcher, nil)

	rec, err := svc.Lookup(context.Background(), "400020")

	require.NoError(t, err)
	assert.Equal(t, churchgate, *rec)
	assert.Empty(t, fetcher.CallLog)
}

func TestLookup_RemoteResultIsPersistedAndCached(t *testing.T) {
	store := &memPincodes{rows: map[string]domain.PostalRecord{}}
	fetcher := postal.NewMockFetcher()
	fetcher.Records["400020"] = churchgate
	svc := postal.NewService(cache.New(), store, fetcher, nil)

	for i := 0; i < 3; i++ {
		rec, err := svc.Lookup(context.Background(), "400020")
		require.NoError(t, err)
		assert.Equal(t, "Mumbai", rec.District)
	}

	assert.Equal(t, []string{"Fetch(400020)"}, fetcher.CallLog)
	assert.Equal(t, 1, store.puts)
	assert.Contains(t, store.rows, "400020")
}

func TestLookup_NotFoundIsNotCached(t *testing.T) {
	fetcher := postal.NewMockFetcher()
	svc := postal.NewService(cache.New(), nil, fetcher, nil)

	_, err := svc.Lookup(context.Background(), "999999")
	assert.ErrorIs(t, err, postal.ErrNotFound)

	fetcher.Records["999999"] = domain.PostalRecord{PostalCode: "999999", District: "X", State: "Y"}
	rec, err := svc.Lookup(context.Background(), "999999")
	require.NoError(t, err)
	assert.Equal(t, "X", rec.District)
	assert.Len(t, fetcher.CallLog, 2)
}

func TestLookup_TableErrorFallsBackToRemote(t *testing.T) {
	store := &memPincodes{rows: map[string]domain.PostalRecord{}, getErr: errors.New("connection reset")}
	fetcher := postal.NewMockFetcher()
	fetcher.Records["400020"] = churchgate
	svc := postal.NewService(cache.New(), store, fetcher, nil)

	rec, err := svc.Lookup(context.Background(), "400020")

	require.NoError(t, err)
	assert.Equal(t, "Maharashtra", rec.State)
}

func TestHTTPFetcher(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *domain.PostalRecord
		wantErr error
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `[{"Status":"Success","Message":"Number of pincode(s) found:1","PostOffice":[{"Name":"Churchgate","Pincode":"400020","District":"Mumbai","State":"Maharashtra"}]}]`,
			want:   &churchgate,
		},
		{
			name:    "directory reports error",
			status:  http.StatusOK,
			body:    `[{"Status":"Error","Message":"No records found","PostOffice":null}]`,
			wantErr: postal.ErrNotFound,
		},
		{
			name:    "empty array",
			status:  http.StatusOK,
			body:    `[]`,
			wantErr: postal.ErrNotFound,
		},
		{
			name:    "upstream failure",
			status:  http.StatusBadGateway,
			body:    `bad gateway`,
			wantErr: postal.ErrUnavailable,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"Status":`,
			wantErr: postal.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := postal.NewHTTPFetcher(srv.URL+"/pincode/", 2*time.Second)
			rec, err := f.Fetch(context.Background(), "400020")

			assert.Equal(t, "/pincode/400020", gotPath)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec)
		})
	}
}
