package postal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

// Fetcher queries the remote PIN code directory.
type Fetcher interface {
	Fetch(ctx context.Context, code string) (*domain.PostalRecord, error)
}

// DefaultBaseURL is the public India Post directory.
const DefaultBaseURL = "https://api.postalpincode.in/pincode/"

// HTTPFetcher calls a postalpincode.in compatible API at BaseURL + code.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher with the given request timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPFetcher{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &telemetry.HTTPTransport{Transport: http.DefaultTransport},
		},
	}
}

type directoryResponse struct {
	Status     string `json:"Status"`
	Message    string `json:"Message"`
	PostOffice []struct {
		Pincode  string `json:"Pincode"`
		District string `json:"District"`
		State    string `json:"State"`
	} `json:"PostOffice"`
}

// Fetch returns the first post office listed for code.
func (f *HTTPFetcher) Fetch(ctx context.Context, code string) (*domain.PostalRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+url.PathEscape(code), nil)
	if err != nil {
		return nil, unavailable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, unavailable(fmt.Errorf("status %d", resp.StatusCode))
	}

	var body []directoryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, unavailable(fmt.Errorf("decode: %w", err))
	}

	if len(body) == 0 || body[0].Status != "Success" || len(body[0].PostOffice) == 0 {
		return nil, ErrNotFound
	}

	po := body[0].PostOffice[0]
	pincode := po.Pincode
	if pincode == "" {
		pincode = code
	}
	return &domain.PostalRecord{
		PostalCode: pincode,
		District:   po.District,
		State:      po.State,
	}, nil
}
