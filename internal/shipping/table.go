// Package shipping prices delivery by destination state and estimates
// delivery dates.
package shipping

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
)

// DispatchTimezone is where the warehouse cutoff hour is measured.
const DispatchTimezone = "Asia/Kolkata"

// CutoffHour is the last hour of the day an order still ships the same day.
const CutoffHour = 10

const (
	sameStateDays  = 2
	otherStateDays = 4
)

// NeighbourStates are charged the mid tier.
var NeighbourStates = []string{
	"DADRA & NAGAR HAVELI",
	"GUJARAT",
	"MADHYA PRADESH",
	"CHATTISGARH",
	"TELANGANA",
	"KARNATAKA",
	"GOA",
}

var (
	ErrHomeStateRequired   = domain.Errorf(domain.EINVALID, "shipping.table", "Registered state is required")
	ErrTimezoneUnavailable = domain.Errorf(domain.EINTERNAL, "shipping.table", "Dispatch timezone unavailable")
)

// Rates are the three flat per-order tiers.
type Rates struct {
	Home      decimal.Decimal
	Neighbour decimal.Decimal
	Other     decimal.Decimal
}

// DefaultRates are the storefront's published shipping charges.
var DefaultRates = Rates{
	Home:      decimal.NewFromInt(40),
	Neighbour: decimal.NewFromInt(55),
	Other:     decimal.NewFromInt(70),
}

// Table maps destination states to a flat shipping charge.
type Table struct {
	home       string
	neighbours map[string]struct{}
	rates      Rates
	loc        *time.Location
}

// NewTable builds a table for a seller registered in homeState.
func NewTable(homeState string, neighbours []string, rates Rates) (*Table, error) {
	home := normalize(homeState)
	if home == "" {
		return nil, ErrHomeStateRequired
	}

	loc, err := time.LoadLocation(DispatchTimezone)
	if err != nil {
		return nil, ErrTimezoneUnavailable
	}

	t := &Table{
		home:       home,
		neighbours: make(map[string]struct{}, len(neighbours)),
		rates:      rates,
		loc:        loc,
	}
	for _, s := range neighbours {
		t.neighbours[normalize(s)] = struct{}{}
	}
	return t, nil
}

// HomeState is the seller's registered state, upper case.
func (t *Table) HomeState() string {
	return t.home
}

// IsIntraState reports whether state is the seller's registered state.
func (t *Table) IsIntraState(state string) bool {
	return normalize(state) == t.home
}

// Cost returns the flat charge for delivering an order to state.
func (t *Table) Cost(state string) decimal.Decimal {
	s := normalize(state)
	if s == t.home {
		return t.rates.Home
	}
	if _, ok := t.neighbours[s]; ok {
		return t.rates.Neighbour
	}
	return t.rates.Other
}

// DeliveryDate estimates when an order placed at now reaches destination.
// Orders after the cutoff hour ship the next day.
func (t *Table) DeliveryDate(destination string, now time.Time) time.Time {
	local := now.In(t.loc)

	days := otherStateDays
	if normalize(destination) == t.home {
		days = sameStateDays
	}
	if local.Hour() > CutoffHour {
		days++
	}

	y, m, d := local.AddDate(0, 0, days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.loc)
}

// FormatDate renders a delivery date the way order pages show it.
func FormatDate(d time.Time) string {
	return d.Format("Mon, 02 Jan 2006")
}

func normalize(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
