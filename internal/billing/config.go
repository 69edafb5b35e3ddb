package billing

import "fmt"

// Provider names accepted by New.
const (
	ProviderFake     = "fakepay"
	ProviderRazorpay = "razorpay"
)

// Config contains configuration for the payment provider.
type Config struct {
	// Provider is "fakepay" or "razorpay"
	Provider string

	// KeyID is the public key (rzp_test_... or rzp_live_...)
	KeyID string

	// KeySecret signs and verifies payment callbacks
	KeySecret string
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.KeyID == "" || c.KeySecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// IsTestMode returns true if using test mode keys.
func (c *Config) IsTestMode() bool {
	return c.Provider == ProviderFake || (len(c.KeyID) > 8 && c.KeyID[:9] == "rzp_test_")
}

// New creates the provider named in cfg.
func New(cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderFake, "":
		return NewFakeProvider(cfg.KeyID, cfg.KeySecret), nil
	case ProviderRazorpay:
		return NewRazorpayProvider(cfg.KeyID, cfg.KeySecret), nil
	default:
		return nil, &PaymentError{Code: ErrUnknownProvider.Code, Message: ErrUnknownProvider.Message, Err: fmt.Errorf("%q", cfg.Provider)}
	}
}
