package payments

import (
	"fmt"

	"github.com/codr1/courtbook/internal/config"
)

// NewGateway returns the gateway named by cfg.Provider.
func NewGateway(cfg config.PaymentsConfig) (Gateway, error) {
	switch cfg.Provider {
	case "", ProviderSandbox:
		return NewSandboxGateway(), nil
	default:
		return nil, fmt.Errorf("unsupported payments provider: %s", cfg.Provider)
	}
}
