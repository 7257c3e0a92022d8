package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
)

const (
	DriverEvolution = "evolution"
	DriverLog       = "log"
)

// SendRequest is one outbound message addressed to the provider.
type SendRequest struct {
	SessionName string
	Number      string
	Text        string
	MediaURL    string
	MediaType   string
}

// Sender delivers a message through the messaging provider.
// Any returned error means the attempt failed and may be retried.
type Sender interface {
	Send(ctx context.Context, req SendRequest) error
}

// NewSender picks the implementation once, at startup.
func NewSender(cfg config.ProviderConfig, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverEvolution:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: provider.baseURL is required for the %s driver", apperrors.ErrConfiguration, DriverEvolution)
		}
		return NewEvolutionClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case DriverLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider driver %q", apperrors.ErrConfiguration, cfg.Driver)
	}
}

// NormalizeNumber converts a stored phone into the provider's addressing format.
// Full JIDs keep their server part unless it is the default user server.
func NormalizeNumber(phone string) string {
	if strings.Contains(phone, "@") {
		return strings.TrimSuffix(phone, "@s.whatsapp.net")
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
