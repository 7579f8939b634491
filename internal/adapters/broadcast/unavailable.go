package broadcast

import (
	"context"

	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// Unavailable stands in for a broadcaster whose configuration is invalid, so
// commands that never broadcast still start. Every call returns the
// configuration error.
type Unavailable struct {
	err error
}

// NewUnavailable wraps a configuration error
func NewUnavailable(err error) *Unavailable {
	return &Unavailable{err: err}
}

// Ready returns the configuration error
func (u *Unavailable) Ready() error { return u.err }

func (u *Unavailable) Sender() string { return "" }

func (u *Unavailable) Deploy(context.Context, usecase.DeployRequest) (*models.DeployReceipt, error) {
	return nil, u.err
}

func (u *Unavailable) UpgradeProxy(context.Context, string, string) (*models.TransactionOutcome, error) {
	return nil, u.err
}

var (
	_ usecase.Broadcaster = (*Unavailable)(nil)
	_ usecase.Readiness   = (*Unavailable)(nil)
)
