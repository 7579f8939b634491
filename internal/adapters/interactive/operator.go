package interactive

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// OperatorAdapter answers build confirmations on the terminal
type OperatorAdapter struct {
	config *config.RuntimeConfig
	prompt func(label string) (string, error)
}

// NewOperatorAdapter creates a new operator adapter
func NewOperatorAdapter(cfg *config.RuntimeConfig) *OperatorAdapter {
	return &OperatorAdapter{
		config: cfg,
		prompt: func(label string) (string, error) {
			p := promptui.Prompt{Label: label, IsConfirm: true}
			return p.Run()
		},
	}
}

// Confirm asks a yes/no question. --yes answers yes; non-interactive mode
// declines without prompting.
func (o *OperatorAdapter) Confirm(_ context.Context, label string) (bool, error) {
	if o.config.AssumeYes {
		return true, nil
	}
	if o.config.NonInteractive {
		return false, nil
	}

	_, err := o.prompt(label)
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, fmt.Errorf("confirmation interrupted: %w", err)
		}
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return true, nil
}

// Ensure OperatorAdapter implements Operator
var _ usecase.Operator = (*OperatorAdapter)(nil)
