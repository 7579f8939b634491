package interactive

import (
	"context"
	"errors"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
)

func TestOperatorAdapter_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.RuntimeConfig
		promptErr error
		want      bool
		wantErr   bool
		prompted  bool
	}{
		{name: "assume yes", cfg: config.RuntimeConfig{AssumeYes: true}, want: true},
		{name: "assume yes wins over non-interactive", cfg: config.RuntimeConfig{AssumeYes: true, NonInteractive: true}, want: true},
		{name: "non-interactive declines", cfg: config.RuntimeConfig{NonInteractive: true}, want: false},
		{name: "operator accepts", want: true, prompted: true},
		{name: "operator declines", promptErr: promptui.ErrAbort, want: false, prompted: true},
		{name: "interrupted", promptErr: promptui.ErrInterrupt, wantErr: true, prompted: true},
		{name: "prompt failure", promptErr: errors.New("no tty"), wantErr: true, prompted: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			op := NewOperatorAdapter(&cfg)
			prompted := false
			op.prompt = func(string) (string, error) {
				prompted = true
				return "y", tt.promptErr
			}

			got, err := op.Confirm(context.Background(), "Continue")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.prompted, prompted)
		})
	}
}

func TestSelectorAdapter_SelectInstance(t *testing.T) {
	instances := map[string]config.InstanceConfig{
		"sepolia": {RPCURL: "https://rpc.sepolia.org", ChainID: 11155111},
		"local":   {DryRun: true},
	}

	t.Run("single instance needs no prompt", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{NonInteractive: true})
		got, err := s.SelectInstance(context.Background(), map[string]config.InstanceConfig{"only": {}}, "Instance")
		require.NoError(t, err)
		assert.Equal(t, "only", got)
	})

	t.Run("non-interactive with several instances", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{NonInteractive: true})
		_, err := s.SelectInstance(context.Background(), instances, "Instance")
		assert.ErrorContains(t, err, "local, sepolia")
	})

	t.Run("prompted selection", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{})
		s.run = func(sel promptui.Select) (int, error) {
			assert.Len(t, sel.Items, 2)
			return 1, nil
		}
		got, err := s.SelectInstance(context.Background(), instances, "Instance")
		require.NoError(t, err)
		assert.Equal(t, "sepolia", got)
	})

	t.Run("no instances", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{})
		_, err := s.SelectInstance(context.Background(), nil, "Instance")
		assert.Error(t, err)
	})
}

func TestFuzzySearch(t *testing.T) {
	search := createFuzzySearchFunc([]string{"mainnet", "sepolia", "local"})

	assert.True(t, search("", 0))
	assert.True(t, search("net", 0))
	assert.True(t, search("spl", 1))
	assert.False(t, search("xyz", 2))
}
