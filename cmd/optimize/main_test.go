package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
)

func TestApplyMutation(t *testing.T) {
	tests := []struct {
		name      string
		flag      float64
		wantRate  float64
		wantNoMut bool
	}{
		{"unset keeps default", -1, 0, false},
		{"zero disables mutation", 0, 0, true},
		{"explicit rate", 0.25, 0.25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := optimizer.Config{NoMutation: true, MutationRate: 0.9}
			applyMutation(&cfg, tt.flag)
			assert.Equal(t, tt.wantRate, cfg.MutationRate)
			assert.Equal(t, tt.wantNoMut, cfg.NoMutation)

			merged := cfg.Merge(scoring.SpecialV7)
			if tt.wantNoMut {
				assert.Zero(t, merged.MutationRate)
			} else {
				assert.Positive(t, merged.MutationRate)
			}
		})
	}
}

func TestInterruptHint(t *testing.T) {
	assert.Contains(t, interruptHint(true), "-resume")
	assert.NotContains(t, interruptHint(false), "-resume")
}
