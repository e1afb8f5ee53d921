package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, cfg *Config) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadDefaultRoundTrip(t *testing.T) {
	path := writeConfig(t, Default())

	cfg, raw, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "ashare_riptide_v1", cfg.Meta.StrategyID)
	assert.Equal(t, Default().Allocation.CliffMultiple, cfg.Allocation.CliffMultiple)
}

func TestLoadRejectsUnknownfield(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	data, err := yaml.Marshal(Default())
	require.NoError(t, err)
	data = append(data, []byte("\nmystery_knob: 42\n")...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, err = Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestHashDeterministic(t *testing.T) {
	h1, err := Hash(Default())
	require.NoError(t, err)
	h2, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	changed := Default()
	changed.Allocation.CliffMultiple = 1.8
	h3, err := Hash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidateRejectsBadInferenceWeights(t *testing.T) {
	cfg := Default()
	cfg.Inference.PressureWeight = 0.9 // sum != 1
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsLooseningSentiment(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.Sentiment.Decline = 0.5 // looser than climax
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadTierSplits(t *testing.T) {
	cfg := Default()
	cfg.Allocation.TierSplits = [][]float64{{0.9}, {0.4, 0.6}} // increasing
	assert.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Allocation.TierSplits = [][]float64{{0.9}, {0.6}} // wrong arity
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsCapTierInversion(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.CapTiers.Small.InflowScale = 5.0 // bigger than mega
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsCliffAtOrBelowOne(t *testing.T) {
	cfg := Default()
	cfg.Allocation.CliffMultiple = 1.0
	assert.Error(t, Validate(cfg))
}

func TestNewDecisionSnapshot(t *testing.T) {
	cfg := Default()
	snap, err := NewDecisionSnapshot(cfg, []byte("yaml-body"))
	require.NoError(t, err)
	assert.Equal(t, cfg.Meta.StrategyID, snap.StrategyID)
	assert.NotEmpty(t, snap.ConfigHash)
	assert.Equal(t, "yaml-body", snap.ConfigYAML)
}
