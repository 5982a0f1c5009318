package config

import (
	"sync/atomic"
)

// DetectionConfig holds the thresholds consulted by the detection pipeline.
// Snapshots are immutable; changes go through Store.Update.
type DetectionConfig struct {
	RPCEndpoint                 string  `yaml:"rpc_endpoint" validate:"required,url"`
	RefreshRateMs               int64   `yaml:"refresh_rate_ms" validate:"gt=0,lte=86400000"`
	PriceImpactWarningThreshold float64 `yaml:"price_impact_warning_threshold" validate:"gte=0"` // percent
	PoolActivityThreshold       int     `yaml:"pool_activity_threshold" validate:"gte=0"`        // swaps per window
	TimeWindowSeconds           int64   `yaml:"time_window_seconds" validate:"gt=0,lte=86400"`
	SlippageThreshold           float64 `yaml:"slippage_threshold" validate:"gte=0"` // percent
	LargeTradeSize              float64 `yaml:"large_trade_size" validate:"gte=0"`   // UI units of the input leg
}

// Validate checks the detection settings. NaN and infinite values are rejected.
func (d DetectionConfig) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"price_impact_warning_threshold", d.PriceImpactWarningThreshold},
		{"slippage_threshold", d.SlippageThreshold},
		{"large_trade_size", d.LargeTradeSize},
	} {
		if err := checkFinite(f.name, f.value); err != nil {
			return err
		}
	}
	return validateStruct(d)
}

// Store holds the current DetectionConfig. Readers always observe a whole
// snapshot: updates replace the pointer, never individual fields.
type Store struct {
	current atomic.Pointer[DetectionConfig]
	version atomic.Uint64
}

// NewStore creates a store seeded with a validated config.
func NewStore(initial DetectionConfig) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	s := &Store{}
	snapshot := initial
	s.current.Store(&snapshot)
	return s, nil
}

// Load returns the current snapshot.
func (s *Store) Load() DetectionConfig {
	return *s.current.Load()
}

// Update validates next and swaps it in. On error the previous config stays active.
func (s *Store) Update(next DetectionConfig) error {
	if err := next.Validate(); err != nil {
		return err
	}
	snapshot := next
	s.current.Store(&snapshot)
	s.version.Add(1)
	return nil
}

// Version counts successful updates since creation.
func (s *Store) Version() uint64 {
	return s.version.Load()
}
