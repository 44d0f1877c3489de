package scan

import (
	"fmt"
	"time"

	"github.com/shaunnez/diamond-opus-sub001/internal/digest"
)

// Mode selects the density scan strategy.
type Mode string

// Scan modes.
const (
	// ModeSinglePass probes each sub-range exactly once and accepts the
	// result, regardless of how coarse the estimate is.
	ModeSinglePass Mode = "single-pass"

	// ModeTwoPass bisects sub-ranges whose counts exceed SaturationThreshold,
	// binary-search style, until they fall under the threshold or reach
	// MinBisectWidth.
	ModeTwoPass Mode = "two-pass"
)

// ============================================================================
// Probe Budget Model
// ============================================================================
//
// The scanner never enumerates individual records; its cost is measured in
// range-count probes. Three settings bound that cost:
//
//   - InitialStep / DenseZoneStep control how many coarse probes a full sweep
//     of [MinValue, MaxValue) takes. The dense zone (below DenseZoneThreshold)
//     is stepped more finely because that is where inventory concentrates.
//   - MaxAPICalls caps total probe attempts. When the cap is reached the
//     scanner closes the remaining range with one final probe so the density
//     map still covers [MinValue, MaxValue); the cap is soft by that one call.
//   - MaxTotalRecords stops early the same way once the accumulated count
//     reaches the limit.
//
// Two-pass refinement spends extra probes only where a single probe saturated,
// so dense spikes get finer resolution without widening the global budget.
// Each bisection costs one probe: the left half is probed and the right half
// inherits the remainder of the parent count, which also keeps chunk counts
// summing exactly to their parent.
//
// ============================================================================

// Config is the configuration for a density scan and the partition plan
// derived from it.
//
// Value bounds and steps are in the scanned unit (price per carat).
type Config struct {
	// Mode selects single-pass or two-pass scanning.
	Mode Mode `yaml:"mode"`

	// MinValue is the inclusive lower bound of the scanned value space.
	MinValue float64 `yaml:"minValue"`

	// MaxValue is the exclusive upper bound of the scanned value space.
	MaxValue float64 `yaml:"maxValue"`

	// MaxWorkers is the maximum number of partitions to produce. The actual
	// partition count may be smaller when total records are few.
	MaxWorkers int `yaml:"maxWorkers"`

	// DenseZoneThreshold demarcates the dense zone: positions below it are
	// probed with DenseZoneStep, positions at or above it with InitialStep.
	DenseZoneThreshold float64 `yaml:"denseZoneThreshold"`

	// DenseZoneStep is the probe width inside the dense zone.
	// Must be smaller than InitialStep: dense regions get finer resolution.
	DenseZoneStep float64 `yaml:"denseZoneStep"`

	// InitialStep is the probe width outside the dense zone.
	InitialStep float64 `yaml:"initialStep"`

	// MaxTotalRecords stops the scan early once the accumulated count reaches
	// this limit; the remaining range is closed with one final probe.
	// 0 means no limit.
	MaxTotalRecords int64 `yaml:"maxTotalRecords"`

	// SaturationThreshold is the chunk count above which two-pass mode
	// bisects the chunk. Ignored in single-pass mode.
	SaturationThreshold int64 `yaml:"saturationThreshold"`

	// MinBisectWidth is the sub-range width at which bisection stops
	// refining. Must be positive and no larger than DenseZoneStep.
	MinBisectWidth float64 `yaml:"minBisectWidth"`

	// MaxAPICalls caps the number of probe attempts per scan.
	// 0 means no cap.
	MaxAPICalls int `yaml:"maxApiCalls"`

	// ProbeRetries is how many times a failed probe is retried with
	// identical bounds before the whole scan is abandoned.
	ProbeRetries int `yaml:"probeRetries"`

	// OperationTimeout is the timeout applied to each individual probe query.
	// 0 means no per-probe timeout beyond the caller's context.
	OperationTimeout time.Duration `yaml:"operationTimeout"`
}

// DefaultConfig returns a Config with production defaults for a full
// inventory scan.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Mode:                ModeTwoPass,
		MinValue:            0,
		MaxValue:            50_000,
		MaxWorkers:          16,
		DenseZoneThreshold:  10_000,
		DenseZoneStep:       250,
		InitialStep:         2_500,
		MaxTotalRecords:     0, // no limit
		SaturationThreshold: 25_000,
		MinBisectWidth:      25,
		MaxAPICalls:         1_000,
		ProbeRetries:        3,
		OperationTimeout:    10 * time.Second,
	}
}

// PreviewConfig returns a Config tuned for fast, cheap preview scans.
//
// Previews run the same algorithm with a fraction of the probe budget:
// coarser steps, single pass, and a hard cap on API calls. They are meant for
// interactive iteration on scan settings, not for scheduling real runs.
//
// Returns:
//   - Config: Configuration with reduced-budget values
func PreviewConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeSinglePass
	cfg.DenseZoneStep = 1_000
	cfg.InitialStep = 5_000
	cfg.MaxAPICalls = 60
	cfg.ProbeRetries = 1

	return cfg
}

// SetDefaults fills in missing configuration values with production defaults.
//
// A zero DenseZoneThreshold is treated as unset and filled; configure a
// threshold at or below MinValue to disable the dense zone explicitly.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	setDefaultsFrom(cfg, DefaultConfig())
}

// setDefaultsFrom fills zero-valued fields of cfg from defaults. Shared by
// SetDefaults and the scheduler's preview merging.
func setDefaultsFrom(cfg *Config, defaults Config) {
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.MaxValue == 0 {
		cfg.MaxValue = defaults.MaxValue
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = defaults.MaxWorkers
	}
	if cfg.DenseZoneThreshold == 0 {
		cfg.DenseZoneThreshold = defaults.DenseZoneThreshold
	}
	if cfg.DenseZoneStep == 0 {
		cfg.DenseZoneStep = defaults.DenseZoneStep
	}
	if cfg.InitialStep == 0 {
		cfg.InitialStep = defaults.InitialStep
	}
	if cfg.MaxTotalRecords == 0 {
		cfg.MaxTotalRecords = defaults.MaxTotalRecords
	}
	if cfg.SaturationThreshold == 0 {
		cfg.SaturationThreshold = defaults.SaturationThreshold
	}
	if cfg.MinBisectWidth == 0 {
		cfg.MinBisectWidth = defaults.MinBisectWidth
	}
	if cfg.MaxAPICalls == 0 {
		cfg.MaxAPICalls = defaults.MaxAPICalls
	}
	if cfg.ProbeRetries == 0 {
		cfg.ProbeRetries = defaults.ProbeRetries
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	// Note: MinValue of 0 is the normal lower bound, so we don't apply a default
}

// Validate checks configuration constraints and returns an error for invalid values.
//
// Hard Validation Rules:
//   - MinValue < MaxValue (non-empty value space)
//   - MaxWorkers >= 1
//   - InitialStep > 0 and DenseZoneStep > 0
//   - DenseZoneStep < InitialStep (dense regions get finer resolution)
//   - Mode is single-pass or two-pass
//   - two-pass: SaturationThreshold > 0
//   - two-pass: 0 < MinBisectWidth <= DenseZoneStep
//   - MaxTotalRecords, MaxAPICalls, ProbeRetries >= 0
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.MinValue >= cfg.MaxValue {
		return fmt.Errorf("MinValue (%v) must be < MaxValue (%v)", cfg.MinValue, cfg.MaxValue)
	}

	if cfg.MaxWorkers < 1 {
		return fmt.Errorf("MaxWorkers must be >= 1, got %d", cfg.MaxWorkers)
	}

	if cfg.InitialStep <= 0 {
		return fmt.Errorf("InitialStep must be > 0, got %v", cfg.InitialStep)
	}

	if cfg.DenseZoneStep <= 0 {
		return fmt.Errorf("DenseZoneStep must be > 0, got %v", cfg.DenseZoneStep)
	}

	if cfg.DenseZoneStep >= cfg.InitialStep {
		return fmt.Errorf(
			"DenseZoneStep (%v) must be < InitialStep (%v): dense regions are scanned at finer resolution",
			cfg.DenseZoneStep, cfg.InitialStep,
		)
	}

	switch cfg.Mode {
	case ModeSinglePass:
		// No refinement settings to check.
	case ModeTwoPass:
		if cfg.SaturationThreshold <= 0 {
			return fmt.Errorf("SaturationThreshold must be > 0 in two-pass mode, got %d", cfg.SaturationThreshold)
		}
		if cfg.MinBisectWidth <= 0 {
			return fmt.Errorf("MinBisectWidth must be > 0 in two-pass mode, got %v", cfg.MinBisectWidth)
		}
		if cfg.MinBisectWidth > cfg.DenseZoneStep {
			return fmt.Errorf(
				"MinBisectWidth (%v) must be <= DenseZoneStep (%v): refinement must be finer than the dense step",
				cfg.MinBisectWidth, cfg.DenseZoneStep,
			)
		}
	default:
		return fmt.Errorf("Mode must be %q or %q, got %q", ModeSinglePass, ModeTwoPass, cfg.Mode)
	}

	if cfg.MaxTotalRecords < 0 {
		return fmt.Errorf("MaxTotalRecords must be >= 0, got %d", cfg.MaxTotalRecords)
	}

	if cfg.MaxAPICalls < 0 {
		return fmt.Errorf("MaxAPICalls must be >= 0, got %d", cfg.MaxAPICalls)
	}

	if cfg.ProbeRetries < 0 {
		return fmt.Errorf("ProbeRetries must be >= 0, got %d", cfg.ProbeRetries)
	}

	return nil
}

// Digest returns a stable fingerprint of the settings that determine scan
// output. Two scans of the same static data set with equal digests produce
// identical density maps and partitions.
//
// Retry and timeout settings are excluded: they affect resilience, not the
// produced result.
//
// Returns:
//   - string: 16-character hex fingerprint
func (cfg *Config) Digest() string {
	var h digest.Hasher
	h.WriteString(string(cfg.Mode))
	h.WriteFloat64(cfg.MinValue)
	h.WriteFloat64(cfg.MaxValue)
	h.WriteInt64(int64(cfg.MaxWorkers))
	h.WriteFloat64(cfg.DenseZoneThreshold)
	h.WriteFloat64(cfg.DenseZoneStep)
	h.WriteFloat64(cfg.InitialStep)
	h.WriteInt64(cfg.MaxTotalRecords)
	h.WriteInt64(cfg.SaturationThreshold)
	h.WriteFloat64(cfg.MinBisectWidth)
	h.WriteInt64(int64(cfg.MaxAPICalls))

	return h.Sum()
}

// TestConfig returns a configuration optimized for fast test execution.
//
// The value space and probe budget are far smaller than production defaults
// so tests complete in milliseconds against in-memory counters. Use
// DefaultConfig() for production scans.
//
// Returns:
//   - Config: Configuration with small range and budget for tests
func TestConfig() Config {
	return Config{
		Mode:                ModeTwoPass,
		MinValue:            0,
		MaxValue:            1_000,
		MaxWorkers:          4,
		DenseZoneThreshold:  200,
		DenseZoneStep:       25,
		InitialStep:         100,
		SaturationThreshold: 50,
		MinBisectWidth:      5,
		MaxAPICalls:         200,
		ProbeRetries:        1,
		OperationTimeout:    time.Second,
	}
}
