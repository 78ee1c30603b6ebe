package matching

import (
	"fmt"
	"math"
	"time"
)

// Weights are the maximum points each factor contributes. They must sum to 100.
type Weights struct {
	Tags       float64 `mapstructure:"tags"`
	Title      float64 `mapstructure:"title"`
	Experience float64 `mapstructure:"experience"`
	Geography  float64 `mapstructure:"geography"`
}

func (w Weights) sum() float64 {
	return w.Tags + w.Title + w.Experience + w.Geography
}

type Config struct {
	Weights Weights `mapstructure:"weights"`
	// CommuteRadiusKm is the distance that still earns full geography credit.
	CommuteRadiusKm float64 `mapstructure:"commute-radius-km"`
	// MaxRadiusKm is the distance at which geography credit reaches zero.
	MaxRadiusKm         float64 `mapstructure:"max-radius-km"`
	DisqualifiedCeiling float64 `mapstructure:"disqualified-ceiling"`
	ProceedThreshold    float64 `mapstructure:"proceed-threshold"`
	// AIWeight is the share of the final score taken from the AI hint.
	AIWeight    float64       `mapstructure:"ai-weight"`
	AITimeout   time.Duration `mapstructure:"ai-timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Tags:       45,
			Title:      15,
			Experience: 15,
			Geography:  25,
		},
		CommuteRadiusKm:     15,
		MaxRadiusKm:         100,
		DisqualifiedCeiling: 45,
		ProceedThreshold:    60,
		AIWeight:            0.3,
		AITimeout:           20 * time.Second,
		Concurrency:         8,
	}
}

// Validate fills zero values with defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.Weights == (Weights{}) {
		c.Weights = def.Weights
	}
	if c.Weights.Tags < 0 || c.Weights.Title < 0 || c.Weights.Experience < 0 || c.Weights.Geography < 0 {
		return fmt.Errorf("matching weights must not be negative: %+v", c.Weights)
	}
	if math.Abs(c.Weights.sum()-100) > 0.01 {
		return fmt.Errorf("matching weights must sum to 100, got %.2f", c.Weights.sum())
	}

	if c.CommuteRadiusKm <= 0 {
		c.CommuteRadiusKm = def.CommuteRadiusKm
	}
	if c.MaxRadiusKm <= 0 {
		c.MaxRadiusKm = def.MaxRadiusKm
	}
	if c.MaxRadiusKm <= c.CommuteRadiusKm {
		return fmt.Errorf("max radius (%.1f km) must exceed commute radius (%.1f km)", c.MaxRadiusKm, c.CommuteRadiusKm)
	}

	if c.DisqualifiedCeiling <= 0 {
		c.DisqualifiedCeiling = def.DisqualifiedCeiling
	}
	if c.DisqualifiedCeiling >= 100 {
		return fmt.Errorf("disqualified ceiling must be below 100, got %.1f", c.DisqualifiedCeiling)
	}
	if c.ProceedThreshold <= 0 {
		c.ProceedThreshold = def.ProceedThreshold
	}

	if c.AIWeight < 0 || c.AIWeight > 1 {
		return fmt.Errorf("ai weight must be within [0, 1], got %.2f", c.AIWeight)
	}
	if c.AITimeout <= 0 {
		c.AITimeout = def.AITimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}

	return nil
}
