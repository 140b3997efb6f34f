package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Sliding-window pool names.
const (
	PoolAuth   = "auth"
	PoolAPI    = "api"
	PoolAI     = "ai"
	PoolHealth = "health"
)

// Limits holds the daily tier allowances and the sliding-window pools.
type Limits struct {
	Tiers         map[string]int  `yaml:"tiers"`
	Pools         map[string]Pool `yaml:"pools"`
	SweepSchedule string          `yaml:"sweep_schedule"`
}

// Pool configures one sliding-window limiter. Zero fields inherit the default.
type Pool struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
}

func DefaultLimits() *Limits {
	return &Limits{
		Tiers: map[string]int{
			"free":    10,
			"premium": 100,
		},
		Pools: map[string]Pool{
			PoolAuth:   {Window: 15 * time.Minute, MaxRequests: 5},
			PoolAPI:    {Window: time.Minute, MaxRequests: 60},
			PoolAI:     {Window: time.Minute, MaxRequests: 10},
			PoolHealth: {Window: time.Minute, MaxRequests: 60},
		},
		SweepSchedule: "@every 1m",
	}
}

// LoadLimits reads a YAML limits document and layers it over the defaults.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadLimits(path string) (*Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read limits file: %w", err)
	}

	return ParseLimits([]byte(os.ExpandEnv(string(data))))
}

func ParseLimits(data []byte) (*Limits, error) {
	var override Limits
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse limits file: %w", err)
	}

	limits := DefaultLimits()
	for tier, n := range override.Tiers {
		limits.Tiers[tier] = n
	}
	for name, p := range override.Pools {
		base, ok := limits.Pools[name]
		if !ok {
			return nil, fmt.Errorf("limits: unknown pool %q", name)
		}
		if p.Window != 0 {
			base.Window = p.Window
		}
		if p.MaxRequests != 0 {
			base.MaxRequests = p.MaxRequests
		}
		limits.Pools[name] = base
	}
	if override.SweepSchedule != "" {
		limits.SweepSchedule = override.SweepSchedule
	}

	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return limits, nil
}

// Validate checks that every allowance and window is positive.
func (l *Limits) Validate() error {
	if _, ok := l.Tiers["free"]; !ok {
		return fmt.Errorf("limits: tier %q is required", "free")
	}
	for tier, n := range l.Tiers {
		if n <= 0 {
			return fmt.Errorf("limits: tier %q: daily limit must be positive, got %d", tier, n)
		}
	}
	for _, name := range []string{PoolAuth, PoolAPI, PoolAI, PoolHealth} {
		p, ok := l.Pools[name]
		if !ok {
			return fmt.Errorf("limits: pool %q is required", name)
		}
		if p.Window <= 0 {
			return fmt.Errorf("limits: pool %q: window must be positive", name)
		}
		if p.MaxRequests <= 0 {
			return fmt.Errorf("limits: pool %q: max_requests must be positive", name)
		}
	}
	if l.SweepSchedule == "" {
		return fmt.Errorf("limits: sweep_schedule is required")
	}
	return nil
}
