package ratelimit

import "fmt"

// Pools are the limiters for each endpoint class, sharing one State.
type Pools struct {
	Auth   *Limiter
	API    *Limiter
	AI     *Limiter
	Health *Limiter
}

// NewPools builds the four pools from configs keyed by pool name. The name
// becomes the key prefix.
func NewPools(state *State, configs map[string]Config, opts ...Option) (*Pools, error) {
	build := func(name string) (*Limiter, error) {
		cfg, ok := configs[name]
		if !ok {
			return nil, fmt.Errorf("rate limit pool %q is not configured", name)
		}
		cfg.KeyPrefix = name
		return New(state, cfg, opts...), nil
	}

	var p Pools
	var err error
	if p.Auth, err = build("auth"); err != nil {
		return nil, err
	}
	if p.API, err = build("api"); err != nil {
		return nil, err
	}
	if p.AI, err = build("ai"); err != nil {
		return nil, err
	}
	if p.Health, err = build("health"); err != nil {
		return nil, err
	}
	return &p, nil
}
