package permission

import (
	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Gate answers permission questions per collector tag.
type Gate struct {
	registry *collector.Registry
	platform Platform
	inflight singleflight.Group
}

func NewGate(registry *collector.Registry, platform Platform) *Gate {
	return &Gate{
		registry: registry,
		platform: platform,
	}
}

// CheckPermission reports whether tag may be collected right now.
func (g *Gate) CheckPermission(tag string) (bool, error) {
	d, err := g.registry.Lookup(tag)
	if err != nil {
		return false, err
	}

	if !d.RequiresPermission {
		return true, nil
	}

	granted := g.platform.CheckPermission(d.Type)
	logger.Debug().
		Str("collector", tag).
		Bool("granted", granted).
		Msg("Platform permission checked")

	return granted, nil
}

// RequestPermission runs the platform permission flow for tag and returns
// when it has finished. Returning nil does not mean the grant was given.
// Concurrent requests for the same collector share a single platform flow.
func (g *Gate) RequestPermission(tag string) error {
	d, err := g.registry.Lookup(tag)
	if err != nil {
		return err
	}

	if !d.RequiresPermission {
		return nil
	}

	_, _, shared := g.inflight.Do(tag, func() (any, error) {
		logger.Info().Str("collector", tag).Msg("Requesting platform permission")
		g.platform.RequestPermission(d.Type)
		return nil, nil
	})

	logger.Debug().
		Str("collector", tag).
		Bool("shared", shared).
		Msg("Platform permission flow finished")

	return nil
}
