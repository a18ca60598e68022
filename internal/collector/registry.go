package collector

import (
	"context"

	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/logger"
)

// Descriptor describes one collector type and builds instances of it.
type Descriptor struct {
	Type               Type
	RequiresPermission bool

	source Source
}

// Instance creates an active collector bound to q.
func (d Descriptor) Instance(q Queue) (Collector, error) {
	if d.source == nil {
		return &idleCollector{t: d.Type}, nil
	}

	c, err := d.source.NewCollector(d.Type, q)
	if err != nil {
		return nil, errors.New().Wrap(ErrInstanceFailed, err).WithData(string(d.Type))
	}
	return c, nil
}

type Registry struct {
	descriptors map[Type]Descriptor
}

// NewRegistry builds the fixed registry. A nil source yields idle
// collectors, which is what a host without native sensors gets.
func NewRegistry(src Source) *Registry {
	r := &Registry{descriptors: make(map[Type]Descriptor, len(allTypes))}
	for _, t := range allTypes {
		r.descriptors[t] = Descriptor{
			Type:               t,
			RequiresPermission: t.RequiresPermission(),
			source:             src,
		}
	}

	logger.Debug().Int("collectors", len(r.descriptors)).Bool("platform_source", src != nil).Msg("Collector registry ready")

	return r
}

func (r *Registry) Lookup(tag string) (Descriptor, error) {
	d, ok := r.descriptors[Type(tag)]
	if !ok {
		return Descriptor{}, unknownCollector(tag)
	}
	return d, nil
}

// Get is Lookup for an already-parsed Type.
func (r *Registry) Get(t Type) (Descriptor, error) {
	return r.Lookup(string(t))
}

type idleCollector struct {
	t Type
}

func (c *idleCollector) Type() Type { return c.t }

func (c *idleCollector) Start(_ context.Context) error {
	logger.Debug().Str("collector", string(c.t)).Msg("No platform source, collector idle")
	return nil
}

func (*idleCollector) Stop() error { return nil }
