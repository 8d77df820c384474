package oamap

import (
	"fmt"
	"io"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/imdario/mergo"
	"gopkg.in/yaml.v2"
)

const (
	// smallTableSize bounds the small tier and the linear-probing range.
	smallTableSize = 2000
	// mediumTableSize bounds the medium tier.
	mediumTableSize = math.MaxInt32
	// defaultMaxCapacity is the largest table the default policy allocates.
	defaultMaxCapacity = 1 << 30
	// defaultGrowthFactor multiplies the capacity on every growth.
	defaultGrowthFactor = 2
)

// Tier holds the resize thresholds for tables up to MaxCapacity slots.
type Tier struct {
	// MaxCapacity is the largest capacity the tier applies to. Zero means
	// unbounded and is only valid for the last tier.
	MaxCapacity int `yaml:"max_capacity"`
	// GrowAt is the load factor at or above which the table grows.
	GrowAt float64 `yaml:"grow_at"`
	// ShrinkAt is the load factor at or below which the table shrinks.
	// Zero disables shrinking for the tier.
	ShrinkAt float64 `yaml:"shrink_at"`
}

// Policy is the resize schedule of a map. Thresholds are tiered by
// absolute table size: small tables grow at lower fill and shrink more
// eagerly than large ones.
type Policy struct {
	// Tiers, ordered by ascending MaxCapacity; the last one is unbounded.
	Tiers []Tier `yaml:"tiers"`
	// LinearProbeLimit is the largest capacity probed linearly. Larger
	// power-of-two tables probe quadratically, and resized tables above
	// this limit are rounded up to a power of two.
	LinearProbeLimit int `yaml:"linear_probe_limit"`
	// GrowthFactor multiplies the capacity on growth.
	GrowthFactor int `yaml:"growth_factor"`
	// MinCapacity is the floor for shrinking.
	MinCapacity int `yaml:"min_capacity"`
	// MaxCapacity bounds both initial and resized capacities.
	MaxCapacity int `yaml:"max_capacity"`
}

// DefaultPolicy returns the built-in schedule:
//
//	capacity <= 2000        grow at 0.70, shrink at 0.40
//	capacity <= 2147483647  grow at 0.80, shrink at 0.50
//	larger                  grow at 0.90, shrink at 0.50
func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{MaxCapacity: smallTableSize, GrowAt: 0.7, ShrinkAt: 0.4},
			{MaxCapacity: mediumTableSize, GrowAt: 0.8, ShrinkAt: 0.5},
			{MaxCapacity: 0, GrowAt: 0.9, ShrinkAt: 0.5},
		},
		LinearProbeLimit: smallTableSize,
		GrowthFactor:     defaultGrowthFactor,
		MinCapacity:      1,
		MaxCapacity:      defaultMaxCapacity,
	}
}

// Validate reports every rule the policy breaks.
func (p Policy) Validate() error {
	var result *multierror.Error
	if len(p.Tiers) == 0 {
		result = multierror.Append(result, fmt.Errorf("no tiers"))
	}
	prev := 0
	for i, t := range p.Tiers {
		last := i == len(p.Tiers)-1
		switch {
		case t.MaxCapacity == 0 && !last:
			result = multierror.Append(result, fmt.Errorf("tier %d: only the last tier may be unbounded", i))
		case t.MaxCapacity != 0 && last:
			result = multierror.Append(result, fmt.Errorf("tier %d: last tier must be unbounded (max_capacity: 0)", i))
		case t.MaxCapacity < 0 || (t.MaxCapacity != 0 && t.MaxCapacity <= prev):
			result = multierror.Append(result, fmt.Errorf("tier %d: max_capacity %d is not ascending", i, t.MaxCapacity))
		}
		if t.MaxCapacity > 0 {
			prev = t.MaxCapacity
		}
		if t.GrowAt <= 0 || t.GrowAt > 1 {
			result = multierror.Append(result, fmt.Errorf("tier %d: grow_at %.2f outside (0, 1]", i, t.GrowAt))
		}
		if t.ShrinkAt < 0 || t.ShrinkAt >= t.GrowAt {
			result = multierror.Append(result, fmt.Errorf("tier %d: shrink_at %.2f outside [0, grow_at)", i, t.ShrinkAt))
		}
	}
	if p.LinearProbeLimit < 0 {
		result = multierror.Append(result, fmt.Errorf("linear_probe_limit %d is negative", p.LinearProbeLimit))
	}
	if p.GrowthFactor < 2 {
		result = multierror.Append(result, fmt.Errorf("growth_factor %d is below 2", p.GrowthFactor))
	}
	if p.MinCapacity < 1 {
		result = multierror.Append(result, fmt.Errorf("min_capacity %d is below 1", p.MinCapacity))
	}
	if p.MaxCapacity < p.MinCapacity {
		result = multierror.Append(result, fmt.Errorf("max_capacity %d is below min_capacity %d", p.MaxCapacity, p.MinCapacity))
	}
	if err := result.ErrorOrNil(); err != nil {
		return newError("policy", "", KindInvalidArgument, err)
	}
	return nil
}

// LoadPolicy decodes a YAML policy. Fields left out keep their
// DefaultPolicy values.
func LoadPolicy(r io.Reader) (Policy, error) {
	var p Policy
	data, err := io.ReadAll(r)
	if err != nil {
		return p, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return p, newError("policy", "", KindInvalidArgument, err)
	}
	if err := mergo.Merge(&p, DefaultPolicy()); err != nil {
		return p, fmt.Errorf("merge policy defaults: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// YAML encodes the policy in the format LoadPolicy accepts.
func (p Policy) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

// tierFor returns the tier governing a table of the given capacity.
func (p *Policy) tierFor(capacity int) Tier {
	for _, t := range p.Tiers {
		if t.MaxCapacity == 0 || capacity <= t.MaxCapacity {
			return t
		}
	}
	return p.Tiers[len(p.Tiers)-1]
}

func loadFactor(occupied, capacity int) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(occupied) / float64(capacity)
}

func (p *Policy) shouldGrow(occupied, capacity int) bool {
	return loadFactor(occupied, capacity) >= p.tierFor(capacity).GrowAt
}

func (p *Policy) shouldShrink(occupied, capacity int) bool {
	t := p.tierFor(capacity)
	return t.ShrinkAt > 0 &&
		capacity > p.MinCapacity &&
		loadFactor(occupied, capacity) <= t.ShrinkAt
}

// normalize clamps a proposed capacity into the policy bounds. Capacities
// above LinearProbeLimit are rounded up to a power of two so that they
// probe quadratically with full coverage.
func (p *Policy) normalize(n int) int {
	n = max(n, p.MinCapacity)
	if n > p.LinearProbeLimit && n <= p.MaxCapacity {
		n = nextPowOf2(n)
	}
	return min(n, p.MaxCapacity)
}

// growCapacity is the capacity a table of the given size grows to.
func (p *Policy) growCapacity(capacity int) int {
	if capacity > p.MaxCapacity/p.GrowthFactor {
		return p.MaxCapacity
	}
	return p.normalize(max(capacity*p.GrowthFactor, 1))
}

// shrinkCapacity is the capacity a table shrinks to: the midpoint of the
// current tier's thresholds, never below occupied and never so small that
// the next insert would grow it again. Returns capacity when no smaller
// table qualifies.
func (p *Policy) shrinkCapacity(occupied, capacity int) int {
	t := p.tierFor(capacity)
	target := (t.ShrinkAt + t.GrowAt) / 2
	n := p.normalize(int(math.Ceil(float64(occupied) / target)))
	if n < occupied+1 || n >= capacity || p.shouldGrow(occupied+1, n) {
		return capacity
	}
	return n
}
