package oamap

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	require.Len(t, p.Tiers, 3)
	require.Equal(t, 2000, p.LinearProbeLimit)
	require.Equal(t, 2, p.GrowthFactor)
	require.Equal(t, 1, p.MinCapacity)
	require.Equal(t, 1<<30, p.MaxCapacity)

	// Every call returns a fresh tier slice.
	p.Tiers[0].GrowAt = 0.1
	require.Equal(t, 0.7, DefaultPolicy().Tiers[0].GrowAt)
}

func TestPolicy_ValidateCollectsEveryError(t *testing.T) {
	p := Policy{
		GrowthFactor: 1,
		MinCapacity:  0,
		MaxCapacity:  -1,
	}
	err := p.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidArgument)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 4)
	for _, want := range []string{"no tiers", "growth_factor", "min_capacity", "max_capacity"} {
		require.Contains(t, err.Error(), want)
	}
}

func TestPolicy_ValidateTiers(t *testing.T) {
	cases := []struct {
		name  string
		tiers []Tier
		want  string
	}{
		{
			name:  "unbounded in the middle",
			tiers: []Tier{{0, 0.7, 0.4}, {0, 0.8, 0.5}},
			want:  "only the last tier may be unbounded",
		},
		{
			name:  "bounded last",
			tiers: []Tier{{100, 0.7, 0.4}},
			want:  "last tier must be unbounded",
		},
		{
			name:  "descending",
			tiers: []Tier{{100, 0.7, 0.4}, {50, 0.7, 0.4}, {0, 0.7, 0.4}},
			want:  "not ascending",
		},
		{
			name:  "grow_at above one",
			tiers: []Tier{{0, 1.5, 0.4}},
			want:  "grow_at",
		},
		{
			name:  "shrink_at above grow_at",
			tiers: []Tier{{0, 0.5, 0.6}},
			want:  "shrink_at",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPolicy()
			p.Tiers = tc.tiers
			err := p.Validate()
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.Contains(t, err.Error(), tc.want)
		})
	}

	p := DefaultPolicy()
	p.Tiers = []Tier{{0, 1, 0}}
	require.NoError(t, p.Validate(), "a single unbounded tier without shrinking is valid")
}

func TestLoadPolicy(t *testing.T) {
	t.Run("defaults fill omitted fields", func(t *testing.T) {
		p, err := LoadPolicy(strings.NewReader("growth_factor: 4\nmax_capacity: 65536\n"))
		require.NoError(t, err)
		require.Equal(t, 4, p.GrowthFactor)
		require.Equal(t, 65536, p.MaxCapacity)
		require.Equal(t, DefaultPolicy().Tiers, p.Tiers)
		require.Equal(t, 2000, p.LinearProbeLimit)
		require.Equal(t, 1, p.MinCapacity)
	})

	t.Run("tiers replace the default schedule", func(t *testing.T) {
		doc := `
tiers:
  - {max_capacity: 64, grow_at: 0.5, shrink_at: 0.2}
  - {max_capacity: 0, grow_at: 0.75, shrink_at: 0}
linear_probe_limit: 32
`
		p, err := LoadPolicy(strings.NewReader(doc))
		require.NoError(t, err)
		require.Equal(t, []Tier{{64, 0.5, 0.2}, {0, 0.75, 0}}, p.Tiers)
		require.Equal(t, 32, p.LinearProbeLimit)
		require.Equal(t, 2, p.GrowthFactor)
	})

	t.Run("empty document", func(t *testing.T) {
		p, err := LoadPolicy(strings.NewReader(""))
		require.NoError(t, err)
		require.Equal(t, DefaultPolicy(), p)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadPolicy(strings.NewReader("grow_factor: 3\n"))
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadPolicy(strings.NewReader("growth_factor: 1\n"))
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Contains(t, err.Error(), "growth_factor")
	})

	t.Run("round trip", func(t *testing.T) {
		data, err := DefaultPolicy().YAML()
		require.NoError(t, err)
		require.Contains(t, string(data), "linear_probe_limit: 2000")
		p, err := LoadPolicy(strings.NewReader(string(data)))
		require.NoError(t, err)
		require.Equal(t, DefaultPolicy(), p)
	})
}

func TestPolicy_TierFor(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 0.7, p.tierFor(1).GrowAt)
	require.Equal(t, 0.7, p.tierFor(2000).GrowAt)
	require.Equal(t, 0.8, p.tierFor(2001).GrowAt)
	require.Equal(t, 0.8, p.tierFor(mediumTableSize).GrowAt)
	if strconv.IntSize == 64 {
		big := mediumTableSize
		big++
		require.Equal(t, 0.9, p.tierFor(big).GrowAt)
	}
}

func TestPolicy_Thresholds(t *testing.T) {
	p := DefaultPolicy()

	require.False(t, p.shouldGrow(6, 10))
	require.True(t, p.shouldGrow(7, 10))
	require.True(t, p.shouldGrow(1, 1))
	require.False(t, p.shouldGrow(3200, 4096))
	require.True(t, p.shouldGrow(3277, 4096))

	require.True(t, p.shouldShrink(4, 10))
	require.False(t, p.shouldShrink(5, 10))
	require.False(t, p.shouldShrink(0, 1), "never below MinCapacity")
	require.True(t, p.shouldShrink(2048, 4096))

	noShrink := DefaultPolicy()
	noShrink.Tiers[0].ShrinkAt = 0
	require.False(t, noShrink.shouldShrink(0, 100))
}

func TestPolicy_Normalize(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 1, p.normalize(0))
	require.Equal(t, 1, p.normalize(-5))
	require.Equal(t, 1500, p.normalize(1500))
	require.Equal(t, 2000, p.normalize(2000))
	require.Equal(t, 2048, p.normalize(2001))
	require.Equal(t, 1<<30, p.normalize(1<<30))

	p.MinCapacity = 16
	p.MaxCapacity = 3000
	require.Equal(t, 16, p.normalize(3))
	require.Equal(t, 3000, p.normalize(2500), "power-of-two rounding is capped at MaxCapacity")
	require.Equal(t, 3000, p.normalize(5000))
}

func TestPolicy_GrowCapacity(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 2, p.growCapacity(1))
	require.Equal(t, 8, p.growCapacity(4))
	require.Equal(t, 2000, p.growCapacity(1000))
	require.Equal(t, 4096, p.growCapacity(1500))
	require.Equal(t, 8192, p.growCapacity(4096))
	require.Equal(t, 1<<30, p.growCapacity(1<<29))
	require.Equal(t, 1<<30, p.growCapacity(1<<29+1))
	require.Equal(t, 1<<30, p.growCapacity(1<<30))

	p.GrowthFactor = 3
	require.Equal(t, 12, p.growCapacity(4))
}

func TestPolicy_ShrinkCapacity(t *testing.T) {
	p := DefaultPolicy()

	// Small tier: aim for the midpoint 0.55.
	require.Equal(t, 19, p.shrinkCapacity(10, 100))
	// Medium tier: aim for 0.65, rounded up to a power of two.
	require.Equal(t, 4096, p.shrinkCapacity(2000, 8192))

	// No smaller table keeps the next insert below the growth threshold.
	require.Equal(t, 8, p.shrinkCapacity(0, 8))
	require.Equal(t, 4, p.shrinkCapacity(3, 4))

	for _, c := range []struct{ occupied, capacity int }{
		{5, 20}, {10, 100}, {500, 2000}, {1000, 8192}, {20000, 65536},
	} {
		n := p.shrinkCapacity(c.occupied, c.capacity)
		require.Less(t, n, c.capacity)
		require.GreaterOrEqual(t, n, c.occupied+1)
		require.False(t, p.shouldGrow(c.occupied+1, n), "%d entries in %d slots", c.occupied+1, n)
	}
}
