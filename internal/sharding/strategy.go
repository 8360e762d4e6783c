// Package sharding partitions the key space across cache backends.
package sharding

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/types"
)

// Strategy maps a key to a shard index in [0, Shards()).
type Strategy interface {
	ShardFor(key string) int
	Shards() int
}

// NewStrategy builds a strategy from configuration.
func NewStrategy(cfg config.ShardingConfig) (Strategy, error) {
	switch cfg.Strategy {
	case "", "consistent":
		return NewHashRing(cfg.Shards, cfg.VirtualNodes)
	case "modulo":
		return NewModulo(cfg.Shards)
	default:
		return nil, fmt.Errorf("%w: unknown sharding strategy %q", types.ErrConfig, cfg.Strategy)
	}
}

type ringPoint struct {
	hash  uint64
	shard int
}

// HashRing is a consistent-hash strategy. Each shard contributes a set
// of virtual nodes so that changing the shard count only remaps a
// bounded fraction of the key space.
type HashRing struct {
	ring         []ringPoint
	shards       int
	virtualNodes int
}

const defaultVirtualNodes = 150

// NewHashRing creates a ring with the given shard count and virtual
// nodes per shard.
func NewHashRing(shards, virtualNodes int) (*HashRing, error) {
	if shards <= 0 {
		return nil, fmt.Errorf("%w: shards must be positive", types.ErrConfig)
	}
	if virtualNodes <= 0 {
		virtualNodes = defaultVirtualNodes
	}

	r := &HashRing{virtualNodes: virtualNodes}
	r.rebuild(shards)
	return r, nil
}

// rebuild regenerates the ring for the given shard count.
func (r *HashRing) rebuild(shards int) {
	ring := make([]ringPoint, 0, shards*r.virtualNodes)
	for shard := 0; shard < shards; shard++ {
		for vnode := 0; vnode < r.virtualNodes; vnode++ {
			label := fmt.Sprintf("shard:%d:vnode:%d", shard, vnode)
			ring = append(ring, ringPoint{
				hash:  xxhash.Sum64String(label),
				shard: shard,
			})
		}
	}
	sort.Slice(ring, func(i, j int) bool { return ring[i].hash < ring[j].hash })

	r.ring = ring
	r.shards = shards
}

// ShardFor returns the shard owning the first ring point at or after
// the key's hash, wrapping to the start of the ring.
func (r *HashRing) ShardFor(key string) int {
	h := xxhash.Sum64String(key)
	idx := sort.Search(len(r.ring), func(i int) bool {
		return r.ring[i].hash >= h
	})
	if idx == len(r.ring) {
		idx = 0
	}
	return r.ring[idx].shard
}

// Shards returns the shard count.
func (r *HashRing) Shards() int {
	return r.shards
}

// Resize changes the shard count and rebuilds the ring.
func (r *HashRing) Resize(shards int) error {
	if shards <= 0 {
		return fmt.Errorf("%w: shards must be positive", types.ErrConfig)
	}
	if shards != r.shards {
		r.rebuild(shards)
	}
	return nil
}

// Modulo is the simple hash-mod-N strategy. Cheap, but a shard-count
// change remaps almost the whole key space.
type Modulo struct {
	shards int
}

func NewModulo(shards int) (*Modulo, error) {
	if shards <= 0 {
		return nil, fmt.Errorf("%w: shards must be positive", types.ErrConfig)
	}
	return &Modulo{shards: shards}, nil
}

func (m *Modulo) ShardFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(m.shards))
}

func (m *Modulo) Shards() int {
	return m.shards
}

var _ Strategy = (*HashRing)(nil)
var _ Strategy = (*Modulo)(nil)
