package sharding

// Resolver returns the backend serving the given shard index.
type Resolver[T any] func(shard int) T

// Manager routes keys to backends through a Strategy. The backend type
// is caller-defined; the manager only deals in shard indexes.
type Manager[T any] struct {
	strategy Strategy
	resolve  Resolver[T]
}

func NewManager[T any](strategy Strategy, resolve Resolver[T]) *Manager[T] {
	return &Manager[T]{strategy: strategy, resolve: resolve}
}

// For returns the backend owning key and its shard index.
func (m *Manager[T]) For(key string) (T, int) {
	shard := m.strategy.ShardFor(key)
	return m.resolve(shard), shard
}

// Shard returns the backend for an explicit shard index.
func (m *Manager[T]) Shard(i int) T {
	return m.resolve(i)
}

// Shards returns the shard count of the underlying strategy.
func (m *Manager[T]) Shards() int {
	return m.strategy.Shards()
}

// GroupKeys splits a key batch by owning shard so batch operations can
// run one call per backend.
func (m *Manager[T]) GroupKeys(keys []string) map[int][]string {
	groups := make(map[int][]string)
	for _, key := range keys {
		shard := m.strategy.ShardFor(key)
		groups[shard] = append(groups[shard], key)
	}
	return groups
}
