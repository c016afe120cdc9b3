package cmap

import "go.uber.org/zap"

// config holds the construction-time parameters shared by CMap and
// DenseMap. It is generalized from homier-stablemap's
// `Option[K, V] func(t *table[K, V])` pattern so the same Option type
// configures either core.
type config[K comparable, V any] struct {
	hashFunc   HashFunc[K]
	equal      func(a, b K) bool
	loadFactor float64
	logger     *zap.Logger
	metrics    MetricsRecorder
}

// Option configures a CMap or DenseMap at construction time.
type Option[K comparable, V any] func(*config[K, V])

// WithHashFunc overrides the default hash function.
func WithHashFunc[K comparable, V any](f HashFunc[K]) Option[K, V] {
	return func(c *config[K, V]) {
		c.hashFunc = f
	}
}

// WithEqual overrides the key-equality function. The default is Go's
// native `==` on comparable keys (spec §3: "default: language-native
// structural equality").
func WithEqual[K comparable, V any](eq func(a, b K) bool) Option[K, V] {
	return func(c *config[K, V]) {
		c.equal = eq
	}
}

// WithLoadFactor overrides the default load factor. Must be in (0, 1]:
// both New and NewDense reject out-of-range values with
// ErrInvalidConfiguration at construction. DenseMap silently clamps
// in-range values above 0.875 (spec §4.3).
func WithLoadFactor[K comparable, V any](lf float64) Option[K, V] {
	return func(c *config[K, V]) {
		c.loadFactor = lf
	}
}

// WithLogger attaches a zap logger for migration/construction
// diagnostics. Defaults to a no-op logger — the hot operation paths
// never log regardless of level.
func WithLogger[K comparable, V any](l *zap.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches a MetricsRecorder. Defaults to a no-op recorder.
func WithMetrics[K comparable, V any](m MetricsRecorder) Option[K, V] {
	return func(c *config[K, V]) {
		if m != nil {
			c.metrics = m
		}
	}
}

func newConfig[K comparable, V any](defaultLoadFactor float64, opts []Option[K, V]) *config[K, V] {
	c := &config[K, V]{
		loadFactor: defaultLoadFactor,
		logger:     zap.NewNop(),
		metrics:    noopMetrics{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.equal == nil {
		c.equal = func(a, b K) bool { return a == b }
	}

	if c.hashFunc == nil {
		c.hashFunc = MakeDefaultHashFunc[K]()
	}

	return c
}
