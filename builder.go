package authsession

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/havenstay/authsession/identity"
	"github.com/havenstay/authsession/internal/dispatch"
	"github.com/havenstay/authsession/session"
)

// Builder assembles a [Manager]. A Builder can be built once.
type Builder struct {
	config   Config
	store    *session.Store
	identity identity.Service
	sink     NotificationSink
	logger   *slog.Logger
	now      func() time.Time

	built bool
}

// New returns a builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the persistence layer. An in-memory store is used when
// none is set.
func (b *Builder) WithStore(store *session.Store) *Builder {
	b.store = store
	return b
}

// WithIdentity sets the remote identity backend. Required.
func (b *Builder) WithIdentity(svc identity.Service) *Builder {
	b.identity = svc
	return b
}

// WithNotificationSink sets where outcomes are delivered.
func (b *Builder) WithNotificationSink(sink NotificationSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the structured logger. Logging is discarded by default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the manager's time source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithConcurrencyPolicy sets the default overlap policy.
func (b *Builder) WithConcurrencyPolicy(p ConcurrencyPolicy) *Builder {
	b.config.Concurrency.Default = p
	return b
}

// WithOperationPolicy overrides the overlap policy for one operation.
func (b *Builder) WithOperationPolicy(op Operation, p ConcurrencyPolicy) *Builder {
	if b.config.Concurrency.Overrides == nil {
		b.config.Concurrency.Overrides = make(map[Operation]ConcurrencyPolicy)
	}
	b.config.Concurrency.Overrides[op] = p
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

// Build validates the configuration and returns a manager whose loading
// flag is already set. Call [Manager.Start] to restore the persisted
// session; operations start it on demand.
//
// Build may return an error when the configuration is invalid or no
// identity backend was supplied.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.identity == nil {
		return nil, errors.New("identity service required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	store := b.store
	if store == nil {
		store = session.NewStore(session.NewMemoryBackend(), session.WithClock(now), session.WithLogger(logger))
	}
	sink := b.sink
	if sink == nil {
		sink = NoOpSink{}
	}

	var n notifier = inlineNotifier{sink: sink}
	if cfg.Notifications.Async {
		n = dispatch.New[Notification](dispatch.Config{
			BufferSize: cfg.Notifications.BufferSize,
			DropIfFull: cfg.Notifications.DropIfFull,
		}, dispatch.SinkFunc[Notification](sink.Notify))
	}

	b.built = true

	return &Manager{
		config:       cfg,
		store:        store,
		identity:     b.identity,
		notifier:     n,
		logger:       logger,
		metrics:      NewMetrics(cfg.Metrics),
		now:          now,
		ready:        make(chan struct{}),
		initializing: true,
		listeners:    make(map[uint64]func(State)),
	}, nil
}
