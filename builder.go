package mosession

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/bayazee/mosession/codec"
	"github.com/bayazee/mosession/internal"
	"github.com/bayazee/mosession/store"
)

// Builder assembles an [Engine]. Exactly one backend must be supplied:
// an explicit [store.Store], a Redis client, or a MongoDB URI. A Builder
// is single-use; Build consumes it.
type Builder struct {
	config Config

	store    store.Store
	redis    redis.UniversalClient
	mongoURI string
	cache    store.Store

	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore supplies a pre-built backend. Takes precedence over WithRedis
// and WithMongo. The caller keeps ownership; Close does not touch it.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis selects the Redis backend, keyed under Redis.KeyPrefix. The
// caller keeps ownership of the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMongo selects the MongoDB backend. Build dials uri with the
// configured retry budget and the Engine owns the resulting client.
func (b *Builder) WithMongo(uri string) *Builder {
	b.mongoURI = uri
	return b
}

// WithCache layers a read-through cache tier over the primary backend,
// bounded by Cache.TTL. Typically a [store.Memory] in front of MongoDB.
func (b *Builder) WithCache(c store.Store) *Builder {
	b.cache = c
	return b
}

// WithAuditSink enables audit dispatch to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the lifecycle counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Begin-latency histogram. Requires
// metrics to be enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the backend, and returns a
// ready [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		codec:  codec.NewBinary(cfg.Session.MaxPayloadSize),
	}

	// -------- BACKEND --------
	switch {
	case b.store != nil:
		engine.store = b.store
	case b.redis != nil:
		engine.store = store.NewRedis(b.redis, cfg.Redis.KeyPrefix)
	case b.mongoURI != "":
		m, err := store.DialMongo(context.Background(), store.MongoOptions{
			URI:             b.mongoURI,
			Database:        cfg.Mongo.Database,
			Collection:      cfg.Mongo.Collection,
			ConnectAttempts: cfg.Mongo.ConnectAttempts,
			ConnectDelay:    cfg.Mongo.ConnectDelay,
		})
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(context.Background()); err != nil {
			_ = m.Close(context.Background())
			return nil, err
		}
		engine.store = m
		engine.closers = append(engine.closers, m.Close)
	default:
		return nil, errors.New("backend required: provide a store, redis client, or mongo uri")
	}

	if b.cache != nil {
		engine.store = store.NewCached(engine.store, b.cache, cfg.Cache.TTL)
	}

	// -------- TOKEN STRATEGY --------
	switch cfg.Token.Strategy {
	case TokenUUID:
		engine.newToken = internal.NewUUIDToken
		engine.validToken = internal.ValidUUIDToken
	default:
		randomBytes := cfg.Token.RandomBytes
		engine.newToken = func() (string, error) {
			return internal.NewRandomToken(randomBytes)
		}
		engine.validToken = func(token string) bool {
			return internal.ValidRandomToken(token, randomBytes)
		}
	}

	// -------- OBSERVABILITY --------
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
