package mosession

import (
	"errors"
	"time"

	"github.com/bayazee/mosession/internal"
)

// Config defines the process-wide session store configuration.
//
// Config instances are assembled once at startup, validated by
// [Builder.Build], and treated as immutable afterwards.
type Config struct {
	Session SessionConfig
	Token   TokenConfig
	Redis   RedisConfig
	Mongo   MongoConfig
	Cache   CacheConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls lifecycle behavior: TTL policy, payload limits,
// and how backend outages during Begin are handled.
type SessionConfig struct {
	// TTL is the default session lifetime, refreshed on every save.
	TTL time.Duration
	// PermanentByDefault makes new sessions permanent (no expiry) unless a
	// handler calls SetPermanent(false).
	PermanentByDefault bool
	// RefreshOnRead slides the expiry of loaded-but-unmutated sessions via
	// Touch at End. Off by default: an untouched request then costs zero
	// backend writes.
	RefreshOnRead bool
	// Strict surfaces backend outages from Begin instead of degrading to an
	// ephemeral, never-persisted session.
	Strict bool
	// MaxPayloadSize caps the encoded payload in bytes. Zero disables.
	MaxPayloadSize int
	// Encoding selects the payload codec. "binary" is the only built-in.
	Encoding string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenStrategyType selects how session identifiers are generated.
type TokenStrategyType int

const (
	// TokenRandom generates identifiers from raw crypto/rand bytes,
	// base64url encoded.
	TokenRandom TokenStrategyType = iota
	// TokenUUID generates identifiers as random (version 4) UUID strings.
	TokenUUID
)

// TokenConfig controls identifier generation and the transport token name
// passed through to [Instruction] consumers.
type TokenConfig struct {
	// CookieName is the transport-level token name. The engine never reads
	// or writes cookies itself; the name is carried on every Instruction.
	CookieName string
	// Strategy selects the identifier generator.
	Strategy TokenStrategyType
	// RandomBytes is the raw entropy size for TokenRandom. Minimum 16
	// (128 bits).
	RandomBytes int
	// CollisionRetries bounds how often a colliding fresh identifier is
	// regenerated before giving up with ErrIdentifierCollision.
	CollisionRetries int
}

/*
====================================
BACKEND CONFIG
====================================
*/

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// KeyPrefix namespaces session keys as "<prefix>:<id>".
	KeyPrefix string
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI             string
	Database        string
	Collection      string
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// CacheConfig configures the optional read-through cache tier supplied via
// [Builder.WithCache].
type CacheConfig struct {
	// TTL bounds how long a cache entry may outlive its last primary read.
	TTL time.Duration
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig configures the async audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig configures the lock-free metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Callers adjust fields
// and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:                7 * 24 * time.Hour,
			PermanentByDefault: false,
			RefreshOnRead:      false,
			Strict:             false,
			MaxPayloadSize:     64 * 1024,
			Encoding:           "binary",
		},
		Token: TokenConfig{
			CookieName:       "session",
			Strategy:         TokenRandom,
			RandomBytes:      16,
			CollisionRetries: 3,
		},
		Redis: RedisConfig{
			KeyPrefix: "mos",
		},
		Mongo: MongoConfig{
			Database:        "mosession",
			Collection:      "sessions",
			ConnectAttempts: 5,
			ConnectDelay:    100 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. Build calls
// it; it is exported so applications can validate loaded config early.
func (c *Config) Validate() error {
	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.MaxPayloadSize < 0 {
		return errors.New("Session MaxPayloadSize must be >= 0")
	}
	if c.Session.Encoding != "binary" {
		return errors.New("Session Encoding must be 'binary'")
	}

	// Token
	if c.Token.CookieName == "" {
		return errors.New("Token CookieName is required")
	}
	switch c.Token.Strategy {
	case TokenRandom, TokenUUID:
		// valid
	default:
		return errors.New("Token Strategy is invalid")
	}
	if c.Token.Strategy == TokenRandom && c.Token.RandomBytes < internal.MinTokenBytes {
		return errors.New("Token RandomBytes must be >= 16 (128 bits)")
	}
	if c.Token.CollisionRetries <= 0 {
		return errors.New("Token CollisionRetries must be > 0")
	}

	// Backend
	if c.Redis.KeyPrefix == "" {
		return errors.New("Redis KeyPrefix is required")
	}
	if c.Mongo.Database == "" {
		return errors.New("Mongo Database is required")
	}
	if c.Mongo.Collection == "" {
		return errors.New("Mongo Collection is required")
	}
	if c.Mongo.ConnectAttempts <= 0 {
		return errors.New("Mongo ConnectAttempts must be > 0")
	}
	if c.Mongo.ConnectDelay < 0 {
		return errors.New("Mongo ConnectDelay must be >= 0")
	}

	// Cache
	if c.Cache.TTL <= 0 {
		return errors.New("Cache TTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are values today; the copy exists so later reference
	// fields cannot alias caller-owned memory.
	return cfg
}
