package hardwire

import (
	"errors"

	internalaudit "github.com/hardwire-auth/hardwire/internal/audit"
	"github.com/hardwire-auth/hardwire/internal/keymutex"
	"github.com/hardwire-auth/hardwire/internal/rate"
	"github.com/hardwire-auth/hardwire/jwt"
	"github.com/hardwire-auth/hardwire/password"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by hardwire APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	store  RecordStore
	redis  redis.UniversalClient

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore injects the durable [RecordStore]. Required.
func (b *Builder) WithStore(store RecordStore) *Builder {
	b.store = store
	return b
}

// WithRedis injects the Redis client backing login throttling. Required only
// when [SecurityConfig.EnableLoginThrottle] is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink injects the audit event consumer. Ignored unless
// [AuditConfig.Enabled] is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles an immutable [Engine].
// A Builder is single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("record store required")
	}

	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("login throttling requires redis client")
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		regLocks: keymutex.New(),
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if cfg.Credentials.Mode == CompareArgon2 {
		ph, err := password.NewArgon2(password.Config{
			Memory:      cfg.Credentials.Memory,
			Time:        cfg.Credentials.Time,
			Parallelism: cfg.Credentials.Parallelism,
			SaltLength:  cfg.Credentials.SaltLength,
			KeyLength:   cfg.Credentials.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		engine.hasher = ph
	}

	if cfg.JWT.Enabled {
		jm, err := jwt.NewManager(jwt.Config{
			AccessTTL:     cfg.JWT.AccessTTL,
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
		})
		if err != nil {
			return nil, err
		}
		engine.jwtManager = jm
	}

	b.built = true

	return engine, nil
}
