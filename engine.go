package hardwire

import (
	"crypto/sha256"
	"encoding/hex"

	internalaudit "github.com/hardwire-auth/hardwire/internal/audit"
	"github.com/hardwire-auth/hardwire/internal/keymutex"
	"github.com/hardwire-auth/hardwire/internal/rate"
	"github.com/hardwire-auth/hardwire/jwt"
	"github.com/hardwire-auth/hardwire/password"
)

// Engine defines a public type used by hardwire APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	store       RecordStore
	regLocks    *keymutex.Group
	rateLimiter *rate.Limiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	hasher      *password.Argon2
	jwtManager  *jwt.Manager
}

// Close drains the audit dispatcher. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure since the engine was built.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time deep copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// hwidFingerprint is the value placed in token claims and audit metadata.
// The raw HWID never leaves the engine through observability surfaces.
func hwidFingerprint(hwid string) string {
	sum := sha256.Sum256([]byte(hwid))
	return hex.EncodeToString(sum[:])
}
