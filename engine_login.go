package hardwire

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hardwire-auth/hardwire/internal/rate"
)

// Login evaluates one login attempt against the record store and returns
// exactly one outcome. The decision order is fixed; the first matching rule
// wins:
//
//  1. username or password empty            → MISSING_FIELDS (store untouched)
//  2. HWID empty after trimming             → HWID_REQUIRED (store untouched)
//  3. throttle budget exceeded (optional)   → RATE_LIMITED (store untouched)
//  4. unknown username or password mismatch → INVALID_CREDENTIALS (read-only)
//  5. credentials match, no bound HWID      → HWID_REGISTERED (conditional write)
//  6. credentials match, different HWID     → HWID_MISMATCH (read-only)
//  7. credentials match, same HWID          → OK (read-only)
//
// Failure outcomes carry a matching sentinel error so callers can errors.Is;
// the *LoginResult is non-nil in every case.
//
// The registration transition (step 5) is serialized per username inside the
// process and performed as a conditional write at the store boundary, so a
// persist failure is reported as SERVER_ERROR with no registration visible to
// later requests.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.store == nil {
		return &LoginResult{Success: false, Code: CodeServerError}, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}
	}()

	ip := clientIPFromContext(ctx)

	if req.Username == "" || req.Password == "" {
		e.metricInc(MetricMissingFields)
		e.emitAudit(ctx, auditEventLoginRejected, false, req.Username, ErrMissingFields, func() map[string]string {
			return map[string]string{
				"reason": "missing_fields",
			}
		})
		return &LoginResult{Success: false, Code: CodeMissingFields}, ErrMissingFields
	}

	// Emptiness is decided on the trimmed value; the bound value stays raw
	// unless TrimBeforePersist is set.
	trimmed := strings.TrimSpace(req.HWID)
	if trimmed == "" {
		e.metricInc(MetricHWIDRequired)
		e.emitAudit(ctx, auditEventLoginRejected, false, req.Username, ErrHWIDRequired, func() map[string]string {
			return map[string]string{
				"reason": "hwid_required",
			}
		})
		return &LoginResult{Success: false, Code: CodeHWIDRequired}, ErrHWIDRequired
	}

	hwid := req.HWID
	if e.config.Binding.TrimBeforePersist {
		hwid = trimmed
	}

	if e.rateLimiter != nil {
		// The throttle fails open: a Redis outage must not lock everyone out.
		if err := e.rateLimiter.CheckLogin(ctx, req.Username, ip); errors.Is(err, rate.ErrRateLimited) {
			return e.rateLimitedResult(ctx, req.Username)
		}
	}

	record, err := e.store.GetRecord(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			if limited := e.recordLoginFailure(ctx, req.Username, ip); limited != nil {
				return e.rateLimitedResult(ctx, req.Username)
			}
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, req.Username, ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"reason": "user_not_found",
				}
			})
			return &LoginResult{Success: false, Code: CodeInvalidCredentials}, ErrInvalidCredentials
		}

		e.metricInc(MetricStoreFailure)
		e.emitAudit(ctx, auditEventStoreFailure, false, req.Username, err, func() map[string]string {
			return map[string]string{
				"operation": "get_record",
			}
		})
		return &LoginResult{Success: false, Code: CodeServerError}, fmt.Errorf("read record: %w", err)
	}

	if !e.verifyPassword(req.Password, record.Password) {
		if limited := e.recordLoginFailure(ctx, req.Username, ip); limited != nil {
			return e.rateLimitedResult(ctx, req.Username)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, req.Username, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return &LoginResult{Success: false, Code: CodeInvalidCredentials}, ErrInvalidCredentials
	}

	if record.HWID == "" {
		return e.registerHWID(ctx, req.Username, hwid)
	}

	if record.HWID != hwid {
		e.metricInc(MetricHWIDMismatch)
		e.emitAudit(ctx, auditEventHWIDMismatch, false, req.Username, ErrHWIDMismatch, func() map[string]string {
			return map[string]string{
				"bound_hwid_sha256":     hwidFingerprint(record.HWID),
				"presented_hwid_sha256": hwidFingerprint(hwid),
			}
		})
		return &LoginResult{Success: false, Code: CodeHWIDMismatch}, ErrHWIDMismatch
	}

	return e.loginSucceeded(ctx, req.Username, hwid, CodeOK, auditEventLoginSuccess)
}

// registerHWID performs the one-time empty → non-empty transition. The keyed
// lock bounds in-flight registrations to one per username in this process;
// the store's conditional write settles races with other processes.
func (e *Engine) registerHWID(ctx context.Context, username, hwid string) (*LoginResult, error) {
	e.regLocks.Lock(username)
	defer e.regLocks.Unlock(username)

	status, err := e.store.RegisterHWID(ctx, username, hwid)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Record disappeared between read and write. Indistinguishable
			// from an unknown user by design.
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, username, ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"reason": "record_removed",
				}
			})
			return &LoginResult{Success: false, Code: CodeInvalidCredentials}, ErrInvalidCredentials
		}

		e.metricInc(MetricStoreFailure)
		e.emitAudit(ctx, auditEventStoreFailure, false, username, err, func() map[string]string {
			return map[string]string{
				"operation": "register_hwid",
			}
		})
		return &LoginResult{Success: false, Code: CodeServerError}, fmt.Errorf("register hwid: %w", err)
	}

	switch status {
	case BindRegistered:
		e.metricInc(MetricHWIDRegistered)
		return e.loginSucceeded(ctx, username, hwid, CodeHWIDRegistered, auditEventHWIDRegistered)
	case BindAlreadyMatched:
		// A concurrent registration with the same HWID won the race.
		return e.loginSucceeded(ctx, username, hwid, CodeOK, auditEventLoginSuccess)
	default:
		e.metricInc(MetricHWIDMismatch)
		e.emitAudit(ctx, auditEventHWIDMismatch, false, username, ErrHWIDMismatch, func() map[string]string {
			return map[string]string{
				"presented_hwid_sha256": hwidFingerprint(hwid),
				"reason":                "lost_registration_race",
			}
		})
		return &LoginResult{Success: false, Code: CodeHWIDMismatch}, ErrHWIDMismatch
	}
}

func (e *Engine) loginSucceeded(ctx context.Context, username, hwid string, code Code, eventType string) (*LoginResult, error) {
	if e.rateLimiter != nil {
		// Best-effort: a stale counter only shortens the next cooldown window.
		_ = e.rateLimiter.ResetLogin(ctx, username, clientIPFromContext(ctx))
	}

	result := &LoginResult{Success: true, Code: code}

	if e.jwtManager != nil {
		token, err := e.jwtManager.CreateAccess(username, hwidFingerprint(hwid))
		if err != nil {
			// The binding (if any) is already durable; the next identical
			// request resolves to OK. Only the token failed.
			e.metricInc(MetricStoreFailure)
			e.emitAudit(ctx, auditEventStoreFailure, false, username, err, func() map[string]string {
				return map[string]string{
					"operation": "issue_token",
				}
			})
			return &LoginResult{Success: false, Code: CodeServerError}, fmt.Errorf("issue token: %w", err)
		}
		result.AccessToken = token
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, eventType, true, username, nil, func() map[string]string {
		return map[string]string{
			"hwid_sha256": hwidFingerprint(hwid),
		}
	})

	return result, nil
}

func (e *Engine) verifyPassword(supplied, stored string) bool {
	if e.config.Credentials.Mode == CompareArgon2 && e.hasher != nil {
		ok, err := e.hasher.Verify(supplied, stored)
		return err == nil && ok
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) == 1
}

// recordLoginFailure bumps the throttle counters after a failed attempt.
// Returns non-nil when this attempt tipped the username or IP over budget.
func (e *Engine) recordLoginFailure(ctx context.Context, username, ip string) error {
	if e.rateLimiter == nil {
		return nil
	}
	if err := e.rateLimiter.IncrementLogin(ctx, username, ip); errors.Is(err, rate.ErrRateLimited) {
		return err
	}
	return nil
}

func (e *Engine) rateLimitedResult(ctx context.Context, username string) (*LoginResult, error) {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, username, ErrLoginRateLimited, nil)
	return &LoginResult{Success: false, Code: CodeRateLimited}, ErrLoginRateLimited
}
