package hardwire

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRejected    = "login_rejected"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventHWIDRegistered   = "hwid_registered"
	auditEventHWIDMismatch     = "hwid_mismatch"
	auditEventStoreFailure     = "store_failure"
)

// AuditErrorCode defines a public type used by hardwire APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrMissingFields      AuditErrorCode = "missing_fields"
	auditErrHWIDRequired       AuditErrorCode = "hwid_required"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrHWIDMismatch       AuditErrorCode = "hwid_mismatch"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrPersistFailed      AuditErrorCode = "persist_failed"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit builds and dispatches an audit event. The metadataBuilder closure
// is only invoked when the dispatcher is active, so callers can compute
// fingerprints and other derived fields lazily.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		Username:  username,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingFields):
		return auditErrMissingFields
	case errors.Is(err, ErrHWIDRequired):
		return auditErrHWIDRequired
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrHWIDMismatch):
		return auditErrHWIDMismatch
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRecordNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrPersistFailed):
		return auditErrPersistFailed
	default:
		return auditErrInternal
	}
}
