package hardwire

import (
	"context"
	"io"
	"net/http"

	internalaudit "github.com/hardwire-auth/hardwire/internal/audit"
)

// Code identifies the single outcome of one login attempt. The string values
// are the wire-level taxonomy and must be preserved verbatim by any transport.
type Code string

const (
	// CodeOK is returned when credentials match and the presented HWID equals
	// the bound HWID.
	CodeOK Code = "OK"
	// CodeHWIDRegistered is returned when credentials match, the account had
	// no bound HWID, and the presented HWID was durably registered.
	CodeHWIDRegistered Code = "HWID_REGISTERED"
	// CodeMissingFields is returned when username or password is absent.
	CodeMissingFields Code = "MISSING_FIELDS"
	// CodeHWIDRequired is returned when the HWID is absent or whitespace-only.
	CodeHWIDRequired Code = "HWID_REQUIRED"
	// CodeInvalidCredentials is returned for an unknown username or a
	// password mismatch. The two cases are deliberately indistinguishable.
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	// CodeHWIDMismatch is returned when credentials match but the presented
	// HWID differs from the bound one.
	CodeHWIDMismatch Code = "HWID_MISMATCH"
	// CodeServerError is returned when the record store fails to read or to
	// durably persist a registration.
	CodeServerError Code = "SERVER_ERROR"
	// CodeRateLimited is returned when login throttling denies the attempt
	// before credentials are checked. Only produced when throttling is enabled.
	CodeRateLimited Code = "RATE_LIMITED"
)

// HTTPStatus maps the outcome code to its conventional HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeOK, CodeHWIDRegistered:
		return http.StatusOK
	case CodeMissingFields, CodeHWIDRequired:
		return http.StatusBadRequest
	case CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeHWIDMismatch:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Success reports whether the code denotes an authenticated request.
func (c Code) Success() bool {
	return c == CodeOK || c == CodeHWIDRegistered
}

// LoginRequest carries the three untrusted fields of one login attempt.
type LoginRequest struct {
	Username string
	Password string
	HWID     string
}

// LoginResult is returned by [Engine.Login]. Code is always set; AccessToken
// is set only on success and only when token issuance is enabled.
type LoginResult struct {
	Success     bool
	Code        Code
	AccessToken string
}

// UserRecord is one registered account as held by a [RecordStore].
// Password holds either the plaintext secret or a PHC-encoded argon2id hash,
// depending on [CredentialConfig.Mode]. An empty HWID means unbound.
type UserRecord struct {
	Username string `json:"username"`
	Password string `json:"password"`
	HWID     string `json:"hwid,omitempty"`
}

// BindStatus is the outcome of a conditional HWID registration at the store
// boundary.
type BindStatus uint8

const (
	// BindRegistered means the HWID was empty and is now durably set.
	BindRegistered BindStatus = iota
	// BindAlreadyMatched means the HWID was already set to the same value.
	BindAlreadyMatched
	// BindConflict means the HWID is set to a different value. The stored
	// record is untouched.
	BindConflict
)

// RecordStore is the durable username → credential/HWID mapping consumed by
// the [Engine]. Implementations must make RegisterHWID a conditional write:
// the HWID field transitions from empty to non-empty at most once, and a
// concurrent registration race resolves to exactly one winner.
//
// Shipped implementations: store/memory, store/file, store/redistore.
type RecordStore interface {
	// GetRecord returns the record for username, or [ErrRecordNotFound].
	// Backend failures wrap [ErrStoreUnavailable].
	GetRecord(ctx context.Context, username string) (UserRecord, error)

	// RegisterHWID atomically sets the record's HWID if and only if it is
	// currently empty. When already set it reports BindAlreadyMatched or
	// BindConflict without writing. Unknown usernames return
	// [ErrRecordNotFound]; persist failures wrap [ErrPersistFailed] and
	// leave the prior record intact.
	RegisterHWID(ctx context.Context, username, hwid string) (BindStatus, error)
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
