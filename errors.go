package hardwire

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMissingFields is an exported constant or variable used by the authentication engine.
	ErrMissingFields = errors.New("username and password required")
	// ErrHWIDRequired is an exported constant or variable used by the authentication engine.
	ErrHWIDRequired = errors.New("hwid required")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrHWIDMismatch is an exported constant or variable used by the authentication engine.
	ErrHWIDMismatch = errors.New("hwid does not match bound device")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRecordNotFound is an exported constant or variable used by the authentication engine.
	ErrRecordNotFound = errors.New("record not found")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrPersistFailed is an exported constant or variable used by the authentication engine.
	ErrPersistFailed = errors.New("record store persist failed")
	// ErrStoreCorrupt is an exported constant or variable used by the authentication engine.
	ErrStoreCorrupt = errors.New("record store corrupt")
)
