package hardwire

import "time"

// SecurityReport summarizes the security-relevant configuration of a built
// Engine. Intended for startup logging and operator diagnostics; it never
// contains secrets or raw HWIDs.
type SecurityReport struct {
	CompareMode          CompareMode
	Argon2               PasswordConfigReport
	TrimBeforePersist    bool
	ThrottlingActive     bool
	IPThrottleActive     bool
	MaxLoginAttempts     int
	LoginCooldown        time.Duration
	TokenIssuanceEnabled bool
	SigningAlgorithm     string
	AccessTTL            time.Duration
	AuditActive          bool
	MetricsActive        bool
}

// PasswordConfigReport mirrors the active argon2id parameters. Zero when the
// engine compares plaintext credentials.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the engine's effective security posture.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	report := SecurityReport{
		CompareMode:          e.config.Credentials.Mode,
		TrimBeforePersist:    e.config.Binding.TrimBeforePersist,
		ThrottlingActive:     e.rateLimiter != nil,
		IPThrottleActive:     e.rateLimiter != nil && e.config.Security.EnableIPThrottle,
		MaxLoginAttempts:     e.config.Security.MaxLoginAttempts,
		LoginCooldown:        e.config.Security.LoginCooldownDuration,
		TokenIssuanceEnabled: e.jwtManager != nil,
		SigningAlgorithm:     e.config.JWT.SigningMethod,
		AccessTTL:            e.config.JWT.AccessTTL,
		AuditActive:          e.audit != nil,
		MetricsActive:        e.metrics.Enabled(),
	}

	if e.config.Credentials.Mode == CompareArgon2 {
		report.Argon2 = PasswordConfigReport{
			Memory:      e.config.Credentials.Memory,
			Time:        e.config.Credentials.Time,
			Parallelism: e.config.Credentials.Parallelism,
			SaltLength:  e.config.Credentials.SaltLength,
			KeyLength:   e.config.Credentials.KeyLength,
		}
	}

	return report
}
