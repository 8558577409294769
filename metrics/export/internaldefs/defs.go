package internaldefs

import (
	hardwire "github.com/hardwire-auth/hardwire"
)

// CounterDef defines a public type used by hardwire APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   hardwire.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by hardwire APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   hardwire.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: hardwire.MetricLoginSuccess, Name: "hardwire_login_success_total", Help: "Successful login attempts."},
	{ID: hardwire.MetricLoginFailure, Name: "hardwire_login_failure_total", Help: "Login attempts rejected for invalid credentials."},
	{ID: hardwire.MetricLoginRateLimited, Name: "hardwire_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: hardwire.MetricMissingFields, Name: "hardwire_missing_fields_total", Help: "Login attempts rejected for missing username or password."},
	{ID: hardwire.MetricHWIDRequired, Name: "hardwire_hwid_required_total", Help: "Login attempts rejected for missing hardware identifier."},
	{ID: hardwire.MetricHWIDRegistered, Name: "hardwire_hwid_registered_total", Help: "First-login hardware identifier registrations."},
	{ID: hardwire.MetricHWIDMismatch, Name: "hardwire_hwid_mismatch_total", Help: "Login attempts rejected for hardware identifier mismatch."},
	{ID: hardwire.MetricStoreFailure, Name: "hardwire_store_failure_total", Help: "Record store read or write failures."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: hardwire.MetricLoginLatency, Name: "hardwire_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
