package internaldefs

import (
	gorefresh "github.com/averix07/goRefresh"
)

// CounterDef defines a public type used by goRefresh APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   gorefresh.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goRefresh APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   gorefresh.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the rotation engine.
var CounterDefs = []CounterDef{
	{ID: gorefresh.MetricLoginSuccess, Name: "gorefresh_login_success_total", Help: "Successful login attempts."},
	{ID: gorefresh.MetricLoginFailure, Name: "gorefresh_login_failure_total", Help: "Failed login attempts."},
	{ID: gorefresh.MetricLoginRateLimited, Name: "gorefresh_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: gorefresh.MetricRefreshSuccess, Name: "gorefresh_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: gorefresh.MetricRefreshFailure, Name: "gorefresh_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: gorefresh.MetricRefreshExpired, Name: "gorefresh_refresh_expired_total", Help: "Refresh attempts with an expired token."},
	{ID: gorefresh.MetricRefreshReuseDetected, Name: "gorefresh_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: gorefresh.MetricRefreshRateLimited, Name: "gorefresh_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: gorefresh.MetricFamilyRevoked, Name: "gorefresh_family_revoked_total", Help: "Token family revocations."},
	{ID: gorefresh.MetricLogout, Name: "gorefresh_logout_total", Help: "Logout operations."},
	{ID: gorefresh.MetricValidateFailure, Name: "gorefresh_validate_failure_total", Help: "Failed access token validations."},
	{ID: gorefresh.MetricStorageUnavailable, Name: "gorefresh_storage_unavailable_total", Help: "Registry operations failed by storage outage."},
}

// HistogramDefs is an exported constant or variable used by the rotation engine.
var HistogramDefs = []HistogramDef{
	{ID: gorefresh.MetricValidateLatency, Name: "gorefresh_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the rotation engine.
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

// HistogramBoundSuffix is an exported constant or variable used by the rotation engine.
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
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
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
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
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
