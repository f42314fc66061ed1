package internaldefs

import (
	"github.com/havenstay/authsession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: authsession.MetricSignInSuccess, Name: "authsession_sign_in_success_total", Help: "Sign-ins that produced a session."},
	{ID: authsession.MetricSignInInvalidCredentials, Name: "authsession_sign_in_invalid_credentials_total", Help: "Sign-ins rejected for invalid credentials."},
	{ID: authsession.MetricSignUpSuccess, Name: "authsession_sign_up_success_total", Help: "Registrations that produced a session."},
	{ID: authsession.MetricSignOut, Name: "authsession_sign_out_total", Help: "Sign-outs, remote or local-only."},
	{ID: authsession.MetricSignOutRemoteFailure, Name: "authsession_sign_out_remote_failure_total", Help: "Sign-outs whose remote logout failed."},
	{ID: authsession.MetricOperationSuccess, Name: "authsession_operation_success_total", Help: "Successful session operations."},
	{ID: authsession.MetricOperationFailure, Name: "authsession_operation_failure_total", Help: "Failed identity service calls."},
	{ID: authsession.MetricOperationRejected, Name: "authsession_operation_rejected_total", Help: "Operations refused by the concurrency policy."},
	{ID: authsession.MetricValidationRejected, Name: "authsession_validation_rejected_total", Help: "Operations refused before any remote call."},
	{ID: authsession.MetricSessionRestored, Name: "authsession_session_restored_total", Help: "Sessions adopted from the store at start."},
	{ID: authsession.MetricSessionDiscardedExpired, Name: "authsession_session_discarded_expired_total", Help: "Persisted sessions discarded as expired."},
	{ID: authsession.MetricSessionDiscardedCorrupt, Name: "authsession_session_discarded_corrupt_total", Help: "Persisted sessions discarded as corrupt."},
	{ID: authsession.MetricSessionExpired, Name: "authsession_session_expired_total", Help: "Sessions cleared when their deadline passed."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: authsession.MetricIdentityLatency, Name: "authsession_identity_latency_seconds", Help: "Identity service call latency."},
}

// HistogramBounds are the bucket upper bounds in seconds.
var HistogramBounds = []string{
	"0.01",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix are metric-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
