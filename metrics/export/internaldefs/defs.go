package internaldefs

import (
	"strconv"

	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
)

// Workflow label values.
const (
	WorkflowRegister      = "register"
	WorkflowLogin         = "login"
	WorkflowPasswordReset = "password_reset"
	WorkflowMFA           = "mfa"
	WorkflowApproval      = "approval"
	WorkflowToken         = "token"
)

// Series places one engine counter in the workflow event family.
type Series struct {
	ID       fitfob.MetricID
	Workflow string
	Outcome  string
}

// WorkflowSeries lists every engine counter, grouped by workflow in the order
// a user meets them.
var WorkflowSeries = []Series{
	{fitfob.MetricRegisterOTPSent, WorkflowRegister, "otp_sent"},
	{fitfob.MetricRegisterDuplicate, WorkflowRegister, "duplicate"},
	{fitfob.MetricRegisterRateLimited, WorkflowRegister, "rate_limited"},
	{fitfob.MetricRegisterOTPFailure, WorkflowRegister, "otp_rejected"},
	{fitfob.MetricRegisterExpired, WorkflowRegister, "expired"},
	{fitfob.MetricRegisterCompensated, WorkflowRegister, "rolled_back"},
	{fitfob.MetricRegisterSuccess, WorkflowRegister, "completed"},

	{fitfob.MetricLoginSuccess, WorkflowLogin, "success"},
	{fitfob.MetricLoginFailure, WorkflowLogin, "failure"},
	{fitfob.MetricLoginRateLimited, WorkflowLogin, "rate_limited"},
	{fitfob.MetricLoginBlocked, WorkflowLogin, "blocked"},

	{fitfob.MetricPasswordResetOTPSent, WorkflowPasswordReset, "otp_sent"},
	{fitfob.MetricPasswordResetRateLimited, WorkflowPasswordReset, "rate_limited"},
	{fitfob.MetricPasswordResetVerified, WorkflowPasswordReset, "otp_verified"},
	{fitfob.MetricPasswordResetFailure, WorkflowPasswordReset, "failure"},
	{fitfob.MetricPasswordResetSuccess, WorkflowPasswordReset, "completed"},

	{fitfob.MetricMFAChallengeIssued, WorkflowMFA, "challenge_issued"},
	{fitfob.MetricMFAActivated, WorkflowMFA, "activated"},
	{fitfob.MetricMFAFailure, WorkflowMFA, "code_rejected"},
	{fitfob.MetricMFAReset, WorkflowMFA, "session_reset"},
	{fitfob.MetricMFASuccess, WorkflowMFA, "completed"},

	{fitfob.MetricApprovalGranted, WorkflowApproval, "granted"},
	{fitfob.MetricApprovalRevoked, WorkflowApproval, "revoked"},

	{fitfob.MetricTokenAccepted, WorkflowToken, "accepted"},
	{fitfob.MetricTokenRejected, WorkflowToken, "rejected"},
}

// Family names and help text. OTel instruments use the dotted form.
const (
	WorkflowEventsName = "fitfob_workflow_events_total"
	WorkflowEventsHelp = "Onboarding and sign-in events by workflow and outcome."

	TokenLatencyName = "fitfob_token_latency_seconds"
	TokenLatencyHelp = "Time to resolve a bearer token to a user."

	AuditDroppedName = "fitfob_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher queue was full."
)

// LatencyBounds are the upper bounds, in seconds, of the engine's token
// latency buckets. The last bucket is unbounded.
var LatencyBounds = [7]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BucketLabel formats bucket i for an "le" label.
func BucketLabel(i int) string {
	if i >= len(LatencyBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(LatencyBounds[i], 'g', -1, 64)
}

// Cumulative turns the engine's raw per-bucket counts into the running totals
// both exporters publish. Missing buckets count as zero.
func Cumulative(raw []uint64) [len(LatencyBounds) + 1]uint64 {
	var out [len(LatencyBounds) + 1]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
