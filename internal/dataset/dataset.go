// Package dataset defines the four tabular inputs of the funnel transform and
// the entity-filtered aggregation that collapses stage rows into totals.
package dataset

import (
	"strconv"
	"strings"
)

// Stage names a stage-count column in the uf-stages CSV. Absent columns are
// treated as zero everywhere.
type Stage string

const (
	StageClientInit       Stage = "AA_client_Initialization"
	StageOTPSignIn        Stage = "OTP_Based_Sign_in_Sign_up"
	StageViewConsent      Stage = "View_Consent_Details"
	StageDiscovery        Stage = "Discovery"
	StageLinking          Stage = "Linking"
	StageRejectedConsents Stage = "Rejected_Consent_Requests"
	StageApprovedConsents Stage = "Approved_Consent_Requests"
	StageFIPRejected      Stage = "FIP_Rejected_Consent_Artefacts"
	StageFIPAccepted      Stage = "FIP_Accepted_Consent_Artefacts"
	StageFetchSuccess     Stage = "Data_Fetch_Success"
	StageFetchNotAttempt  Stage = "Data_Fetch_Not_Attempted"
)

// Stages lists every stage-count column in funnel order.
var Stages = []Stage{
	StageClientInit,
	StageOTPSignIn,
	StageViewConsent,
	StageDiscovery,
	StageLinking,
	StageRejectedConsents,
	StageApprovedConsents,
	StageFIPRejected,
	StageFIPAccepted,
	StageFetchSuccess,
	StageFetchNotAttempt,
}

// StageRow is one (entity, date) row of stage counters.
type StageRow struct {
	EntityID string
	Date     string
	Counts   map[Stage]int
}

// StageTotals is the element-wise sum of stage rows for one entity. RowCount
// tracks how many rows contributed so callers can distinguish "no data" from
// all-zero counts.
type StageTotals struct {
	EntityID string
	RowCount int
	counts   map[Stage]int
}

// Total returns the summed count for a stage, zero when the column never
// appeared.
func (t StageTotals) Total(s Stage) int {
	return t.counts[s]
}

// Empty reports whether no rows contributed to the totals.
func (t StageTotals) Empty() bool {
	return t.RowCount == 0
}

// AggregateStages sums stage counters across rows for one entity. Rows for
// other entities are dropped before summation; addition is commutative so the
// result does not depend on row order.
func AggregateStages(rows []StageRow, entityID string) StageTotals {
	totals := StageTotals{EntityID: entityID, counts: make(map[Stage]int, len(Stages))}
	for _, row := range rows {
		if row.EntityID != entityID {
			continue
		}
		totals.RowCount++
		for stage, n := range row.Counts {
			totals.counts[stage] += n
		}
	}
	return totals
}

// OTPBreakdown counts OTP attempts for the entity and date range.
type OTPBreakdown struct {
	Correct    int
	Incorrect  int
	NotEntered int
}

// DiscoveryBreakdown counts account-discovery outcomes.
type DiscoveryBreakdown struct {
	Discovered     int
	NotFound       int
	FIPNotSelected int
	Failure        int
	NoStatus       int
}

// DropoffTotal is the number of users lost at the discovery stage: every
// bucket is a discovery outcome that ended the journey, including users who
// saw accounts but linked none.
func (d DiscoveryBreakdown) DropoffTotal() int {
	return d.Discovered + d.NotFound + d.FIPNotSelected + d.Failure + d.NoStatus
}

// FetchStatusBreakdown counts FI fetch outcomes.
type FetchStatusBreakdown struct {
	Success      int
	Failed       int
	NotAttempted int
}

// Requests is the number of FI requests actually issued; a fetch that was
// never attempted is not a request.
func (f FetchStatusBreakdown) Requests() int {
	return f.Success + f.Failed
}

// ParseCount converts a Drill string cell into an integer count. Drill sums
// come back as decimals ("42.0") and source sheets occasionally carry
// thousands separators; blank cells are the caller's concern.
func ParseCount(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
