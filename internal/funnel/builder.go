// Package funnel builds the per-entity funnel report table from aggregated
// stage totals and the OTP, discovery and FI-fetch breakdowns.
package funnel

import (
	"math"

	"github.com/aa-analytics/funnelreport/internal/dataset"
)

// Display labels for the funnel backbone. The row order below is the report
// order and must not change: each stage's success count is derived from the
// previous stage's.
const (
	StageConsentInitiated = "Consent Initiated"
	StageClientInitiated  = "FIU initiated AA Client"
	StageRegistration     = "Registration/Login"
	StageDiscovery        = "Account Discovery"
	StageLinking          = "Account Linking"
	StageConsentReview    = "Consent Request Review"
	StageArtefactDelivery = "Consent Artefact Delivery"
	StageFIRequest        = "FI Request"
	StageFIFetch          = "FI Fetch"
)

// Note accompanies the summary block in every rendered report.
const Note = "Please note that this funnel describes the journey of a user and not a consent request."

// Subcause is a finer-grained dropoff reason nested under a stage.
type Subcause struct {
	Label string
	Count int
	Pct   float64
}

// Row is one funnel stage: a success side, a dropoff side and optional
// subcauses whose counts sum to the dropoff count.
type Row struct {
	Stage          string
	PositiveAction string
	SuccessCount   int
	SuccessPct     float64
	DropoffCause   string
	DropoffCount   int
	DropoffPct     float64
	Subcauses      []Subcause
}

// Table is the ordered funnel report for one entity. All percentages are of
// InitialUsers and carry full precision; rounding happens only at the
// rendering boundary.
type Table struct {
	Entity             string
	InitialUsers       int
	Rows               []Row
	ConsentApprovalPct float64
	DataSharingPct     float64
}

// Input carries the four pre-fetched datasets for one entity and date range.
// Nil breakdowns mean the upstream query returned nothing.
type Input struct {
	Entity    string
	Stages    dataset.StageTotals
	OTP       *dataset.OTPBreakdown
	Discovery *dataset.DiscoveryBreakdown
	Fetches   *dataset.FetchStatusBreakdown
}

// Round1 rounds a percentage for display. Kept out of Build so intermediate
// math never compounds rounding.
func Round1(pct float64) float64 {
	return math.Round(pct*10) / 10
}

// Build turns the four datasets into the funnel table. It returns
// *MissingDataError when any dataset is empty for the entity and
// *InvalidCountError when a source count is negative or a derived remainder
// cannot be reconciled.
func Build(in Input) (*Table, error) {
	if in.Stages.Empty() {
		return nil, &MissingDataError{Entity: in.Entity, Dataset: "stage-counts"}
	}
	if in.OTP == nil {
		return nil, &MissingDataError{Entity: in.Entity, Dataset: "otp-breakdown"}
	}
	if in.Discovery == nil {
		return nil, &MissingDataError{Entity: in.Entity, Dataset: "discovery-breakdown"}
	}
	if in.Fetches == nil {
		return nil, &MissingDataError{Entity: in.Entity, Dataset: "fetch-status"}
	}
	if err := checkSources(in); err != nil {
		return nil, err
	}

	st := in.Stages
	clientInitDrop := st.Total(dataset.StageClientInit)
	otpDrop := st.Total(dataset.StageOTPSignIn)
	viewDrop := st.Total(dataset.StageViewConsent)
	discoveryCol := st.Total(dataset.StageDiscovery)
	linkingDrop := st.Total(dataset.StageLinking)
	rejected := st.Total(dataset.StageRejectedConsents)
	approved := st.Total(dataset.StageApprovedConsents)
	fipRejected := st.Total(dataset.StageFIPRejected)
	fipAccepted := st.Total(dataset.StageFIPAccepted)
	notAttempted := st.Total(dataset.StageFetchNotAttempt)

	// Every user who entered the funnel either dropped at one of the stages
	// or reached a consent decision; the column sums reconstruct the intake.
	initial := clientInitDrop + otpDrop + viewDrop + discoveryCol + linkingDrop + rejected + approved

	t := &Table{Entity: in.Entity, InitialUsers: initial}
	pct := func(n int) float64 {
		if initial <= 0 {
			return 0
		}
		return 100 * float64(n) / float64(initial)
	}

	t.Rows = append(t.Rows, Row{
		Stage:          StageConsentInitiated,
		PositiveAction: "AA successfully received a consent handle",
		SuccessCount:   initial,
		SuccessPct:     pct(initial),
		DropoffCause:   "AA did not receive a consent handle",
		DropoffCount:   0,
		DropoffPct:     pct(0),
	})

	afterInit, err := cascade(t, in.Entity, initial, Row{
		Stage:          StageClientInitiated,
		PositiveAction: "AA client was successfully initiated",
		DropoffCause:   "AA client was not successfully initiated",
		DropoffCount:   clientInitDrop,
	}, pct)
	if err != nil {
		return nil, err
	}

	authDrop := otpDrop + viewDrop
	otpRemainder := authDrop - in.OTP.Incorrect - in.OTP.NotEntered
	if otpRemainder < 0 {
		return nil, &InvalidCountError{Entity: in.Entity, Stage: StageRegistration, Count: otpRemainder}
	}
	afterAuth, err := cascade(t, in.Entity, afterInit, Row{
		Stage:          StageRegistration,
		PositiveAction: "User was authenticated",
		DropoffCause:   "User was not authenticated",
		DropoffCount:   authDrop,
		Subcauses: []Subcause{
			{Label: "Incorrect OTP entered", Count: in.OTP.Incorrect, Pct: pct(in.OTP.Incorrect)},
			{Label: "OTP not received back", Count: in.OTP.NotEntered, Pct: pct(in.OTP.NotEntered)},
			{Label: "Correct OTP entered but user dropped off", Count: otpRemainder, Pct: pct(otpRemainder)},
		},
	}, pct)
	if err != nil {
		return nil, err
	}

	discoveryDrop := in.Discovery.DropoffTotal()
	notLinked := discoveryDrop - in.Discovery.NotFound - in.Discovery.NoStatus - in.Discovery.Failure
	if notLinked < 0 {
		return nil, &InvalidCountError{Entity: in.Entity, Stage: StageDiscovery, Count: notLinked}
	}
	afterDiscovery, err := cascade(t, in.Entity, afterAuth, Row{
		Stage:          StageDiscovery,
		PositiveAction: "User was able to find accounts",
		DropoffCause:   "User was not able to find accounts",
		DropoffCount:   discoveryDrop,
		Subcauses: []Subcause{
			{Label: "FIP returned 'No Records Found'", Count: in.Discovery.NotFound, Pct: pct(in.Discovery.NotFound)},
			{Label: "FIP failed to send records", Count: in.Discovery.NoStatus, Pct: pct(in.Discovery.NoStatus)},
			{Label: "Some FIP returned 'No Records Found' and some failed to send records", Count: in.Discovery.Failure, Pct: pct(in.Discovery.Failure)},
			{Label: "FIP returned accounts, but user did not link any accounts", Count: notLinked, Pct: pct(notLinked)},
		},
	}, pct)
	if err != nil {
		return nil, err
	}

	afterLinking, err := cascade(t, in.Entity, afterDiscovery, Row{
		Stage:          StageLinking,
		PositiveAction: "User was able to link accounts",
		DropoffCause:   "User was not able to link accounts",
		DropoffCount:   linkingDrop,
	}, pct)
	if err != nil {
		return nil, err
	}

	reviewDrop := afterLinking - approved
	noAction := reviewDrop - rejected
	if reviewDrop < 0 || noAction < 0 {
		return nil, &InvalidCountError{Entity: in.Entity, Stage: StageConsentReview, Count: minInt(reviewDrop, noAction)}
	}
	t.Rows = append(t.Rows, Row{
		Stage:          StageConsentReview,
		PositiveAction: "User approved the consent request",
		SuccessCount:   approved,
		SuccessPct:     pct(approved),
		DropoffCause:   "User did not approve the consent request",
		DropoffCount:   reviewDrop,
		DropoffPct:     pct(reviewDrop),
		Subcauses: []Subcause{
			{Label: "User rejected the consent", Count: rejected, Pct: pct(rejected)},
			{Label: "User did not take any action", Count: noAction, Pct: pct(noAction)},
		},
	})

	// Tail stages count delivery and fetch events from their own source
	// columns; artefact and fetch activity can straddle the date boundary, so
	// only non-negativity is enforced here.
	t.Rows = append(t.Rows, Row{
		Stage:          StageArtefactDelivery,
		PositiveAction: "FIP accepted the consent artefact",
		SuccessCount:   fipAccepted,
		SuccessPct:     pct(fipAccepted),
		DropoffCause:   "FIP rejected the consent artefact",
		DropoffCount:   fipRejected,
		DropoffPct:     pct(fipRejected),
	})

	requests := in.Fetches.Requests()
	t.Rows = append(t.Rows, Row{
		Stage:          StageFIRequest,
		PositiveAction: "FIU successfully requested the data",
		SuccessCount:   requests,
		SuccessPct:     pct(requests),
		DropoffCause:   "FIU did not request the data",
		DropoffCount:   notAttempted,
		DropoffPct:     pct(notAttempted),
	})

	fetchDrop := requests - in.Fetches.Success
	if fetchDrop < 0 {
		return nil, &InvalidCountError{Entity: in.Entity, Stage: StageFIFetch, Count: fetchDrop}
	}
	t.Rows = append(t.Rows, Row{
		Stage:          StageFIFetch,
		PositiveAction: "FIU successfully received the data",
		SuccessCount:   in.Fetches.Success,
		SuccessPct:     pct(in.Fetches.Success),
		DropoffCause:   "FIU did not receive the data",
		DropoffCount:   fetchDrop,
		DropoffPct:     pct(fetchDrop),
	})

	t.ConsentApprovalPct = pct(approved)
	t.DataSharingPct = pct(in.Fetches.Success)
	return t, nil
}

// cascade appends a stage whose success count is the previous stage's success
// minus this stage's dropoff, keeping success+dropoff == previous success by
// construction. Returns the new success count.
func cascade(t *Table, entity string, prev int, row Row, pct func(int) float64) (int, error) {
	success := prev - row.DropoffCount
	if success < 0 {
		return 0, &InvalidCountError{Entity: entity, Stage: row.Stage, Count: success}
	}
	row.SuccessCount = success
	row.SuccessPct = pct(success)
	row.DropoffPct = pct(row.DropoffCount)
	t.Rows = append(t.Rows, row)
	return success, nil
}

func checkSources(in Input) error {
	for _, s := range dataset.Stages {
		if n := in.Stages.Total(s); n < 0 {
			return &InvalidCountError{Entity: in.Entity, Stage: string(s), Count: n}
		}
	}
	counts := map[string]int{
		"otp correct":         in.OTP.Correct,
		"otp incorrect":       in.OTP.Incorrect,
		"otp not entered":     in.OTP.NotEntered,
		"accounts discovered": in.Discovery.Discovered,
		"accounts not found":  in.Discovery.NotFound,
		"fip not selected":    in.Discovery.FIPNotSelected,
		"discovery failure":   in.Discovery.Failure,
		"discovery no status": in.Discovery.NoStatus,
		"fetch success":       in.Fetches.Success,
		"fetch failed":        in.Fetches.Failed,
		"fetch not attempted": in.Fetches.NotAttempted,
	}
	for name, n := range counts {
		if n < 0 {
			return &InvalidCountError{Entity: in.Entity, Stage: name, Count: n}
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
