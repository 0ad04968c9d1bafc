package fetch

import (
	"context"

	"github.com/aa-analytics/funnelreport/internal/dataset"
)

// SyntheticFetcher serves a fixed, internally consistent funnel of 10,000
// users so the pipeline can run without Drill (demos, CI).
type SyntheticFetcher struct{}

var _ Fetcher = SyntheticFetcher{}

// StageCounts returns one day of stage counters for the requested entity.
func (SyntheticFetcher) StageCounts(_ context.Context, entityID string, dates DateSpec) ([]dataset.StageRow, error) {
	return []dataset.StageRow{{
		EntityID: entityID,
		Date:     dates.Label(),
		Counts: map[dataset.Stage]int{
			dataset.StageClientInit:       800,
			dataset.StageOTPSignIn:        1650,
			dataset.StageViewConsent:      1050,
			dataset.StageDiscovery:        1700,
			dataset.StageLinking:          1600,
			dataset.StageRejectedConsents: 1950,
			dataset.StageApprovedConsents: 1250,
			dataset.StageFIPRejected:      150,
			dataset.StageFIPAccepted:      1100,
			dataset.StageFetchSuccess:     820,
			dataset.StageFetchNotAttempt:  50,
		},
	}}, nil
}

func (SyntheticFetcher) OTPBreakdown(context.Context, string, DateSpec) (*dataset.OTPBreakdown, error) {
	return &dataset.OTPBreakdown{Correct: 6500, Incorrect: 450, NotEntered: 1200}, nil
}

func (SyntheticFetcher) DiscoveryBreakdown(context.Context, string, DateSpec) (*dataset.DiscoveryBreakdown, error) {
	return &dataset.DiscoveryBreakdown{
		Discovered:     350,
		NotFound:       600,
		FIPNotSelected: 400,
		Failure:        150,
		NoStatus:       200,
	}, nil
}

func (SyntheticFetcher) FetchStatuses(context.Context, string, DateSpec) (*dataset.FetchStatusBreakdown, error) {
	return &dataset.FetchStatusBreakdown{Success: 820, Failed: 230, NotAttempted: 50}, nil
}
