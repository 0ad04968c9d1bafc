// Package fetch obtains the four funnel datasets for an entity, either from
// Apache Drill or from a synthetic generator for demo runs.
package fetch

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/aa-analytics/funnelreport/internal/dataset"
	"github.com/aa-analytics/funnelreport/internal/drill"
)

// Fetcher returns the four datasets for one entity and date spec. Breakdowns
// are nil when the upstream holds no data; the builder turns that into a
// MissingDataError.
type Fetcher interface {
	StageCounts(ctx context.Context, entityID string, dates DateSpec) ([]dataset.StageRow, error)
	OTPBreakdown(ctx context.Context, entityID string, dates DateSpec) (*dataset.OTPBreakdown, error)
	DiscoveryBreakdown(ctx context.Context, entityID string, dates DateSpec) (*dataset.DiscoveryBreakdown, error)
	FetchStatuses(ctx context.Context, entityID string, dates DateSpec) (*dataset.FetchStatusBreakdown, error)
}

// Runner abstracts the Drill client for tests.
type Runner interface {
	Query(ctx context.Context, sql string) (*drill.ResultSet, error)
}

// DrillFetcher queries funnel CSVs through Drill's dfs plugin.
type DrillFetcher struct {
	Runner   Runner
	BasePath string
}

var _ Fetcher = (*DrillFetcher)(nil)

// StageCounts loads per-date stage counter rows, filtered to the entity by
// the query and, for ranges, to the covered days client-side.
func (f *DrillFetcher) StageCounts(ctx context.Context, entityID string, dates DateSpec) ([]dataset.StageRow, error) {
	var rows []dataset.StageRow
	for _, prefix := range dates.MonthPrefixes() {
		rs, err := f.Runner.Query(ctx, stageQuery(f.BasePath, prefix, entityID))
		if err != nil {
			return nil, errors.Wrapf(err, "stage counts for %q", entityID)
		}
		for _, raw := range rs.Rows {
			if !dates.Contains(raw["Date"]) {
				continue
			}
			row := dataset.StageRow{
				EntityID: raw["Entity_ID"],
				Date:     raw["Date"],
				Counts:   make(map[dataset.Stage]int, len(dataset.Stages)),
			}
			for _, s := range dataset.Stages {
				if n, ok := dataset.ParseCount(raw[string(s)]); ok {
					row.Counts[s] = n
				}
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// OTPBreakdown sums OTP attempt counters; ranges are summed day by day.
func (f *DrillFetcher) OTPBreakdown(ctx context.Context, entityID string, dates DateSpec) (*dataset.OTPBreakdown, error) {
	var out dataset.OTPBreakdown
	found := false
	for _, day := range dates.Days() {
		rs, err := f.Runner.Query(ctx, otpQuery(f.BasePath, day, entityID))
		if err != nil {
			return nil, errors.Wrapf(err, "otp breakdown for %q", entityID)
		}
		for _, raw := range rs.Rows {
			found = addCount(&out.Correct, raw["Total_Correct_OTP_Entered"]) || found
			found = addCount(&out.Incorrect, raw["Total_Incorrect_OTP_Entered"]) || found
			found = addCount(&out.NotEntered, raw["Total_OTP_Not_Entered"]) || found
		}
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

// DiscoveryBreakdown sums discovery outcome counters; ranges are summed day
// by day.
func (f *DrillFetcher) DiscoveryBreakdown(ctx context.Context, entityID string, dates DateSpec) (*dataset.DiscoveryBreakdown, error) {
	var out dataset.DiscoveryBreakdown
	found := false
	for _, day := range dates.Days() {
		rs, err := f.Runner.Query(ctx, discoveryQuery(f.BasePath, day, entityID))
		if err != nil {
			return nil, errors.Wrapf(err, "discovery breakdown for %q", entityID)
		}
		for _, raw := range rs.Rows {
			found = addCount(&out.Discovered, raw["Account_Discovered"]) || found
			found = addCount(&out.NotFound, raw["Account_not_Found"]) || found
			found = addCount(&out.FIPNotSelected, raw["FIP_Not_Selected"]) || found
			found = addCount(&out.Failure, raw["Failure"]) || found
			found = addCount(&out.NoStatus, raw["NO_STATUS"]) || found
		}
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

// FetchStatuses groups FI fetch outcomes by status; ranges are summed day by
// day.
func (f *DrillFetcher) FetchStatuses(ctx context.Context, entityID string, dates DateSpec) (*dataset.FetchStatusBreakdown, error) {
	var out dataset.FetchStatusBreakdown
	found := false
	for _, day := range dates.Days() {
		rs, err := f.Runner.Query(ctx, fetchStatusQuery(f.BasePath, day, entityID))
		if err != nil {
			return nil, errors.Wrapf(err, "fetch statuses for %q", entityID)
		}
		for _, raw := range rs.Rows {
			n, ok := dataset.ParseCount(raw["Count"])
			if !ok {
				continue
			}
			switch raw["fetch_status"] {
			case "Success":
				out.Success += n
			case "Failed":
				out.Failed += n
			case "Not Attempted":
				out.NotAttempted += n
			default:
				continue
			}
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

func addCount(dst *int, cell string) bool {
	n, ok := dataset.ParseCount(cell)
	if !ok {
		return false
	}
	*dst += n
	return true
}

func stageQuery(base, pathSpec, entityID string) string {
	return fmt.Sprintf(
		"SELECT * FROM dfs.`%s/%s/uf-stages-user-funnel-%s.csv` WHERE Entity_ID = '%s'",
		base, pathSpec, pathSpec, entityID,
	)
}

func otpQuery(base, pathSpec, entityID string) string {
	return fmt.Sprintf(
		"SELECT SUM(CAST(Correct_OTP_Entered AS DOUBLE)) AS Total_Correct_OTP_Entered, "+
			"SUM(CAST(Incorrect_OTP_Entered AS DOUBLE)) AS Total_Incorrect_OTP_Entered, "+
			"SUM(CAST(OTP_Not_Entered AS DOUBLE)) AS Total_OTP_Not_Entered "+
			"FROM dfs.`%s/%s/otp-summary-user-funnel-%s.csv` WHERE entity_id = '%s'",
		base, pathSpec, pathSpec, entityID,
	)
}

func discoveryQuery(base, pathSpec, entityID string) string {
	return fmt.Sprintf(
		"SELECT SUM(CAST(NULLIF(Account_Discovered,'') AS DOUBLE)) AS Account_Discovered, "+
			"SUM(CAST(NULLIF(Account_not_Found,'') AS DOUBLE)) AS Account_not_Found, "+
			"SUM(CAST(NULLIF(FIP_Not_Selected,'') AS DOUBLE)) AS FIP_Not_Selected, "+
			"SUM(CAST(NULLIF(Failure,'') AS DOUBLE)) AS Failure, "+
			"SUM(CAST(NULLIF(NO_STATUS,'') AS DOUBLE)) AS NO_STATUS "+
			"FROM dfs.`%s/%s/discovery-summary-user-funnel-%s.csv` WHERE entity_id = '%s'",
		base, pathSpec, pathSpec, entityID,
	)
}

func fetchStatusQuery(base, pathSpec, entityID string) string {
	return fmt.Sprintf(
		"SELECT fetch_status, COUNT(fetch_status) AS Count "+
			"FROM dfs.`%s/%s/user-funnel-%s.csv` "+
			"WHERE entity_id = '%s' AND fetch_status IN ('Not Attempted','Failed','Success') "+
			"AND fetch_status IS NOT NULL AND fetch_status <> '' "+
			"GROUP BY fetch_status",
		base, pathSpec, pathSpec, entityID,
	)
}
