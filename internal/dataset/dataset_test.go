package dataset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func stageRow(entity, date string, clientInit, linking int) StageRow {
	return StageRow{
		EntityID: entity,
		Date:     date,
		Counts: map[Stage]int{
			StageClientInit: clientInit,
			StageLinking:    linking,
		},
	}
}

func TestAggregateStages_FiltersEntityBeforeSumming(t *testing.T) {
	rows := []StageRow{
		stageRow("fiu@bank", "01-05-2025", 100, 10),
		stageRow("other@bank", "01-05-2025", 9999, 9999),
		stageRow("fiu@bank", "02-05-2025", 50, 5),
	}

	totals := AggregateStages(rows, "fiu@bank")
	require.Equal(t, 2, totals.RowCount)
	require.Equal(t, 150, totals.Total(StageClientInit))
	require.Equal(t, 15, totals.Total(StageLinking))
}

func TestAggregateStages_PermutationInvariant(t *testing.T) {
	a := stageRow("e", "01-05-2025", 1, 4)
	b := stageRow("e", "02-05-2025", 2, 5)
	c := stageRow("e", "03-05-2025", 3, 6)

	orders := [][]StageRow{
		{a, b, c}, {c, b, a}, {b, a, c}, {c, a, b},
	}
	want := AggregateStages(orders[0], "e")
	for _, rows := range orders[1:] {
		got := AggregateStages(rows, "e")
		require.Equal(t, want.RowCount, got.RowCount)
		for _, s := range Stages {
			require.Equal(t, want.Total(s), got.Total(s))
		}
	}
}

func TestAggregateStages_MissingColumnsAreZero(t *testing.T) {
	totals := AggregateStages([]StageRow{stageRow("e", "01-05-2025", 7, 0)}, "e")
	require.Equal(t, 0, totals.Total(StageFetchSuccess))
	require.Equal(t, 0, totals.Total(StageApprovedConsents))
}

func TestAggregateStages_NoRowsIsEmpty(t *testing.T) {
	totals := AggregateStages(nil, "e")
	require.True(t, totals.Empty())

	totals = AggregateStages([]StageRow{stageRow("other", "01-05-2025", 1, 1)}, "e")
	require.True(t, totals.Empty())
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{"42.0", 42, true},
		{" 17 ", 17, true},
		{"1,200", 1200, true},
		{"0", 0, true},
		{"", 0, false},
		{"null", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCount(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestDiscoveryDropoffTotal(t *testing.T) {
	d := DiscoveryBreakdown{Discovered: 350, NotFound: 600, FIPNotSelected: 400, Failure: 150, NoStatus: 200}
	require.Equal(t, 1700, d.DropoffTotal())
}

func TestFetchStatusRequests(t *testing.T) {
	f := FetchStatusBreakdown{Success: 820, Failed: 230, NotAttempted: 50}
	require.Equal(t, 1050, f.Requests())
}
