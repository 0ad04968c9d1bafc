package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aa-analytics/funnelreport/internal/dataset"
	"github.com/aa-analytics/funnelreport/internal/fetch"
	"github.com/aa-analytics/funnelreport/internal/funnel"
	"github.com/aa-analytics/funnelreport/internal/notify"
	"github.com/aa-analytics/funnelreport/internal/recipients"
)

// fakeFetcher serves synthetic data for every entity except the ones it is
// told to starve or break.
type fakeFetcher struct {
	fetch.SyntheticFetcher
	noData map[string]bool
	broken map[string]bool
}

func (f *fakeFetcher) StageCounts(ctx context.Context, entityID string, dates fetch.DateSpec) ([]dataset.StageRow, error) {
	if f.broken[entityID] {
		return nil, errors.New("drill unreachable")
	}
	if f.noData[entityID] {
		return nil, nil
	}
	return f.SyntheticFetcher.StageCounts(ctx, entityID, dates)
}

type fakeRenderer struct {
	mu    sync.Mutex
	paths []string
}

func (r *fakeRenderer) Render(t *funnel.Table, dateLabel string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path := "/out/" + t.Entity + "-" + dateLabel + ".xlsx"
	r.paths = append(r.paths, path)
	return path, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
	err     error
}

func (n *fakeNotifier) Send(_ context.Context, notice notify.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice)
	return nil
}

func book(entities ...string) *recipients.Book {
	to := map[string][]string{}
	for _, e := range entities {
		to[e] = []string{e + "-team@example.com"}
	}
	return &recipients.Book{To: to, CC: map[string][]string{"default": {"cc@example.com"}}}
}

func dates(t *testing.T) fetch.DateSpec {
	t.Helper()
	d, err := fetch.ParseDateSpec("01_05_2025")
	require.NoError(t, err)
	return d
}

func result(t *testing.T, s Summary, entity string) EntityResult {
	t.Helper()
	for _, r := range s.Results {
		if r.Entity == entity {
			return r
		}
	}
	t.Fatalf("no result for %s", entity)
	return EntityResult{}
}

func TestRun_IsolatesEntityFailures(t *testing.T) {
	renderer := &fakeRenderer{}
	p := &Pipeline{
		Fetcher:  &fakeFetcher{noData: map[string]bool{"empty@bank": true}, broken: map[string]bool{"down@bank": true}},
		Renderer: renderer,
		Book:     book("good@bank", "empty@bank", "down@bank", "other@bank"),
		Limits:   NewLimits(2),
		Logger:   zerolog.Nop(),
	}

	summary := p.Run(context.Background(), dates(t))
	require.Len(t, summary.Results, 4)
	require.Len(t, summary.Succeeded(), 2)
	require.Len(t, summary.Failed(), 2)
	require.NotEmpty(t, summary.RunID)

	empty := result(t, summary, "empty@bank")
	var missing *funnel.MissingDataError
	require.ErrorAs(t, empty.Err, &missing)
	require.Equal(t, "empty@bank", missing.Entity)
	require.True(t, empty.Skipped())

	down := result(t, summary, "down@bank")
	require.Error(t, down.Err)
	require.False(t, down.Skipped())

	good := result(t, summary, "good@bank")
	require.NoError(t, good.Err)
	require.NotEmpty(t, good.Path)
	require.Len(t, renderer.paths, 2)
}

func TestRun_MailsRenderedReports(t *testing.T) {
	notifier := &fakeNotifier{}
	p := &Pipeline{
		Fetcher:  &fakeFetcher{},
		Renderer: &fakeRenderer{},
		Notifier: notifier,
		Book:     book("fiu@bank"),
		Limits:   NewLimits(0),
		Logger:   zerolog.Nop(),
	}

	summary := p.Run(context.Background(), dates(t))
	require.Len(t, summary.Succeeded(), 1)
	require.True(t, summary.Results[0].Mailed)

	require.Len(t, notifier.notices, 1)
	n := notifier.notices[0]
	require.Equal(t, "fiu@bank", n.Entity)
	require.Equal(t, []string{"fiu@bank-team@example.com"}, n.To)
	require.Equal(t, []string{"cc@example.com"}, n.CC)
	require.Equal(t, "fiu@bank_user_funnel_01_05_2025", n.Subject)
	require.NotEmpty(t, n.Attachment)
}

func TestRun_UnconfiguredMailIsNotAFailure(t *testing.T) {
	p := &Pipeline{
		Fetcher:  &fakeFetcher{},
		Renderer: &fakeRenderer{},
		Notifier: &fakeNotifier{err: notify.ErrNotConfigured},
		Book:     book("fiu@bank"),
		Limits:   NewLimits(1),
		Logger:   zerolog.Nop(),
	}

	summary := p.Run(context.Background(), dates(t))
	res := summary.Results[0]
	require.NoError(t, res.Err)
	require.False(t, res.Mailed)
	require.NotEmpty(t, res.Path)
}

func TestRun_MailFailureIsRecorded(t *testing.T) {
	p := &Pipeline{
		Fetcher:  &fakeFetcher{},
		Renderer: &fakeRenderer{},
		Notifier: &fakeNotifier{err: errors.New("smtp down")},
		Book:     book("fiu@bank"),
		Limits:   NewLimits(1),
		Logger:   zerolog.Nop(),
	}

	summary := p.Run(context.Background(), dates(t))
	res := summary.Results[0]
	require.Error(t, res.Err)
	// The workbook was still written before delivery failed.
	require.NotEmpty(t, res.Path)
}
