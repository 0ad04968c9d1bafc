// Package pipeline orchestrates the per-entity extract-transform-load run.
// Entities are independent: one failure is recorded and never stops the rest.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"

	"github.com/aa-analytics/funnelreport/config"
	"github.com/aa-analytics/funnelreport/internal/dataset"
	"github.com/aa-analytics/funnelreport/internal/fetch"
	"github.com/aa-analytics/funnelreport/internal/funnel"
	"github.com/aa-analytics/funnelreport/internal/notify"
	"github.com/aa-analytics/funnelreport/internal/recipients"
)

// Limits bounds pipeline concurrency.
type Limits struct {
	MaxConcurrentEntities int
}

// NewLimits applies the default when the value is unset.
func NewLimits(maxConcurrentEntities int) Limits {
	if maxConcurrentEntities <= 0 {
		maxConcurrentEntities = config.DefaultMaxConcurrentEntities
	}
	return Limits{MaxConcurrentEntities: maxConcurrentEntities}
}

// Renderer writes a funnel table somewhere durable and returns its path.
type Renderer interface {
	Render(t *funnel.Table, dateLabel string) (string, error)
}

// EntityResult is the explicit outcome for one entity: a rendered report path
// or the error that stopped it.
type EntityResult struct {
	Entity string
	Path   string
	Mailed bool
	Err    error
}

// Skipped reports whether the entity failed on its own data (missing or
// corrupt) rather than on infrastructure.
func (r EntityResult) Skipped() bool {
	var missing *funnel.MissingDataError
	var invalid *funnel.InvalidCountError
	return errors.As(r.Err, &missing) || errors.As(r.Err, &invalid)
}

// Summary collects every entity outcome of one run.
type Summary struct {
	RunID   string
	Date    string
	Results []EntityResult
}

// Succeeded lists entities with a rendered report.
func (s Summary) Succeeded() []EntityResult {
	return lo.Filter(s.Results, func(r EntityResult, _ int) bool { return r.Err == nil })
}

// Failed lists entities that produced no report.
func (s Summary) Failed() []EntityResult {
	return lo.Filter(s.Results, func(r EntityResult, _ int) bool { return r.Err != nil })
}

// Pipeline wires the fetcher, renderer and notifier for a run. Notifier may
// be nil to disable mail (demo runs).
type Pipeline struct {
	Fetcher  fetch.Fetcher
	Renderer Renderer
	Notifier notify.Notifier
	Book     *recipients.Book
	Limits   Limits
	Logger   zerolog.Logger
}

// Run processes every entity in the recipients book for the date spec,
// bounded by the concurrency limit. It always returns a full summary; errors
// live in the per-entity results.
func (p *Pipeline) Run(ctx context.Context, dates fetch.DateSpec) Summary {
	runID := uuid.NewString()
	logger := p.Logger.With().Str("run_id", runID).Str("date", dates.Raw()).Logger()

	entities := p.Book.Entities()
	sort.Strings(entities)
	logger.Info().Int("entities", len(entities)).Msg("run started")

	sem := semaphore.NewWeighted(int64(p.Limits.MaxConcurrentEntities))
	results := make([]EntityResult, len(entities))
	var wg sync.WaitGroup
	for i, entity := range entities {
		wg.Add(1)
		go func(i int, entity string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = EntityResult{Entity: entity, Err: errors.Wrap(err, "acquire slot")}
				return
			}
			defer sem.Release(1)
			results[i] = p.processEntity(ctx, logger, entity, dates)
		}(i, entity)
	}
	wg.Wait()

	summary := Summary{RunID: runID, Date: dates.Raw(), Results: results}
	logger.Info().
		Int("succeeded", len(summary.Succeeded())).
		Int("failed", len(summary.Failed())).
		Msg("run finished")
	return summary
}

func (p *Pipeline) processEntity(ctx context.Context, logger zerolog.Logger, entity string, dates fetch.DateSpec) EntityResult {
	log := logger.With().Str("entity", entity).Logger()
	res := EntityResult{Entity: entity}

	table, err := p.buildTable(ctx, entity, dates)
	if err != nil {
		res.Err = err
		if res.Skipped() {
			log.Warn().Err(err).Msg("entity skipped")
		} else {
			log.Error().Err(err).Msg("entity failed")
		}
		return res
	}

	path, err := p.Renderer.Render(table, dates.Label())
	if err != nil {
		res.Err = errors.Wrap(err, "render report")
		log.Error().Err(res.Err).Msg("entity failed")
		return res
	}
	res.Path = path
	log.Info().Str("path", path).Int("initial_users", table.InitialUsers).Msg("report written")

	if p.Notifier == nil {
		return res
	}
	if err := p.mail(ctx, entity, dates, path); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			log.Warn().Msg("smtp not configured; mail skipped")
			return res
		}
		// The report exists; delivery failure is recorded but does not undo it.
		res.Err = err
		log.Error().Err(err).Msg("mail failed")
		return res
	}
	res.Mailed = true
	log.Info().Msg("report mailed")
	return res
}

func (p *Pipeline) buildTable(ctx context.Context, entity string, dates fetch.DateSpec) (*funnel.Table, error) {
	stageRows, err := p.Fetcher.StageCounts(ctx, entity, dates)
	if err != nil {
		return nil, err
	}
	otp, err := p.Fetcher.OTPBreakdown(ctx, entity, dates)
	if err != nil {
		return nil, err
	}
	discovery, err := p.Fetcher.DiscoveryBreakdown(ctx, entity, dates)
	if err != nil {
		return nil, err
	}
	fetches, err := p.Fetcher.FetchStatuses(ctx, entity, dates)
	if err != nil {
		return nil, err
	}

	return funnel.Build(funnel.Input{
		Entity:    entity,
		Stages:    dataset.AggregateStages(stageRows, entity),
		OTP:       otp,
		Discovery: discovery,
		Fetches:   fetches,
	})
}

func (p *Pipeline) mail(ctx context.Context, entity string, dates fetch.DateSpec, path string) error {
	to, cc := p.Book.For(entity)
	body := fmt.Sprintf(
		"Dear team,<br>Please find the user funnel for %s %s.<br><br>Thanks &amp; Regards,<br>Your Team",
		entity, dates.Raw(),
	)
	return p.Notifier.Send(ctx, notify.Notice{
		Entity:     entity,
		To:         to,
		CC:         cc,
		Subject:    fmt.Sprintf("%s_user_funnel_%s", entity, dates.Label()),
		BodyHTML:   body,
		Attachment: path,
	})
}
