// Package matching orchestrates the periodic pattern check: for every active
// pattern it fetches current market data, scores it against the stored
// fingerprint and raises a deduplicated alert when similarity clears the
// pattern's threshold.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patternwatch/internal/domain"
	"patternwatch/internal/fingerprint"
	"patternwatch/internal/modules/alerts"
	"patternwatch/internal/modules/patterns"
	"patternwatch/internal/similarity"
)

// ErrUnauthorized is returned when a trigger carries neither a valid shared
// secret nor an authenticated user identity.
var ErrUnauthorized = errors.New("trigger not authorized")

// Trigger identifies who asked for a match run. Scheduled callers present the
// shared secret; manual callers present their authenticated user id.
type Trigger struct {
	Secret string
	UserID string
}

// PatternResult is the per-pattern outcome of one run
type PatternResult struct {
	PatternID      string `json:"pattern_id"`
	PatternName    string `json:"pattern_name"`
	Similarity     int    `json:"similarity"`
	AlertTriggered bool   `json:"alert_triggered"`
	Error          string `json:"error,omitempty"`
}

// RunSummary aggregates one full invocation
type RunSummary struct {
	ID            string          `json:"id"`
	TriggeredBy   string          `json:"triggered_by"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Checked       int             `json:"checked"`
	AlertsCreated int             `json:"alerts_created"`
	Errors        int             `json:"errors"`
	Results       []PatternResult `json:"results"`
}

// SnapshotArchiver stores the market snapshot that triggered an alert and
// returns a reference URL. Archival is best-effort: failures cost the alert
// its snapshot link, never the alert itself.
type SnapshotArchiver interface {
	ArchiveCandles(ctx context.Context, patternID string, pair string, timeframe domain.Timeframe, candles []domain.Candle) (string, error)
}

// Runner executes match runs
type Runner struct {
	patternRepo *patterns.Repository
	alertRepo   *alerts.Repository
	runRepo     *RunRepository
	market      domain.MarketDataSource
	archiver    SnapshotArchiver // optional
	stream      *Stream          // optional
	secret      string
	workers     int
	dedupWindow time.Duration
	candleCount int
	log         zerolog.Logger
}

// Config holds runner configuration
type Config struct {
	PatternRepo *patterns.Repository
	AlertRepo   *alerts.Repository
	RunRepo     *RunRepository
	Market      domain.MarketDataSource
	Archiver    SnapshotArchiver
	Stream      *Stream
	Secret      string
	Workers     int
	DedupWindow time.Duration
	CandleCount int
}

// NewRunner creates a new match runner
func NewRunner(cfg Config, log zerolog.Logger) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	dedupWindow := cfg.DedupWindow
	if dedupWindow <= 0 {
		dedupWindow = time.Hour
	}
	candleCount := cfg.CandleCount
	if candleCount <= 0 {
		candleCount = 50
	}

	return &Runner{
		patternRepo: cfg.PatternRepo,
		alertRepo:   cfg.AlertRepo,
		runRepo:     cfg.RunRepo,
		market:      cfg.Market,
		archiver:    cfg.Archiver,
		stream:      cfg.Stream,
		secret:      cfg.Secret,
		workers:     workers,
		dedupWindow: dedupWindow,
		candleCount: candleCount,
		log:         log.With().Str("component", "match_runner").Logger(),
	}
}

// authorize checks the trigger credential. Scheduled callers must present the
// configured shared secret; manual callers any authenticated user identity.
func (r *Runner) authorize(trig Trigger) error {
	if r.secret != "" && trig.Secret == r.secret {
		return nil
	}
	if trig.UserID != "" {
		return nil
	}
	return ErrUnauthorized
}

// RunCheck executes one match run. Pattern checks fan out over a bounded
// worker pool; each check is an independent unit of work with an isolated
// failure domain, so one pattern's bad image URL or market-data outage never
// prevents the rest of the batch from being checked. The invocation itself
// only fails for authorization errors or total store unavailability.
func (r *Runner) RunCheck(ctx context.Context, trig Trigger) (*RunSummary, error) {
	if err := r.authorize(trig); err != nil {
		return nil, err
	}

	summary := &RunSummary{
		ID:          uuid.NewString(),
		TriggeredBy: triggeredBy(trig),
		StartedAt:   time.Now(),
		Results:     []PatternResult{},
	}

	// Manual triggers check only the caller's patterns
	active, err := r.patternRepo.ListActive(trig.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active patterns: %w", err)
	}

	if len(active) == 0 {
		summary.FinishedAt = time.Now()
		r.persistRun(summary)
		r.log.Debug().Msg("No active patterns to check")
		return summary, nil
	}

	jobs := make(chan patterns.Pattern)
	results := make(chan PatternResult, len(active))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results <- r.checkPattern(ctx, p)
			}
		}()
	}

	for _, p := range active {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		summary.Checked++
		if res.AlertTriggered {
			summary.AlertsCreated++
		}
		if res.Error != "" {
			summary.Errors++
		}
		summary.Results = append(summary.Results, res)
	}

	summary.FinishedAt = time.Now()
	r.persistRun(summary)

	r.log.Info().
		Str("run_id", summary.ID).
		Int("checked", summary.Checked).
		Int("alerts_created", summary.AlertsCreated).
		Int("errors", summary.Errors).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("Match run completed")

	return summary, nil
}

// checkPattern runs one pattern's check. Never propagates an error or panic:
// failures are logged and reported in the result so the batch keeps going.
func (r *Runner) checkPattern(ctx context.Context, p patterns.Pattern) (res PatternResult) {
	res = PatternResult{PatternID: p.ID, PatternName: p.Name}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("pattern_id", p.ID).
				Interface("panic", rec).
				Msg("Pattern check panicked")
			res.Error = fmt.Sprintf("panic: %v", rec)
		}
	}()

	// Checked even when the check itself fails; a failed check is retried on
	// the next scheduled invocation, not here.
	defer func() {
		if err := r.patternRepo.TouchLastChecked(p.ID, time.Now()); err != nil {
			r.log.Warn().Err(err).Str("pattern_id", p.ID).Msg("Failed to touch last_checked_at")
		}
	}()

	candles, err := r.market.FetchCandles(ctx, p.Pair, p.Timeframe, r.candleCount)
	if err != nil {
		r.log.Warn().Err(err).
			Str("pattern_id", p.ID).
			Str("pair", p.Pair).
			Msg("Market data fetch failed, skipping pattern for this cycle")
		res.Error = fmt.Sprintf("market data: %v", err)
		return res
	}

	current := fingerprint.FromCandles(candles)

	cos, err := similarity.Cosine(p.Fingerprint, current)
	if err != nil {
		// A stored fingerprint whose length disagrees with the extractor is a
		// configuration invariant violation; report it, never coerce.
		r.log.Error().Err(err).
			Str("pattern_id", p.ID).
			Msg("Fingerprint dimension mismatch")
		res.Error = fmt.Sprintf("fingerprint: %v", err)
		return res
	}

	res.Similarity = similarity.Percent(cos)

	// Threshold 0 is a valid "alert on any match" setting; the default is
	// materialized at pattern creation, never here.
	if res.Similarity < p.Threshold {
		return res
	}

	recent, err := r.alertRepo.HasRecent(p.ID, r.dedupWindow)
	if err != nil {
		r.log.Warn().Err(err).Str("pattern_id", p.ID).Msg("Dedup check failed")
		res.Error = fmt.Sprintf("dedup: %v", err)
		return res
	}
	if recent {
		r.log.Debug().
			Str("pattern_id", p.ID).
			Int("similarity", res.Similarity).
			Msg("Match suppressed by dedup window")
		return res
	}

	snapshotRef := r.archiveSnapshot(ctx, p, candles)

	alert, err := r.alertRepo.Create(p.UserID, p.ID, res.Similarity, snapshotRef)
	if err != nil {
		r.log.Error().Err(err).Str("pattern_id", p.ID).Msg("Failed to create alert")
		res.Error = fmt.Sprintf("alert insert: %v", err)
		return res
	}

	res.AlertTriggered = true

	if r.stream != nil {
		r.stream.Publish(alert)
	}

	return res
}

// archiveSnapshot stores the triggering candle series, returning its URL or
// empty when archival is unconfigured or fails
func (r *Runner) archiveSnapshot(ctx context.Context, p patterns.Pattern, candles []domain.Candle) string {
	if r.archiver == nil {
		return ""
	}

	ref, err := r.archiver.ArchiveCandles(ctx, p.ID, p.Pair, p.Timeframe, candles)
	if err != nil {
		r.log.Warn().Err(err).Str("pattern_id", p.ID).Msg("Snapshot archival failed")
		return ""
	}
	return ref
}

// persistRun records the run summary for the ops view; a failed write is
// logged but never fails the run
func (r *Runner) persistRun(summary *RunSummary) {
	if r.runRepo == nil {
		return
	}
	if err := r.runRepo.Create(summary); err != nil {
		r.log.Warn().Err(err).Str("run_id", summary.ID).Msg("Failed to persist run summary")
	}
}

func triggeredBy(trig Trigger) string {
	if trig.UserID != "" {
		return "user:" + trig.UserID
	}
	return "scheduler"
}
