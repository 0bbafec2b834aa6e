package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"deckhand/internal/config"
	"deckhand/internal/disccache"
	"deckhand/internal/logging"
	"deckhand/internal/media"
	"deckhand/internal/playback"
	"deckhand/internal/protocol"
)

// Deck is the controller surface the orchestrator drives. A deck.Controller
// satisfies it; tests supply a fake.
type Deck interface {
	EnterRemote(ctx context.Context) error
	LeaveRemote(ctx context.Context) error
	ModelName(ctx context.Context) (string, error)
	Status(ctx context.Context) (protocol.Status, error)
	DiscData(ctx context.Context) (protocol.DiscData, error)
	DiscName(ctx context.Context) (string, error)
	TOC(ctx context.Context) (protocol.TOC, error)
	RecRemain(ctx context.Context) (time.Duration, error)
	ArmTrack(ctx context.Context, title string) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (int, error)
}

// Player is the playback surface the orchestrator polls. A
// playback.Monitor satisfies it.
type Player interface {
	Begin(ctx context.Context, path string, durationHint time.Duration) error
	Poll() playback.Progress
	Stop() error
}

// MetadataReader extracts tagging and duration from an audio file.
type MetadataReader func(path string) media.Metadata

// Orchestrator runs recording sessions.
type Orchestrator struct {
	cfg      *config.Config
	deck     Deck
	player   Player
	cache    *disccache.Store
	readMeta MetadataReader
	logger   *slog.Logger
}

// NewOrchestrator constructs the orchestrator with default collaborators.
func NewOrchestrator(cfg *config.Config, deck Deck, player Player, logger *slog.Logger) *Orchestrator {
	return NewOrchestratorWithDependencies(cfg, deck, player, nil, media.Read, logger)
}

// NewOrchestratorWithDependencies allows injecting all collaborators (used
// in tests and by the CLI when the disc cache is enabled).
func NewOrchestratorWithDependencies(cfg *config.Config, deck Deck, player Player, cache *disccache.Store, readMeta MetadataReader, logger *slog.Logger) *Orchestrator {
	if readMeta == nil {
		readMeta = media.Read
	}
	return &Orchestrator{
		cfg:      cfg,
		deck:     deck,
		player:   player,
		cache:    cache,
		readMeta: readMeta,
		logger:   logging.NewComponentLogger(logger, "session"),
	}
}

// Run records every path onto the disc in the supplied order. The returned
// report always covers every job; the error reports why the session fell
// short when it did.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (*Report, error) {
	if len(paths) == 0 {
		return nil, errors.New("session: no files to record")
	}

	lock, err := AcquireLock(o.cfg.Session.LockDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	report := &Report{
		SessionID: uuid.NewString(),
		Started:   time.Now(),
	}
	ctx = logging.WithCorrelationID(ctx, report.SessionID)
	logger := logging.WithContext(ctx, o.logger)

	for i, path := range paths {
		meta := o.readMeta(path)
		report.Jobs = append(report.Jobs, newTrackJob(i+1, path, meta))
	}

	if err := o.deck.EnterRemote(ctx); err != nil {
		report.Finished = time.Now()
		return report, fmt.Errorf("session: enter remote mode: %w", err)
	}
	defer o.teardown()

	model, err := o.deck.ModelName(ctx)
	if err != nil {
		report.Finished = time.Now()
		return report, fmt.Errorf("session: deck not responding: %w", err)
	}
	report.DeckModel = model
	logger.Info("session started",
		logging.String("deck", model),
		logging.Int("tracks", len(report.Jobs)),
	)

	if err := o.checkDisc(ctx, logger, report); err != nil {
		report.Finished = time.Now()
		return report, err
	}

	var sessionErr error
	for _, job := range report.Jobs {
		if ctx.Err() != nil {
			report.Aborted = true
			sessionErr = ctx.Err()
			break
		}
		err := o.runJob(ctx, job)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			report.Aborted = true
			sessionErr = err
			break
		}
		if o.cfg.Session.FailurePolicy == config.PolicyAbort {
			report.Aborted = true
			sessionErr = fmt.Errorf("session: track %d failed: %w", job.Seq, err)
			break
		}
		logger.Warn("skipping failed track",
			logging.Int(logging.FieldTrack, job.Seq),
			logging.Error(err),
		)
	}

	o.refreshCache(ctx, logger, report)
	report.Finished = time.Now()
	logger.Info("session finished",
		logging.Int("done", report.Done()),
		logging.Int("failed", report.Failed()),
		logging.Int("unattempted", report.Unattempted()),
	)
	return report, sessionErr
}

// checkDisc verifies the loaded disc can take recordings and warns when the
// queued audio may not fit the remaining time.
func (o *Orchestrator) checkDisc(ctx context.Context, logger *slog.Logger, report *Report) error {
	status, err := o.deck.Status(ctx)
	if err != nil {
		return fmt.Errorf("session: read deck status: %w", err)
	}
	if !status.DiscLoaded {
		return errors.New("session: no disc loaded")
	}
	data, err := o.deck.DiscData(ctx)
	if err != nil {
		return fmt.Errorf("session: read disc data: %w", err)
	}
	if data.Kind == protocol.DiscPremaster {
		return errors.New("session: disc is premastered, not recordable")
	}
	if data.Protected {
		return errors.New("session: disc is write protected")
	}
	if data.Faulty {
		return errors.New("session: deck reports a faulty disc")
	}
	if !status.RecPossible {
		return errors.New("session: deck reports recording not possible")
	}

	if name, err := o.deck.DiscName(ctx); err == nil {
		report.DiscName = name
	}

	var queued time.Duration
	known := 0
	for _, job := range report.Jobs {
		if job.Duration > 0 {
			queued += job.Duration
			known++
		}
	}
	remain, err := o.deck.RecRemain(ctx)
	if err != nil {
		logger.Warn("could not read remaining time", logging.Error(err))
		return nil
	}
	logger.Info("disc checked",
		logging.String("disc", report.DiscName),
		logging.Duration("remaining", remain),
		logging.Duration("queued", queued),
	)
	if known > 0 && queued > remain {
		// Durations can be missing or rounded, so this stays a warning.
		logger.Warn("queued audio may not fit the disc",
			logging.Duration("remaining", remain),
			logging.Duration("queued", queued),
			logging.Int("tracks_without_duration", len(report.Jobs)-known),
		)
	}
	return nil
}

// runJob drives one track job through its state machine.
func (o *Orchestrator) runJob(ctx context.Context, job *TrackJob) error {
	ctx = logging.WithJobID(logging.WithTrack(ctx, job.Seq), job.ID)
	logger := logging.WithContext(ctx, o.logger)

	job.Started = time.Now()
	job.Status = StatusArming
	logger.Info("arming track",
		logging.String("title", job.Title),
		logging.String("file", filepath.Base(job.Path)),
	)
	if err := o.deck.ArmTrack(ctx, job.Title); err != nil {
		return job.fail("arm", err)
	}

	job.Status = StatusStarting
	if err := o.player.Begin(ctx, job.Path, job.Duration); err != nil {
		// The deck sits in record-pause; stop it before reporting.
		o.stopDeckDetached(logger)
		return job.fail("playback", err)
	}
	if err := o.pause(ctx, o.cfg.Deck.Preroll()); err != nil {
		return o.cancelJob(job, logger)
	}

	job.Status = StatusRecording
	if err := o.deck.StartRecording(ctx); err != nil {
		_ = o.player.Stop()
		return job.fail("start", err)
	}
	logger.Info("recording", logging.Duration("expected", job.Duration))

poll:
	for {
		if ctx.Err() != nil {
			return o.cancelJob(job, logger)
		}
		progress := o.player.Poll()
		switch progress.State {
		case playback.StatePlaying:
			if err := o.pause(ctx, o.cfg.Playback.PollInterval()); err != nil {
				return o.cancelJob(job, logger)
			}
		case playback.StateFailed:
			o.stopDeckDetached(logger)
			return job.fail("playback", progress.Err)
		default:
			job.Degraded = progress.Degraded
			break poll
		}
	}

	job.Status = StatusStopping
	// The post-roll keeps trailing audio; run it even when a cancel
	// arrives, the stop below must happen either way.
	_ = o.pause(ctx, o.cfg.Deck.Postroll())

	stopCtx := ctx
	if ctx.Err() != nil {
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stopBudget())
		defer cancel()
		stopCtx = detached
	}
	track, err := o.deck.StopRecording(stopCtx)
	if err != nil {
		return job.fail("stop", err)
	}
	job.Track = track
	job.Status = StatusDone
	job.Finished = time.Now()
	logger.Info("track recorded",
		logging.Int("deck_track", track),
		logging.String("title", job.Title),
		logging.Bool("degraded", job.Degraded),
	)
	return nil
}

// cancelJob tears one job down after an external cancel: playback stops,
// and a live recording is still stopped on the deck through a detached
// context.
func (o *Orchestrator) cancelJob(job *TrackJob, logger *slog.Logger) error {
	_ = o.player.Stop()
	o.stopDeckDetached(logger)
	logger.Warn("track cancelled", logging.String("title", job.Title))
	return job.fail("cancel", context.Canceled)
}

// stopDeckDetached stops the deck transport on a context that survives the
// session's cancellation, bounded so teardown cannot hang.
func (o *Orchestrator) stopDeckDetached(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), o.stopBudget())
	defer cancel()
	if _, err := o.deck.StopRecording(ctx); err != nil {
		logger.Warn("could not stop deck during teardown", logging.Error(err))
	}
}

// stopBudget bounds detached deck commands: the full retry budget of a stop
// plus naming, with headroom.
func (o *Orchestrator) stopBudget() time.Duration {
	attempts := time.Duration(o.cfg.Deck.StopRetries + 1)
	return attempts*o.cfg.Deck.CommandTimeout() + 10*time.Second
}

// refreshCache upserts the disc and its newly recorded tracks once the
// session settles. Failures only warn; the cache is an optimization.
func (o *Orchestrator) refreshCache(ctx context.Context, logger *slog.Logger, report *Report) {
	if o.cache == nil || report.Done() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stopBudget())
	defer cancel()

	toc, err := o.deck.TOC(ctx)
	if err != nil {
		logger.Warn("cache refresh skipped, toc unavailable", logging.Error(err))
		return
	}
	name, err := o.deck.DiscName(ctx)
	if err != nil {
		name = report.DiscName
	}
	disc, err := o.cache.RememberDisc(ctx, name, toc)
	if err != nil {
		logger.Warn("cache refresh failed", logging.Error(err))
		return
	}
	for _, job := range report.Jobs {
		if job.Status != StatusDone || job.Track == 0 {
			continue
		}
		if err := o.cache.RememberTrack(ctx, disc.ID, job.Track, job.Title); err != nil {
			logger.Warn("cache track write failed",
				logging.Int("deck_track", job.Track),
				logging.Error(err),
			)
		}
	}
}

// teardown releases the deck whatever happened: playback dies and the front
// panel unlocks.
func (o *Orchestrator) teardown() {
	_ = o.player.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), o.stopBudget())
	defer cancel()
	if err := o.deck.LeaveRemote(ctx); err != nil {
		o.logger.Warn("could not leave remote mode, front panel may stay locked", logging.Error(err))
	}
}

// pause sleeps for d unless the context is cancelled first.
func (o *Orchestrator) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
