package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/media"
	"deckhand/internal/playback"
	"deckhand/internal/protocol"
)

type fakeDeck struct {
	mu    sync.Mutex
	calls []string

	armErr   map[int]error // keyed by arm invocation count, 1-based
	startErr map[int]error
	stopErr  map[int]error

	arms   int
	starts int
	stops  int

	nextTrack int
	remote    bool
}

func newFakeDeck() *fakeDeck {
	return &fakeDeck{
		armErr:   map[int]error{},
		startErr: map[int]error{},
		stopErr:  map[int]error{},
	}
}

func (d *fakeDeck) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

func (d *fakeDeck) EnterRemote(ctx context.Context) error {
	d.record("enter_remote")
	d.remote = true
	return nil
}

func (d *fakeDeck) LeaveRemote(ctx context.Context) error {
	d.record("leave_remote")
	d.remote = false
	return nil
}

func (d *fakeDeck) ModelName(ctx context.Context) (string, error) {
	d.record("model")
	return "MDS-E12", nil
}

func (d *fakeDeck) Status(ctx context.Context) (protocol.Status, error) {
	d.record("status")
	return protocol.Status{DiscLoaded: true, TOCRead: true, RecPossible: true}, nil
}

func (d *fakeDeck) DiscData(ctx context.Context) (protocol.DiscData, error) {
	d.record("disc_data")
	return protocol.DiscData{Kind: protocol.DiscRecordable}, nil
}

func (d *fakeDeck) DiscName(ctx context.Context) (string, error) {
	d.record("disc_name")
	return "Test Disc", nil
}

func (d *fakeDeck) TOC(ctx context.Context) (protocol.TOC, error) {
	d.record("toc")
	return protocol.TOC{FirstTrack: 1, LastTrack: d.nextTrack, TotalMin: 10}, nil
}

func (d *fakeDeck) RecRemain(ctx context.Context) (time.Duration, error) {
	d.record("rec_remain")
	return 60 * time.Minute, nil
}

func (d *fakeDeck) ArmTrack(ctx context.Context, title string) error {
	d.arms++
	d.record("arm:" + title)
	return d.armErr[d.arms]
}

func (d *fakeDeck) StartRecording(ctx context.Context) error {
	d.starts++
	d.record("start")
	return d.startErr[d.starts]
}

func (d *fakeDeck) StopRecording(ctx context.Context) (int, error) {
	d.stops++
	d.record("stop")
	if err := d.stopErr[d.stops]; err != nil {
		return 0, err
	}
	d.nextTrack++
	return d.nextTrack, nil
}

// fakePlayer finishes each track after a fixed number of polls.
type fakePlayer struct {
	pollsPerTrack int
	polls         int
	beginErr      map[int]error // keyed by begin invocation count, 1-based
	begins        int
	stops         int
	live          bool
	failPoll      error
}

func (p *fakePlayer) Begin(ctx context.Context, path string, hint time.Duration) error {
	p.begins++
	if err := p.beginErr[p.begins]; err != nil {
		return err
	}
	p.live = true
	p.polls = 0
	return nil
}

func (p *fakePlayer) Poll() playback.Progress {
	if !p.live {
		return playback.Progress{State: playback.StateIdle}
	}
	if p.failPoll != nil {
		p.live = false
		return playback.Progress{State: playback.StateFailed, Err: p.failPoll}
	}
	p.polls++
	if p.polls >= p.pollsPerTrack {
		p.live = false
		return playback.Progress{State: playback.StateFinished}
	}
	return playback.Progress{State: playback.StatePlaying}
}

func (p *fakePlayer) Stop() error {
	p.stops++
	p.live = false
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Session.LockDir = t.TempDir()
	cfg.Deck.PrerollMs = 0
	cfg.Deck.PostrollMs = 0
	cfg.Playback.PollIntervalMs = 1
	return &cfg
}

func staticMetadata(meta media.Metadata) MetadataReader {
	return func(string) media.Metadata { return meta }
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, deck Deck, player Player) *Orchestrator {
	t.Helper()
	meta := media.Metadata{Artist: "Artist", Title: "Song", Duration: 3 * time.Minute}
	return NewOrchestratorWithDependencies(cfg, deck, player, nil, staticMetadata(meta), logging.NewNop())
}

func TestRunRecordsAllTracksInOrder(t *testing.T) {
	deck := newFakeDeck()
	player := &fakePlayer{pollsPerTrack: 2}
	orc := newTestOrchestrator(t, testConfig(t), deck, player)

	report, err := orc.Run(context.Background(), []string{"/m/a.flac", "/m/b.flac", "/m/c.flac"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Succeeded() || report.Done() != 3 {
		t.Fatalf("report: done=%d failed=%d", report.Done(), report.Failed())
	}
	for i, job := range report.Jobs {
		if job.Status != StatusDone {
			t.Fatalf("job %d status = %s", i+1, job.Status)
		}
		if job.Track != i+1 {
			t.Fatalf("job %d deck track = %d, want %d", i+1, job.Track, i+1)
		}
	}
	if deck.remote {
		t.Fatal("deck left in remote mode after session")
	}
	if deck.calls[len(deck.calls)-1] != "leave_remote" {
		t.Fatalf("last deck call = %s, want leave_remote", deck.calls[len(deck.calls)-1])
	}

	// Strict ordering: no arm for track N+1 before track N stopped.
	sequence := strings.Join(deck.calls, " ")
	if strings.Count(sequence, "arm:") != 3 || deck.stops != 3 {
		t.Fatalf("deck sequence: %s", sequence)
	}
	lastStop := -1
	for i, call := range deck.calls {
		if strings.HasPrefix(call, "arm:") && i < lastStop {
			t.Fatalf("arm before previous stop in %s", sequence)
		}
		if call == "stop" {
			lastStop = i
		}
	}
}

func TestRunAbortPolicyStopsSession(t *testing.T) {
	deck := newFakeDeck()
	deck.startErr[2] = errors.New("start timeout")
	player := &fakePlayer{pollsPerTrack: 1}
	cfg := testConfig(t)
	cfg.Session.FailurePolicy = config.PolicyAbort
	orc := newTestOrchestrator(t, cfg, deck, player)

	report, err := orc.Run(context.Background(), []string{"/m/a.flac", "/m/b.flac", "/m/c.flac"})
	if err == nil {
		t.Fatal("Run should fail under abort policy")
	}
	if !report.Aborted {
		t.Fatal("report not marked aborted")
	}
	if report.Jobs[0].Status != StatusDone {
		t.Fatalf("job 1 status = %s", report.Jobs[0].Status)
	}
	if report.Jobs[1].Status != StatusFailed || report.Jobs[1].FailureStage != "start" {
		t.Fatalf("job 2 = %s at %q", report.Jobs[1].Status, report.Jobs[1].FailureStage)
	}
	if report.Jobs[2].Status != StatusPending {
		t.Fatalf("job 3 status = %s, want pending (never attempted)", report.Jobs[2].Status)
	}
	if deck.arms != 2 {
		t.Fatalf("deck armed %d times, want 2", deck.arms)
	}
}

func TestRunSkipPolicyContinues(t *testing.T) {
	deck := newFakeDeck()
	deck.startErr[2] = errors.New("start timeout")
	player := &fakePlayer{pollsPerTrack: 1}
	cfg := testConfig(t)
	cfg.Session.FailurePolicy = config.PolicySkip
	orc := newTestOrchestrator(t, cfg, deck, player)

	report, err := orc.Run(context.Background(), []string{"/m/a.flac", "/m/b.flac", "/m/c.flac"})
	if err != nil {
		t.Fatalf("Run under skip policy: %v", err)
	}
	if report.Done() != 2 || report.Failed() != 1 {
		t.Fatalf("report: done=%d failed=%d", report.Done(), report.Failed())
	}
	if report.Jobs[2].Status != StatusDone {
		t.Fatalf("job 3 status = %s, want done", report.Jobs[2].Status)
	}
}

func TestRunPlaybackFailureStopsDeck(t *testing.T) {
	deck := newFakeDeck()
	player := &fakePlayer{pollsPerTrack: 3, failPoll: errors.New("player crashed")}
	cfg := testConfig(t)
	cfg.Session.FailurePolicy = config.PolicyAbort
	orc := newTestOrchestrator(t, cfg, deck, player)

	report, err := orc.Run(context.Background(), []string{"/m/a.flac"})
	if err == nil {
		t.Fatal("Run should fail when playback crashes")
	}
	if report.Jobs[0].FailureStage != "playback" {
		t.Fatalf("failure stage = %q", report.Jobs[0].FailureStage)
	}
	if deck.stops == 0 {
		t.Fatal("deck never stopped after playback failure while recording")
	}
}

func TestRunCancelDuringRecordingStopsDeck(t *testing.T) {
	deck := newFakeDeck()
	player := &fakePlayer{pollsPerTrack: 1 << 30}
	cfg := testConfig(t)
	cfg.Playback.PollIntervalMs = 5
	orc := newTestOrchestrator(t, cfg, deck, player)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	report, err := orc.Run(ctx, []string{"/m/a.flac"})
	if err == nil {
		t.Fatal("Run should report the cancel")
	}
	if !report.Aborted {
		t.Fatal("report not marked aborted")
	}
	if report.Jobs[0].FailureStage != "cancel" {
		t.Fatalf("failure stage = %q", report.Jobs[0].FailureStage)
	}
	if deck.stops == 0 {
		t.Fatal("deck never stopped after cancel while recording")
	}
	if player.stops == 0 {
		t.Fatal("player never stopped after cancel")
	}
	if deck.remote {
		t.Fatal("deck left in remote mode after cancel")
	}
}

func TestRunPlaybackStartFailureReleasesArm(t *testing.T) {
	deck := newFakeDeck()
	player := &fakePlayer{pollsPerTrack: 1}
	player.beginErr = map[int]error{1: playback.ErrStartFailed}
	cfg := testConfig(t)
	cfg.Session.FailurePolicy = config.PolicyAbort
	orc := newTestOrchestrator(t, cfg, deck, player)

	report, err := orc.Run(context.Background(), []string{"/m/a.flac"})
	if err == nil {
		t.Fatal("Run should fail when the player cannot start")
	}
	if report.Jobs[0].FailureStage != "playback" {
		t.Fatalf("failure stage = %q", report.Jobs[0].FailureStage)
	}
	if deck.stops == 0 {
		t.Fatal("armed deck never released after playback start failure")
	}
	if deck.starts != 0 {
		t.Fatal("recording started despite playback never beginning")
	}
}

func TestRunRefusesConcurrentSessions(t *testing.T) {
	cfg := testConfig(t)
	lock, err := AcquireLock(cfg.Session.LockDir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer func() { _ = lock.Release() }()

	orc := newTestOrchestrator(t, cfg, newFakeDeck(), &fakePlayer{pollsPerTrack: 1})
	if _, err := orc.Run(context.Background(), []string{"/m/a.flac"}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("Run with held lock: err = %v, want ErrSessionActive", err)
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Recording ")
	if err != nil || status != StatusRecording {
		t.Fatalf("ParseStatus = %v, %v", status, err)
	}
	if _, err := ParseStatus("paused"); err == nil {
		t.Fatal("ParseStatus accepted an unknown status")
	}
	if !StatusDone.Terminal() || !StatusFailed.Terminal() || StatusRecording.Terminal() {
		t.Fatal("terminal predicates wrong")
	}
}

func TestFallbackTitleFromFilename(t *testing.T) {
	deck := newFakeDeck()
	player := &fakePlayer{pollsPerTrack: 1}
	cfg := testConfig(t)
	orc := NewOrchestratorWithDependencies(cfg, deck, player, nil, staticMetadata(media.Metadata{}), logging.NewNop())

	report, err := orc.Run(context.Background(), []string{"/music/blue_in_green.flac"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Jobs[0].Status != StatusDone {
		t.Fatalf("job status = %s", report.Jobs[0].Status)
	}
	want := "arm:Blue In Green"
	found := false
	for _, call := range deck.calls {
		if call == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("deck calls %v missing %q", deck.calls, want)
	}
}
