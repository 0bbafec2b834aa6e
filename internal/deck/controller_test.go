package deck

import (
	"context"
	"errors"
	"testing"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/protocol"
)

// fakeTransport pairs each written request with scripted response bytes.
// Reads hand out the queued bytes; with nothing queued they behave like a
// serial read timeout and return zero bytes after the read deadline.
type fakeTransport struct {
	t       *testing.T
	script  []exchangeStep
	pending []byte
	wrote   []protocol.Frame
	readTO  time.Duration
	closed  bool
}

type exchangeStep struct {
	want  protocol.Command
	reply [][]byte
}

func (ft *fakeTransport) Write(p []byte) (int, error) {
	if len(p) < 7 || p[0] != protocol.HeaderOut || int(p[1]) != len(p) || p[len(p)-1] != 0xFF {
		ft.t.Fatalf("transport received malformed request % X", p)
	}
	frame := protocol.Frame{
		Code:    protocol.Command{p[4], p[5]},
		Payload: append([]byte(nil), p[6:len(p)-1]...),
	}
	ft.wrote = append(ft.wrote, frame)
	if len(ft.script) == 0 {
		ft.t.Fatalf("unexpected request %s", frame.Code)
	}
	step := ft.script[0]
	ft.script = ft.script[1:]
	if frame.Code != step.want {
		ft.t.Fatalf("request code = %s, want %s", frame.Code, step.want)
	}
	for _, chunk := range step.reply {
		ft.pending = append(ft.pending, chunk...)
	}
	return len(p), nil
}

func (ft *fakeTransport) Read(p []byte) (int, error) {
	if len(ft.pending) == 0 {
		time.Sleep(ft.readTO)
		return 0, nil
	}
	n := copy(p, ft.pending)
	ft.pending = ft.pending[n:]
	return n, nil
}

func (ft *fakeTransport) Close() error {
	ft.closed = true
	return nil
}

func (ft *fakeTransport) SetReadTimeout(d time.Duration) error {
	ft.readTO = d
	return nil
}

func (ft *fakeTransport) assertDrained() {
	ft.t.Helper()
	if len(ft.script) != 0 {
		ft.t.Fatalf("%d scripted exchanges never happened", len(ft.script))
	}
}

func response(code protocol.Command, payload ...byte) []byte {
	return protocol.EncodeResponse(code, payload)
}

func tocReply(first, last, totalMin, totalSec int) []byte {
	return response(protocol.RespTOCData, 0x01, byte(first), byte(last), byte(totalMin), byte(totalSec), 0x00)
}

func newTestController(t *testing.T, script []exchangeStep) (*Controller, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{t: t, script: script}
	cfg := config.Deck{
		CommandTimeoutSeconds: 1,
		ArmRetries:            2,
		StartRetries:          1,
		StopRetries:           2,
		StatusRetries:         2,
	}
	ctrl := NewController(ft, cfg, logging.NewNop())
	ctrl.timeout = 200 * time.Millisecond
	return ctrl, ft
}

func TestEnterLeaveRemote(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdRemoteOn, reply: [][]byte{response(protocol.CmdRemoteOn)}},
		{want: protocol.CmdRemoteOff, reply: [][]byte{response(protocol.CmdRemoteOff)}},
	})
	if err := ctrl.EnterRemote(context.Background()); err != nil {
		t.Fatalf("EnterRemote: %v", err)
	}
	if !ctrl.Remote() {
		t.Fatal("Remote() = false after EnterRemote")
	}
	if err := ctrl.LeaveRemote(context.Background()); err != nil {
		t.Fatalf("LeaveRemote: %v", err)
	}
	if ctrl.Remote() {
		t.Fatal("Remote() = true after LeaveRemote")
	}
	ft.assertDrained()
}

func TestStatusSkipsUnsolicitedFrames(t *testing.T) {
	// A pushed TOC frame arrives ahead of the status answer and must be
	// discarded without failing the exchange.
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdStatusReq, reply: [][]byte{
			tocReply(1, 3, 12, 30),
			response(protocol.CmdStatusReq, 0x84, 0xA0, 0x03, 0x01),
		}},
	})
	status, err := ctrl.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.DiscLoaded || status.Mode != protocol.ModeRecPlay || !status.TOCRead {
		t.Fatalf("Status = %+v", status)
	}
	ft.assertDrained()
}

func TestExchangeRetriesAfterTimeout(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdRemoteOn, reply: nil},
		{want: protocol.CmdRemoteOn, reply: [][]byte{response(protocol.CmdRemoteOn)}},
	})
	if err := ctrl.EnterRemote(context.Background()); err != nil {
		t.Fatalf("EnterRemote after one timeout: %v", err)
	}
	ft.assertDrained()
}

func TestExchangeResyncsAfterGarbage(t *testing.T) {
	// Garbage before the first answer desynchronizes the framing; the retry
	// must drop the decoder state and succeed on a clean second exchange.
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdStatusReq, reply: [][]byte{{0x7E, 0xFF, 0x13}}},
		{want: protocol.CmdStatusReq, reply: [][]byte{
			response(protocol.CmdStatusReq, 0x80, 0x80, 0x03, 0x01),
		}},
	})
	status, err := ctrl.Status(context.Background())
	if err != nil {
		t.Fatalf("Status after garbage: %v", err)
	}
	if status.Mode != protocol.ModeStop {
		t.Fatalf("Mode = %s, want stop", status.Mode)
	}
	ft.assertDrained()
}

func TestRejectionIsNotRetried(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdEject, reply: [][]byte{response(protocol.CmdPlay)}},
	})
	err := ctrl.Eject(context.Background())
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Eject with wrong ack: err = %v, want ErrRejected", err)
	}
	ft.assertDrained()
}

func TestArmStartStopNamesTrack(t *testing.T) {
	title := "Blue In Green"
	var nameFrames [][]byte
	for _, f := range protocol.NameWriteFrames(4, title) {
		nameFrames = append(nameFrames, f.Payload)
	}
	if len(nameFrames) != 1 {
		t.Fatalf("expected a single name frame for %q, got %d", title, len(nameFrames))
	}

	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 3, 18, 42)}},
		{want: protocol.CmdRecPause, reply: [][]byte{response(protocol.CmdRecPause)}},
		{want: protocol.CmdPlay, reply: [][]byte{response(protocol.CmdPlay)}},
		{want: protocol.CmdStop, reply: [][]byte{response(protocol.CmdStop)}},
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 4, 24, 5)}},
		{want: protocol.CmdTrackNameWrite, reply: [][]byte{response(protocol.RespNameAck)}},
		{want: protocol.CmdStatusReq, reply: [][]byte{response(protocol.CmdStatusReq, 0x80, 0x80, 0x03, 0x01)}},
	})

	if err := ctrl.ArmTrack(context.Background(), title); err != nil {
		t.Fatalf("ArmTrack: %v", err)
	}
	if ctrl.State() != StateArmed {
		t.Fatalf("state after arm = %s", ctrl.State())
	}
	if err := ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if ctrl.State() != StateRecording {
		t.Fatalf("state after start = %s", ctrl.State())
	}
	track, err := ctrl.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if track != 4 {
		t.Fatalf("recorded track = %d, want 4", track)
	}
	if ctrl.State() != StateIdle {
		t.Fatalf("state after stop = %s", ctrl.State())
	}
	ft.assertDrained()
}

func TestLongTitleSpansNamePackets(t *testing.T) {
	title := "An Unhurried Walk Through The Old Harbour District"
	frames := protocol.NameWriteFrames(7, title)
	if len(frames) < 3 {
		t.Fatalf("expected several name frames, got %d", len(frames))
	}

	script := []exchangeStep{
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 6, 31, 17)}},
		{want: protocol.CmdRecPause, reply: [][]byte{response(protocol.CmdRecPause)}},
		{want: protocol.CmdPlay, reply: [][]byte{response(protocol.CmdPlay)}},
		{want: protocol.CmdStop, reply: [][]byte{response(protocol.CmdStop)}},
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 7, 35, 48)}},
	}
	for i := range frames {
		code := protocol.CmdTrackNameMore
		if i == 0 {
			code = protocol.CmdTrackNameWrite
		}
		script = append(script, exchangeStep{want: code, reply: [][]byte{response(protocol.RespNameAck)}})
	}
	script = append(script, exchangeStep{
		want:  protocol.CmdStatusReq,
		reply: [][]byte{response(protocol.CmdStatusReq, 0x80, 0x80, 0x03, 0x01)},
	})

	ctrl, ft := newTestController(t, script)
	if err := ctrl.ArmTrack(context.Background(), title); err != nil {
		t.Fatalf("ArmTrack: %v", err)
	}
	if err := ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	track, err := ctrl.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if track != 7 {
		t.Fatalf("recorded track = %d, want 7", track)
	}
	ft.assertDrained()
}

func TestStartRecordingRequiresArm(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	err := ctrl.StartRecording(context.Background())
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("StartRecording from idle: err = %v, want ErrBadState", err)
	}
}

func TestStartTimeoutEntersErrorState(t *testing.T) {
	// With the start budget exhausted the deck may or may not have punched
	// in; the controller must refuse further work until the error clears.
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 1, 4, 33)}},
		{want: protocol.CmdRecPause, reply: [][]byte{response(protocol.CmdRecPause)}},
		{want: protocol.CmdPlay, reply: nil},
		{want: protocol.CmdPlay, reply: nil},
	})
	if err := ctrl.ArmTrack(context.Background(), "Take Two"); err != nil {
		t.Fatalf("ArmTrack: %v", err)
	}
	err := ctrl.StartRecording(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("StartRecording timeout: err = %v, want ErrTimeout", err)
	}
	if ctrl.State() != StateError {
		t.Fatalf("state after start timeout = %s, want error", ctrl.State())
	}
	ft.assertDrained()
}

func TestClearErrorAdoptsDeckState(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdStatusReq, reply: [][]byte{
			// Mode nibble 0x04: the deck did punch into record.
			response(protocol.CmdStatusReq, 0x84, 0xA0, 0x03, 0x01),
		}},
	})
	ctrl.state = StateError
	ctrl.pendingTitle = "Take Two"
	if err := ctrl.ClearError(context.Background()); err != nil {
		t.Fatalf("ClearError: %v", err)
	}
	if ctrl.State() != StateRecording {
		t.Fatalf("state after clear = %s, want recording", ctrl.State())
	}
	ft.assertDrained()
}

func TestSilentStopSucceeds(t *testing.T) {
	// A deck that already stopped (end of disc) answers a stop with nothing
	// at all. That is success, not a timeout.
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdStop, reply: nil},
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 2, 9, 58)}},
		{want: protocol.CmdTrackNameWrite, reply: [][]byte{response(protocol.RespNameAck)}},
		{want: protocol.CmdStatusReq, reply: [][]byte{response(protocol.CmdStatusReq, 0x80, 0x80, 0x03, 0x01)}},
	})
	ctrl.state = StateRecording
	ctrl.pendingTitle = "Quiet Ending"
	track, err := ctrl.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("StopRecording silent: %v", err)
	}
	if track != 2 {
		t.Fatalf("recorded track = %d, want 2", track)
	}
	ft.assertDrained()
}

func TestStopTrustsStagedTrackWhenTOCReadFails(t *testing.T) {
	// The post-stop TOC re-read times out; the track number staged at arm
	// still lets the name write land on the right track.
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 3, 18, 42)}},
		{want: protocol.CmdRecPause, reply: [][]byte{response(protocol.CmdRecPause)}},
		{want: protocol.CmdPlay, reply: [][]byte{response(protocol.CmdPlay)}},
		{want: protocol.CmdStop, reply: [][]byte{response(protocol.CmdStop)}},
		{want: protocol.CmdTOCDataReq, reply: nil},
		{want: protocol.CmdTOCDataReq, reply: nil},
		{want: protocol.CmdTOCDataReq, reply: nil},
		{want: protocol.CmdTrackNameWrite, reply: [][]byte{response(protocol.RespNameAck)}},
		{want: protocol.CmdStatusReq, reply: [][]byte{response(protocol.CmdStatusReq, 0x80, 0x80, 0x03, 0x01)}},
	})
	if err := ctrl.ArmTrack(context.Background(), "Staged"); err != nil {
		t.Fatalf("ArmTrack: %v", err)
	}
	if err := ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	track, err := ctrl.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if track != 4 {
		t.Fatalf("recorded track = %d, want the staged 4", track)
	}
	ft.assertDrained()
}

func TestStopFromArmedSkipsNaming(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdTOCDataReq, reply: [][]byte{tocReply(1, 5, 27, 3)}},
		{want: protocol.CmdRecPause, reply: [][]byte{response(protocol.CmdRecPause)}},
		{want: protocol.CmdStop, reply: [][]byte{response(protocol.CmdStop)}},
	})
	if err := ctrl.ArmTrack(context.Background(), "Abandoned"); err != nil {
		t.Fatalf("ArmTrack: %v", err)
	}
	track, err := ctrl.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("StopRecording from armed: %v", err)
	}
	if track != 0 {
		t.Fatalf("track = %d, want 0 for an abandoned arm", track)
	}
	if ctrl.State() != StateIdle {
		t.Fatalf("state = %s, want idle", ctrl.State())
	}
	ft.assertDrained()
}

func TestDiscNameAcrossFrames(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdDiscNameReq, reply: [][]byte{
			response(protocol.CmdDiscNameReq, append([]byte{0x01}, []byte("Kind Of Blue And ")...)...),
			response(protocol.CmdDiscNameReq, append([]byte{0x02}, append([]byte("Other Colours"), 0x00)...)...),
		}},
	})
	name, err := ctrl.DiscName(context.Background())
	if err != nil {
		t.Fatalf("DiscName: %v", err)
	}
	if name != "Kind Of Blue And Other Colours" {
		t.Fatalf("DiscName = %q", name)
	}
	ft.assertDrained()
}

func TestUnnamedDisc(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdDiscNameReq, reply: [][]byte{response(protocol.RespDiscUnnamed)}},
	})
	name, err := ctrl.DiscName(context.Background())
	if err != nil {
		t.Fatalf("DiscName: %v", err)
	}
	if name != "" {
		t.Fatalf("DiscName = %q, want empty", name)
	}
	ft.assertDrained()
}

func TestModelName(t *testing.T) {
	ctrl, ft := newTestController(t, []exchangeStep{
		{want: protocol.CmdModelNameReq, reply: [][]byte{
			response(protocol.CmdModelNameReq, append([]byte("MDS-E12"), 0x00)...),
		}},
	})
	name, err := ctrl.ModelName(context.Background())
	if err != nil {
		t.Fatalf("ModelName: %v", err)
	}
	if name != "MDS-E12" {
		t.Fatalf("ModelName = %q", name)
	}
	ft.assertDrained()
}
