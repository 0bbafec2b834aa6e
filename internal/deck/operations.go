package deck

import (
	"context"
	"fmt"
	"time"

	"deckhand/internal/logging"
	"deckhand/internal/protocol"
)

// EnterRemote claims exclusive remote control of the deck. The front panel
// is locked out until LeaveRemote runs, so callers must pair the two even on
// failure paths.
func (c *Controller) EnterRemote(ctx context.Context) error {
	const op = "enter remote"
	_, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdRemoteOn, nil, false, echo(protocol.CmdRemoteOn))
	})
	if err != nil {
		return err
	}
	c.remote = true
	return nil
}

// LeaveRemote returns the deck to front-panel operation.
func (c *Controller) LeaveRemote(ctx context.Context) error {
	const op = "leave remote"
	_, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdRemoteOff, nil, false, echo(protocol.CmdRemoteOff))
	})
	if err != nil {
		return err
	}
	c.remote = false
	return nil
}

// ModelName asks the deck to identify itself.
func (c *Controller) ModelName(ctx context.Context) (string, error) {
	const op = "model name"
	frame, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdModelNameReq, nil, false, echo(protocol.CmdModelNameReq))
	})
	if err != nil {
		return "", err
	}
	name, err := protocol.ModelNameText(frame)
	if err != nil {
		return "", Wrap(ErrRejected, op, "parse response", err)
	}
	return name, nil
}

// Status queries the transport status word.
func (c *Controller) Status(ctx context.Context) (protocol.Status, error) {
	const op = "status"
	frame, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdStatusReq, nil, false, func(f protocol.Frame) responseClass {
			if f.Code == protocol.CmdStatusReq {
				return respMatch
			}
			return respIgnore
		})
	})
	if err != nil {
		return protocol.Status{}, c.fail(err)
	}
	status, err := protocol.ParseStatus(frame)
	if err != nil {
		return protocol.Status{}, c.fail(Wrap(ErrRejected, op, "parse response", err))
	}
	return status, nil
}

// DiscData queries the loaded disc's flags record.
func (c *Controller) DiscData(ctx context.Context) (protocol.DiscData, error) {
	const op = "disc data"
	frame, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdDiscDataReq, nil, false, echo(protocol.CmdDiscDataReq))
	})
	if err != nil {
		return protocol.DiscData{}, err
	}
	data, err := protocol.ParseDiscData(frame)
	if err != nil {
		return protocol.DiscData{}, Wrap(ErrRejected, op, "parse response", err)
	}
	return data, nil
}

// TOC queries the table of contents summary.
func (c *Controller) TOC(ctx context.Context) (protocol.TOC, error) {
	const op = "toc"
	frame, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdTOCDataReq, []byte{0x01}, false, func(f protocol.Frame) responseClass {
			switch f.Code {
			case protocol.RespTOCData:
				return respMatch
			case protocol.CmdStatusReq:
				return respIgnore
			default:
				return respReject
			}
		})
	})
	if err != nil {
		return protocol.TOC{}, err
	}
	toc, err := protocol.ParseTOC(frame)
	if err != nil {
		return protocol.TOC{}, Wrap(ErrRejected, op, "parse response", err)
	}
	return toc, nil
}

// RecRemain queries the remaining recordable time on the disc.
func (c *Controller) RecRemain(ctx context.Context) (time.Duration, error) {
	const op = "rec remain"
	frame, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdRecRemainReq, []byte{0x01}, false, echo(protocol.CmdRecRemainReq))
	})
	if err != nil {
		return 0, err
	}
	remain, err := protocol.ParseRecRemain(frame)
	if err != nil {
		return 0, Wrap(ErrRejected, op, "parse response", err)
	}
	return remain, nil
}

// DiscName reads the loaded disc's name. An unnamed disc returns "".
func (c *Controller) DiscName(ctx context.Context) (string, error) {
	return c.readName(ctx, "disc name", protocol.CmdDiscNameReq, []byte{0x01}, protocol.RespDiscUnnamed)
}

// TrackName reads the name of one track. An unnamed track returns "". The
// deck takes up to a few seconds to answer name reads, so the whole command
// timeout budget applies.
func (c *Controller) TrackName(ctx context.Context, track int) (string, error) {
	return c.readName(ctx, "track name", protocol.CmdTrackNameReq, []byte{byte(track)}, protocol.RespTrackUnnamed)
}

// readName collects a possibly multi-frame name response. The deck answers
// either with the negative code (no name set) or with one or more frames
// carrying name text terminated by a NUL character.
func (c *Controller) readName(ctx context.Context, op string, code protocol.Command, payload []byte, negative protocol.Command) (string, error) {
	var reader protocol.NameReader

	match := func(f protocol.Frame) responseClass {
		switch f.Code {
		case code, negative:
			return respMatch
		case protocol.CmdStatusReq:
			return respIgnore
		default:
			return respReject
		}
	}

	first, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		reader = protocol.NameReader{}
		return c.exchange(ctx, op, code, payload, false, match)
	})
	if err != nil {
		return "", err
	}
	if first.Code == negative {
		return "", nil
	}
	if reader.Add(first) {
		return reader.String(), nil
	}

	// Continuation frames arrive without another request. Collect until the
	// terminator or until the deck goes quiet.
	deadline := time.Now().Add(c.timeout)
	buf := make([]byte, 64)
	for !reader.Done() && time.Until(deadline) > 0 {
		if err := ctx.Err(); err != nil {
			return "", Wrap(ErrTimeout, op, "cancelled", err)
		}
		for c.dec.Buffered() > 0 {
			frame, err := c.dec.Next()
			if err != nil {
				break
			}
			if frame.Code == code {
				reader.Add(frame)
			}
		}
		if reader.Done() {
			break
		}
		if err := c.tp.SetReadTimeout(min(time.Until(deadline), 100*time.Millisecond)); err != nil {
			break
		}
		n, err := c.tp.Read(buf)
		if err != nil {
			break
		}
		if n == 0 {
			// Quiet link: older firmware omits the trailing NUL when the
			// name fills the final frame exactly.
			break
		}
		c.dec.Feed(buf[:n])
	}
	return reader.String(), nil
}

// Eject ejects the loaded disc.
func (c *Controller) Eject(ctx context.Context) error {
	const op = "eject"
	if c.state != StateIdle {
		return Wrap(ErrBadState, op, fmt.Sprintf("deck is %s", c.state), nil)
	}
	_, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdEject, nil, false, echo(protocol.CmdEject))
	})
	return err
}

// ArmTrack prepares the deck to record the next track under the given
// title: it reads the TOC to learn the upcoming track number, punches the
// deck into record-pause, and stages the title. The hardware cannot
// pre-name an unrecorded track, so the staged title is flushed to the TOC
// by StopRecording once the track exists.
func (c *Controller) ArmTrack(ctx context.Context, title string) error {
	const op = "arm track"
	if c.state != StateIdle {
		return Wrap(ErrBadState, op, fmt.Sprintf("deck is %s", c.state), nil)
	}
	if title == "" {
		return Wrap(ErrRejected, op, "empty track title", nil)
	}

	toc, err := c.TOC(ctx)
	if err != nil {
		return Wrap(ErrRejected, op, "read toc before arming", err)
	}

	_, err = c.withRetries(ctx, op, c.armRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdRecPause, nil, false, echo(protocol.CmdRecPause))
	})
	if err != nil {
		return err
	}

	c.pendingTitle = title
	c.pendingTrack = toc.LastTrack + 1
	c.state = StateArmed
	c.logger.Info("track armed", logging.String("title", title), logging.Int("track", c.pendingTrack))
	return nil
}

// StartRecording punches the deck from record-pause into recording. Retries
// are capped by the start budget (at most one): a duplicated start is not
// idempotent and would split the recording across two tracks.
func (c *Controller) StartRecording(ctx context.Context) error {
	const op = "start recording"
	if c.state != StateArmed {
		return Wrap(ErrBadState, op, fmt.Sprintf("deck is %s", c.state), nil)
	}

	_, err := c.withRetries(ctx, op, c.startRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdPlay, nil, false, echo(protocol.CmdPlay))
	})
	if err != nil {
		if retryableOnlyTimeout(err) {
			// The deck may have started without us seeing the ack. Its
			// state is unknown until cleared.
			c.state = StateError
		}
		return err
	}

	c.state = StateRecording
	c.logger.Info("recording started")
	return nil
}

// StopRecording halts the transport and writes the staged title to the
// newly finished track. It returns the recorded track's number. A stop with
// no response at all is a success: the deck stays silent when it is already
// stopped.
func (c *Controller) StopRecording(ctx context.Context) (int, error) {
	const op = "stop recording"
	if c.state != StateRecording && c.state != StateArmed {
		return 0, Wrap(ErrBadState, op, fmt.Sprintf("deck is %s", c.state), nil)
	}

	_, err := c.withRetries(ctx, op, c.stopRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdStop, nil, true, echo(protocol.CmdStop))
	})
	if err != nil {
		return 0, c.fail(err)
	}

	// The deck is stopped now regardless of how naming goes.
	wasRecording := c.state == StateRecording
	title := c.pendingTitle
	staged := c.pendingTrack
	c.state = StateIdle
	c.pendingTitle = ""
	c.pendingTrack = 0

	if !wasRecording || title == "" {
		return 0, nil
	}

	track := staged
	if toc, err := c.TOC(ctx); err == nil {
		track = toc.LastTrack
	} else if track == 0 {
		return 0, Wrap(ErrRejected, op, "read toc for track number", err)
	} else {
		c.logger.Warn("toc re-read failed, trusting the track number staged at arm",
			logging.Int("track", track), logging.Error(err))
	}

	if err := c.writeTrackName(ctx, track, title); err != nil {
		return track, err
	}

	// The ack is all the proof the protocol offers that the stop and the
	// name write landed; a status re-query confirms the transport mode.
	if status, err := c.Status(ctx); err == nil {
		c.logger.Debug("post-stop status",
			logging.String("mode", status.Mode.String()),
			logging.Bool("toc_read", status.TOCRead),
		)
	}

	c.logger.Info("recording stopped", logging.Int("track", track), logging.String("title", title))
	return track, nil
}

// writeTrackName stores a name in the TOC for the given track. The name
// spans one or more frames; the deck acknowledges each with the name ack
// code. Name writes are not retried: a lost ack leaves the deck's packet
// cursor unknown, and re-arming the whole write is the caller's recovery.
func (c *Controller) writeTrackName(ctx context.Context, track int, name string) error {
	const op = "write track name"
	for i, frame := range protocol.NameWriteFrames(track, name) {
		_, err := c.exchange(ctx, op, frame.Code, frame.Payload, false, func(f protocol.Frame) responseClass {
			switch f.Code {
			case protocol.RespNameAck:
				return respMatch
			case protocol.CmdStatusReq:
				return respIgnore
			default:
				return respReject
			}
		})
		if err != nil {
			return Wrap(nil, op, fmt.Sprintf("packet %d unacknowledged", i+1), err)
		}
	}
	return nil
}

// ClearError re-queries the deck and accepts its answer as the new state.
// It is the only way out of StateError; the controller never auto-recovers.
func (c *Controller) ClearError(ctx context.Context) error {
	const op = "clear error"
	if c.state != StateError {
		return nil
	}
	c.resync()
	status, err := c.statusIgnoringState(ctx)
	if err != nil {
		return err
	}
	switch status.Mode {
	case protocol.ModeRecPause:
		c.state = StateArmed
	case protocol.ModeRecPlay:
		c.state = StateRecording
	default:
		c.state = StateIdle
		c.pendingTitle = ""
		c.pendingTrack = 0
	}
	c.logger.Info("deck error cleared", logging.String("state", c.state.String()))
	return nil
}

// statusIgnoringState runs a status query without the fail() escalation, so
// ClearError can probe a deck already in StateError.
func (c *Controller) statusIgnoringState(ctx context.Context) (protocol.Status, error) {
	const op = "status"
	frame, err := c.withRetries(ctx, op, c.statusRetries, func() (protocol.Frame, error) {
		return c.exchange(ctx, op, protocol.CmdStatusReq, nil, false, func(f protocol.Frame) responseClass {
			if f.Code == protocol.CmdStatusReq {
				return respMatch
			}
			return respIgnore
		})
	})
	if err != nil {
		return protocol.Status{}, err
	}
	status, err := protocol.ParseStatus(frame)
	if err != nil {
		return protocol.Status{}, Wrap(ErrRejected, op, "parse response", err)
	}
	return status, nil
}
