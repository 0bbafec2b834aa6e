package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/protocol"
)

// Transport is the byte-duplex channel to the deck. A serial port satisfies
// it on real hardware; tests supply a scripted fake.
type Transport interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
}

// Controller exposes intention-level deck operations on top of the frame
// protocol. See the package documentation for the exchange and state rules.
type Controller struct {
	tp     Transport
	dec    protocol.Decoder
	logger *slog.Logger

	timeout       time.Duration
	armRetries    int
	startRetries  int
	stopRetries   int
	statusRetries int

	state        State
	remote       bool
	pendingTitle string
	pendingTrack int
}

// NewController wraps a transport with the deck command protocol. The
// timeout and retry budgets come from the deck configuration section.
func NewController(tp Transport, cfg config.Deck, logger *slog.Logger) *Controller {
	return &Controller{
		tp:            tp,
		logger:        logging.NewComponentLogger(logger, "deck"),
		timeout:       cfg.CommandTimeout(),
		armRetries:    cfg.ArmRetries,
		startRetries:  cfg.StartRetries,
		stopRetries:   cfg.StopRetries,
		statusRetries: cfg.StatusRetries,
	}
}

// State returns the controller's current recording state.
func (c *Controller) State() State { return c.state }

// Remote reports whether the deck has been put in remote mode.
func (c *Controller) Remote() bool { return c.remote }

// Close closes the underlying transport. It does not leave remote mode; use
// LeaveRemote first so the front panel unlocks.
func (c *Controller) Close() error {
	return c.tp.Close()
}

// responseClass is a matcher's verdict on one received frame.
type responseClass int

const (
	// respMatch ends the exchange with the frame as its result.
	respMatch responseClass = iota
	// respReject ends the exchange with ErrRejected.
	respReject
	// respIgnore skips the frame and keeps reading. The deck pushes
	// unsolicited status frames that may interleave with an answer.
	respIgnore
)

type matcher func(protocol.Frame) responseClass

// echo matches the deck's acknowledgement style for transport commands: the
// command code is echoed back with an empty payload.
func echo(code protocol.Command) matcher {
	return func(f protocol.Frame) responseClass {
		switch f.Code {
		case code:
			return respMatch
		case protocol.CmdStatusReq:
			return respIgnore
		default:
			return respReject
		}
	}
}

// exchange writes one request frame and reads until the matcher accepts a
// response, the matcher rejects one, or the command timeout passes. With
// allowSilent set, a timeout with no bytes received at all counts as
// success with a zero frame; the deck stays silent on a stop command when
// the transport is already stopped.
func (c *Controller) exchange(ctx context.Context, op string, code protocol.Command, payload []byte, allowSilent bool, match matcher) (protocol.Frame, error) {
	if len(payload) > protocol.MaxPayload {
		return protocol.Frame{}, Wrap(ErrRejected, op, fmt.Sprintf("payload %d bytes exceeds frame capacity", len(payload)), nil)
	}
	request := protocol.Encode(code, payload)
	if _, err := c.tp.Write(request); err != nil {
		return protocol.Frame{}, Wrap(ErrTimeout, op, "write request", err)
	}

	deadline := time.Now().Add(c.timeout)
	received := false
	buf := make([]byte, 64)

	for {
		// Drain frames already buffered before touching the transport.
		for c.dec.Buffered() > 0 {
			frame, err := c.dec.Next()
			if errors.Is(err, protocol.ErrIncomplete) {
				break
			}
			if err != nil {
				// Framing break: keep the MalformedError visible so the
				// retry layer resynchronizes the link.
				return protocol.Frame{}, fmt.Errorf("deck: %s: decode response: %w", op, err)
			}
			received = true
			switch match(frame) {
			case respMatch:
				return frame, nil
			case respReject:
				return protocol.Frame{}, Wrap(ErrRejected, op, fmt.Sprintf("response code %s", frame.Code), nil)
			default:
				c.logger.Debug("discarding unsolicited frame", logging.String("op", op), logging.String("code", frame.Code.String()))
			}
		}

		if err := ctx.Err(); err != nil {
			return protocol.Frame{}, Wrap(ErrTimeout, op, "cancelled", err)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if allowSilent && !received {
				return protocol.Frame{}, nil
			}
			return protocol.Frame{}, Wrap(ErrTimeout, op, fmt.Sprintf("no response after %s", c.timeout), nil)
		}

		if err := c.tp.SetReadTimeout(min(remaining, 250*time.Millisecond)); err != nil {
			return protocol.Frame{}, Wrap(ErrTimeout, op, "set read timeout", err)
		}
		n, err := c.tp.Read(buf)
		if err != nil {
			return protocol.Frame{}, Wrap(ErrTimeout, op, "read response", err)
		}
		if n > 0 {
			received = true
			c.dec.Feed(buf[:n])
		}
	}
}

// withRetries runs an exchange up to budget+1 times, resynchronizing the
// link before each retry. Only timeouts and framing breaks are retried.
func (c *Controller) withRetries(ctx context.Context, op string, budget int, fn func() (protocol.Frame, error)) (protocol.Frame, error) {
	var lastErr error
	for attempt := 0; attempt <= budget; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying deck command",
				logging.String("op", op),
				logging.Int("attempt", attempt+1),
				logging.Error(lastErr),
			)
			c.resync()
		}
		frame, err := fn()
		if err == nil {
			return frame, nil
		}
		if !retryable(err) {
			return protocol.Frame{}, err
		}
		lastErr = err
		if ctx.Err() != nil {
			return protocol.Frame{}, lastErr
		}
	}
	return protocol.Frame{}, lastErr
}

// resync drops the decoder buffer and drains stale bytes from the
// transport, so a retried exchange does not pair its request with a late or
// garbled answer to the previous one.
func (c *Controller) resync() {
	c.dec.Reset()
	if err := c.tp.SetReadTimeout(50 * time.Millisecond); err != nil {
		return
	}
	buf := make([]byte, 64)
	for {
		n, err := c.tp.Read(buf)
		if err != nil || n == 0 {
			return
		}
	}
}

// fail records an operation failure and, when it happened while the deck
// was recording, moves the controller to StateError: the deck's real state
// is unknown and must be re-established explicitly.
func (c *Controller) fail(err error) error {
	if c.state == StateRecording && !retryableOnlyTimeout(err) {
		c.state = StateError
		c.logger.Error("deck state unknown after failure while recording", logging.Error(err))
	}
	return err
}

// retryableOnlyTimeout distinguishes pure timeouts (deck may simply be
// slow) from rejections and framing breaks, which signal the deck did
// something unexpected.
func retryableOnlyTimeout(err error) bool {
	var malformed *protocol.MalformedError
	if errors.As(err, &malformed) {
		return false
	}
	return errors.Is(err, ErrTimeout)
}
