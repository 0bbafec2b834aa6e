package protocol

import (
	"errors"
	"fmt"
)

const (
	// HeaderOut opens every frame sent to the deck.
	HeaderOut = 0x7E
	// HeaderIn opens every frame the deck sends back.
	HeaderIn = 0x6F

	formatType = 0x05
	category   = 0x47
	terminator = 0xFF

	// frameOverhead counts header, length, format, category, the two command
	// bytes, and the terminator.
	frameOverhead = 7

	// MaxFrame is the packet ceiling documented for the deck.
	MaxFrame = 32

	// MaxPayload is the largest payload that fits a single frame.
	MaxPayload = MaxFrame - frameOverhead
)

// Command is the two-byte command code carried by every frame.
type Command [2]byte

// String renders the code the way the service manual lists it.
func (c Command) String() string {
	return fmt.Sprintf("%02X %02X", c[0], c[1])
}

// Frame is one decoded packet: the command code and its payload bytes.
// Payload excludes the terminator and is empty (not nil-checked) for
// commands that carry no data.
type Frame struct {
	Code    Command
	Payload []byte
}

// ErrIncomplete reports that the decoder holds only part of a frame and the
// caller should read more bytes before retrying.
var ErrIncomplete = errors.New("protocol: incomplete frame")

// MalformedError reports bytes that cannot belong to a well-formed frame.
// The decoder has already discarded them and resynchronized on the next
// plausible header, so the caller may keep decoding, but the link should be
// treated as suspect.
type MalformedError struct {
	Reason    string
	Discarded int
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("protocol: malformed frame: %s (%d bytes discarded)", e.Reason, e.Discarded)
}

// Encode builds the wire bytes for one request frame. It is deterministic and
// never fails: callers validate payload length against MaxPayload before
// encoding, because the hardware silently rejects oversize packets.
func Encode(code Command, payload []byte) []byte {
	return encode(HeaderOut, code, payload)
}

// EncodeResponse builds the wire bytes for a deck response frame. The deck
// itself produces these; the encoder exists so tests and fakes can script
// exchanges with real wire bytes.
func EncodeResponse(code Command, payload []byte) []byte {
	return encode(HeaderIn, code, payload)
}

func encode(header byte, code Command, payload []byte) []byte {
	frame := make([]byte, 0, frameOverhead+len(payload))
	frame = append(frame, header, byte(frameOverhead+len(payload)), formatType, category, code[0], code[1])
	frame = append(frame, payload...)
	return append(frame, terminator)
}

// Decoder reassembles deck response frames from raw serial reads. Reads may
// split a frame at any byte boundary; Feed buffers them and Next yields
// complete frames one at a time.
type Decoder struct {
	buf []byte
}

// Feed appends raw bytes from the transport to the reassembly buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes awaiting decode.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset drops all buffered bytes. The controller calls it when abandoning a
// desynchronized link before retrying an exchange.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Next returns the next complete frame. It reports ErrIncomplete while the
// buffer holds a prefix of a valid frame, and a *MalformedError after
// discarding bytes that cannot open one. A malformed result consumes the bad
// bytes, so a subsequent call can still recover later frames.
func (d *Decoder) Next() (Frame, error) {
	if len(d.buf) == 0 {
		return Frame{}, ErrIncomplete
	}
	if d.buf[0] != HeaderIn {
		return Frame{}, d.resync(0, fmt.Sprintf("unexpected header 0x%02X", d.buf[0]))
	}
	if len(d.buf) < 2 {
		return Frame{}, ErrIncomplete
	}
	length := int(d.buf[1])
	if length < frameOverhead || length > MaxFrame {
		return Frame{}, d.resync(1, fmt.Sprintf("length %d outside frame bounds", length))
	}
	if len(d.buf) < length {
		return Frame{}, ErrIncomplete
	}
	if d.buf[2] != formatType || d.buf[3] != category {
		return Frame{}, d.resync(1, fmt.Sprintf("format/category bytes 0x%02X 0x%02X", d.buf[2], d.buf[3]))
	}
	if d.buf[length-1] != terminator {
		return Frame{}, d.resync(1, "missing terminator")
	}

	frame := Frame{
		Code:    Command{d.buf[4], d.buf[5]},
		Payload: append([]byte(nil), d.buf[6:length-1]...),
	}
	d.consume(length)
	return frame, nil
}

// resync discards bytes up to the next candidate header. The scan starts at
// offset from so a bad frame's own header byte cannot satisfy it.
func (d *Decoder) resync(from int, reason string) error {
	next := len(d.buf)
	for i := from; i < len(d.buf); i++ {
		if d.buf[i] == HeaderIn {
			next = i
			break
		}
	}
	d.consume(next)
	return &MalformedError{Reason: reason, Discarded: next}
}

func (d *Decoder) consume(n int) {
	if n >= len(d.buf) {
		d.buf = d.buf[:0]
		return
	}
	d.buf = append(d.buf[:0], d.buf[n:]...)
}
