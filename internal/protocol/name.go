package protocol

import "strings"

// nameChunk is the number of name characters carried per write frame.
const nameChunk = 16

// ModelNameText extracts the model name from a model name response frame.
func ModelNameText(f Frame) (string, error) {
	if err := expectCode(f, CmdModelNameReq); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range f.Payload {
		if c == 0x00 {
			break
		}
		b.WriteRune(rune(c))
	}
	return b.String(), nil
}

// NameReader accumulates disc or track name text across response frames.
// Each frame's payload leads with a segment ordinal followed by name
// characters. A NUL character marks the end of the name.
type NameReader struct {
	text strings.Builder
	done bool
}

// Add consumes one name response frame. It reports whether the terminating
// NUL has been seen, after which further frames are ignored.
func (r *NameReader) Add(f Frame) bool {
	if r.done {
		return true
	}
	if len(f.Payload) < 1 {
		return false
	}
	for _, c := range f.Payload[1:] {
		if c == 0x00 {
			r.done = true
			break
		}
		r.text.WriteRune(rune(c))
	}
	return r.done
}

// Done reports whether the name terminator has been seen.
func (r *NameReader) Done() bool { return r.done }

func (r *NameReader) String() string { return r.text.String() }

// NameWriteFrames splits a track name into the frame sequence that stores
// it in the TOC. The name is NUL terminated on the wire and carried in
// chunks of sixteen characters. The first frame's payload leads with the
// track number, continuation frames lead with a packet ordinal counting
// from two. The deck acknowledges every frame with RespNameAck.
func NameWriteFrames(track int, name string) []Frame {
	data := append([]byte(name), 0x00)
	var frames []Frame
	for i := 0; len(data) > 0; i++ {
		n := min(nameChunk, len(data))
		chunk := data[:n]
		data = data[n:]

		code := CmdTrackNameMore
		lead := byte(i + 1)
		if i == 0 {
			code = CmdTrackNameWrite
			lead = byte(track)
		}
		payload := make([]byte, 0, n+1)
		payload = append(payload, lead)
		payload = append(payload, chunk...)
		frames = append(frames, Frame{Code: code, Payload: payload})
	}
	return frames
}
