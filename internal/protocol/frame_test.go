package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeStatusRequest(t *testing.T) {
	got := Encode(CmdStatusReq, nil)
	want := []byte{0x7E, 0x07, 0x05, 0x47, 0x20, 0x20, 0xFF}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected % X, got % X", want, got)
	}
}

func TestEncodeCarriesPayload(t *testing.T) {
	got := Encode(CmdTrackNameReq, []byte{0x03})
	want := []byte{0x7E, 0x08, 0x05, 0x47, 0x20, 0x4A, 0x03, 0xFF}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected % X, got % X", want, got)
	}
}

func TestEncodeResponseUsesDeckHeader(t *testing.T) {
	got := EncodeResponse(CmdStop, nil)
	want := []byte{0x6F, 0x07, 0x05, 0x47, 0x02, 0x02, 0xFF}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected % X, got % X", want, got)
	}
}

func TestDecoderRoundTrip(t *testing.T) {
	for size := 0; size <= MaxPayload; size++ {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i + 1)
		}
		var d Decoder
		d.Feed(EncodeResponse(CmdStatusReq, payload))
		frame, err := d.Next()
		if err != nil {
			t.Fatalf("payload size %d: unexpected error: %v", size, err)
		}
		if frame.Code != CmdStatusReq {
			t.Fatalf("payload size %d: expected code %s, got %s", size, CmdStatusReq, frame.Code)
		}
		if !bytes.Equal(frame.Payload, payload) {
			t.Fatalf("payload size %d: expected payload % X, got % X", size, payload, frame.Payload)
		}
		if d.Buffered() != 0 {
			t.Fatalf("payload size %d: expected empty buffer, got %d bytes", size, d.Buffered())
		}
	}
}

func TestDecoderTruncatedFrameStaysIncomplete(t *testing.T) {
	full := EncodeResponse(RespTOCData, []byte{0x01, 0x01, 0x05, 0x2B, 0x11, 0x00})
	for cut := 0; cut < len(full); cut++ {
		var d Decoder
		d.Feed(full[:cut])
		if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
			t.Fatalf("prefix of %d bytes: expected ErrIncomplete, got %v", cut, err)
		}
		if d.Buffered() != cut {
			t.Fatalf("prefix of %d bytes: decoder discarded buffered prefix", cut)
		}
	}
}

func TestDecoderReassemblesSplitFeeds(t *testing.T) {
	full := EncodeResponse(CmdStatusReq, []byte{0x05, 0xA0, 0x03, 0x01})
	var d Decoder
	for _, b := range full[:len(full)-1] {
		d.Feed([]byte{b})
		if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
			t.Fatalf("expected ErrIncomplete mid frame, got %v", err)
		}
	}
	d.Feed(full[len(full)-1:])
	frame, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Code != CmdStatusReq {
		t.Fatalf("expected code %s, got %s", CmdStatusReq, frame.Code)
	}
}

func TestDecoderDecodesConsecutiveFrames(t *testing.T) {
	var stream []byte
	stream = append(stream, EncodeResponse(CmdRecPause, nil)...)
	stream = append(stream, EncodeResponse(CmdStatusReq, []byte{0x05, 0xA0, 0x03, 0x01})...)

	var d Decoder
	d.Feed(stream)
	first, err := d.Next()
	if err != nil {
		t.Fatalf("first frame: unexpected error: %v", err)
	}
	if first.Code != CmdRecPause {
		t.Fatalf("expected code %s, got %s", CmdRecPause, first.Code)
	}
	second, err := d.Next()
	if err != nil {
		t.Fatalf("second frame: unexpected error: %v", err)
	}
	if second.Code != CmdStatusReq {
		t.Fatalf("expected code %s, got %s", CmdStatusReq, second.Code)
	}
	if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete on drained buffer, got %v", err)
	}
}

func TestDecoderRecoversAfterGarbage(t *testing.T) {
	garbage := []byte{0x00, 0x12, 0x34}
	var stream []byte
	stream = append(stream, garbage...)
	stream = append(stream, EncodeResponse(CmdPlay, nil)...)

	var d Decoder
	d.Feed(stream)

	_, err := d.Next()
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
	if malformed.Discarded != len(garbage) {
		t.Fatalf("expected %d discarded bytes, got %d", len(garbage), malformed.Discarded)
	}

	frame, err := d.Next()
	if err != nil {
		t.Fatalf("expected recovery after resync, got %v", err)
	}
	if frame.Code != CmdPlay {
		t.Fatalf("expected code %s, got %s", CmdPlay, frame.Code)
	}
}

func TestDecoderRejectsImplausibleLength(t *testing.T) {
	var d Decoder
	d.Feed([]byte{HeaderIn, 0x03, 0x05, 0x47, 0x02, 0x01, 0xFF})
	_, err := d.Next()
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError for undersize length, got %v", err)
	}

	d.Reset()
	d.Feed([]byte{HeaderIn, 0xFE, 0x05, 0x47, 0x02, 0x01, 0xFF})
	if _, err := d.Next(); !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError for oversize length, got %v", err)
	}
}

func TestDecoderRejectsWrongFormatBytes(t *testing.T) {
	var d Decoder
	d.Feed([]byte{HeaderIn, 0x07, 0x06, 0x47, 0x02, 0x01, 0xFF})
	var malformed *MalformedError
	if _, err := d.Next(); !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError for format byte, got %v", err)
	}
}

func TestDecoderRejectsMissingTerminator(t *testing.T) {
	bad := EncodeResponse(CmdEject, nil)
	bad[len(bad)-1] = 0x00
	var stream []byte
	stream = append(stream, bad...)
	stream = append(stream, EncodeResponse(CmdEject, nil)...)

	var d Decoder
	d.Feed(stream)
	var malformed *MalformedError
	if _, err := d.Next(); !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError for missing terminator, got %v", err)
	}
	frame, err := d.Next()
	if err != nil {
		t.Fatalf("expected recovery after bad terminator, got %v", err)
	}
	if frame.Code != CmdEject {
		t.Fatalf("expected code %s, got %s", CmdEject, frame.Code)
	}
}

func TestDecoderReset(t *testing.T) {
	var d Decoder
	d.Feed([]byte{HeaderIn, 0x0A})
	d.Reset()
	if d.Buffered() != 0 {
		t.Fatalf("expected empty buffer after reset, got %d bytes", d.Buffered())
	}
	d.Feed(EncodeResponse(CmdStop, nil))
	if _, err := d.Next(); err != nil {
		t.Fatalf("expected clean decode after reset, got %v", err)
	}
}

func TestCommandString(t *testing.T) {
	if got := CmdTrackNameReq.String(); got != "20 4A" {
		t.Fatalf("expected %q, got %q", "20 4A", got)
	}
}
