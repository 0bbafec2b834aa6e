package protocol

import (
	"fmt"
	"time"
)

// OperationMode is the transport mode reported in the status word.
type OperationMode uint8

const (
	ModeStop      OperationMode = 0x00
	ModePlay      OperationMode = 0x01
	ModePause     OperationMode = 0x02
	ModeEject     OperationMode = 0x03
	ModeRecPlay   OperationMode = 0x04
	ModeRecPause  OperationMode = 0x05
	ModeRehearsal OperationMode = 0x06
	// ModeUnavailable is reported while the deck cannot play, for example
	// during TOC reads right after a disc is inserted.
	ModeUnavailable OperationMode = 0x0F
)

func (m OperationMode) String() string {
	switch m {
	case ModeStop:
		return "stop"
	case ModePlay:
		return "play"
	case ModePause:
		return "pause"
	case ModeEject:
		return "eject"
	case ModeRecPlay:
		return "rec play"
	case ModeRecPause:
		return "rec pause"
	case ModeRehearsal:
		return "rehearsal"
	case ModeUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("mode(%#02x)", uint8(m))
	}
}

// Recording reports whether the mode has the record head engaged.
func (m OperationMode) Recording() bool {
	return m == ModeRecPlay || m == ModeRecPause
}

// InputSource is the record input selected on the deck.
type InputSource uint8

const (
	InputAnalog  InputSource = 0x01
	InputOptical InputSource = 0x03
	InputCoaxial InputSource = 0x05
)

func (s InputSource) String() string {
	switch s {
	case InputAnalog:
		return "analog"
	case InputOptical:
		return "optical"
	case InputCoaxial:
		return "coaxial"
	default:
		return fmt.Sprintf("input(%#02x)", uint8(s))
	}
}

// Status is the decoded transport status word.
type Status struct {
	DiscLoaded    bool
	Mode          OperationMode
	TOCRead       bool
	RecPossible   bool
	Mono          bool
	CopyInhibited bool
	DINUnlocked   bool
	Input         InputSource
}

// ParseStatus decodes a status response frame.
func ParseStatus(f Frame) (Status, error) {
	if err := expectCode(f, CmdStatusReq); err != nil {
		return Status{}, err
	}
	if len(f.Payload) < 4 {
		return Status{}, fmt.Errorf("protocol: status payload too short (%d bytes)", len(f.Payload))
	}
	if f.Payload[3] != 0x01 {
		return Status{}, fmt.Errorf("protocol: status payload marker %#02x", f.Payload[3])
	}
	d1, d2, d3 := f.Payload[0], f.Payload[1], f.Payload[2]
	return Status{
		DiscLoaded:    d1&0x20 == 0,
		Mode:          OperationMode(d1 & 0x0F),
		TOCRead:       d2&0x80 != 0,
		RecPossible:   d2&0x20 != 0,
		Mono:          d3&0x80 != 0,
		CopyInhibited: d3&0x40 != 0,
		DINUnlocked:   d3&0x20 != 0,
		Input:         InputSource(d3 & 0x07),
	}, nil
}

// TOC is the table of contents summary for the loaded disc.
type TOC struct {
	FirstTrack int
	LastTrack  int
	TotalMin   int
	TotalSec   int
}

// Tracks returns the number of tracks on the disc.
func (t TOC) Tracks() int {
	if t.LastTrack < t.FirstTrack {
		return 0
	}
	return t.LastTrack - t.FirstTrack + 1
}

// Total returns the recorded time on the disc.
func (t TOC) Total() time.Duration {
	return time.Duration(t.TotalMin)*time.Minute + time.Duration(t.TotalSec)*time.Second
}

// ParseTOC decodes a table of contents response frame.
func ParseTOC(f Frame) (TOC, error) {
	if err := expectCode(f, RespTOCData); err != nil {
		return TOC{}, err
	}
	if len(f.Payload) < 6 {
		return TOC{}, fmt.Errorf("protocol: toc payload too short (%d bytes)", len(f.Payload))
	}
	if f.Payload[0] != 0x01 || f.Payload[5] != 0x00 {
		return TOC{}, fmt.Errorf("protocol: toc payload markers %#02x %#02x", f.Payload[0], f.Payload[5])
	}
	return TOC{
		FirstTrack: int(f.Payload[1]),
		LastTrack:  int(f.Payload[2]),
		TotalMin:   int(f.Payload[3]),
		TotalSec:   int(f.Payload[4]),
	}, nil
}

// DiscKind classifies the loaded disc.
type DiscKind uint8

const (
	DiscReserved   DiscKind = 0x00
	DiscRecordable DiscKind = 0x01
	DiscPremaster  DiscKind = 0x02
)

func (k DiscKind) String() string {
	switch k {
	case DiscRecordable:
		return "recordable"
	case DiscPremaster:
		return "premastered"
	default:
		return "reserved"
	}
}

// DiscData is the decoded disc flags record.
type DiscData struct {
	Kind      DiscKind
	Protected bool
	Faulty    bool
}

// ParseDiscData decodes a disc data response frame.
func ParseDiscData(f Frame) (DiscData, error) {
	if err := expectCode(f, CmdDiscDataReq); err != nil {
		return DiscData{}, err
	}
	if len(f.Payload) < 5 {
		return DiscData{}, fmt.Errorf("protocol: disc data payload too short (%d bytes)", len(f.Payload))
	}
	if f.Payload[0] != 0x00 {
		return DiscData{}, fmt.Errorf("protocol: disc data payload marker %#02x", f.Payload[0])
	}
	flags := f.Payload[1]
	return DiscData{
		Kind:      DiscKind(flags & 0x03),
		Protected: flags&0x04 != 0,
		Faulty:    flags&0x08 != 0,
	}, nil
}

// ParseRecRemain decodes a remaining recordable time response frame.
func ParseRecRemain(f Frame) (time.Duration, error) {
	if err := expectCode(f, CmdRecRemainReq); err != nil {
		return 0, err
	}
	if len(f.Payload) < 3 {
		return 0, fmt.Errorf("protocol: rec remain payload too short (%d bytes)", len(f.Payload))
	}
	if f.Payload[0] != 0x01 {
		return 0, fmt.Errorf("protocol: rec remain payload marker %#02x", f.Payload[0])
	}
	min := time.Duration(f.Payload[1]) * time.Minute
	sec := time.Duration(f.Payload[2]) * time.Second
	return min + sec, nil
}

func expectCode(f Frame, want Command) error {
	if f.Code != want {
		return fmt.Errorf("protocol: response code %s, expected %s", f.Code, want)
	}
	return nil
}
