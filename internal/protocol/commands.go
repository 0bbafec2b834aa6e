package protocol

// Transport control commands. The deck acknowledges each one with a status
// frame once the mechanism has settled.
var (
	// CmdRemoteOn requests exclusive remote control. The front panel stays
	// locked out until CmdRemoteOff is sent.
	CmdRemoteOn = Command{0x10, 0x03}

	// CmdRemoteOff returns the deck to front-panel operation.
	CmdRemoteOff = Command{0x10, 0x04}

	// CmdPlay starts playback, or punches into record when the deck sits in
	// record-pause.
	CmdPlay = Command{0x02, 0x01}

	// CmdStop halts the transport. A deck that is already stopped may not
	// answer at all.
	CmdStop = Command{0x02, 0x02}

	// CmdRecPause arms recording on the next free track and leaves the deck
	// in record-pause.
	CmdRecPause = Command{0x02, 0x21}

	// CmdEject ejects the loaded disc.
	CmdEject = Command{0x02, 0x40}
)

// Query commands and the response codes the deck answers them with.
var (
	// CmdStatusReq asks for the transport status word.
	CmdStatusReq = Command{0x20, 0x20}

	// CmdModelReq asks for the model identification record.
	CmdModelReq = Command{0x20, 0x10}

	// CmdModelNameReq asks for the model name as text.
	CmdModelNameReq = Command{0x20, 0x22}

	// CmdDiscDataReq asks for the disc flags record.
	CmdDiscDataReq = Command{0x20, 0x21}

	// CmdDiscNameReq asks for the disc name. An unnamed disc answers with
	// RespDiscUnnamed instead of text frames.
	CmdDiscNameReq = Command{0x20, 0x48}

	// CmdTOCDataReq asks for the table of contents summary. The deck answers
	// with RespTOCData.
	CmdTOCDataReq = Command{0x20, 0x44}

	// CmdRecRemainReq asks for the remaining recordable time.
	CmdRecRemainReq = Command{0x20, 0x54}

	// CmdTrackNameReq asks for a track's name. The payload carries the track
	// number. An unnamed track answers with RespTrackUnnamed.
	CmdTrackNameReq = Command{0x20, 0x4A}
)

// Track name writes span multiple frames. The first frame's payload leads
// with the track number, continuation frames lead with a packet ordinal
// counting from 2.
var (
	CmdTrackNameWrite = Command{0x20, 0x72}
	CmdTrackNameMore  = Command{0x20, 0x73}
)

// Response codes that differ from the query that provoked them.
var (
	// RespTOCData carries the table of contents summary.
	RespTOCData = Command{0x20, 0x60}

	// RespDiscUnnamed reports that the disc has no name.
	RespDiscUnnamed = Command{0x20, 0x85}

	// RespTrackUnnamed reports that the queried track has no name.
	RespTrackUnnamed = Command{0x20, 0x86}

	// RespNameAck acknowledges a completed name write.
	RespNameAck = Command{0x20, 0x87}
)
