// Package protocol implements the serial remote-control frame format of the
// Sony MDS-E12 MiniDisc deck.
//
// The deck exchanges fixed-layout packets over RS232: a direction header, a
// length byte covering the whole frame, fixed format and category bytes, a
// two-byte command code, an optional payload, and a 0xFF terminator. Encode
// produces request frames byte-exact to what the hardware expects; Decoder
// reassembles response frames from arbitrary read chunks and distinguishes
// "not enough bytes yet" from "link is desynchronized". Typed parsers turn
// recognized response frames into status, TOC, disc, and name values.
//
// The package is pure: it never touches the serial port and keeps no state
// beyond the Decoder's reassembly buffer. The deck controller owns all I/O
// and retry behaviour.
package protocol
