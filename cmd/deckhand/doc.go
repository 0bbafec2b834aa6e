// Command deckhand records audio files onto MiniDisc through a Sony
// MDS-E12 deck on a serial line: it plays each file on the workstation
// while driving the deck's transport and writing track names to the TOC.
package main
