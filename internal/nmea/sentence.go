package nmea

import (
	"fmt"
	"strings"
)

// Sentence is one parsed NMEA sentence.
type Sentence struct {
	// Raw is the text exactly as it was handed to the parser.
	Raw string
	// Text is Raw with the line terminator and all whitespace removed.
	Text string

	// Name is the talker+sentence identifier, e.g. "GPGGA".
	Name string
	// Params are the comma separated fields after the name, checksum removed.
	Params []string

	// ChecksumField is the text found after '*', without the '*'.
	ChecksumField string
	// ChecksumParsed reports whether ChecksumField was read as hex.
	ChecksumParsed     bool
	ParsedChecksum     uint8
	CalculatedChecksum uint8

	valid bool
}

// Valid reports whether the sentence passed every structural check. It says
// nothing about the checksum; see ChecksumOK.
func (s Sentence) Valid() bool {
	return s.valid
}

// ChecksumOK reports whether a checksum was declared, parsed, and matches the
// checksum calculated over the sentence body.
func (s Sentence) ChecksumOK() bool {
	return s.ChecksumParsed && s.ParsedChecksum == s.CalculatedChecksum
}

// Param returns field i, or false when the sentence has fewer fields.
func (s Sentence) Param(i int) (string, bool) {
	if i < 0 || i >= len(s.Params) {
		return "", false
	}
	return s.Params[i], true
}

// Talker returns the talker id: the first two characters of the name, or "P"
// for proprietary sentences.
func (s Sentence) Talker() string {
	if strings.HasPrefix(s.Name, "P") {
		return "P"
	}
	if len(s.Name) < 5 {
		return ""
	}
	return s.Name[:2]
}

// Type returns the sentence type with the talker id removed, e.g. "GGA".
func (s Sentence) Type() string {
	return s.Name[len(s.Talker()):]
}

// String renders the sentence as "$NAME,p1,...*HH" with a freshly calculated
// checksum and no line terminator.
func (s Sentence) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	for _, p := range s.Params {
		b.WriteByte(',')
		b.WriteString(p)
	}
	body := b.String()
	return fmt.Sprintf("$%s*%02X", body, ChecksumString(body))
}
