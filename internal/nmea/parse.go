package nmea

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Parse parses one line of text into a Sentence. Malformed input never
// produces an error on its own; it yields a sentence with Valid() == false.
// The returned error is non-nil only for error-grade conditions (a broken
// checksum field or a disallowed character in a parameter), and is always a
// *ParseError.
func Parse(line string) (Sentence, error) {
	return parseLine(line, diag{log: zerolog.Nop()})
}

func parseLine(line string, d diag) (Sentence, error) {
	s := Sentence{Raw: line}
	if line == "" {
		d.warnf("blank string, skipped processing")
		return s, nil
	}

	txt := line
	if strings.HasSuffix(txt, "\n") {
		if strings.HasSuffix(txt, "\r\n") {
			txt = txt[:len(txt)-2]
		} else {
			d.warnf("malformed newline, missing carriage return (\\r)")
			txt = txt[:len(txt)-1]
		}
	}

	before := len(txt)
	txt = squish(txt)
	if n := before - len(txt); n > 0 {
		d.warnf("sentence contained %d whitespace characters", n)
	}
	d.infof("nmea string: (%q)", txt)

	return parseText(s, txt, d)
}

func parseText(s Sentence, txt string, d diag) (Sentence, error) {
	s.Text = txt
	if txt == "" {
		return s, nil
	}

	// Anything up to the last '$' is noise from an earlier, broken frame.
	dollar := strings.LastIndexByte(txt, '$')
	if dollar < 0 {
		return s, nil
	}
	txt = txt[dollar+1:]

	star := strings.LastIndexByte(txt, '*')
	hasChecksum := star >= 0
	if hasChecksum {
		s.CalculatedChecksum = ChecksumString(txt[:star])
	} else {
		d.warnf("no checksum information provided, could not find '*'")
	}

	comma := strings.IndexByte(txt, ',')
	if comma < 0 {
		// Name-only sentence, or a bare '$'.
		if txt == "" || !isAlphaNum(txt) {
			return s, nil
		}
		s.Name = txt
		s.valid = true
		return s, nil
	}
	if comma == 0 {
		return s, nil
	}

	s.Name = txt[:comma]
	if !isAlphaNum(s.Name) {
		return s, nil
	}

	if comma+1 == len(txt) {
		s.Params = []string{""}
		s.valid = true
		return s, nil
	}

	rest := txt[comma+1:]
	s.Params = strings.Split(rest, ",")

	if rest[len(rest)-1] == ',' {
		// A trailing empty field is legal, but not in front of a checksum.
		if hasChecksum {
			return s, nil
		}
		d.infof("found %d parameters", len(s.Params))
	} else {
		d.infof("found %d parameters", len(s.Params))

		end := len(s.Params) - 1
		last := s.Params[end]
		if i := strings.LastIndexByte(last, '*'); i >= 0 {
			s.Params[end] = last[:i]
			if i == len(last)-1 {
				return s, NewParseError(ErrChecksumNoDigits, s, "checksum '*' character at end, but no data")
			}
			s.ChecksumField = last[i+1:]
			d.infof("found checksum (\"*%s\")", s.ChecksumField)

			v, err := strconv.ParseUint(s.ChecksumField, 16, 8)
			if err != nil {
				return s, NewParseError(ErrChecksumNotHex, s,
					fmt.Sprintf("parsed checksum string was not readable as hex (%q)", s.ChecksumField))
			}
			s.ParsedChecksum = uint8(v)
			s.ChecksumParsed = true
			d.infof("checksum ok? %t", s.ChecksumOK())
		}
	}

	for i, p := range s.Params {
		if !validParamChars(p) {
			return s, NewParseError(ErrInvalidParam, s,
				fmt.Sprintf("invalid character (non-alpha-num) in parameter %d (from 0): %q", i, p))
		}
	}

	s.valid = true
	return s, nil
}

// squish removes every space and tab.
func squish(s string) string {
	if strings.IndexAny(s, " \t") < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c != ' ' && c != '\t' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isAlphaNumByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isAlphaNum(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isAlphaNumByte(s[i]) {
			return false
		}
	}
	return true
}

// validParamChars allows alphanumerics, '.' and '-'.
func validParamChars(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isAlphaNumByte(c) && c != '.' && c != '-' {
			return false
		}
	}
	return true
}
