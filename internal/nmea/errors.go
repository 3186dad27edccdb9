package nmea

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSentence  = errors.New("nmea: invalid sentence")
	ErrChecksumNoDigits = errors.New("nmea: checksum marker without digits")
	ErrChecksumNotHex   = errors.New("nmea: checksum is not hex")
	ErrInvalidParam     = errors.New("nmea: invalid character in parameter")
	ErrChecksumMismatch = errors.New("nmea: checksum mismatch")
	ErrMissingParams    = errors.New("nmea: missing parameters")
)

// ParseError is an error-grade parse or decode failure. Sentence holds the
// record as far as it was built when the failure was detected.
type ParseError struct {
	Msg      string
	Sentence Sentence
	Err      error
}

// NewParseError wraps err with a message and the offending sentence.
func NewParseError(err error, s Sentence, msg string) *ParseError {
	return &ParseError{Msg: msg, Sentence: s, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "nmea: " + e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NumberError reports a field that could not be converted to a number.
type NumberError struct {
	Input string
	Err   error
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("nmea: %q is not a number", e.Input)
}

func (e *NumberError) Unwrap() error {
	return e.Err
}
