package nmea

import (
	"fmt"
	"strings"
)

// Command is an outgoing sentence. Name is the sentence identifier and Body
// the comma separated fields that follow it.
type Command interface {
	Name() string
	Body() string
}

// Encode renders c as "$NAME,BODY*HH\r\n", HH being the uppercase hex
// checksum of everything between '$' and '*'.
func Encode(c Command) string {
	body := c.Name() + "," + c.Body()
	return fmt.Sprintf("$%s*%02X\r\n", body, ChecksumString(body))
}

// GenericCommand sends an arbitrary message under an arbitrary name.
type GenericCommand struct {
	Tag     string
	Message string
}

func (c GenericCommand) Name() string { return c.Tag }
func (c GenericCommand) Body() string { return c.Message }

// SerialConfiguration is the SiRF $PSRF100 "set serial port" command. It
// always selects the NMEA protocol.
//
//	$PSRF100,1,9600,8,1,0*0D
type SerialConfiguration struct {
	Baud     int // 4800, 9600, 19200, 38400...
	DataBits int // 7 or 8
	StopBits int // 0 or 1
	Parity   int // 0 none, 1 odd, 2 even
}

// NewSerialConfiguration returns the receiver defaults: 4800 8N1.
func NewSerialConfiguration() SerialConfiguration {
	return SerialConfiguration{Baud: 4800, DataBits: 8, StopBits: 1, Parity: 0}
}

func (c SerialConfiguration) Name() string { return "PSRF100" }

func (c SerialConfiguration) Body() string {
	baud := c.Baud
	if baud == 0 {
		baud = 4800
	}
	dataBits := c.DataBits
	if dataBits == 0 {
		dataBits = 8
	}
	return fmt.Sprintf("1,%d,%d,%d,%d", baud, dataBits, c.StopBits, c.Parity)
}

// MessageID selects a sentence in the SiRF query/rate command.
type MessageID int

const (
	MessageUnknown MessageID = -1
	MessageGGA     MessageID = 0
	MessageGLL     MessageID = 1
	MessageGSA     MessageID = 2
	MessageGSV     MessageID = 3
	MessageRMC     MessageID = 4
	MessageVTG     MessageID = 5
	MessageZDA     MessageID = 8
)

var messageIDNames = map[MessageID]string{
	MessageGGA: "GGA",
	MessageGLL: "GLL",
	MessageGSA: "GSA",
	MessageGSV: "GSV",
	MessageRMC: "RMC",
	MessageVTG: "VTG",
	MessageZDA: "ZDA",
}

func (m MessageID) String() string {
	if name, ok := messageIDNames[m]; ok {
		return name
	}
	return "Unknown"
}

// ParseMessageID maps a sentence type such as "GGA" (any case) to its id.
func ParseMessageID(s string) (MessageID, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for id, name := range messageIDNames {
		if name == want {
			return id, nil
		}
	}
	return MessageUnknown, fmt.Errorf("nmea: unknown message id %q", s)
}

// QueryRateMode is the mode field of $PSRF103.
type QueryRateMode int

const (
	SetRate QueryRateMode = 0
	Query   QueryRateMode = 1
)

// ParseQueryRateMode accepts "setrate" (or "") and "query".
func ParseQueryRateMode(s string) (QueryRateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "setrate", "set_rate", "rate":
		return SetRate, nil
	case "query":
		return Query, nil
	default:
		return SetRate, fmt.Errorf("nmea: unknown query rate mode %q", s)
	}
}

// QueryRate is the SiRF $PSRF103 command: set the output rate of a sentence
// or query it once.
//
//	$PSRF103,00,01,00,01*25
type QueryRate struct {
	Message MessageID
	Mode    QueryRateMode
	// Rate is the output period in seconds, 0 disables, max 255.
	Rate int
	// DisableChecksum asks the receiver to omit checksums.
	DisableChecksum bool
}

func (c QueryRate) Name() string { return "PSRF103" }

func (c QueryRate) Body() string {
	cksum := 1
	if c.DisableChecksum {
		cksum = 0
	}
	return fmt.Sprintf("%02d,%02d,%02d,%02d", int(c.Message), int(c.Mode), c.Rate, cksum)
}
