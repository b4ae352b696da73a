package room

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder is written instead of a room code when the room is closed
const Placeholder = "xxxxx"

// Unspecified marks a room name without a slots suffix
const Unspecified Slots = -1

// Full is the slot count rendered as "-f"
const Full Slots = 0

// Highest slot count that can be written into a room name
const MaxSlots Slots = 4

var prefixRegexp = regexp.MustCompile(`^[A-Za-z]\d-`)
var suffixRegexp = regexp.MustCompile(`-[0-9f]$`)
var codeRegexp = regexp.MustCompile(`^\d{5}$`)

// Number of open positions in a room. Unspecified means the
// channel name does not say
type Slots int

// A channel name split into its parts. An empty code means
// the room is closed or the code is not known
type Name struct {
	Prefix string
	Code   string
	Slots  Slots
}

// Decode splits a channel name. The name has to start with a letter,
// a digit and a dash, everything else is optional
func Decode(name string) (Name, error) {

	prefix := prefixRegexp.FindString(name)
	if prefix == "" {
		return Name{}, &FormatError{Name: name}
	}
	rest := name[len(prefix):]

	// Suffix only counts if there is something before it
	slots := Unspecified
	if suffix := suffixRegexp.FindString(rest); suffix != "" && len(rest) > len(suffix) {
		if suffix[1] == 'f' {
			slots = Full
		} else {
			slots = Slots(suffix[1] - '0')
		}
		rest = rest[:len(rest)-len(suffix)]
	}

	code := ""
	if codeRegexp.MatchString(rest) {
		code = rest
	}
	return Name{Prefix: prefix, Code: code, Slots: slots}, nil
}

// Encode builds the channel name from its parts
func Encode(prefix string, code string, slots Slots) string {
	if code == "" {
		code = Placeholder
	}
	switch {
	case slots == Unspecified:
		return prefix + code
	case slots == Full:
		return prefix + code + "-f"
	default:
		return fmt.Sprintf("%s%s-%d", prefix, code, int(slots))
	}
}

func (name Name) String() string {
	return Encode(name.Prefix, name.Code, name.Slots)
}

// A room is closed when it has no code
func (name Name) Closed() bool {
	return name.Code == ""
}

// ParseCode accepts exactly five digits
func ParseCode(argument string) (string, error) {
	if !IsCode(argument) {
		return "", &ValidationError{Field: "room code", Value: argument, Reason: "must be a 5 digit number"}
	}
	return argument, nil
}

func IsCode(argument string) bool {
	return codeRegexp.MatchString(argument)
}

// ParseSlots accepts 0 to 4, and "f" or "F" as a synonym of 0
func ParseSlots(argument string) (Slots, error) {
	argument = strings.TrimSpace(argument)
	if strings.EqualFold(argument, "f") {
		return Full, nil
	}
	value, err := strconv.Atoi(argument)
	if err != nil || value < int(Full) || value > int(MaxSlots) {
		return Unspecified, &ValidationError{Field: "open spots", Value: argument, Reason: "must be 0-4"}
	}
	return Slots(value), nil
}
