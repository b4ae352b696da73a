package room

import "fmt"

// The channel name does not follow the room format, e.g. "g1-12345-2"
type FormatError struct {
	Name string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("channel name %q does not match the format g#-xxxxx", e.Name)
}

// One of the values provided by the user is not acceptable
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q is not valid: %s", e.Field, e.Value, e.Reason)
}
