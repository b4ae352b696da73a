package room

// The change requested for a room. Empty fields were not provided
type Update struct {
	Code  string
	Spots string
}

// What the update did to the room, used to word the reply
type Outcome int

const (
	OUTCOME_CLOSED        = iota
	OUTCOME_CODE_CHANGED  = iota
	OUTCOME_SPOTS_CHANGED = iota
)

// ApplyUpdate computes the new channel name for a room channel.
//
// A valid code replaces the current one and keeps the current suffix
// unless spots are also given. Spots alone keep the current code, or
// the placeholder if there is none. Anything else closes the room,
// which also clears the suffix. Invalid spots are rejected before
// anything else is looked at.
func ApplyUpdate(current string, update Update) (string, Outcome, error) {

	name, err := Decode(current)
	if err != nil {
		return current, OUTCOME_CLOSED, err
	}

	slots := Unspecified
	if update.Spots != "" {
		if slots, err = ParseSlots(update.Spots); err != nil {
			return current, OUTCOME_CLOSED, err
		}
	}

	switch {
	case IsCode(update.Code):
		name.Code = update.Code
		if slots != Unspecified {
			name.Slots = slots
		}
		return name.String(), OUTCOME_CODE_CHANGED, nil
	case update.Code == "" && slots != Unspecified:
		name.Slots = slots
		return name.String(), OUTCOME_SPOTS_CHANGED, nil
	default:
		return Encode(name.Prefix, "", Unspecified), OUTCOME_CLOSED, nil
	}
}
