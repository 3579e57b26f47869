package payroll

import "fmt"

// =============================================================================
// STATUS - DRAFT -> APPROVED, one way
// =============================================================================

// Status is the lifecycle state of a pay statement. The zero value is not a
// valid status; statements are always created as StatusDraft.
type Status uint8

const (
	StatusDraft Status = iota + 1
	StatusApproved
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "DRAFT"
	case StatusApproved:
		return "APPROVED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus is the inverse of String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "DRAFT":
		return StatusDraft, nil
	case "APPROVED":
		return StatusApproved, nil
	}
	return 0, fmt.Errorf("unknown statement status %q", s)
}

// IsMutable reports whether a statement in this state may be recomputed.
func (s Status) IsMutable() bool { return s == StatusDraft }

// Approve returns the state after payroll closing. Only DRAFT can be approved.
func (s Status) Approve() (Status, error) {
	if s != StatusDraft {
		return s, fmt.Errorf("%w: cannot approve a %s statement", ErrImmutableState, s)
	}
	return StatusApproved, nil
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
