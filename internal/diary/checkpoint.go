// Package diary holds the domain vocabulary of the glucose diary: checkpoint tags,
// input parsing for measurements and settings, and the per-day target times that
// drive procedure reminders.
package diary

import "fmt"

// Tag labels a measurement with the daily checkpoint it belongs to.
type Tag string

const (
	TagMorning Tag = "MORNING"
	TagPeak    Tag = "PEAK"
	TagEvening Tag = "EVENING"
	TagOther   Tag = "OTHER"
)

// Checkpoints lists the tags that have a scheduled time of day, in firing order.
var Checkpoints = []Tag{TagMorning, TagPeak, TagEvening}

// AllTags lists every tag a user may pick for a manual entry.
var AllTags = []Tag{TagMorning, TagPeak, TagEvening, TagOther}

// ParseTag converts a stored or callback value back into a Tag.
func ParseTag(s string) (Tag, error) {
	switch t := Tag(s); t {
	case TagMorning, TagPeak, TagEvening, TagOther:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

// Label is the human-readable checkpoint name used in chat messages.
func (t Tag) Label() string {
	switch t {
	case TagMorning:
		return "morning (AMPS)"
	case TagPeak:
		return "peak"
	case TagEvening:
		return "evening (PMPS)"
	default:
		return "other"
	}
}

// HasInsulinTime reports whether the checkpoint coincides with an insulin shot.
func (t Tag) HasInsulinTime() bool {
	return t == TagMorning || t == TagEvening
}
