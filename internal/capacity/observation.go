package capacity

// State is the discretized capacity level attached to an observation.
type State string

const (
	StateResourced State = "resourced"
	StateStretched State = "stretched"
	StateDepleted  State = "depleted"
)

// ValidState reports whether s is one of the three known states.
func ValidState(s State) bool {
	switch s {
	case StateResourced, StateStretched, StateDepleted:
		return true
	}
	return false
}

// Category is a coarse causal label optionally attached to an observation.
type Category string

const (
	CategorySensory Category = "sensory"
	CategoryDemand  Category = "demand"
	CategorySocial  Category = "social"

	// CategoryNone marks an observation with no causal label.
	CategoryNone Category = ""
)

// Categories lists all assignable categories.
var Categories = []Category{CategorySensory, CategoryDemand, CategorySocial}

// ValidCategory reports whether c is one of the three assignable categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategorySensory, CategoryDemand, CategorySocial:
		return true
	}
	return false
}

// Observation is one logged capacity data point.
// The JSON shape is the storage contract consumers round-trip.
type Observation struct {
	// ID is a ULID that uniquely identifies this observation
	ID string `json:"id"`

	// State is the discretized capacity level
	State State `json:"state"`

	// Timestamp is milliseconds since the Unix epoch
	Timestamp int64 `json:"timestamp"`

	// Tags holds zero or one category string. The simulator never attaches
	// more than one; the slice shape is kept for multi-tag consumers.
	Tags []string `json:"tags"`

	// Note is optional free text drawn from a note pool (nullable)
	Note *string `json:"note,omitempty"`
}

// Category returns the observation's category, or CategoryNone when untagged.
func (o *Observation) Category() Category {
	if len(o.Tags) == 0 {
		return CategoryNone
	}
	return Category(o.Tags[0])
}
