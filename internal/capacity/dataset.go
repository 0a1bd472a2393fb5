package capacity

// Dataset describes one stored synthetic log collection.
type Dataset struct {
	// ID is a ULID that uniquely identifies this dataset
	ID string `json:"id"`

	// Name is an optional unique label (nullable)
	Name *string `json:"name,omitempty"`

	// Years is the span the dataset was generated over
	Years int `json:"years"`

	// Seed is the random seed, recorded only when the caller supplied one (nullable)
	Seed *uint64 `json:"seed,omitempty"`

	// ObservationCount is the number of stored observations
	ObservationCount int `json:"observation_count"`

	// CreatedAt is the Unix timestamp when the dataset was seeded
	CreatedAt int64 `json:"created_at"`
}

// Label returns the dataset's name, or its ID when unnamed.
func (d *Dataset) Label() string {
	if d.Name != nil {
		return *d.Name
	}
	return d.ID
}
