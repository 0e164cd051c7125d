package model

import "time"

// RecordSet carries the decoded records for one dataset kind. Exactly one
// slice is populated, matching the kind it was loaded for.
type RecordSet struct {
	Washrooms []Washroom     `json:"washrooms,omitempty"`
	Crew      []CrewMember   `json:"crew,omitempty"`
	Tasks     []CleaningTask `json:"tasks,omitempty"`
	Scores    []ScoreSample  `json:"scores,omitempty"`
	Flights   []Flight       `json:"flights,omitempty"`
}

// Count returns the number of records in whichever slice is populated.
func (rs RecordSet) Count() int {
	return len(rs.Washrooms) + len(rs.Crew) + len(rs.Tasks) + len(rs.Scores) + len(rs.Flights)
}

// DatasetStatus describes how one dataset's most recent load went:
// where the data came from, how much of it survived parsing, and when
// the load finished.
type DatasetStatus struct {
	Kind       Kind       `json:"kind"`
	Provenance Provenance `json:"provenance"`

	// Candidate is the source location that won the probe. Empty when
	// the dataset fell back to synthetic data.
	Candidate string `json:"candidate,omitempty"`

	Records  int       `json:"records"`
	Skipped  int       `json:"skipped"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Snapshot is the consolidated output of one full load: every dataset's
// records plus per-dataset load status. A Snapshot is immutable once
// published; consumers hold a reference and never mutate it in place.
type Snapshot struct {
	Washrooms []Washroom     `json:"washrooms"`
	Crew      []CrewMember   `json:"crew"`
	Tasks     []CleaningTask `json:"tasks"`
	Scores    []ScoreSample  `json:"scores"`
	Flights   []Flight       `json:"flights"`

	Datasets map[Kind]DatasetStatus `json:"datasets"`

	// LoadedAt is when the last constituent loader finished. Snapshot
	// replacement is ordered by this stamp.
	LoadedAt time.Time `json:"loaded_at"`
}

// Fallback reports whether the given dataset's content is synthetic.
func (s *Snapshot) Fallback(kind Kind) bool {
	return s.Datasets[kind].Provenance == ProvenanceFallback
}

// WashroomIDs returns the ids of every washroom in the snapshot, in
// snapshot order.
func (s *Snapshot) WashroomIDs() []string {
	ids := make([]string, 0, len(s.Washrooms))
	for _, w := range s.Washrooms {
		ids = append(ids, w.ID)
	}
	return ids
}

// CrewIDs returns the ids of every crew member in the snapshot.
func (s *Snapshot) CrewIDs() []string {
	ids := make([]string, 0, len(s.Crew))
	for _, c := range s.Crew {
		ids = append(ids, c.ID)
	}
	return ids
}

// SeedContext carries the ids already loaded earlier in the dependency
// chain, so dependent parsers and fallback generators can keep
// referential integrity: generated tasks only reference washrooms and
// crew that exist in the same snapshot.
type SeedContext struct {
	WashroomIDs []string
	CrewIDs     []string
}

// HasWashroom reports whether id is one of the seeded washroom ids.
func (sc SeedContext) HasWashroom(id string) bool {
	for _, w := range sc.WashroomIDs {
		if w == id {
			return true
		}
	}
	return false
}

// HasCrew reports whether id is one of the seeded crew ids.
func (sc SeedContext) HasCrew(id string) bool {
	for _, c := range sc.CrewIDs {
		if c == id {
			return true
		}
	}
	return false
}
