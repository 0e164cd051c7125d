package model

// Kind identifies one logical dataset the sync layer loads. Each kind has
// its own candidate source list, parser, and fallback generator.
type Kind string

const (
	KindWashrooms Kind = "washrooms"
	KindCrew      Kind = "crew"
	KindTasks     Kind = "tasks"
	KindScores    Kind = "scores"
	KindFlights   Kind = "flights"
)

// Kinds returns all dataset kinds in load order: washrooms before crew,
// crew before tasks, because later datasets reference earlier ones.
func Kinds() []Kind {
	return []Kind{KindWashrooms, KindFlights, KindCrew, KindTasks, KindScores}
}

// Provenance records whether a dataset's content came from a real source
// or from the synthetic fallback generator.
type Provenance string

const (
	ProvenanceReal     Provenance = "real"
	ProvenanceFallback Provenance = "fallback"
)

// CrewStatus is the current activity of a crew member.
type CrewStatus string

const (
	CrewIdle      CrewStatus = "idle"
	CrewCleaning  CrewStatus = "cleaning"
	CrewTraveling CrewStatus = "traveling"
	CrewOnBreak   CrewStatus = "break"
	CrewEmergency CrewStatus = "emergency_response"
)

// Valid reports whether s is one of the known crew statuses.
func (s CrewStatus) Valid() bool {
	switch s {
	case CrewIdle, CrewCleaning, CrewTraveling, CrewOnBreak, CrewEmergency:
		return true
	}
	return false
}

// CleaningType classifies why a cleaning task was raised.
type CleaningType string

const (
	CleaningRoutine    CleaningType = "routine"
	CleaningEmergency  CleaningType = "emergency"
	CleaningCallIn     CleaningType = "call_in"
	CleaningDeepClean  CleaningType = "deep_clean"
	CleaningUsageBased CleaningType = "usage_based"
)

// Valid reports whether t is one of the known cleaning types.
func (t CleaningType) Valid() bool {
	switch t {
	case CleaningRoutine, CleaningEmergency, CleaningCallIn, CleaningDeepClean, CleaningUsageBased:
		return true
	}
	return false
}

// FlowType is the passenger flow direction a flight drives.
type FlowType string

const (
	FlowDeplaning FlowType = "deplaning"
	FlowBoarding  FlowType = "boarding"
)

// Valid reports whether f is one of the known flow types.
func (f FlowType) Valid() bool {
	return f == FlowDeplaning || f == FlowBoarding
}

// Washroom is one serviceable washroom in the terminal. IDs follow the
// facility catalog convention ("R1", "R2", ...).
type Washroom struct {
	ID             string  `json:"id"`
	Floor          int     `json:"floor"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	CapacityMale   int     `json:"capacity_m"`
	CapacityFemale int     `json:"capacity_f"`
}

// CrewMember is one member of the cleaning crew. Shift times are minutes
// since midnight, local terminal time.
type CrewMember struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Status            CrewStatus `json:"status"`
	Location          string     `json:"location"`
	ShiftStart        int        `json:"shift_start"`
	ShiftEnd          int        `json:"shift_end"`
	HourlyRate        float64    `json:"hourly_rate"`
	SkillLevel        int        `json:"skill_level"`
	EmergencyCapable  bool       `json:"emergency_capable"`
	SuppliesRemaining float64    `json:"supplies_remaining"`
}

// CleaningTask is one unit of servicing work against a washroom.
// Priority runs 1..5 with 5 most urgent. Times are minutes since
// midnight; CompletedAt zero means still open.
type CleaningTask struct {
	ID                string       `json:"id"`
	WashroomID        string       `json:"washroom_id"`
	Type              CleaningType `json:"type"`
	Priority          int          `json:"priority"`
	EstimatedDuration int          `json:"estimated_duration"`
	Deadline          int          `json:"deadline"`
	CreatedAt         int          `json:"created_at"`
	AssignedCrew      []string     `json:"assigned_crew,omitempty"`
	CompletedAt       int          `json:"completed_at,omitempty"`
	ImpactScore       float64      `json:"impact_score"`
}

// ScoreSample is one reading from a feedback kiosk: how happy passengers
// were with a washroom at a point in time, 0..100.
type ScoreSample struct {
	WashroomID string  `json:"washroom_id"`
	Timestamp  int     `json:"timestamp"`
	Score      float64 `json:"score"`
}

// Flight is one scheduled arrival or departure. Passenger counts feed the
// demand forecast on the dashboard.
type Flight struct {
	Number      string   `json:"number"`
	Gate        string   `json:"gate"`
	ScheduledAt int      `json:"scheduled_at"`
	Passengers  int      `json:"passengers"`
	Aircraft    string   `json:"aircraft"`
	Flow        FlowType `json:"flow"`
}
