// Package synthetic produces placeholder datasets for when no real
// source resolves. Generated data is shaped exactly like parsed data
// and satisfies the same referential constraints, so consumers cannot
// tell it apart structurally. It is not deterministic; it only has to
// be plausible and internally consistent.
package synthetic

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/washdeck/backend/internal/model"
)

var crewNames = []string{
	"Ana Torres", "Ben Okafor", "Carla Diaz", "Deepak Rao", "Elena Petrov",
	"Farid Haddad", "Grace Lin", "Hector Morales", "Imani Walker", "Jonas Berg",
}

var zones = []string{"storage", "break_room", "dispatch", "loading_dock"}

var aircraftTypes = []string{"A320", "A321", "B737", "B787", "E190", "CRJ900"}

var airlinePrefixes = []string{"AC", "WS", "UA", "DL", "AF", "LH", "BA"}

// Washrooms generates a terminal washroom catalog: two floors, a loose
// grid of positions, ids in the facility "R<n>" convention.
func Washrooms() []model.Washroom {
	n := 6 + rand.Intn(4)
	washrooms := make([]model.Washroom, 0, n)
	for i := 0; i < n; i++ {
		washrooms = append(washrooms, model.Washroom{
			ID:             fmt.Sprintf("R%d", i+1),
			Floor:          1 + i%2,
			X:              40 + float64(i)*110 + rand.Float64()*30,
			Y:              30 + float64(i%3)*90 + rand.Float64()*20,
			CapacityMale:   4 + rand.Intn(8),
			CapacityFemale: 4 + rand.Intn(8),
		})
	}
	return washrooms
}

// Crew generates a cleaning crew roster. Members located at a washroom
// reference only washroom ids from seed; the rest sit in service zones.
func Crew(seed model.SeedContext) []model.CrewMember {
	n := 4 + rand.Intn(4)
	crew := make([]model.CrewMember, 0, n)
	for i := 0; i < n; i++ {
		m := model.CrewMember{
			ID:                fmt.Sprintf("C%d", i+1),
			Name:              crewNames[i%len(crewNames)],
			Status:            randomCrewStatus(),
			ShiftStart:        300 + 60*rand.Intn(6),
			HourlyRate:        22 + rand.Float64()*13,
			SkillLevel:        1 + rand.Intn(3),
			EmergencyCapable:  rand.Float64() < 0.3,
			SuppliesRemaining: 40 + rand.Float64()*60,
		}
		m.ShiftEnd = m.ShiftStart + 480
		if m.Status == model.CrewCleaning && len(seed.WashroomIDs) > 0 {
			m.Location = seed.WashroomIDs[rand.Intn(len(seed.WashroomIDs))]
		} else {
			m.Location = zones[rand.Intn(len(zones))]
		}
		crew = append(crew, m)
	}
	return crew
}

func randomCrewStatus() model.CrewStatus {
	switch r := rand.Float64(); {
	case r < 0.35:
		return model.CrewIdle
	case r < 0.70:
		return model.CrewCleaning
	case r < 0.85:
		return model.CrewTraveling
	case r < 0.95:
		return model.CrewOnBreak
	default:
		return model.CrewEmergency
	}
}

var taskTypes = []model.CleaningType{
	model.CleaningRoutine, model.CleaningRoutine, model.CleaningRoutine,
	model.CleaningUsageBased, model.CleaningCallIn, model.CleaningDeepClean,
}

// Tasks generates an open task backlog. Every task references a seeded
// washroom, and assignments reference only seeded crew. Callers pass
// the ids loaded earlier in the dependency chain.
func Tasks(seed model.SeedContext) []model.CleaningTask {
	washroomIDs := seed.WashroomIDs
	if len(washroomIDs) == 0 {
		washroomIDs = fallbackWashroomIDs()
	}

	n := 5 + rand.Intn(6)
	now := 420 + rand.Intn(360)
	tasks := make([]model.CleaningTask, 0, n)
	for i := 0; i < n; i++ {
		typ := taskTypes[rand.Intn(len(taskTypes))]
		priority := 1 + rand.Intn(3)
		if typ == model.CleaningCallIn {
			priority = 3 + rand.Intn(2)
		}

		created := now - rand.Intn(120)
		task := model.CleaningTask{
			ID:                uuid.NewString(),
			WashroomID:        washroomIDs[rand.Intn(len(washroomIDs))],
			Type:              typ,
			Priority:          priority,
			EstimatedDuration: 10 + 5*rand.Intn(7),
			CreatedAt:         created,
			Deadline:          created + 60 + rand.Intn(180),
			ImpactScore:       rand.Float64() * 10,
		}
		if len(seed.CrewIDs) > 0 && rand.Float64() < 0.5 {
			task.AssignedCrew = []string{seed.CrewIDs[rand.Intn(len(seed.CrewIDs))]}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Scores generates a morning of happy-score samples, a handful per
// seeded washroom, drifting around a per-washroom baseline.
func Scores(seed model.SeedContext) []model.ScoreSample {
	washroomIDs := seed.WashroomIDs
	if len(washroomIDs) == 0 {
		washroomIDs = fallbackWashroomIDs()
	}

	samples := make([]model.ScoreSample, 0, len(washroomIDs)*6)
	for _, id := range washroomIDs {
		baseline := 60 + rand.Float64()*25
		for tick := 0; tick < 6; tick++ {
			score := baseline + rand.Float64()*16 - 8
			if score < 0 {
				score = 0
			}
			if score > 100 {
				score = 100
			}
			samples = append(samples, model.ScoreSample{
				WashroomID: id,
				Timestamp:  360 + tick*60 + rand.Intn(20),
				Score:      score,
			})
		}
	}
	return samples
}

// fallbackWashroomIDs covers the unseeded case. Washrooms() always
// generates at least six rooms named R1..Rn, so these ids exist in any
// synthetic catalog.
func fallbackWashroomIDs() []string {
	return []string{"R1", "R2", "R3", "R4", "R5", "R6"}
}

// Flights generates a morning arrival/departure board.
func Flights() []model.Flight {
	n := 8 + rand.Intn(6)
	flights := make([]model.Flight, 0, n)
	for i := 0; i < n; i++ {
		flow := model.FlowDeplaning
		if rand.Float64() < 0.5 {
			flow = model.FlowBoarding
		}
		flights = append(flights, model.Flight{
			Number:      fmt.Sprintf("%s%d", airlinePrefixes[rand.Intn(len(airlinePrefixes))], 100+rand.Intn(900)),
			Gate:        fmt.Sprintf("%c%d", 'A'+rune(rand.Intn(4)), 1+rand.Intn(12)),
			ScheduledAt: 300 + 15*i + rand.Intn(15),
			Passengers:  60 + rand.Intn(240),
			Aircraft:    aircraftTypes[rand.Intn(len(aircraftTypes))],
			Flow:        flow,
		})
	}
	return flights
}
