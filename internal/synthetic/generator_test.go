package synthetic

import (
	"testing"

	"github.com/washdeck/backend/internal/model"
)

func TestWashroomsNonEmptyAndValid(t *testing.T) {
	for i := 0; i < 20; i++ {
		washrooms := Washrooms()
		if len(washrooms) == 0 {
			t.Fatal("Washrooms() returned empty set")
		}

		seen := make(map[string]bool)
		for _, w := range washrooms {
			if w.ID == "" {
				t.Error("washroom with empty id")
			}
			if seen[w.ID] {
				t.Errorf("duplicate washroom id %q", w.ID)
			}
			seen[w.ID] = true
			if w.Floor < 1 || w.Floor > 2 {
				t.Errorf("washroom %s floor = %d", w.ID, w.Floor)
			}
			if w.CapacityMale <= 0 || w.CapacityFemale <= 0 {
				t.Errorf("washroom %s capacities = %d, %d", w.ID, w.CapacityMale, w.CapacityFemale)
			}
		}
	}
}

func TestCrewNonEmptyAndValid(t *testing.T) {
	seed := model.SeedContext{WashroomIDs: []string{"R1", "R2"}}
	for i := 0; i < 20; i++ {
		crew := Crew(seed)
		if len(crew) == 0 {
			t.Fatal("Crew() returned empty roster")
		}

		for _, m := range crew {
			if m.ID == "" || m.Name == "" {
				t.Errorf("crew member missing id/name: %+v", m)
			}
			if !m.Status.Valid() {
				t.Errorf("crew %s invalid status %q", m.ID, m.Status)
			}
			if m.SkillLevel < 1 || m.SkillLevel > 3 {
				t.Errorf("crew %s skill = %d", m.ID, m.SkillLevel)
			}
			if m.SuppliesRemaining < 0 || m.SuppliesRemaining > 100 {
				t.Errorf("crew %s supplies = %f", m.ID, m.SuppliesRemaining)
			}
			if m.ShiftEnd <= m.ShiftStart {
				t.Errorf("crew %s shift %d..%d", m.ID, m.ShiftStart, m.ShiftEnd)
			}
			// A cleaning member's location must be a seeded washroom.
			if m.Status == model.CrewCleaning && !seed.HasWashroom(m.Location) {
				t.Errorf("crew %s cleaning at unknown location %q", m.ID, m.Location)
			}
		}
	}
}

func TestTasksReferentialIntegrity(t *testing.T) {
	seed := model.SeedContext{
		WashroomIDs: []string{"R1", "R2", "R3"},
		CrewIDs:     []string{"C1", "C2"},
	}

	for i := 0; i < 20; i++ {
		tasks := Tasks(seed)
		if len(tasks) == 0 {
			t.Fatal("Tasks() returned empty backlog")
		}

		seen := make(map[string]bool)
		for _, task := range tasks {
			if task.ID == "" || seen[task.ID] {
				t.Errorf("bad or duplicate task id %q", task.ID)
			}
			seen[task.ID] = true
			if !seed.HasWashroom(task.WashroomID) {
				t.Errorf("task %s references unknown washroom %q", task.ID, task.WashroomID)
			}
			for _, c := range task.AssignedCrew {
				if !seed.HasCrew(c) {
					t.Errorf("task %s assigned to unknown crew %q", task.ID, c)
				}
			}
			if !task.Type.Valid() {
				t.Errorf("task %s invalid type %q", task.ID, task.Type)
			}
			if task.Priority < 1 || task.Priority > 5 {
				t.Errorf("task %s priority = %d", task.ID, task.Priority)
			}
			if task.EstimatedDuration <= 0 {
				t.Errorf("task %s duration = %d", task.ID, task.EstimatedDuration)
			}
			if task.Deadline <= task.CreatedAt {
				t.Errorf("task %s deadline %d before created %d", task.ID, task.Deadline, task.CreatedAt)
			}
		}
	}
}

func TestTasksUnseededStillNonEmpty(t *testing.T) {
	tasks := Tasks(model.SeedContext{})
	if len(tasks) == 0 {
		t.Fatal("Tasks() with empty seed returned empty backlog")
	}
	for _, task := range tasks {
		if task.WashroomID == "" {
			t.Errorf("task %s has empty washroom id", task.ID)
		}
	}
}

func TestScoresCoverSeededWashrooms(t *testing.T) {
	seed := model.SeedContext{WashroomIDs: []string{"R1", "R2"}}
	samples := Scores(seed)
	if len(samples) == 0 {
		t.Fatal("Scores() returned empty set")
	}

	covered := make(map[string]bool)
	for _, s := range samples {
		if !seed.HasWashroom(s.WashroomID) {
			t.Errorf("sample references unknown washroom %q", s.WashroomID)
		}
		covered[s.WashroomID] = true
		if s.Score < 0 || s.Score > 100 {
			t.Errorf("score %f out of range", s.Score)
		}
	}
	for _, id := range seed.WashroomIDs {
		if !covered[id] {
			t.Errorf("washroom %s has no samples", id)
		}
	}
}

func TestFlightsNonEmptyAndValid(t *testing.T) {
	flights := Flights()
	if len(flights) == 0 {
		t.Fatal("Flights() returned empty board")
	}
	for _, f := range flights {
		if f.Number == "" || f.Gate == "" {
			t.Errorf("flight missing number/gate: %+v", f)
		}
		if !f.Flow.Valid() {
			t.Errorf("flight %s invalid flow %q", f.Number, f.Flow)
		}
		if f.Passengers <= 0 {
			t.Errorf("flight %s passengers = %d", f.Number, f.Passengers)
		}
	}
}
