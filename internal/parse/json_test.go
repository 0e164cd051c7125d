package parse

import (
	"testing"
)

func TestWashroomsParsesCatalog(t *testing.T) {
	payload := `{
		"R1": {"floor": 1, "x": 120.5, "y": 40.0, "capacity_m": 8, "capacity_f": 10},
		"R2": {"floor": 2, "x": 300.0, "y": 85.5, "capacity_m": 6, "capacity_f": 6}
	}`

	washrooms, skipped, err := Washrooms([]byte(payload))
	if err != nil {
		t.Fatalf("Washrooms() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("Washrooms() skipped = %d, want 0", skipped)
	}
	if len(washrooms) != 2 {
		t.Fatalf("Washrooms() returned %d washrooms, want 2", len(washrooms))
	}

	// Sorted by id regardless of catalog order.
	if washrooms[0].ID != "R1" || washrooms[1].ID != "R2" {
		t.Errorf("ids = %q, %q, want R1, R2", washrooms[0].ID, washrooms[1].ID)
	}
	w := washrooms[0]
	if w.Floor != 1 || w.X != 120.5 || w.CapacityMale != 8 || w.CapacityFemale != 10 {
		t.Errorf("washrooms[0] = %+v", w)
	}
}

func TestWashroomsSkipsMalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		skipped int
	}{
		{
			"entry_not_object",
			`{"R1": {"floor": 1, "x": 1, "y": 2}, "R2": "broken"}`,
			1, 1,
		},
		{
			"missing_coordinates",
			`{"R1": {"floor": 1}, "R2": {"floor": 1, "x": 5, "y": 5}}`,
			1, 1,
		},
		{
			"negative_capacity",
			`{"R1": {"floor": 1, "x": 1, "y": 1, "capacity_m": -3}}`,
			0, 1,
		},
		{
			"all_malformed",
			`{"R1": [], "R2": 7}`,
			0, 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			washrooms, skipped, err := Washrooms([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Washrooms() error = %v", err)
			}
			if len(washrooms) != tt.want {
				t.Errorf("Washrooms() returned %d, want %d", len(washrooms), tt.want)
			}
			if skipped != tt.skipped {
				t.Errorf("Washrooms() skipped = %d, want %d", skipped, tt.skipped)
			}
		})
	}
}

func TestWashroomsUndecodablePayload(t *testing.T) {
	for _, payload := range []string{"not json", `["array", "not", "object"]`, ""} {
		if _, _, err := Washrooms([]byte(payload)); err == nil {
			t.Errorf("Washrooms(%q) error = nil, want error", payload)
		}
	}
}

func TestTasksParsesList(t *testing.T) {
	payload := `[
		{"id": "T1", "washroom_id": "R1", "type": "routine", "priority": 2,
		 "estimated_duration": 20, "deadline": 600, "created_at": 540,
		 "assigned_crew": ["C1"], "impact_score": 3.5},
		{"id": "T2", "washroom_id": "R2", "type": "emergency", "priority": 5,
		 "estimated_duration": 15}
	]`

	tasks, skipped, err := Tasks([]byte(payload))
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if skipped != 0 || len(tasks) != 2 {
		t.Fatalf("Tasks() = %d tasks, %d skipped, want 2, 0", len(tasks), skipped)
	}

	task := tasks[0]
	if task.ID != "T1" || task.WashroomID != "R1" || task.Priority != 2 {
		t.Errorf("tasks[0] = %+v", task)
	}
	if len(task.AssignedCrew) != 1 || task.AssignedCrew[0] != "C1" {
		t.Errorf("tasks[0].AssignedCrew = %v", task.AssignedCrew)
	}
}

func TestTasksSkipsMalformedEntries(t *testing.T) {
	// 5 entries, 3 malformed: N-K = 2 valid.
	payload := `[
		{"id": "T1", "washroom_id": "R1", "type": "routine", "priority": 2, "estimated_duration": 20},
		{"id": "", "washroom_id": "R1", "type": "routine", "priority": 2, "estimated_duration": 20},
		{"id": "T3", "washroom_id": "R1", "type": "buff", "priority": 2, "estimated_duration": 20},
		{"id": "T4", "washroom_id": "R1", "type": "routine", "priority": 9, "estimated_duration": 20},
		{"id": "T5", "washroom_id": "R2", "type": "deep_clean", "priority": 4, "estimated_duration": 45}
	]`

	tasks, skipped, err := Tasks([]byte(payload))
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("Tasks() returned %d tasks, want 2", len(tasks))
	}
	if skipped != 3 {
		t.Errorf("Tasks() skipped = %d, want 3", skipped)
	}
	if tasks[0].ID != "T1" || tasks[1].ID != "T5" {
		t.Errorf("task ids = %q, %q, want T1, T5", tasks[0].ID, tasks[1].ID)
	}
}

func TestTasksMissingPriorityOrDuration(t *testing.T) {
	payload := `[
		{"id": "T1", "washroom_id": "R1", "type": "routine", "estimated_duration": 20},
		{"id": "T2", "washroom_id": "R1", "type": "routine", "priority": 3},
		{"id": "T3", "washroom_id": "R1", "type": "routine", "priority": 3, "estimated_duration": 0}
	]`

	tasks, skipped, err := Tasks([]byte(payload))
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 0 || skipped != 3 {
		t.Errorf("Tasks() = %d tasks, %d skipped, want 0, 3", len(tasks), skipped)
	}
}

func TestTasksUndecodablePayload(t *testing.T) {
	for _, payload := range []string{"not json", `{"object": "not array"}`} {
		if _, _, err := Tasks([]byte(payload)); err == nil {
			t.Errorf("Tasks(%q) error = nil, want error", payload)
		}
	}
}
