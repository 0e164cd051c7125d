package parse

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/washdeck/backend/internal/model"
)

// washroomEntry uses pointers for the positional fields so that a
// catalog entry missing them can be told apart from one at the origin.
type washroomEntry struct {
	Floor     *int     `json:"floor"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	CapacityM *int     `json:"capacity_m"`
	CapacityF *int     `json:"capacity_f"`
}

// Washrooms decodes the hierarchical washroom catalog: a JSON object
// keyed by washroom id. Entries that are not objects, lack floor or
// coordinates, or declare negative capacities are skipped and counted.
func Washrooms(payload []byte) ([]model.Washroom, int, error) {
	var catalog map[string]json.RawMessage
	if err := json.Unmarshal(payload, &catalog); err != nil {
		return nil, 0, fmt.Errorf("decode catalog: %w", err)
	}

	var washrooms []model.Washroom
	skipped := 0
	for id, raw := range catalog {
		var e washroomEntry
		if id == "" || json.Unmarshal(raw, &e) != nil {
			skipped++
			continue
		}
		if e.Floor == nil || e.X == nil || e.Y == nil {
			skipped++
			continue
		}

		w := model.Washroom{ID: id, Floor: *e.Floor, X: *e.X, Y: *e.Y}
		if e.CapacityM != nil {
			w.CapacityMale = *e.CapacityM
		}
		if e.CapacityF != nil {
			w.CapacityFemale = *e.CapacityF
		}
		if w.CapacityMale < 0 || w.CapacityFemale < 0 {
			skipped++
			continue
		}
		washrooms = append(washrooms, w)
	}

	// Catalog order is map order; sort for a stable record set.
	sort.Slice(washrooms, func(i, j int) bool { return washrooms[i].ID < washrooms[j].ID })

	return washrooms, skipped, nil
}

type taskEntry struct {
	ID                string   `json:"id"`
	WashroomID        string   `json:"washroom_id"`
	Type              string   `json:"type"`
	Priority          *int     `json:"priority"`
	EstimatedDuration *int     `json:"estimated_duration"`
	Deadline          int      `json:"deadline"`
	CreatedAt         int      `json:"created_at"`
	AssignedCrew      []string `json:"assigned_crew"`
	CompletedAt       int      `json:"completed_at"`
	ImpactScore       float64  `json:"impact_score"`
}

// Tasks decodes the hierarchical task list: a JSON array of task
// objects. Entries missing an id, washroom reference, valid type,
// priority 1..5, or a positive duration are skipped and counted.
func Tasks(payload []byte) ([]model.CleaningTask, int, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, 0, fmt.Errorf("decode task list: %w", err)
	}

	var tasks []model.CleaningTask
	skipped := 0
	for _, raw := range entries {
		var e taskEntry
		if json.Unmarshal(raw, &e) != nil {
			skipped++
			continue
		}

		typ := model.CleaningType(e.Type)
		if e.ID == "" || e.WashroomID == "" || !typ.Valid() ||
			e.Priority == nil || *e.Priority < 1 || *e.Priority > 5 ||
			e.EstimatedDuration == nil || *e.EstimatedDuration <= 0 {
			skipped++
			continue
		}

		tasks = append(tasks, model.CleaningTask{
			ID:                e.ID,
			WashroomID:        e.WashroomID,
			Type:              typ,
			Priority:          *e.Priority,
			EstimatedDuration: *e.EstimatedDuration,
			Deadline:          e.Deadline,
			CreatedAt:         e.CreatedAt,
			AssignedCrew:      e.AssignedCrew,
			CompletedAt:       e.CompletedAt,
			ImpactScore:       e.ImpactScore,
		})
	}

	return tasks, skipped, nil
}
