package dataset

import (
	"github.com/washdeck/backend/internal/model"
	"github.com/washdeck/backend/internal/parse"
	"github.com/washdeck/backend/internal/synthetic"
)

// funcsFor binds a dataset kind to its parser adapter and fallback
// generator. The adapters also enforce the cross-dataset referential
// rules that the raw parsers, which see only one payload, cannot:
// tasks must reference loaded washrooms and crew.
func funcsFor(kind model.Kind) (ParseFunc, GenerateFunc) {
	switch kind {
	case model.KindWashrooms:
		return parseWashrooms, generateWashrooms
	case model.KindCrew:
		return parseCrew, generateCrew
	case model.KindTasks:
		return parseTasks, generateTasks
	case model.KindScores:
		return parseScores, generateScores
	case model.KindFlights:
		return parseFlights, generateFlights
	}
	return nil, nil
}

func parseWashrooms(payload []byte, _ model.SeedContext) (model.RecordSet, int, error) {
	washrooms, skipped, err := parse.Washrooms(payload)
	return model.RecordSet{Washrooms: washrooms}, skipped, err
}

func parseCrew(payload []byte, _ model.SeedContext) (model.RecordSet, int, error) {
	crew, skipped, err := parse.Crew(payload)
	return model.RecordSet{Crew: crew}, skipped, err
}

func parseTasks(payload []byte, seed model.SeedContext) (model.RecordSet, int, error) {
	tasks, skipped, err := parse.Tasks(payload)
	if err != nil {
		return model.RecordSet{}, skipped, err
	}

	// A task against a washroom we did not load is as good as malformed.
	// Unknown crew assignments are dropped but keep the task.
	kept := make([]model.CleaningTask, 0, len(tasks))
	for _, task := range tasks {
		if !seed.HasWashroom(task.WashroomID) {
			skipped++
			continue
		}
		var crew []string
		for _, id := range task.AssignedCrew {
			if seed.HasCrew(id) {
				crew = append(crew, id)
			}
		}
		task.AssignedCrew = crew
		kept = append(kept, task)
	}
	return model.RecordSet{Tasks: kept}, skipped, nil
}

// parseScores keeps samples for unknown washrooms: the kiosks can be
// ahead of the catalog, and the metrics consumer filters for itself.
func parseScores(payload []byte, _ model.SeedContext) (model.RecordSet, int, error) {
	scores, skipped, err := parse.Scores(payload)
	return model.RecordSet{Scores: scores}, skipped, err
}

func parseFlights(payload []byte, _ model.SeedContext) (model.RecordSet, int, error) {
	flights, skipped, err := parse.Flights(payload)
	return model.RecordSet{Flights: flights}, skipped, err
}

func generateWashrooms(_ model.SeedContext) model.RecordSet {
	return model.RecordSet{Washrooms: synthetic.Washrooms()}
}

func generateCrew(seed model.SeedContext) model.RecordSet {
	return model.RecordSet{Crew: synthetic.Crew(seed)}
}

func generateTasks(seed model.SeedContext) model.RecordSet {
	return model.RecordSet{Tasks: synthetic.Tasks(seed)}
}

func generateScores(seed model.SeedContext) model.RecordSet {
	return model.RecordSet{Scores: synthetic.Scores(seed)}
}

func generateFlights(_ model.SeedContext) model.RecordSet {
	return model.RecordSet{Flights: synthetic.Flights()}
}
