// Package parse decodes raw payloads into typed records. Parsers are
// deterministic and do no I/O. They are tolerant per row: a malformed
// row is skipped and counted, never fatal to the batch. Only a payload
// that is undecodable as a whole (missing header, not valid JSON)
// produces an error, and callers treat that the same as zero records.
package parse

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/washdeck/backend/internal/model"
)

// header maps lowercased column names to their position in the header
// row of a tabular payload.
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	cols, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(cols))
	for i, name := range cols {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return h, nil
}

// row wraps one CSV record with lenient typed accessors. Accessors note
// malformed values in bad instead of returning errors, so a row is
// validated with one check after all fields are read.
type row struct {
	header header
	fields []string
	bad    bool
}

func (r *row) str(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r *row) intField(col string, def int) int {
	s := r.str(col)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.bad = true
		return def
	}
	return n
}

func (r *row) floatField(col string, def float64) float64 {
	s := r.str(col)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.bad = true
		return def
	}
	return f
}

func (r *row) boolField(col string, def bool) bool {
	s := r.str(col)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		r.bad = true
		return def
	}
	return b
}

func newReader(payload []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

// Crew decodes a tabular crew roster. Required columns: id, name.
// Returns the valid members, the number of skipped rows, and an error
// only when the header itself is unusable.
func Crew(payload []byte) ([]model.CrewMember, int, error) {
	r := newReader(payload)
	h, err := readHeader(r, "id", "name")
	if err != nil {
		return nil, 0, err
	}

	var members []model.CrewMember
	skipped := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		row := row{header: h, fields: fields}
		m := model.CrewMember{
			ID:                row.str("id"),
			Name:              row.str("name"),
			Status:            model.CrewStatus(row.str("status")),
			Location:          row.str("location"),
			ShiftStart:        row.intField("shift_start", 0),
			ShiftEnd:          row.intField("shift_end", 0),
			HourlyRate:        row.floatField("hourly_rate", 0),
			SkillLevel:        row.intField("skill_level", 1),
			EmergencyCapable:  row.boolField("emergency_capable", false),
			SuppliesRemaining: row.floatField("supplies_remaining", 100),
		}
		if m.Status == "" {
			m.Status = model.CrewIdle
		}

		if row.bad || m.ID == "" || m.Name == "" || !m.Status.Valid() ||
			m.SkillLevel < 1 || m.SkillLevel > 3 {
			skipped++
			continue
		}
		m.SuppliesRemaining = clamp(m.SuppliesRemaining, 0, 100)
		members = append(members, m)
	}

	return members, skipped, nil
}

// Scores decodes tabular happy-score samples from the feedback kiosks.
// Required columns: washroom_id, timestamp, score. Samples outside the
// 0..100 score range are skipped as kiosk garbage.
func Scores(payload []byte) ([]model.ScoreSample, int, error) {
	r := newReader(payload)
	h, err := readHeader(r, "washroom_id", "timestamp", "score")
	if err != nil {
		return nil, 0, err
	}

	var samples []model.ScoreSample
	skipped := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		row := row{header: h, fields: fields}
		s := model.ScoreSample{
			WashroomID: row.str("washroom_id"),
			Timestamp:  row.intField("timestamp", -1),
			Score:      row.floatField("score", -1),
		}

		if row.bad || s.WashroomID == "" || s.Timestamp < 0 || s.Score < 0 || s.Score > 100 {
			skipped++
			continue
		}
		samples = append(samples, s)
	}

	return samples, skipped, nil
}

// Flights decodes the tabular flight schedule. Required columns:
// number, scheduled_at, flow.
func Flights(payload []byte) ([]model.Flight, int, error) {
	r := newReader(payload)
	h, err := readHeader(r, "number", "scheduled_at", "flow")
	if err != nil {
		return nil, 0, err
	}

	var flights []model.Flight
	skipped := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		row := row{header: h, fields: fields}
		f := model.Flight{
			Number:      row.str("number"),
			Gate:        row.str("gate"),
			ScheduledAt: row.intField("scheduled_at", -1),
			Passengers:  row.intField("passengers", 0),
			Aircraft:    row.str("aircraft"),
			Flow:        model.FlowType(row.str("flow")),
		}

		if row.bad || f.Number == "" || f.ScheduledAt < 0 || f.Passengers < 0 || !f.Flow.Valid() {
			skipped++
			continue
		}
		flights = append(flights, f)
	}

	return flights, skipped, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
