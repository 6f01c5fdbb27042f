package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bhiv/hr-platform/internal/models"
)

const (
	defaultCandidateLocation  = "Mumbai"
	defaultCandidateEducation = "Bachelors"
)

// csvTable indexes rows by lower-cased header name.
type csvTable struct {
	header map[string]int
	rows   [][]string
}

func readCSV(r io.Reader) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no header row")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &csvTable{header: header, rows: records[1:]}, nil
}

func (t *csvTable) get(row []string, column string) string {
	i, ok := t.header[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rowID uses the id column when present, otherwise the 1-based row number.
func (t *csvTable) rowID(row []string, n int) (int64, error) {
	raw := t.get(row, "id")
	if raw == "" {
		return int64(n + 1), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("row %d: invalid id %q", n+1, raw)
	}
	return id, nil
}

func parseCandidates(r io.Reader) ([]models.Candidate, error) {
	table, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	out := make([]models.Candidate, 0, len(table.rows))
	for n, row := range table.rows {
		id, err := table.rowID(row, n)
		if err != nil {
			return nil, err
		}

		name := table.get(row, "name")
		if name == "" {
			return nil, fmt.Errorf("row %d: name is required", n+1)
		}

		years := parseExperienceYears(table.get(row, "experience"))
		if v := table.get(row, "experience_years"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				years = parsed
			}
		}

		c := models.Candidate{
			ID:              id,
			Name:            name,
			Email:           table.get(row, "email"),
			Phone:           table.get(row, "phone"),
			Location:        orDefault(table.get(row, "location"), defaultCandidateLocation),
			ExperienceYears: years,
			TechnicalSkills: firstNonEmpty(table.get(row, "technical_skills"), table.get(row, "skills")),
			SeniorityLevel:  orDefault(table.get(row, "seniority_level"), seniorityForYears(years)),
			EducationLevel:  orDefault(firstNonEmpty(table.get(row, "education_level"), table.get(row, "education")), defaultCandidateEducation),
		}
		if c.Email == "" {
			c.Email = strings.ToLower(strings.ReplaceAll(name, " ", "")) + "@example.com"
		}
		out = append(out, c)
	}
	return out, nil
}

func parseJobs(r io.Reader) ([]models.Job, error) {
	table, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	out := make([]models.Job, 0, len(table.rows))
	for n, row := range table.rows {
		id, err := table.rowID(row, n)
		if err != nil {
			return nil, err
		}

		title := table.get(row, "title")
		if title == "" {
			return nil, fmt.Errorf("row %d: title is required", n+1)
		}

		out = append(out, models.Job{
			ID:              id,
			Title:           title,
			Department:      table.get(row, "department"),
			Location:        table.get(row, "location"),
			ExperienceLevel: table.get(row, "experience_level"),
			Requirements:    table.get(row, "requirements"),
			Description:     table.get(row, "description"),
			Status:          orDefault(table.get(row, "status"), "active"),
		})
	}
	return out, nil
}

// parseExperienceYears reads values like "3 years" or "Fresher".
func parseExperienceYears(raw string) int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "fresher" {
		return 0
	}
	fields := strings.Fields(raw)
	years, err := strconv.Atoi(strings.TrimSuffix(fields[0], "+"))
	if err != nil {
		return 0
	}
	return years
}

func seniorityForYears(years int) string {
	switch {
	case years <= 2:
		return "Junior"
	case years <= 5:
		return "Mid"
	default:
		return "Senior"
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
