// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// =============================================================================
// Dataset Loading
// =============================================================================

// DatasetRow is one record of the disease-symptom dataset: a disease name
// plus the symptoms observed for it in that record. Blank symptom cells are
// dropped during loading.
type DatasetRow struct {
	Disease  string
	Symptoms []string
}

// LoadCSV reads a disease-symptom dataset from a CSV file.
//
// # Description
//
// The expected header is "Disease" followed by any number of columns whose
// names start with "Symptom_" (Symptom_1, Symptom_2, ...). Column order is
// taken from the header, not assumed. Rows with an empty disease cell are
// skipped. Empty or whitespace-only symptom cells are dropped per row.
//
// # Inputs
//
//   - path: Filesystem path to the CSV file.
//
// # Outputs
//
//   - []DatasetRow: Parsed rows in file order. Never nil on success.
//   - error: Non-nil on open, read, or header-shape failure.
func LoadCSV(path string) ([]DatasetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV parses dataset rows from an io.Reader.
//
// Split out from LoadCSV so tests and the HTTP upload path can feed data
// without touching the filesystem.
func ReadCSV(r io.Reader) ([]DatasetRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // symptom column count varies across datasets
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	diseaseCol := -1
	symptomCols := make([]int, 0, len(header))
	for i, col := range header {
		name := strings.TrimSpace(col)
		switch {
		case strings.EqualFold(name, "Disease"):
			diseaseCol = i
		case strings.HasPrefix(name, "Symptom_"):
			symptomCols = append(symptomCols, i)
		}
	}
	if diseaseCol < 0 {
		return nil, fmt.Errorf("header missing Disease column (got %v)", header)
	}
	if len(symptomCols) == 0 {
		return nil, fmt.Errorf("header has no Symptom_ columns (got %v)", header)
	}

	var rows []DatasetRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		if diseaseCol >= len(record) {
			continue
		}
		disease := strings.TrimSpace(record[diseaseCol])
		if disease == "" {
			continue
		}

		row := DatasetRow{Disease: disease}
		for _, c := range symptomCols {
			if c >= len(record) {
				continue
			}
			symptom := strings.TrimSpace(record[c])
			if symptom == "" {
				continue
			}
			row.Symptoms = append(row.Symptoms, symptom)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
