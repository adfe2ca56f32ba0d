package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/careline/internal/domain"
)

// loadCSV reads the directory dataset. The first record is a header row;
// columns are matched by name, case-insensitively, so "HOSPITAL NAME" and
// "hospital_name" both resolve.
func loadCSV(path string) ([]domain.Hospital, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	nameIdx, cityIdx, addrIdx := -1, -1, -1
	for i, col := range header {
		switch normalizeHeader(col) {
		case "hospital name", "name":
			nameIdx = i
		case "city":
			cityIdx = i
		case "address":
			addrIdx = i
		}
	}
	if nameIdx < 0 || cityIdx < 0 || addrIdx < 0 {
		return nil, fmt.Errorf("missing required columns in header %v", header)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	out := make([]domain.Hospital, 0, len(records))
	for _, rec := range records {
		if len(rec) <= nameIdx || len(rec) <= cityIdx || len(rec) <= addrIdx {
			continue
		}
		h := domain.Hospital{
			Name:    strings.TrimSpace(rec[nameIdx]),
			City:    strings.TrimSpace(rec[cityIdx]),
			Address: strings.TrimSpace(rec[addrIdx]),
		}
		if h.Name == "" {
			continue
		}
		out = append(out, h)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable rows in %s", path)
	}
	return out, nil
}

func normalizeHeader(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	return strings.ReplaceAll(col, "_", " ")
}
