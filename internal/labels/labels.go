// Package labels reads per-user transportation mode annotations and matches
// them against trajectories.
package labels

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jengzang/geolife-loader/internal/models"
)

// ErrMalformedRow is returned when a label row cannot be parsed
var ErrMalformedRow = errors.New("malformed label row")

// Header names of the three required columns
const (
	ColumnStart = "Start Time"
	ColumnEnd   = "End Time"
	ColumnMode  = "Transportation Mode"
)

var timeLayouts = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
}

// ParseFile reads a labels.txt file.
// A missing file yields no labels and no error.
func ParseFile(path string) ([]models.Label, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open labels %s: %w", path, err)
	}
	defer f.Close()

	labels, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}

// Parse reads tab separated labels with a header row.
// Columns are located by header name, so their order does not matter.
func Parse(r io.Reader) ([]models.Label, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}

	startIdx, endIdx, modeIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColumnStart:
			startIdx = i
		case ColumnEnd:
			endIdx = i
		case ColumnMode:
			modeIdx = i
		}
	}
	if startIdx < 0 || endIdx < 0 || modeIdx < 0 {
		return nil, fmt.Errorf("%w: header %q is missing a required column", ErrMalformedRow, header)
	}
	width := max(startIdx, endIdx, modeIdx) + 1

	var labels []models.Label
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < width {
			return nil, fmt.Errorf("line %d: %w: expected %d fields, got %d", line, ErrMalformedRow, width, len(record))
		}

		start, err := parseTime(record[startIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: start %q", line, ErrMalformedRow, record[startIdx])
		}
		end, err := parseTime(record[endIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: end %q", line, ErrMalformedRow, record[endIdx])
		}
		mode := strings.TrimSpace(record[modeIdx])
		if mode == "" {
			return nil, fmt.Errorf("line %d: %w: empty mode", line, ErrMalformedRow)
		}

		labels = append(labels, models.Label{StartTime: start, EndTime: end, Mode: mode})
	}

	return labels, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Match returns the modes of all labels whose interval matches the trajectory
// endpoints, in label file order. With a zero tolerance both endpoints must be
// equal; otherwise each may differ by at most tolerance.
func Match(labels []models.Label, first, last time.Time, tolerance time.Duration) []string {
	var modes []string
	for _, l := range labels {
		if within(l.StartTime, first, tolerance) && within(l.EndTime, last, tolerance) {
			modes = append(modes, l.Mode)
		}
	}
	return modes
}

func within(a, b time.Time, tolerance time.Duration) bool {
	if tolerance == 0 {
		return a.Equal(b)
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
