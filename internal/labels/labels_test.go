package labels

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jengzang/geolife-loader/internal/models"
)

func TestParse(t *testing.T) {
	input := "Start Time\tEnd Time\tTransportation Mode\n" +
		"2007/06/26 11:32:29\t2007/06/26 11:40:29\tbus\n" +
		"2008-03-28 14:52:54\t2008-03-28 15:59:59\ttrain\n"

	got, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []models.Label{
		{
			StartTime: time.Date(2007, 6, 26, 11, 32, 29, 0, time.UTC),
			EndTime:   time.Date(2007, 6, 26, 11, 40, 29, 0, time.UTC),
			Mode:      "bus",
		},
		{
			StartTime: time.Date(2008, 3, 28, 14, 52, 54, 0, time.UTC),
			EndTime:   time.Date(2008, 3, 28, 15, 59, 59, 0, time.UTC),
			Mode:      "train",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParseColumnOrder(t *testing.T) {
	input := "Transportation Mode\tStart Time\tEnd Time\n" +
		"walk\t2007/06/26 11:32:29\t2007/06/26 11:40:29\n"
	got, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(got) != 1 || got[0].Mode != "walk" {
		t.Errorf("Parse() = %+v", got)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing column", "Start Time\tEnd Time\n2007/06/26 11:32:29\t2007/06/26 11:40:29\n"},
		{"bad start", "Start Time\tEnd Time\tTransportation Mode\nyesterday\t2007/06/26 11:40:29\tbus\n"},
		{"short row", "Start Time\tEnd Time\tTransportation Mode\n2007/06/26 11:32:29\tbus\n"},
		{"empty mode", "Start Time\tEnd Time\tTransportation Mode\n2007/06/26 11:32:29\t2007/06/26 11:40:29\t \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformedRow) {
				t.Errorf("Parse() error = %v, want ErrMalformedRow", err)
			}
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	got, err := ParseFile(filepath.Join(t.TempDir(), "labels.txt"))
	if err != nil || got != nil {
		t.Errorf("ParseFile(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	content := "Start Time\tEnd Time\tTransportation Mode\n2007/06/26 11:32:29\t2007/06/26 11:40:29\tbus\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := ParseFile(path)
	if err != nil || len(got) != 1 {
		t.Fatalf("ParseFile() = %v, %v", got, err)
	}
}

func TestMatch(t *testing.T) {
	start := time.Date(2008, 10, 23, 2, 53, 4, 0, time.UTC)
	end := start.Add(10 * time.Minute)
	lbls := []models.Label{
		{StartTime: start, EndTime: end, Mode: "walk"},
		{StartTime: start, EndTime: end.Add(time.Second), Mode: "car"},
		{StartTime: start, EndTime: end, Mode: "bus"},
		{StartTime: start.Add(-time.Hour), EndTime: end, Mode: "train"},
	}

	tests := []struct {
		name      string
		tolerance time.Duration
		want      []string
	}{
		{"exact", 0, []string{"walk", "bus"}},
		{"tolerant", 2 * time.Second, []string{"walk", "car", "bus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(lbls, start, end, tt.tolerance)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := Match(lbls, end, end, 0); got != nil {
		t.Errorf("Match() with no overlap = %v, want nil", got)
	}
}
