// Package trajectory parses GPS logger trajectory files (.plt).
//
// A file starts with a fixed-size header followed by one comma separated row
// per fix:
//
//	lat,lon,0,altitude_ft,date_days,yyyy-mm-dd,hh:mm:ss
package trajectory

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/geolife-loader/internal/models"
)

// Outcome classifies what happened to one trajectory file
type Outcome int

const (
	// Included means the points are usable
	Included Outcome = iota
	// SkippedOverCap means the file has more rows than the point cap and was dropped
	SkippedOverCap
	// Rejected means the file (or its label file) could not be parsed
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Included:
		return "included"
	case SkippedOverCap:
		return "skipped_over_cap"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var (
	// ErrMalformedRow is returned for rows with the wrong shape or unparseable values
	ErrMalformedRow = errors.New("malformed trajectory row")
	// ErrNoPoints is returned for files without data rows
	ErrNoPoints = errors.New("trajectory has no points")
	// ErrOutOfOrder is returned when the last fix is older than the first
	ErrOutOfOrder = errors.New("trajectory ends before it starts")
)

// TimestampLayout is the layout of the date and time columns joined by a space
const TimestampLayout = "2006-01-02 15:04:05"

const fieldCount = 7

// Options controls how files are read
type Options struct {
	MaxPoints   int // files with more rows are skipped
	HeaderLines int // lines skipped before the first row
}

// DefaultOptions returns the logger's header size and the standard point cap
func DefaultOptions() Options {
	return Options{MaxPoints: 2500, HeaderLines: 6}
}

// Result is the parsed content of one file
type Result struct {
	Path    string
	Outcome Outcome
	Points  []models.Point
	Err     error
}

// ReadFile reads one trajectory file.
// Only I/O failures are returned as error; parse problems are reported through
// Result.Outcome and Result.Err.
func ReadFile(path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open trajectory %s: %w", path, err)
	}
	defer f.Close()

	lines, err := readDataLines(bufio.NewScanner(f), opts.HeaderLines)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read trajectory %s: %w", path, err)
	}

	result := Result{Path: path}

	// Oversized files are dropped before any parsing
	if opts.MaxPoints > 0 && len(lines) > opts.MaxPoints {
		result.Outcome = SkippedOverCap
		return result, nil
	}

	if len(lines) == 0 {
		result.Outcome = Rejected
		result.Err = fmt.Errorf("%s: %w", path, ErrNoPoints)
		return result, nil
	}

	points := make([]models.Point, 0, len(lines))
	for _, l := range lines {
		p, err := parseRow(l.text)
		if err != nil {
			result.Outcome = Rejected
			result.Err = fmt.Errorf("%s:%d: %w", path, l.number, err)
			return result, nil
		}
		points = append(points, p)
	}

	first, last := points[0].Timestamp, points[len(points)-1].Timestamp
	if last.Before(first) {
		result.Outcome = Rejected
		result.Err = fmt.Errorf("%s: %w: %s < %s", path, ErrOutOfOrder,
			last.Format(TimestampLayout), first.Format(TimestampLayout))
		return result, nil
	}

	result.Outcome = Included
	result.Points = points
	return result, nil
}

type dataLine struct {
	number int
	text   string
}

func readDataLines(scanner *bufio.Scanner, headerLines int) ([]dataLine, error) {
	var lines []dataLine
	n := 0
	for scanner.Scan() {
		n++
		if n <= headerLines {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		lines = append(lines, dataLine{number: n, text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// parseRow parses one data row into a Point
func parseRow(row string) (models.Point, error) {
	fields := strings.Split(row, ",")
	if len(fields) != fieldCount {
		return models.Point{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRow, fieldCount, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return models.Point{}, fmt.Errorf("%w: latitude %q", ErrMalformedRow, fields[0])
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return models.Point{}, fmt.Errorf("%w: longitude %q", ErrMalformedRow, fields[1])
	}
	alt, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return models.Point{}, fmt.Errorf("%w: altitude %q", ErrMalformedRow, fields[3])
	}
	days, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return models.Point{}, fmt.Errorf("%w: date_days %q", ErrMalformedRow, fields[4])
	}
	ts, err := time.ParseInLocation(TimestampLayout, fields[5]+" "+fields[6], time.UTC)
	if err != nil {
		return models.Point{}, fmt.Errorf("%w: timestamp %q %q", ErrMalformedRow, fields[5], fields[6])
	}

	return models.Point{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  models.NormalizeAltitude(alt),
		DateDays:  days,
		Timestamp: ts,
	}, nil
}
