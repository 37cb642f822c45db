// Package report holds the fixed set of analytical reports run against a
// loaded store. Reports register themselves by name and write plain text
// tables.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jengzang/geolife-loader/internal/cluster"
	"github.com/jengzang/geolife-loader/internal/logging"
)

// Params holds the inputs of the parameterized reports
type Params struct {
	UserID           string
	Mode             string
	Year             int
	ExcludedMode     string
	TopUsers         int
	AltitudeTopUsers int
	GapThreshold     time.Duration
	Close            cluster.Options
}

// DefaultParams returns the parameters used when nothing is configured
func DefaultParams() Params {
	return Params{
		UserID:           "112",
		Mode:             "walk",
		Year:             2008,
		ExcludedMode:     "taxi",
		TopUsers:         10,
		AltitudeTopUsers: 20,
		GapThreshold:     5 * time.Minute,
		Close:            cluster.DefaultOptions(),
	}
}

// Report is the interface that all reports must implement
type Report interface {
	// GetIndex returns the position of the report in a full run
	GetIndex() int
	// GetName returns the name used to select the report
	GetName() string
	// GetDescription returns a one line summary
	GetDescription() string
	// Run queries src and writes the result to w
	Run(ctx context.Context, src Source, p Params, w io.Writer) error
}

// BaseReport provides the identity part of a Report
type BaseReport struct {
	Index       int
	Name        string
	Description string
}

// GetIndex returns the report position
func (r *BaseReport) GetIndex() int { return r.Index }

// GetName returns the report name
func (r *BaseReport) GetName() string { return r.Name }

// GetDescription returns the report summary
func (r *BaseReport) GetDescription() string { return r.Description }

// funcReport adapts a function to Report
type funcReport struct {
	*BaseReport
	run func(ctx context.Context, src Source, p Params, w io.Writer) error
}

func (r *funcReport) Run(ctx context.Context, src Source, p Params, w io.Writer) error {
	return r.run(ctx, src, p, w)
}

// Registry maps report names to reports
var Registry = make(map[string]Report)

// Register adds a report to the registry
func Register(r Report) {
	Registry[r.GetName()] = r
}

func register(index int, name, description string, run func(ctx context.Context, src Source, p Params, w io.Writer) error) {
	Register(&funcReport{
		BaseReport: &BaseReport{Index: index, Name: name, Description: description},
		run:        run,
	})
}

// Get retrieves a report by name, nil when unknown
func Get(name string) Report {
	return Registry[name]
}

// All returns every registered report ordered by index
func All() []Report {
	out := make([]Report, 0, len(Registry))
	for _, r := range Registry {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetIndex() < out[j].GetIndex() })
	return out
}

// Select resolves a comma separated list of names; "all" or an empty list
// selects every report
func Select(list string) ([]Report, error) {
	list = strings.TrimSpace(list)
	if list == "" || list == "all" {
		return All(), nil
	}
	var out []Report
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r := Get(name)
		if r == nil {
			return nil, fmt.Errorf("unknown report %q", name)
		}
		out = append(out, r)
	}
	return out, nil
}

// RunAll runs reports in order, each under a heading. It stops at the first
// failing report.
func RunAll(ctx context.Context, src Source, reports []Report, p Params, w io.Writer) error {
	log := logging.With().Str("component", "report").Logger()
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(w, "== %d. %s: %s\n", r.GetIndex(), r.GetName(), r.GetDescription())
		started := time.Now()
		if err := r.Run(ctx, src, p, w); err != nil {
			return fmt.Errorf("report %s: %w", r.GetName(), err)
		}
		fmt.Fprintln(w)
		log.Debug().Str("report", r.GetName()).Dur("elapsed", time.Since(started)).Msg("Report finished")
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
