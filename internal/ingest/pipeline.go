// Package ingest turns a Geolife style directory tree into users, activities
// and trackpoints ready to be loaded into a store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/geolife-loader/internal/labels"
	"github.com/jengzang/geolife-loader/internal/logging"
	"github.com/jengzang/geolife-loader/internal/trajectory"
)

// Layout of the source tree below the data directory
const (
	UsersDir      = "Data"
	TrajectoryDir = "Trajectory"
	LabelsFile    = "labels.txt"
	TrajectoryExt = ".plt"
)

// Options configures one ingestion run
type Options struct {
	DataDir        string
	LabeledIDsFile string // relative to DataDir unless absolute
	Trajectory     trajectory.Options
	LabelTolerance time.Duration
	Strict         bool // abort on the first rejected file
}

// FileResult records what happened to one trajectory file
type FileResult struct {
	UserID     string
	Path       string
	Outcome    trajectory.Outcome
	Points     int
	Activities int
	Err        error
}

// Summary describes one ingestion run
type Summary struct {
	Users       int
	Activities  int
	Trackpoints int
	Included    int
	Skipped     int
	Rejected    int
	Files       []FileResult // skipped and rejected files only
	Duration    time.Duration
}

// Failures returns the rejected files
func (s *Summary) Failures() []FileResult {
	var out []FileResult
	for _, f := range s.Files {
		if f.Outcome == trajectory.Rejected {
			out = append(out, f)
		}
	}
	return out
}

func (s *Summary) record(r FileResult) {
	switch r.Outcome {
	case trajectory.Included:
		s.Included++
		return
	case trajectory.SkippedOverCap:
		s.Skipped++
	case trajectory.Rejected:
		s.Rejected++
	}
	s.Files = append(s.Files, r)
}

// Pipeline scans the source tree and builds a Dataset
type Pipeline struct {
	opts    Options
	builder *Builder
	log     zerolog.Logger
}

// NewPipeline creates a pipeline for the given options
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		opts:    opts,
		builder: NewBuilder(),
		log:     logging.With().Str("component", "ingest").Logger(),
	}
}

// Run ingests the whole tree. The activity id sequence is reset first, so two
// runs over unchanged input produce identical datasets.
func (p *Pipeline) Run(ctx context.Context) (*Dataset, *Summary, error) {
	started := time.Now()
	p.builder.Reset()

	userIDs, err := ListUsers(filepath.Join(p.opts.DataDir, UsersDir))
	if err != nil {
		return nil, nil, err
	}

	manifest := p.opts.LabeledIDsFile
	if manifest != "" && !filepath.IsAbs(manifest) {
		manifest = filepath.Join(p.opts.DataDir, manifest)
	}
	labeled := map[string]bool{}
	if manifest != "" {
		var found bool
		labeled, found, err = ReadLabeledIDs(manifest)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			p.log.Warn().Str("path", manifest).Msg("Labeled ids manifest not found, no user has labels")
		}
	}

	p.log.Info().Int("users", len(userIDs)).Int("labeled", len(labeled)).Msg("Starting ingestion")

	ds := &Dataset{}
	summary := &Summary{}
	for _, uid := range userIDs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := p.ingestUser(uid, ds, summary); err != nil {
			return nil, nil, err
		}
	}

	ds.AssignTrackpointIDs()
	ds.Users = AggregateUsers(userIDs, labeled, ds.Activities)

	summary.Users = len(ds.Users)
	summary.Activities = len(ds.Activities)
	summary.Trackpoints = len(ds.Trackpoints)
	summary.Duration = time.Since(started)

	p.log.Info().
		Int("users", summary.Users).
		Int("activities", summary.Activities).
		Int("trackpoints", summary.Trackpoints).
		Int("skipped", summary.Skipped).
		Int("rejected", summary.Rejected).
		Dur("elapsed", summary.Duration).
		Msg("Ingestion finished")

	return ds, summary, nil
}

func (p *Pipeline) ingestUser(uid string, ds *Dataset, summary *Summary) error {
	userDir := filepath.Join(p.opts.DataDir, UsersDir, uid)
	log := p.log.With().Str("user_id", uid).Logger()

	files, err := listTrajectories(filepath.Join(userDir, TrajectoryDir))
	if err != nil {
		return err
	}

	userLabels, labelErr := labels.ParseFile(filepath.Join(userDir, LabelsFile))
	if labelErr != nil {
		// no record may carry a mode guessed from an unreadable label file
		log.Error().Err(labelErr).Int("files", len(files)).Msg("Label file rejected, skipping all trajectories of user")
		for _, path := range files {
			r := FileResult{UserID: uid, Path: path, Outcome: trajectory.Rejected, Err: labelErr}
			summary.record(r)
			if p.opts.Strict {
				return fmt.Errorf("user %s: %w", uid, labelErr)
			}
		}
		return nil
	}

	for _, path := range files {
		res, err := trajectory.ReadFile(path, p.opts.Trajectory)
		if err != nil {
			res = trajectory.Result{Path: path, Outcome: trajectory.Rejected, Err: err}
		}

		r := FileResult{UserID: uid, Path: path, Outcome: res.Outcome, Points: len(res.Points), Err: res.Err}
		switch res.Outcome {
		case trajectory.SkippedOverCap:
			log.Debug().Str("file", filepath.Base(path)).Int("max_points", p.opts.Trajectory.MaxPoints).Msg("Trajectory over point cap, skipped")
		case trajectory.Rejected:
			log.Error().Err(res.Err).Str("file", filepath.Base(path)).Msg("Trajectory rejected")
			if p.opts.Strict {
				summary.record(r)
				return fmt.Errorf("user %s: %w", uid, res.Err)
			}
		case trajectory.Included:
			first := res.Points[0].Timestamp
			last := res.Points[len(res.Points)-1].Timestamp
			modes := labels.Match(userLabels, first, last, p.opts.LabelTolerance)

			activities, trackpoints := p.builder.Build(uid, res.Points, modes)
			ds.Activities = append(ds.Activities, activities...)
			ds.Trackpoints = append(ds.Trackpoints, trackpoints...)
			r.Activities = len(activities)
		}
		summary.record(r)
	}

	log.Debug().Int("files", len(files)).Int("labels", len(userLabels)).Msg("User ingested")
	return nil
}

// ListUsers returns the user directory names in ascending order.
// Dot-prefixed entries and plain files are ignored.
func ListUsers(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list users in %s: %w", dir, err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// listTrajectories returns the .plt files of one user in ascending name order.
// A user without a trajectory directory has no files.
func listTrajectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list trajectories in %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), TrajectoryExt) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

