package ingest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jengzang/geolife-loader/internal/labels"
	"github.com/jengzang/geolife-loader/internal/trajectory"
)

func trajectoryOptions() trajectory.Options {
	return trajectory.DefaultOptions()
}

func run(t *testing.T, opts Options) (*Dataset, *Summary) {
	t.Helper()
	ds, summary, err := NewPipeline(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := ds.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	return ds, summary
}

func TestRunUnlabeledTrajectory(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.trajectory("001", "a.plt", 3)
	tr.manifest()

	ds, summary := run(t, tr.options())

	if len(ds.Users) != 1 {
		t.Fatalf("got %d users, want 1", len(ds.Users))
	}
	u := ds.Users[0]
	if u.ID != "001" || u.HasLabels || !reflect.DeepEqual(u.ActivityIDs, []int64{0}) {
		t.Errorf("user = %+v", u)
	}
	if len(ds.Activities) != 1 || ds.Activities[0].ID != 0 || ds.Activities[0].TransportationMode != nil {
		t.Fatalf("activities = %+v", ds.Activities)
	}
	if len(ds.Trackpoints) != 3 {
		t.Fatalf("got %d trackpoints, want 3", len(ds.Trackpoints))
	}
	for i, tp := range ds.Trackpoints {
		if tp.ActivityID != 0 || tp.ID != int64(i) {
			t.Errorf("trackpoint %d = %+v", i, tp)
		}
	}
	if ds.Trackpoints[1].Altitude != nil {
		t.Error("altitude -777 should be stored as missing")
	}
	if summary.Included != 1 || summary.Skipped != 0 || summary.Rejected != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunLabelSplit(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.trajectory("001", "a.plt", 3)
	tr.labels("001",
		"2008/10/23 02:53:00\t2008/10/23 02:53:02\twalk",
		"2008/10/23 02:53:00\t2008/10/23 02:53:02\tbus",
		"2008/10/23 02:53:00\t2008/10/23 02:59:00\ttaxi",
	)
	tr.manifest("001")

	ds, _ := run(t, tr.options())

	if len(ds.Activities) != 2 {
		t.Fatalf("got %d activities, want 2", len(ds.Activities))
	}
	if ds.Activities[0].Mode() != "walk" || ds.Activities[1].Mode() != "bus" {
		t.Errorf("modes = %q, %q", ds.Activities[0].Mode(), ds.Activities[1].Mode())
	}
	if len(ds.Trackpoints) != 6 {
		t.Fatalf("got %d trackpoints, want 6", len(ds.Trackpoints))
	}
	for i, tp := range ds.Trackpoints {
		want := int64(i / 3)
		if tp.ActivityID != want {
			t.Errorf("trackpoint %d activity = %d, want %d", i, tp.ActivityID, want)
		}
	}
	u := ds.Users[0]
	if !u.HasLabels || !reflect.DeepEqual(u.ActivityIDs, []int64{0, 1}) {
		t.Errorf("user = %+v", u)
	}
}

func TestRunOrderingAndUsersWithoutActivities(t *testing.T) {
	tr := newTree(t)
	tr.user("010")
	tr.user("002")
	tr.user(".DS_Store")
	tr.write(UsersDir+"/README", "not a user")
	tr.trajectory("010", "b.plt", 2)
	tr.trajectory("010", "a.plt", 2)
	tr.manifest("002")

	ds, _ := run(t, tr.options())

	if len(ds.Users) != 2 || ds.Users[0].ID != "002" || ds.Users[1].ID != "010" {
		t.Fatalf("users = %+v", ds.Users)
	}
	if ds.Users[0].ActivityIDs == nil || len(ds.Users[0].ActivityIDs) != 0 {
		t.Errorf("user 002 activity ids = %#v, want empty set", ds.Users[0].ActivityIDs)
	}
	if !ds.Users[0].HasLabels {
		t.Error("has_labels comes from the manifest even without label matches")
	}
	if !reflect.DeepEqual(ds.Users[1].ActivityIDs, []int64{0, 1}) {
		t.Errorf("user 010 activity ids = %v", ds.Users[1].ActivityIDs)
	}
}

func TestRunCapAndRejections(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.trajectory("001", "big.plt", 2501)
	tr.trajectory("001", "ok.plt", 2)
	tr.write(UsersDir+"/001/"+TrajectoryDir+"/bad.plt", pltHeader+"39.9,116.3,0,100\n")
	tr.manifest()

	ds, summary := run(t, tr.options())

	if len(ds.Activities) != 1 || len(ds.Trackpoints) != 2 {
		t.Fatalf("activities = %d, trackpoints = %d", len(ds.Activities), len(ds.Trackpoints))
	}
	if summary.Included != 1 || summary.Skipped != 1 || summary.Rejected != 1 {
		t.Errorf("summary = %+v", summary)
	}
	failures := summary.Failures()
	if len(failures) != 1 || !errors.Is(failures[0].Err, trajectory.ErrMalformedRow) {
		t.Errorf("failures = %+v", failures)
	}
}

func TestRunBackwardsFileStaysLocal(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.trajectory("001", "a.plt", 3)
	tr.write(UsersDir+"/001/"+TrajectoryDir+"/b.plt", pltHeader+
		"39.9,116.3,0,100,39744.12,2008-10-23,02:53:05\n"+
		"39.9,116.3,0,100,39744.12,2008-10-23,02:53:01\n")
	tr.trajectory("001", "c.plt", 2)
	tr.manifest()

	ds, summary := run(t, tr.options())

	if summary.Included != 2 || summary.Rejected != 1 {
		t.Errorf("summary = %+v", summary)
	}
	failures := summary.Failures()
	if len(failures) != 1 || !errors.Is(failures[0].Err, trajectory.ErrOutOfOrder) {
		t.Errorf("failures = %+v", failures)
	}
	if len(ds.Activities) != 2 || len(ds.Trackpoints) != 5 {
		t.Fatalf("activities = %d, trackpoints = %d", len(ds.Activities), len(ds.Trackpoints))
	}
	if !reflect.DeepEqual(ds.Users[0].ActivityIDs, []int64{0, 1}) {
		t.Errorf("activity ids = %v", ds.Users[0].ActivityIDs)
	}
}

func TestRunMalformedLabelsRejectsUser(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.user("002")
	tr.trajectory("001", "a.plt", 3)
	tr.trajectory("001", "b.plt", 3)
	tr.trajectory("002", "a.plt", 3)
	tr.labels("001", "not a time\t2008/10/23 02:53:02\twalk")
	tr.manifest("001")

	ds, summary := run(t, tr.options())

	if summary.Rejected != 2 {
		t.Errorf("rejected = %d, want 2", summary.Rejected)
	}
	for _, f := range summary.Failures() {
		if !errors.Is(f.Err, labels.ErrMalformedRow) {
			t.Errorf("failure cause = %v", f.Err)
		}
	}
	if len(ds.Users) != 2 || len(ds.Users[0].ActivityIDs) != 0 {
		t.Errorf("user 001 should exist without activities: %+v", ds.Users)
	}
	if len(ds.Activities) != 1 {
		t.Errorf("got %d activities, want 1 from user 002", len(ds.Activities))
	}
}

func TestRunStrictAborts(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.write(UsersDir+"/001/"+TrajectoryDir+"/bad.plt", pltHeader+"garbage\n")
	tr.manifest()

	opts := tr.options()
	opts.Strict = true
	_, _, err := NewPipeline(opts).Run(context.Background())
	if !errors.Is(err, trajectory.ErrMalformedRow) {
		t.Fatalf("Run() error = %v, want ErrMalformedRow", err)
	}
}

func TestRunMissingManifest(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.trajectory("001", "a.plt", 1)

	ds, _ := run(t, tr.options())
	if ds.Users[0].HasLabels {
		t.Error("missing manifest means no user has labels")
	}
	a := ds.Activities[0]
	if !a.StartDateTime.Equal(a.EndDateTime) {
		t.Error("single point activity should start and end at the same time")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	tr.user("002")
	tr.trajectory("001", "a.plt", 3)
	tr.trajectory("002", "a.plt", 4)
	tr.trajectory("002", "b.plt", 2)
	tr.labels("002", "2008/10/23 02:53:00\t2008/10/23 02:53:03\tcar")
	tr.manifest("002")

	p := NewPipeline(tr.options())
	first, _, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same tree should produce identical datasets")
	}
}

func TestRunMissingDataDir(t *testing.T) {
	_, _, err := NewPipeline(Options{DataDir: t.TempDir()}).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when Data directory is missing")
	}
}

func TestRunCancelled(t *testing.T) {
	tr := newTree(t)
	tr.user("001")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewPipeline(tr.options()).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}
