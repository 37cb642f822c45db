package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const pltHeader = "Geolife trajectory\nWGS 84\nAltitude is in Feet\nReserved 3\n0,2,255,My Track,0,0,2,8421376\n0\n"

const labelsHeader = "Start Time\tEnd Time\tTransportation Mode\n"

// tree builds a source tree under a temp dir
type tree struct {
	t    *testing.T
	root string
}

func newTree(t *testing.T) *tree {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, UsersDir), 0o755); err != nil {
		t.Fatal(err)
	}
	return &tree{t: t, root: root}
}

func (tr *tree) write(rel, content string) {
	tr.t.Helper()
	path := filepath.Join(tr.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tr.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		tr.t.Fatal(err)
	}
}

func (tr *tree) user(uid string) {
	tr.t.Helper()
	if err := os.MkdirAll(filepath.Join(tr.root, UsersDir, uid, TrajectoryDir), 0o755); err != nil {
		tr.t.Fatal(err)
	}
}

// trajectory writes n one-second-apart points starting at 2008-10-23 02:53:00
func (tr *tree) trajectory(uid, name string, n int) {
	tr.t.Helper()
	var b strings.Builder
	b.WriteString(pltHeader)
	for i := 0; i < n; i++ {
		alt := "100"
		if i == 1 {
			alt = "-777"
		}
		fmt.Fprintf(&b, "39.9%02d,116.3,0,%s,39744.12,2008-10-23,02:53:%02d\n", i%100, alt, i%60)
	}
	tr.write(filepath.Join(UsersDir, uid, TrajectoryDir, name), b.String())
}

func (tr *tree) labels(uid string, rows ...string) {
	tr.t.Helper()
	tr.write(filepath.Join(UsersDir, uid, LabelsFile), labelsHeader+strings.Join(rows, "\n")+"\n")
}

func (tr *tree) manifest(ids ...string) {
	tr.t.Helper()
	tr.write("labeled_ids.txt", strings.Join(ids, "\n")+"\n")
}

func (tr *tree) options() Options {
	return Options{
		DataDir:        tr.root,
		LabeledIDsFile: "labeled_ids.txt",
		Trajectory:     trajectoryOptions(),
	}
}
