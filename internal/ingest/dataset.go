package ingest

import (
	"errors"
	"fmt"

	"github.com/jengzang/geolife-loader/internal/models"
)

// ErrInconsistent is returned by Validate when the three record sets disagree
var ErrInconsistent = errors.New("inconsistent dataset")

// Dataset is the complete output of one ingestion run
type Dataset struct {
	Users       []models.User
	Activities  []models.Activity
	Trackpoints []models.Trackpoint
}

// AssignTrackpointIDs numbers trackpoints 0..n-1 in their final flattened order
func (d *Dataset) AssignTrackpointIDs() {
	for i := range d.Trackpoints {
		d.Trackpoints[i].ID = int64(i)
	}
}

// Validate checks the referential invariants between users, activities and trackpoints
func (d *Dataset) Validate() error {
	activities := make(map[int64]models.Activity, len(d.Activities))
	for _, a := range d.Activities {
		if _, dup := activities[a.ID]; dup {
			return fmt.Errorf("%w: duplicate activity id %d", ErrInconsistent, a.ID)
		}
		if a.EndDateTime.Before(a.StartDateTime) {
			return fmt.Errorf("%w: activity %d ends before it starts", ErrInconsistent, a.ID)
		}
		activities[a.ID] = a
	}

	pointsPerActivity := make(map[int64]int, len(d.Activities))
	seenPoints := make(map[int64]struct{}, len(d.Trackpoints))
	for _, tp := range d.Trackpoints {
		if _, dup := seenPoints[tp.ID]; dup {
			return fmt.Errorf("%w: duplicate trackpoint id %d", ErrInconsistent, tp.ID)
		}
		seenPoints[tp.ID] = struct{}{}
		if _, ok := activities[tp.ActivityID]; !ok {
			return fmt.Errorf("%w: trackpoint %d references unknown activity %d", ErrInconsistent, tp.ID, tp.ActivityID)
		}
		pointsPerActivity[tp.ActivityID]++
	}

	owner := make(map[int64]string, len(d.Activities))
	seenUsers := make(map[string]struct{}, len(d.Users))
	for _, u := range d.Users {
		if _, dup := seenUsers[u.ID]; dup {
			return fmt.Errorf("%w: duplicate user id %q", ErrInconsistent, u.ID)
		}
		seenUsers[u.ID] = struct{}{}
		if u.ActivityIDs == nil {
			return fmt.Errorf("%w: user %q has a nil activity id set", ErrInconsistent, u.ID)
		}
		for i, id := range u.ActivityIDs {
			if i > 0 && id <= u.ActivityIDs[i-1] {
				return fmt.Errorf("%w: user %q activity ids are not a strictly ascending set", ErrInconsistent, u.ID)
			}
			a, ok := activities[id]
			if !ok {
				return fmt.Errorf("%w: user %q references unknown activity %d", ErrInconsistent, u.ID, id)
			}
			if a.UserID != u.ID {
				return fmt.Errorf("%w: activity %d belongs to %q but is listed by %q", ErrInconsistent, id, a.UserID, u.ID)
			}
			if prev, taken := owner[id]; taken {
				return fmt.Errorf("%w: activity %d listed by both %q and %q", ErrInconsistent, id, prev, u.ID)
			}
			owner[id] = u.ID
		}
	}

	for id, a := range activities {
		if _, ok := owner[id]; !ok {
			return fmt.Errorf("%w: activity %d of user %q is not listed by any user", ErrInconsistent, id, a.UserID)
		}
		if pointsPerActivity[id] == 0 {
			return fmt.Errorf("%w: activity %d has no trackpoints", ErrInconsistent, id)
		}
	}

	return nil
}

// FilterUser returns the subset of the dataset owned by one user.
// Ids are kept as assigned over the whole run.
func (d *Dataset) FilterUser(userID string) *Dataset {
	out := &Dataset{}
	keep := make(map[int64]bool)
	for _, u := range d.Users {
		if u.ID != userID {
			continue
		}
		out.Users = append(out.Users, u)
		for _, id := range u.ActivityIDs {
			keep[id] = true
		}
	}
	for _, a := range d.Activities {
		if keep[a.ID] {
			out.Activities = append(out.Activities, a)
		}
	}
	for _, tp := range d.Trackpoints {
		if keep[tp.ActivityID] {
			out.Trackpoints = append(out.Trackpoints, tp)
		}
	}
	return out
}

// PointsByActivity groups trackpoints by activity id, keeping their order
func (d *Dataset) PointsByActivity() map[int64][]models.Trackpoint {
	grouped := make(map[int64][]models.Trackpoint, len(d.Activities))
	for _, tp := range d.Trackpoints {
		grouped[tp.ActivityID] = append(grouped[tp.ActivityID], tp)
	}
	return grouped
}
