package ingest

import (
	"github.com/jengzang/geolife-loader/internal/models"
)

// Builder turns parsed trajectories into activities and tagged trackpoints
type Builder struct {
	seq Sequence
}

// NewBuilder creates a builder with a fresh id sequence
func NewBuilder() *Builder {
	return &Builder{}
}

// Reset restarts activity id assignment at zero
func (b *Builder) Reset() {
	b.seq.Reset()
}

// Issued returns how many activity ids have been handed out since the last reset
func (b *Builder) Issued() int64 {
	return b.seq.Peek()
}

// Build creates the activities for one trajectory.
//
// With no matching modes exactly one activity without a mode is created.
// Otherwise one activity per mode is created, in the given order, and the
// trajectory's points are duplicated for each of them. Points must not be
// empty. Trackpoint ids are left at zero.
func (b *Builder) Build(userID string, points []models.Point, modes []string) ([]models.Activity, []models.Trackpoint) {
	if len(points) == 0 {
		return nil, nil
	}

	start := points[0].Timestamp
	end := points[len(points)-1].Timestamp

	// nil stands for "no label matched"
	var tags []*string
	if len(modes) == 0 {
		tags = []*string{nil}
	} else {
		tags = make([]*string, len(modes))
		for i := range modes {
			m := modes[i]
			tags[i] = &m
		}
	}

	activities := make([]models.Activity, 0, len(tags))
	trackpoints := make([]models.Trackpoint, 0, len(tags)*len(points))
	for _, mode := range tags {
		id := b.seq.Next()
		activities = append(activities, models.Activity{
			ID:                 id,
			UserID:             userID,
			StartDateTime:      start,
			EndDateTime:        end,
			TransportationMode: mode,
		})
		for _, p := range points {
			trackpoints = append(trackpoints, models.NewTrackpoint(id, p))
		}
	}

	return activities, trackpoints
}
