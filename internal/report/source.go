package report

import (
	"context"
	"time"

	"github.com/jengzang/geolife-loader/internal/models"
)

// Source is a loaded store the reports can query.
// Results that list users are ordered deterministically (by count descending
// then user id, or by user id alone).
type Source interface {
	// Counts returns the number of documents per collection
	Counts(ctx context.Context) (models.CollectionCounts, error)
	// ActivitiesPerUser summarizes the sizes of the user activity id sets, users without activities included
	ActivitiesPerUser(ctx context.Context) (models.ActivitiesPerUser, error)
	// TopUsersByActivities returns the limit users with the most activities
	TopUsersByActivities(ctx context.Context, limit int) ([]models.UserCount, error)
	// MultiDayUsers returns the users with an activity ending on a later calendar day than it started
	MultiDayUsers(ctx context.Context) ([]string, error)
	// DuplicateActivities groups activities of one user that share start and end
	DuplicateActivities(ctx context.Context) ([]models.DuplicateActivityGroup, error)
	// ClusterPoints returns every trackpoint together with its owning user
	ClusterPoints(ctx context.Context) ([]models.ClusterPoint, error)
	// UsersWithoutMode returns the users that never recorded an activity with the mode
	UsersWithoutMode(ctx context.Context, mode string) ([]string, error)
	// UsersPerMode counts distinct users per transportation mode, missing modes excluded
	UsersPerMode(ctx context.Context) ([]models.ModeUserCount, error)
	// ActivitySpans returns every activity joined with its owning user
	ActivitySpans(ctx context.Context) ([]models.ActivitySpan, error)
	// RoutePoints returns the trackpoints recorded in year by the user's activities
	// with the mode, ordered by activity id then trackpoint id
	RoutePoints(ctx context.Context, userID, mode string, year int) ([]models.RoutePoint, error)
	// AltitudeGain returns the limit users with the largest total climb, in meters
	AltitudeGain(ctx context.Context, limit int) ([]models.UserAltitudeGain, error)
	// InvalidActivities counts per user the activities with two consecutive
	// trackpoints more than gap apart
	InvalidActivities(ctx context.Context, gap time.Duration) ([]models.UserCount, error)
}
