package mongostore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jengzang/geolife-loader/internal/models"
)

// lookupOwner joins the owning user of an activity id held in localField
func lookupOwner(localField string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UserCollection},
			{Key: "localField", Value: localField},
			{Key: "foreignField", Value: "activity_id"},
			{Key: "as", Value: "owner"},
		}}},
		{{Key: "$unwind", Value: "$owner"}},
	}
}

func pipeline(stages ...any) mongo.Pipeline {
	var p mongo.Pipeline
	for _, s := range stages {
		switch v := s.(type) {
		case bson.D:
			p = append(p, v)
		case []bson.D:
			p = append(p, v...)
		}
	}
	return p
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, p mongo.Pipeline, opts ...*options.AggregateOptions) ([]T, error) {
	cur, err := coll.Aggregate(ctx, p, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type idDoc struct {
	ID string `bson:"_id"`
}

func ids(docs []idDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// Counts returns the number of documents per collection
func (s *Store) Counts(ctx context.Context) (models.CollectionCounts, error) {
	var c models.CollectionCounts
	targets := []struct {
		name string
		dst  *int64
	}{
		{UserCollection, &c.Users},
		{ActivityCollection, &c.Activities},
		{TrackpointCollection, &c.Trackpoints},
	}
	for _, t := range targets {
		n, err := s.GetCollection(t.name).CountDocuments(ctx, bson.M{})
		if err != nil {
			return c, fmt.Errorf("failed to count %s: %w", t.name, err)
		}
		*t.dst = n
	}
	return c, nil
}

// ActivitiesPerUser returns average, minimum and maximum activity set size
func (s *Store) ActivitiesPerUser(ctx context.Context) (models.ActivitiesPerUser, error) {
	size := bson.D{{Key: "$size", Value: "$activity_id"}}
	p := pipeline(
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "average", Value: bson.D{{Key: "$avg", Value: size}}},
			{Key: "minimum", Value: bson.D{{Key: "$min", Value: size}}},
			{Key: "maximum", Value: bson.D{{Key: "$max", Value: size}}},
		}}},
	)
	res, err := aggregate[models.ActivitiesPerUser](ctx, s.GetCollection(UserCollection), p)
	if err != nil {
		return models.ActivitiesPerUser{}, fmt.Errorf("failed to summarize activities per user: %w", err)
	}
	if len(res) == 0 {
		return models.ActivitiesPerUser{}, nil
	}
	return res[0], nil
}

// TopUsersByActivities returns the users with the most activities
func (s *Store) TopUsersByActivities(ctx context.Context, limit int) ([]models.UserCount, error) {
	p := pipeline(
		bson.D{{Key: "$unwind", Value: "$activity_id"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	)
	res, err := aggregate[models.UserCount](ctx, s.GetCollection(UserCollection), p)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	return res, nil
}

// MultiDayUsers returns users with an activity spanning more than one calendar day
func (s *Store) MultiDayUsers(ctx context.Context) ([]string, error) {
	p := pipeline(
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "days", Value: bson.D{{Key: "$dateDiff", Value: bson.D{
				{Key: "startDate", Value: "$start_date_time"},
				{Key: "endDate", Value: "$end_date_time"},
				{Key: "unit", Value: "day"},
			}}}},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"days": bson.M{"$gt": 0}}}},
		lookupOwner("_id"),
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$owner._id"}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)
	res, err := aggregate[idDoc](ctx, s.GetCollection(ActivityCollection), p)
	if err != nil {
		return nil, fmt.Errorf("failed to query multi-day users: %w", err)
	}
	return ids(res), nil
}

// DuplicateActivities returns groups of a user's activities sharing start and end
func (s *Store) DuplicateActivities(ctx context.Context) ([]models.DuplicateActivityGroup, error) {
	p := pipeline(
		lookupOwner("_id"),
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "user_id", Value: "$owner._id"},
				{Key: "start", Value: "$start_date_time"},
				{Key: "end", Value: "$end_date_time"},
			}},
			{Key: "activity_ids", Value: bson.D{{Key: "$push", Value: "$_id"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "user_id", Value: "$_id.user_id"},
			{Key: "start_date_time", Value: "$_id.start"},
			{Key: "end_date_time", Value: "$_id.end"},
			{Key: "activity_ids", Value: 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "user_id", Value: 1}, {Key: "start_date_time", Value: 1}}}},
	)
	res, err := aggregate[models.DuplicateActivityGroup](ctx, s.GetCollection(ActivityCollection), p)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate activities: %w", err)
	}
	for i := range res {
		slices.Sort(res[i].ActivityIDs)
		res[i].Start = res[i].Start.UTC()
		res[i].End = res[i].End.UTC()
	}
	return res, nil
}

// ownerIndex maps activity ids to their owning user
func (s *Store) ownerIndex(ctx context.Context) (map[int64]string, error) {
	cur, err := s.GetCollection(UserCollection).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"has_labels": 0}))
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}

	owners := make(map[int64]string)
	for _, u := range users {
		for _, id := range u.ActivityIDs {
			owners[id] = u.ID
		}
	}
	return owners, nil
}

// ClusterPoints returns all trackpoints joined with their user, in trackpoint id order.
// The owner join happens client side.
func (s *Store) ClusterPoints(ctx context.Context) ([]models.ClusterPoint, error) {
	owners, err := s.ownerIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity owners: %w", err)
	}

	cur, err := s.GetCollection(TrackpointCollection).Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"altitude": 0, "date_time": 0}).
			SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query trackpoints: %w", err)
	}
	defer cur.Close(ctx)

	var points []models.ClusterPoint
	for cur.Next(ctx) {
		var tp models.Trackpoint
		if err := cur.Decode(&tp); err != nil {
			return nil, fmt.Errorf("failed to decode trackpoint: %w", err)
		}
		uid, ok := owners[tp.ActivityID]
		if !ok {
			continue
		}
		points = append(points, models.ClusterPoint{
			UserID:     uid,
			ActivityID: tp.ActivityID,
			Latitude:   tp.Latitude,
			Longitude:  tp.Longitude,
			DateDays:   tp.DateDays,
		})
	}
	return points, cur.Err()
}

// UsersWithoutMode returns the users that never used the mode, users without activities included
func (s *Store) UsersWithoutMode(ctx context.Context, mode string) ([]string, error) {
	p := pipeline(
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ActivityCollection},
			{Key: "localField", Value: "activity_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "activities"},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"activities.transportation_mode": bson.M{"$ne": mode}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)
	res, err := aggregate[idDoc](ctx, s.GetCollection(UserCollection), p)
	if err != nil {
		return nil, fmt.Errorf("failed to query users without mode: %w", err)
	}
	return ids(res), nil
}

// UsersPerMode counts distinct users per transportation mode
func (s *Store) UsersPerMode(ctx context.Context) ([]models.ModeUserCount, error) {
	p := pipeline(
		bson.D{{Key: "$match", Value: bson.M{"transportation_mode": bson.M{"$ne": nil}}}},
		lookupOwner("_id"),
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$transportation_mode"},
			{Key: "owners", Value: bson.D{{Key: "$addToSet", Value: "$owner._id"}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "users", Value: bson.D{{Key: "$size", Value: "$owners"}}}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "users", Value: -1}, {Key: "_id", Value: 1}}}},
	)
	res, err := aggregate[models.ModeUserCount](ctx, s.GetCollection(ActivityCollection), p)
	if err != nil {
		return nil, fmt.Errorf("failed to query users per mode: %w", err)
	}
	return res, nil
}

// ActivitySpans returns every activity with its owning user, in activity id order
func (s *Store) ActivitySpans(ctx context.Context) ([]models.ActivitySpan, error) {
	p := pipeline(
		lookupOwner("_id"),
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "user_id", Value: "$owner._id"},
			{Key: "start_date_time", Value: 1},
			{Key: "end_date_time", Value: 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)
	res, err := aggregate[models.ActivitySpan](ctx, s.GetCollection(ActivityCollection), p)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity spans: %w", err)
	}
	for i := range res {
		res[i].Start = res[i].Start.UTC()
		res[i].End = res[i].End.UTC()
	}
	return res, nil
}

// RoutePoints returns the user's trackpoints for one mode and year.
// The user and activity lookups are application side joins.
func (s *Store) RoutePoints(ctx context.Context, userID, mode string, year int) ([]models.RoutePoint, error) {
	var user models.User
	err := s.GetCollection(UserCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	cur, err := s.GetCollection(ActivityCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": user.ActivityIDs}, "transportation_mode": mode},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	var activities []models.Activity
	if err := cur.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	if len(activities) == 0 {
		return nil, nil
	}
	activityIDs := make([]int64, len(activities))
	for i, a := range activities {
		activityIDs[i] = a.ID
	}

	p := pipeline(
		bson.D{{Key: "$match", Value: bson.M{"activity_id": bson.M{"$in": activityIDs}}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "activity_id", Value: 1},
			{Key: "lat", Value: 1},
			{Key: "lon", Value: 1},
			{Key: "year", Value: bson.D{{Key: "$year", Value: "$date_time"}}},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"year": year}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "activity_id", Value: 1}, {Key: "_id", Value: 1}}}},
	)
	res, err := aggregate[models.RoutePoint](ctx, s.GetCollection(TrackpointCollection), p)
	if err != nil {
		return nil, fmt.Errorf("failed to query route points: %w", err)
	}
	return res, nil
}

// nextValue adds next_<field>: the field of the following trackpoint of the same activity
func nextValue(field string) bson.D {
	return bson.D{{Key: "$setWindowFields", Value: bson.D{
		{Key: "partitionBy", Value: "$activity_id"},
		{Key: "sortBy", Value: bson.D{{Key: "_id", Value: 1}}},
		{Key: "output", Value: bson.D{
			{Key: "next_" + field, Value: bson.D{{Key: "$shift", Value: bson.D{
				{Key: "output", Value: "$" + field},
				{Key: "by", Value: 1},
				{Key: "default", Value: nil},
			}}}},
		}},
	}}}
}

// AltitudeGain sums the positive altitude steps between consecutive trackpoints per user
func (s *Store) AltitudeGain(ctx context.Context, limit int) ([]models.UserAltitudeGain, error) {
	p := pipeline(
		nextValue("altitude"),
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "activity_id", Value: 1},
			{Key: "diff", Value: bson.D{{Key: "$subtract", Value: bson.A{"$next_altitude", "$altitude"}}}},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"diff": bson.M{"$gt": 0}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$activity_id"},
			{Key: "gained", Value: bson.D{{Key: "$sum", Value: "$diff"}}},
		}}},
		lookupOwner("_id"),
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$owner._id"},
			{Key: "feet", Value: bson.D{{Key: "$sum", Value: "$gained"}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "meters", Value: bson.D{{Key: "$multiply", Value: bson.A{"$feet", models.FeetToMeters}}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "meters", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	)
	res, err := aggregate[models.UserAltitudeGain](ctx, s.GetCollection(TrackpointCollection), p,
		options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, fmt.Errorf("failed to query altitude gain: %w", err)
	}
	return res, nil
}

// InvalidActivities counts per user the activities containing a time gap larger than gap
func (s *Store) InvalidActivities(ctx context.Context, gap time.Duration) ([]models.UserCount, error) {
	p := pipeline(
		nextValue("date_time"),
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "activity_id", Value: 1},
			// date minus date is in milliseconds
			{Key: "diff", Value: bson.D{{Key: "$subtract", Value: bson.A{"$next_date_time", "$date_time"}}}},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"diff": bson.M{"$gt": gap.Milliseconds()}}}},
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$activity_id"}}}},
		lookupOwner("_id"),
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$owner._id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	)
	res, err := aggregate[models.UserCount](ctx, s.GetCollection(TrackpointCollection), p,
		options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, fmt.Errorf("failed to query invalid activities: %w", err)
	}
	return res, nil
}
