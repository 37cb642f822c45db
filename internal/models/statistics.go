package models

import "time"

// CollectionCounts holds the number of documents in each collection
type CollectionCounts struct {
	Users       int64 `json:"users" bson:"users"`
	Activities  int64 `json:"activities" bson:"activities"`
	Trackpoints int64 `json:"trackpoints" bson:"trackpoints"`
}

// ActivitiesPerUser summarizes the size of user.activity_id across all users
type ActivitiesPerUser struct {
	Average float64 `json:"average" bson:"average"`
	Minimum int64   `json:"minimum" bson:"minimum"`
	Maximum int64   `json:"maximum" bson:"maximum"`
}

// UserCount pairs a user with a count (activities, invalid activities, ...)
type UserCount struct {
	UserID string `json:"userId" bson:"_id"`
	Count  int64  `json:"count" bson:"count"`
}

// DuplicateActivityGroup lists activities of one user sharing the same start and end
type DuplicateActivityGroup struct {
	UserID      string    `json:"userId" bson:"user_id"`
	Start       time.Time `json:"start" bson:"start_date_time"`
	End         time.Time `json:"end" bson:"end_date_time"`
	ActivityIDs []int64   `json:"activityIds" bson:"activity_ids"`
}

// ModeUserCount is the number of distinct users that recorded a transportation mode
type ModeUserCount struct {
	Mode  string `json:"mode" bson:"_id"`
	Users int64  `json:"users" bson:"users"`
}

// ActivitySpan is an activity joined with its owning user
type ActivitySpan struct {
	UserID     string    `json:"userId" bson:"user_id"`
	ActivityID int64     `json:"activityId" bson:"_id"`
	Start      time.Time `json:"start" bson:"start_date_time"`
	End        time.Time `json:"end" bson:"end_date_time"`
}

// RoutePoint is the minimal trackpoint projection used for distance summation
type RoutePoint struct {
	ActivityID int64   `json:"activityId" bson:"activity_id"`
	Latitude   float64 `json:"lat" bson:"lat"`
	Longitude  float64 `json:"lon" bson:"lon"`
}

// ClusterPoint is a trackpoint joined with its owning user, used for co-location clustering
type ClusterPoint struct {
	UserID     string  `json:"userId" bson:"user_id"`
	ActivityID int64   `json:"activityId" bson:"activity_id"`
	Latitude   float64 `json:"lat" bson:"lat"`
	Longitude  float64 `json:"lon" bson:"lon"`
	DateDays   float64 `json:"dateDays" bson:"date_days"`
}

// UserAltitudeGain is the total altitude gained by a user, in meters
type UserAltitudeGain struct {
	UserID string  `json:"userId" bson:"_id"`
	Meters float64 `json:"meters" bson:"meters"`
}
