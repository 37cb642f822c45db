package models

import "time"

// MissingAltitude is the altitude value the GPS logger writes when no fix was available
const MissingAltitude = -777.0

// FeetToMeters converts the logger's altitude unit
const FeetToMeters = 0.3048

// Point represents one parsed row of a trajectory file
type Point struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64 // nil when the logger reported MissingAltitude
	DateDays  float64  // Fractional days since 1899-12-30, as written by the logger
	Timestamp time.Time
}

// Trackpoint represents a persisted location fix belonging to exactly one activity
type Trackpoint struct {
	ID         int64     `json:"id" bson:"_id" db:"id"`
	ActivityID int64     `json:"activityId" bson:"activity_id" db:"activity_id"`
	Latitude   float64   `json:"lat" bson:"lat" db:"lat"`
	Longitude  float64   `json:"lon" bson:"lon" db:"lon"`
	Altitude   *float64  `json:"altitude" bson:"altitude" db:"altitude"`
	DateDays   float64   `json:"dateDays" bson:"date_days" db:"date_days"`
	DateTime   time.Time `json:"dateTime" bson:"date_time" db:"date_time"`
}

// NewTrackpoint tags a parsed point with the activity it belongs to.
// The trackpoint id is assigned later, once the whole dataset is built.
func NewTrackpoint(activityID int64, p Point) Trackpoint {
	return Trackpoint{
		ActivityID: activityID,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Altitude:   p.Altitude,
		DateDays:   p.DateDays,
		DateTime:   p.Timestamp,
	}
}

// NormalizeAltitude converts the logger's sentinel value into a missing altitude
func NormalizeAltitude(raw float64) *float64 {
	if raw == MissingAltitude {
		return nil
	}
	v := raw
	return &v
}
