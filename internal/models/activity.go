package models

import "time"

// Activity represents one logical segment derived from a single trajectory file.
// A trajectory matched by several labels yields one activity per label.
type Activity struct {
	ID                 int64     `json:"id" bson:"_id" db:"id"`
	UserID             string    `json:"-" bson:"-" db:"-"` // carried in memory only, user.activity_id is authoritative
	StartDateTime      time.Time `json:"startDateTime" bson:"start_date_time" db:"start_date_time"`
	EndDateTime        time.Time `json:"endDateTime" bson:"end_date_time" db:"end_date_time"`
	TransportationMode *string   `json:"transportationMode" bson:"transportation_mode" db:"transportation_mode"`
}

// Mode returns the transportation mode, or an empty string when no label matched
func (a Activity) Mode() string {
	if a.TransportationMode == nil {
		return ""
	}
	return *a.TransportationMode
}

// Label represents a human-annotated transportation mode for a time range
type Label struct {
	StartTime time.Time
	EndTime   time.Time
	Mode      string
}
