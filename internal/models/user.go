package models

// User represents one user directory of the source tree.
// ActivityIDs is a set: ascending, each id at most once.
type User struct {
	ID          string  `json:"id" bson:"_id" db:"id"`
	HasLabels   bool    `json:"hasLabels" bson:"has_labels" db:"has_labels"`
	ActivityIDs []int64 `json:"activityIds" bson:"activity_id" db:"activity_id"`
}
