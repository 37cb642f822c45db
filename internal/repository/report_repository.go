package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/jengzang/geolife-loader/internal/models"
)

// userActivity expands user.activity_id into (user_id, activity_id) rows
const userActivity = `user_activity AS (
	SELECT u.id AS user_id, j.value AS activity_id
	FROM "user" u, json_each(u.activity_id) j
)`

// ReportRepository answers the analytical reports with SQL over the loaded tables
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Counts returns the number of rows per table
func (r *ReportRepository) Counts(ctx context.Context) (models.CollectionCounts, error) {
	var c models.CollectionCounts
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM "user"),
		(SELECT COUNT(*) FROM activity),
		(SELECT COUNT(*) FROM trackpoint)`).Scan(&c.Users, &c.Activities, &c.Trackpoints)
	if err != nil {
		return c, fmt.Errorf("failed to count collections: %w", err)
	}
	return c, nil
}

// ActivitiesPerUser returns average, minimum and maximum activity set size
func (r *ReportRepository) ActivitiesPerUser(ctx context.Context) (models.ActivitiesPerUser, error) {
	var s models.ActivitiesPerUser
	err := r.db.QueryRowContext(ctx, `SELECT
		COALESCE(AVG(json_array_length(activity_id)), 0),
		COALESCE(MIN(json_array_length(activity_id)), 0),
		COALESCE(MAX(json_array_length(activity_id)), 0)
		FROM "user"`).Scan(&s.Average, &s.Minimum, &s.Maximum)
	if err != nil {
		return s, fmt.Errorf("failed to summarize activities per user: %w", err)
	}
	return s, nil
}

// TopUsersByActivities returns the users with the most activities
func (r *ReportRepository) TopUsersByActivities(ctx context.Context, limit int) ([]models.UserCount, error) {
	query := `WITH ` + userActivity + `
		SELECT user_id, COUNT(*) AS n
		FROM user_activity
		GROUP BY user_id
		ORDER BY n DESC, user_id
		LIMIT ?`
	return r.queryUserCounts(ctx, "top users", query, limit)
}

// MultiDayUsers returns users with an activity spanning more than one calendar day
func (r *ReportRepository) MultiDayUsers(ctx context.Context) ([]string, error) {
	query := `WITH ` + userActivity + `
		SELECT DISTINCT ua.user_id
		FROM user_activity ua
		JOIN activity a ON a.id = ua.activity_id
		WHERE date(a.start_date_time, 'unixepoch') <> date(a.end_date_time, 'unixepoch')
		ORDER BY ua.user_id`
	return r.queryStrings(ctx, "multi-day users", query)
}

// DuplicateActivities returns groups of a user's activities sharing start and end
func (r *ReportRepository) DuplicateActivities(ctx context.Context) ([]models.DuplicateActivityGroup, error) {
	query := `WITH ` + userActivity + `
		SELECT ua.user_id, a.start_date_time, a.end_date_time, json_group_array(a.id)
		FROM user_activity ua
		JOIN activity a ON a.id = ua.activity_id
		GROUP BY ua.user_id, a.start_date_time, a.end_date_time
		HAVING COUNT(*) > 1
		ORDER BY ua.user_id, a.start_date_time`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate activities: %w", err)
	}
	defer rows.Close()

	var groups []models.DuplicateActivityGroup
	for rows.Next() {
		var (
			g          models.DuplicateActivityGroup
			start, end int64
			ids        string
		)
		if err := rows.Scan(&g.UserID, &start, &end, &ids); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate group: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &g.ActivityIDs); err != nil {
			return nil, fmt.Errorf("failed to decode duplicate activity ids: %w", err)
		}
		slices.Sort(g.ActivityIDs)
		g.Start = fromUnix(start)
		g.End = fromUnix(end)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ClusterPoints returns all trackpoints joined with their user, in trackpoint id order
func (r *ReportRepository) ClusterPoints(ctx context.Context) ([]models.ClusterPoint, error) {
	query := `WITH ` + userActivity + `
		SELECT ua.user_id, t.activity_id, t.lat, t.lon, t.date_days
		FROM trackpoint t
		JOIN user_activity ua ON ua.activity_id = t.activity_id
		ORDER BY t.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster points: %w", err)
	}
	defer rows.Close()

	var points []models.ClusterPoint
	for rows.Next() {
		var p models.ClusterPoint
		if err := rows.Scan(&p.UserID, &p.ActivityID, &p.Latitude, &p.Longitude, &p.DateDays); err != nil {
			return nil, fmt.Errorf("failed to scan cluster point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// UsersWithoutMode returns the users that never used the mode, users without activities included
func (r *ReportRepository) UsersWithoutMode(ctx context.Context, mode string) ([]string, error) {
	query := `SELECT u.id
		FROM "user" u
		WHERE NOT EXISTS (
			SELECT 1
			FROM json_each(u.activity_id) j
			JOIN activity a ON a.id = j.value
			WHERE a.transportation_mode = ?
		)
		ORDER BY u.id`
	return r.queryStrings(ctx, "users without mode", query, mode)
}

// UsersPerMode counts distinct users per transportation mode
func (r *ReportRepository) UsersPerMode(ctx context.Context) ([]models.ModeUserCount, error) {
	query := `WITH ` + userActivity + `
		SELECT a.transportation_mode, COUNT(DISTINCT ua.user_id) AS n
		FROM user_activity ua
		JOIN activity a ON a.id = ua.activity_id
		WHERE a.transportation_mode IS NOT NULL
		GROUP BY a.transportation_mode
		ORDER BY n DESC, a.transportation_mode`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users per mode: %w", err)
	}
	defer rows.Close()

	var counts []models.ModeUserCount
	for rows.Next() {
		var c models.ModeUserCount
		if err := rows.Scan(&c.Mode, &c.Users); err != nil {
			return nil, fmt.Errorf("failed to scan mode count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ActivitySpans returns every activity with its owning user, in activity id order
func (r *ReportRepository) ActivitySpans(ctx context.Context) ([]models.ActivitySpan, error) {
	query := `WITH ` + userActivity + `
		SELECT ua.user_id, a.id, a.start_date_time, a.end_date_time
		FROM user_activity ua
		JOIN activity a ON a.id = ua.activity_id
		ORDER BY a.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity spans: %w", err)
	}
	defer rows.Close()

	var spans []models.ActivitySpan
	for rows.Next() {
		var (
			s          models.ActivitySpan
			start, end int64
		)
		if err := rows.Scan(&s.UserID, &s.ActivityID, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan activity span: %w", err)
		}
		s.Start = fromUnix(start)
		s.End = fromUnix(end)
		spans = append(spans, s)
	}
	return spans, rows.Err()
}

// RoutePoints returns the user's trackpoints for one mode and year
func (r *ReportRepository) RoutePoints(ctx context.Context, userID, mode string, year int) ([]models.RoutePoint, error) {
	query := `WITH ` + userActivity + `
		SELECT t.activity_id, t.lat, t.lon
		FROM trackpoint t
		JOIN activity a ON a.id = t.activity_id
		JOIN user_activity ua ON ua.activity_id = a.id
		WHERE ua.user_id = ?
		  AND a.transportation_mode = ?
		  AND CAST(strftime('%Y', t.date_time, 'unixepoch') AS INTEGER) = ?
		ORDER BY t.activity_id, t.id`

	rows, err := r.db.QueryContext(ctx, query, userID, mode, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query route points: %w", err)
	}
	defer rows.Close()

	var points []models.RoutePoint
	for rows.Next() {
		var p models.RoutePoint
		if err := rows.Scan(&p.ActivityID, &p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan route point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// AltitudeGain sums the positive altitude steps between consecutive trackpoints per user
func (r *ReportRepository) AltitudeGain(ctx context.Context, limit int) ([]models.UserAltitudeGain, error) {
	query := `WITH ` + userActivity + `,
		steps AS (
			SELECT activity_id,
			       LEAD(altitude) OVER (PARTITION BY activity_id ORDER BY id) - altitude AS diff
			FROM trackpoint
		),
		gains AS (
			SELECT activity_id, SUM(diff) AS gained
			FROM steps
			WHERE diff > 0
			GROUP BY activity_id
		)
		SELECT ua.user_id, SUM(g.gained) * ? AS meters
		FROM gains g
		JOIN user_activity ua ON ua.activity_id = g.activity_id
		GROUP BY ua.user_id
		ORDER BY meters DESC, ua.user_id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, models.FeetToMeters, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query altitude gain: %w", err)
	}
	defer rows.Close()

	var gains []models.UserAltitudeGain
	for rows.Next() {
		var g models.UserAltitudeGain
		if err := rows.Scan(&g.UserID, &g.Meters); err != nil {
			return nil, fmt.Errorf("failed to scan altitude gain: %w", err)
		}
		gains = append(gains, g)
	}
	return gains, rows.Err()
}

// InvalidActivities counts per user the activities containing a time gap larger than gap
func (r *ReportRepository) InvalidActivities(ctx context.Context, gap time.Duration) ([]models.UserCount, error) {
	query := `WITH ` + userActivity + `,
		steps AS (
			SELECT activity_id,
			       LEAD(date_time) OVER (PARTITION BY activity_id ORDER BY id) - date_time AS diff
			FROM trackpoint
		),
		invalid AS (
			SELECT DISTINCT activity_id FROM steps WHERE diff > ?
		)
		SELECT ua.user_id, COUNT(*) AS n
		FROM invalid i
		JOIN user_activity ua ON ua.activity_id = i.activity_id
		GROUP BY ua.user_id
		ORDER BY n DESC, ua.user_id`
	return r.queryUserCounts(ctx, "invalid activities", query, gap.Seconds())
}

func (r *ReportRepository) queryUserCounts(ctx context.Context, what, query string, args ...any) ([]models.UserCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	var counts []models.UserCount
	for rows.Next() {
		var c models.UserCount
		if err := rows.Scan(&c.UserID, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *ReportRepository) queryStrings(ctx context.Context, what, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
