package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jengzang/geolife-loader/internal/cluster"
	"github.com/jengzang/geolife-loader/internal/models"
)

// Register the reports
func init() {
	register(1, "counts", "number of users, activities and trackpoints", runCounts)
	register(2, "activities-per-user", "average, minimum and maximum activities per user", runActivitiesPerUser)
	register(3, "top-users", "users with the most activities", runTopUsers)
	register(4, "multi-day", "users with an activity spanning more than one calendar day", runMultiDay)
	register(5, "duplicates", "activities of one user sharing start and end time", runDuplicates)
	register(6, "close-users", "users that were close in time and space to another user", runCloseUsers)
	register(7, "never-mode", "users that never used the excluded mode", runNeverMode)
	register(8, "users-per-mode", "distinct users per transportation mode", runUsersPerMode)
	register(9, "busiest-month", "month with the most activities and its two most active users", runBusiestMonth)
	register(10, "distance", "distance covered by one user in one mode and year", runDistance)
	register(11, "altitude-gain", "users with the largest total altitude gain", runAltitudeGain)
	register(12, "invalid-activities", "activities with a gap between consecutive trackpoints", runInvalidActivities)
}

func runCounts(ctx context.Context, src Source, _ Params, w io.Writer) error {
	c, err := src.Counts(ctx)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "collection\tcount")
	fmt.Fprintf(tw, "user\t%d\n", c.Users)
	fmt.Fprintf(tw, "activity\t%d\n", c.Activities)
	fmt.Fprintf(tw, "trackpoint\t%d\n", c.Trackpoints)
	return tw.Flush()
}

func runActivitiesPerUser(ctx context.Context, src Source, _ Params, w io.Writer) error {
	s, err := src.ActivitiesPerUser(ctx)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "average\tminimum\tmaximum")
	fmt.Fprintf(tw, "%.2f\t%d\t%d\n", s.Average, s.Minimum, s.Maximum)
	return tw.Flush()
}

func runTopUsers(ctx context.Context, src Source, p Params, w io.Writer) error {
	rows, err := src.TopUsersByActivities(ctx, p.TopUsers)
	if err != nil {
		return err
	}
	return writeUserCounts(w, "activities", rows)
}

func runMultiDay(ctx context.Context, src Source, _ Params, w io.Writer) error {
	users, err := src.MultiDayUsers(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "users: %d\n", len(users))
	if len(users) > 0 {
		fmt.Fprintf(w, "%s\n", strings.Join(users, " "))
	}
	return nil
}

func runDuplicates(ctx context.Context, src Source, _ Params, w io.Writer) error {
	groups, err := src.DuplicateActivities(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "groups: %d\n", len(groups))
	if len(groups) == 0 {
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "user\tstart\tend\tactivities")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.UserID,
			g.Start.UTC().Format(time.DateTime), g.End.UTC().Format(time.DateTime), joinIDs(g.ActivityIDs))
	}
	return tw.Flush()
}

func runCloseUsers(ctx context.Context, src Source, p Params, w io.Writer) error {
	points, err := src.ClusterPoints(ctx)
	if err != nil {
		return err
	}
	res := cluster.CloseUsers(points, p.Close)

	fmt.Fprintf(w, "users close to another user: %d\n", len(res.Users))
	if len(res.Users) == 0 {
		return nil
	}
	fmt.Fprintf(w, "%s\n", strings.Join(res.Users, " "))

	tw := newTable(w)
	fmt.Fprintln(tw, "users\tmeetings")
	meetings := make(map[string]int)
	for _, g := range res.Groups {
		meetings[strings.Join(g.Users, " ")]++
	}
	for _, set := range res.UserSets {
		key := strings.Join(set, " ")
		fmt.Fprintf(tw, "%s\t%d\n", key, meetings[key])
	}
	return tw.Flush()
}

func runNeverMode(ctx context.Context, src Source, p Params, w io.Writer) error {
	users, err := src.UsersWithoutMode(ctx, p.ExcludedMode)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "users without %s: %d\n", p.ExcludedMode, len(users))
	if len(users) > 0 {
		fmt.Fprintf(w, "%s\n", strings.Join(users, " "))
	}
	return nil
}

func runUsersPerMode(ctx context.Context, src Source, _ Params, w io.Writer) error {
	rows, err := src.UsersPerMode(ctx)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "mode\tusers")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", r.Mode, r.Users)
	}
	return tw.Flush()
}

func runBusiestMonth(ctx context.Context, src Source, _ Params, w io.Writer) error {
	spans, err := src.ActivitySpans(ctx)
	if err != nil {
		return err
	}
	m, ok := BusiestMonth(spans, 2)
	if !ok {
		fmt.Fprintln(w, "no activities")
		return nil
	}
	fmt.Fprintf(w, "month: %s (%d activities)\n", m.Month, m.Activities)
	tw := newTable(w)
	fmt.Fprintln(tw, "user\tactivities\thours")
	for _, u := range m.Users {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", u.UserID, u.Activities, u.Hours)
	}
	return tw.Flush()
}

func runDistance(ctx context.Context, src Source, p Params, w io.Writer) error {
	points, err := src.RoutePoints(ctx, p.UserID, p.Mode, p.Year)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "user %s, mode %s, year %d: %.2f km\n", p.UserID, p.Mode, p.Year, DistanceKm(points))
	return nil
}

func runAltitudeGain(ctx context.Context, src Source, p Params, w io.Writer) error {
	rows, err := src.AltitudeGain(ctx, p.AltitudeTopUsers)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "user\tmeters")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.1f\n", r.UserID, r.Meters)
	}
	return tw.Flush()
}

func runInvalidActivities(ctx context.Context, src Source, p Params, w io.Writer) error {
	rows, err := src.InvalidActivities(ctx, p.GapThreshold)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "gap threshold: %s\n", p.GapThreshold)
	return writeUserCounts(w, "invalid", rows)
}

func writeUserCounts(w io.Writer, column string, rows []models.UserCount) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "user\t%s\n", column)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", r.UserID, r.Count)
	}
	return tw.Flush()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
