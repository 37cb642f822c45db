package report

import (
	"sort"

	"github.com/jengzang/geolife-loader/internal/models"
	"github.com/jengzang/geolife-loader/internal/spatial"
)

// MonthUser is one user's share of a month
type MonthUser struct {
	UserID     string
	Activities int
	Hours      float64
}

// Month summarizes the activities started in one year-month
type Month struct {
	Month      string // YYYY-MM, UTC
	Activities int
	Users      []MonthUser
}

// BusiestMonth finds the year-month in which the most activities started,
// the earliest month on a tie, and its top users by activity count then id.
// Hours are the summed end minus start of the user's activities that month.
func BusiestMonth(spans []models.ActivitySpan, top int) (Month, bool) {
	if len(spans) == 0 {
		return Month{}, false
	}

	perMonth := make(map[string]int)
	for _, s := range spans {
		perMonth[s.Start.UTC().Format("2006-01")]++
	}
	var best Month
	for month, n := range perMonth {
		if n > best.Activities || (n == best.Activities && month < best.Month) {
			best = Month{Month: month, Activities: n}
		}
	}

	byUser := make(map[string]*MonthUser)
	for _, s := range spans {
		if s.Start.UTC().Format("2006-01") != best.Month {
			continue
		}
		u, ok := byUser[s.UserID]
		if !ok {
			u = &MonthUser{UserID: s.UserID}
			byUser[s.UserID] = u
		}
		u.Activities++
		u.Hours += s.End.Sub(s.Start).Hours()
	}

	users := make([]MonthUser, 0, len(byUser))
	for _, u := range byUser {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Activities != users[j].Activities {
			return users[i].Activities > users[j].Activities
		}
		return users[i].UserID < users[j].UserID
	})
	if top > 0 && len(users) > top {
		users = users[:top]
	}
	best.Users = users
	return best, true
}

// DistanceKm sums the great-circle distance between consecutive points of
// the same activity. Points must be grouped by activity, in track order.
func DistanceKm(points []models.RoutePoint) float64 {
	var total float64
	start := 0
	for i := 1; i <= len(points); i++ {
		if i < len(points) && points[i].ActivityID == points[start].ActivityID {
			continue
		}
		path := make([]spatial.Point, 0, i-start)
		for _, p := range points[start:i] {
			path = append(path, spatial.Point{Lat: p.Latitude, Lon: p.Longitude})
		}
		total += spatial.PathLengthKm(path)
		start = i
	}
	return total
}
