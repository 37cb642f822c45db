package cluster

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jengzang/geolife-loader/internal/models"
	"github.com/jengzang/geolife-loader/internal/spatial"
)

const (
	secondsPerDay = 86400

	// geohash precision used to label cluster locations (about 150m cells)
	labelPrecision = 7
)

// Options configures CloseUsers
type Options struct {
	TimeWindow time.Duration
	Distance   float64 // meters
	MinSamples int
}

// DefaultOptions returns a one minute, 100 meter neighborhood with pairs as the
// smallest cluster
func DefaultOptions() Options {
	return Options{TimeWindow: time.Minute, Distance: 100, MinSamples: 2}
}

// Group is one space-time cluster shared by at least two users
type Group struct {
	Users   []string
	Points  int
	Center  spatial.Point
	Geohash string
}

// Result lists the users found close to someone else
type Result struct {
	Users    []string   // distinct, sorted
	UserSets [][]string // distinct user sets, sorted
	Groups   []Group
}

// CloseUsers clusters points by date_days first, then by distance within each
// time cluster, and keeps the spatial clusters containing two or more users
func CloseUsers(points []models.ClusterPoint, opts Options) Result {
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultOptions().MinSamples
	}
	var res Result
	if len(points) == 0 {
		return res
	}

	origin := points[0].DateDays
	for _, p := range points[1:] {
		origin = min(origin, p.DateDays)
	}
	seconds := make([]float64, len(points))
	for i, p := range points {
		seconds[i] = (p.DateDays - origin) * secondsPerDay
	}

	timeLabels := DBSCAN1D(seconds, opts.TimeWindow.Seconds(), opts.MinSamples)
	byTime := make(map[int][]int)
	var timeClusters []int
	for i, l := range timeLabels {
		if l == Noise {
			continue
		}
		if _, ok := byTime[l]; !ok {
			timeClusters = append(timeClusters, l)
		}
		byTime[l] = append(byTime[l], i)
	}
	sort.Ints(timeClusters)

	users := make(map[string]struct{})
	sets := make(map[string][]string)
	for _, tc := range timeClusters {
		members := byTime[tc]
		pts := make([]spatial.Point, len(members))
		for k, idx := range members {
			pts[k] = spatial.Point{Lat: points[idx].Latitude, Lon: points[idx].Longitude}
		}

		spaceLabels := DBSCANHaversine(pts, opts.Distance, opts.MinSamples)
		bySpace := make(map[int][]int)
		var spaceClusters []int
		for k, l := range spaceLabels {
			if l == Noise {
				continue
			}
			if _, ok := bySpace[l]; !ok {
				spaceClusters = append(spaceClusters, l)
			}
			bySpace[l] = append(bySpace[l], k)
		}
		sort.Ints(spaceClusters)

		for _, sc := range spaceClusters {
			group := newGroup(points, members, pts, bySpace[sc])
			if len(group.Users) < 2 {
				continue
			}
			res.Groups = append(res.Groups, group)
			for _, u := range group.Users {
				users[u] = struct{}{}
			}
			sets[strings.Join(group.Users, ",")] = group.Users
		}
	}

	for u := range users {
		res.Users = append(res.Users, u)
	}
	sort.Strings(res.Users)

	keys := make([]string, 0, len(sets))
	for k := range sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		res.UserSets = append(res.UserSets, sets[k])
	}
	return res
}

func newGroup(points []models.ClusterPoint, members []int, pts []spatial.Point, picked []int) Group {
	var users []string
	sub := make([]spatial.Point, len(picked))
	for k, idx := range picked {
		users = append(users, points[members[idx]].UserID)
		sub[k] = pts[idx]
	}
	sort.Strings(users)
	users = slices.Compact(users)

	center := spatial.Centroid(sub)
	return Group{
		Users:   users,
		Points:  len(picked),
		Center:  center,
		Geohash: spatial.EncodeGeohash(center.Lat, center.Lon, labelPrecision),
	}
}
