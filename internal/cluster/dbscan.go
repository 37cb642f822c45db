// Package cluster finds users whose trackpoints were close in both time and
// space, using DBSCAN twice: once on time, then on distance inside each time
// cluster.
package cluster

import (
	"sort"

	"github.com/jengzang/geolife-loader/internal/spatial"
)

// Noise is the label of points that belong to no cluster
const Noise = -1

const unvisited = -2

// DBSCAN1D clusters scalar values. A value is a core point when at least
// minSamples values (itself included) lie within eps of it. Border values
// join the cluster of their nearest core.
func DBSCAN1D(values []float64, eps float64, minSamples int) []int {
	n := len(values)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	// core detection with a sliding window over the sorted values
	core := make([]bool, n) // indexed by sorted position
	lo, hi := 0, 0
	for pos := 0; pos < n; pos++ {
		v := values[order[pos]]
		for values[order[lo]] < v-eps {
			lo++
		}
		if hi < pos {
			hi = pos
		}
		for hi+1 < n && values[order[hi+1]] <= v+eps {
			hi++
		}
		core[pos] = hi-lo+1 >= minSamples
	}

	// runs of cores no more than eps apart form one cluster
	next := 0
	prevCore := -1
	for pos := 0; pos < n; pos++ {
		if !core[pos] {
			continue
		}
		if prevCore < 0 || values[order[pos]]-values[order[prevCore]] > eps {
			next++
		}
		labels[order[pos]] = next - 1
		prevCore = pos
	}

	// borders take the nearest core within eps, the earlier one on a tie
	prevCore = -1
	nextCore := make([]int, n)
	following := -1
	for pos := n - 1; pos >= 0; pos-- {
		nextCore[pos] = following
		if core[pos] {
			following = pos
		}
	}
	for pos := 0; pos < n; pos++ {
		if core[pos] {
			prevCore = pos
			continue
		}
		v := values[order[pos]]
		best, bestDist := -1, eps
		if prevCore >= 0 {
			if d := v - values[order[prevCore]]; d <= bestDist {
				best, bestDist = prevCore, d
			}
		}
		if nc := nextCore[pos]; nc >= 0 {
			if d := values[order[nc]] - v; d < bestDist || (best < 0 && d <= eps) {
				best = nc
			}
		}
		if best >= 0 {
			labels[order[pos]] = labels[order[best]]
		}
	}

	return labels
}

// DBSCANHaversine clusters points by great-circle distance in meters
func DBSCANHaversine(points []spatial.Point, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}
	if n == 0 {
		return labels
	}

	grid := spatial.NewGrid(points, eps)
	neighbors := func(i int) []int {
		var out []int
		for _, j := range grid.Candidates(points[i]) {
			if spatial.Distance(points[i], points[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		seeds := neighbors(i)
		if len(seeds) < minSamples {
			labels[i] = Noise
			continue
		}

		c := next
		next++
		labels[i] = c
		for k := 0; k < len(seeds); k++ {
			q := seeds[k]
			if labels[q] == Noise {
				labels[q] = c
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = c
			if nb := neighbors(q); len(nb) >= minSamples {
				seeds = append(seeds, nb...)
			}
		}
	}

	return labels
}
