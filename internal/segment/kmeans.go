package segment

import (
	"math"
	"math/rand/v2"
)

// Point is a feature vector: (lifetime profit, lifetime compliance).
type Point [2]float64

// KMeansConfig controls the clustering run.
type KMeansConfig struct {
	K             int
	Seed          uint64
	Restarts      int     // independent k-means++ initialisations; best inertia wins
	MaxIterations int     // Lloyd iterations per restart
	Tolerance     float64 // relative to mean feature variance
}

// DefaultKMeansConfig mirrors the classic defaults: k-means++ seeding,
// 10 restarts, 300 iterations, tolerance 1e-4.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{K: 4, Seed: 42, Restarts: 10, MaxIterations: 300, Tolerance: 1e-4}
}

// KMeansResult holds the winning partition.
type KMeansResult struct {
	Labels    []int   // cluster index per input point
	Centroids []Point // indexed by cluster
	Inertia   float64 // sum of squared distances to assigned centroids
}

// KMeans partitions points into cfg.K clusters. The caller guarantees
// there are at least cfg.K distinct points. Features are used unscaled.
func KMeans(points []Point, cfg KMeansConfig) KMeansResult {
	if cfg.Restarts <= 0 {
		cfg.Restarts = 1
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 300
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xda942042e4dd58b5))
	tol := cfg.Tolerance * meanVariance(points)

	var best KMeansResult
	for r := 0; r < cfg.Restarts; r++ {
		res := lloyd(points, seedPlusPlus(points, cfg.K, rng), cfg.MaxIterations, tol)
		if r == 0 || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best
}

// seedPlusPlus picks initial centroids with probability proportional to
// the squared distance from the nearest centroid already chosen.
func seedPlusPlus(points []Point, k int, rng *rand.Rand) []Point {
	centroids := make([]Point, 0, k)
	centroids = append(centroids, points[rng.IntN(len(points))])

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}

		next := rng.IntN(len(points))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
			}
		}
		c := points[next]
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points []Point, centroids []Point, maxIter int, tol float64) KMeansResult {
	k := len(centroids)
	labels := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		assign(points, centroids, labels)

		next := make([]Point, k)
		counts := make([]int, k)
		for i, p := range points {
			c := labels[i]
			next[c][0] += p[0]
			next[c][1] += p[1]
			counts[c]++
		}
		for c := range next {
			if counts[c] == 0 {
				// Empty cluster: move it onto the point worst served by
				// its current centroid.
				next[c] = points[farthest(points, centroids, labels)]
				continue
			}
			next[c][0] /= float64(counts[c])
			next[c][1] /= float64(counts[c])
		}

		var shift float64
		for c := range centroids {
			shift += sqDist(centroids[c], next[c])
		}
		centroids = next
		if shift <= tol {
			break
		}
	}

	inertia := assign(points, centroids, labels)
	return KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia}
}

// assign labels every point with its nearest centroid (lowest index on
// ties) and returns the inertia.
func assign(points []Point, centroids []Point, labels []int) float64 {
	var inertia float64
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centroids {
			if d := sqDist(p, ctr); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

func farthest(points []Point, centroids []Point, labels []int) int {
	idx, maxD := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > maxD {
			idx, maxD = i, d
		}
	}
	return idx
}

func sqDist(a, b Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

func meanVariance(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	n := float64(len(points))
	var v float64
	for dim := 0; dim < 2; dim++ {
		var sum, sq float64
		for _, p := range points {
			sum += p[dim]
			sq += p[dim] * p[dim]
		}
		mean := sum / n
		v += sq/n - mean*mean
	}
	return v / 2
}

// distinctPoints counts unique feature vectors.
func distinctPoints(points []Point) int {
	seen := make(map[Point]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
	}
	return len(seen)
}
