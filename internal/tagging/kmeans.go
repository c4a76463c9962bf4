package tagging

import (
	"math"
	"math/rand"
)

// kmeans partitions the row vectors into k clusters using Lloyd's algorithm
// with k-means++ seeding. The RNG is seeded so assignments are reproducible;
// iteration stops at convergence or maxIterations.
func kmeans(vectors [][]float64, k int, seed int64, maxIterations int) []int {
	n := len(vectors)
	assignments := make([]int, n)
	if n == 0 || k <= 0 {
		return assignments
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(vectors, k, rng)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, vec := range vectors {
			best := nearestCentroid(vec, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(vectors[0]))
		}
		for i, vec := range vectors {
			c := assignments[i]
			counts[c]++
			for j, v := range vec {
				sums[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster: keep its previous centroid. Such clusters
				// simply end up with no members and no tags.
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	return assignments
}

// seedCentroids implements k-means++ initialization: the first centroid is
// uniform-random, each subsequent one is drawn with probability proportional
// to squared distance from the nearest chosen centroid.
func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(vectors)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneVector(vectors[rng.Intn(n)]))

	distances := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i, vec := range vectors {
			d := math.Inf(1)
			for _, c := range centroids {
				if dist := squaredDistance(vec, c); dist < d {
					d = dist
				}
			}
			distances[i] = d
			total += d
		}

		if total == 0 {
			// All points coincide with existing centroids; pick uniformly.
			centroids = append(centroids, cloneVector(vectors[rng.Intn(n)]))
			continue
		}

		target := rng.Float64() * total
		var cumulative float64
		chosen := n - 1
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVector(vectors[chosen]))
	}
	return centroids
}

// nearestCentroid returns the index of the closest centroid to vec.
func nearestCentroid(vec []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(vec, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// squaredDistance computes the squared Euclidean distance between two vectors.
func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// cloneVector returns an independent copy of vec.
func cloneVector(vec []float64) []float64 {
	out := make([]float64, len(vec))
	copy(out, vec)
	return out
}
