package tagging

import (
	"math"
	"math/rand"
)

// svdIterations is the number of orthogonal-iteration rounds. Convergence
// is fast because only the dominant subspace is needed, not individual
// singular vectors.
const svdIterations = 50

// truncatedSVD projects the document-by-term matrix onto its top-dims
// latent dimensions (LSA). It works on the n-by-n Gram matrix A·Aᵀ, whose
// top eigenvectors are the left singular vectors of A; the projection
// A·V equals U·S, recovered as U scaled by the singular values. The Gram
// matrix is n² in the document count, matching the corpus sizes this
// pipeline is built for.
func truncatedSVD(matrix [][]float64, dims int, seed int64) [][]float64 {
	n := len(matrix)
	if n == 0 || dims <= 0 {
		return nil
	}
	if dims > n {
		dims = n
	}

	gram := gramMatrix(matrix)

	// Orthogonal iteration: repeatedly multiply a random orthonormal basis
	// by the Gram matrix and re-orthonormalize. Seeded so runs reproduce.
	rng := rand.New(rand.NewSource(seed))
	basis := make([][]float64, n)
	for i := range basis {
		basis[i] = make([]float64, dims)
		for j := range basis[i] {
			basis[i][j] = rng.NormFloat64()
		}
	}
	orthonormalize(basis)

	for iter := 0; iter < svdIterations; iter++ {
		basis = multiply(gram, basis)
		orthonormalize(basis)
	}

	// Eigenvalues via the Rayleigh quotient; singular values are their
	// square roots.
	projected := multiply(gram, basis)
	reduced := make([][]float64, n)
	for i := range reduced {
		reduced[i] = make([]float64, dims)
	}
	for j := 0; j < dims; j++ {
		var eigen float64
		for i := 0; i < n; i++ {
			eigen += basis[i][j] * projected[i][j]
		}
		if eigen < 0 {
			eigen = 0
		}
		sigma := math.Sqrt(eigen)
		for i := 0; i < n; i++ {
			reduced[i][j] = basis[i][j] * sigma
		}
	}
	return reduced
}

// gramMatrix computes A·Aᵀ for the row-major matrix A.
func gramMatrix(matrix [][]float64) [][]float64 {
	n := len(matrix)
	gram := make([][]float64, n)
	for i := range gram {
		gram[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := range matrix[i] {
				sum += matrix[i][k] * matrix[j][k]
			}
			gram[i][j] = sum
			gram[j][i] = sum
		}
	}
	return gram
}

// multiply returns m·b where m is n-by-n and b is n-by-k.
func multiply(m, b [][]float64) [][]float64 {
	n := len(m)
	k := len(b[0])
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		for l := 0; l < n; l++ {
			v := m[i][l]
			if v == 0 {
				continue
			}
			for j := 0; j < k; j++ {
				row[j] += v * b[l][j]
			}
		}
		out[i] = row
	}
	return out
}

// orthonormalize applies modified Gram-Schmidt to the columns of b in place.
// Columns that collapse to numerical zero are left as zero vectors.
func orthonormalize(b [][]float64) {
	n := len(b)
	if n == 0 {
		return
	}
	k := len(b[0])
	for j := 0; j < k; j++ {
		for prev := 0; prev < j; prev++ {
			var dot float64
			for i := 0; i < n; i++ {
				dot += b[i][j] * b[i][prev]
			}
			for i := 0; i < n; i++ {
				b[i][j] -= dot * b[i][prev]
			}
		}
		var norm float64
		for i := 0; i < n; i++ {
			norm += b[i][j] * b[i][j]
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			continue
		}
		for i := 0; i < n; i++ {
			b[i][j] /= norm
		}
	}
}
