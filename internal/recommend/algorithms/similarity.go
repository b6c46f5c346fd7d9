// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package algorithms

import "math"

// Matrix is a dense square matrix stored row-major.
type Matrix struct {
	N    int       `json:"n"`
	Data []float64 `json:"data"`
}

// NewMatrix returns an n x n zero matrix.
func NewMatrix(n int) Matrix {
	return Matrix{N: n, Data: make([]float64, n*n)}
}

// At returns element (i, j).
func (m Matrix) At(i, j int) float64 {
	return m.Data[i*m.N+j]
}

// Set sets element (i, j).
func (m Matrix) Set(i, j int, v float64) {
	m.Data[i*m.N+j] = v
}

// Valid reports whether Data holds exactly N*N finite values.
func (m Matrix) Valid() bool {
	if m.N < 0 || len(m.Data) != m.N*m.N {
		return false
	}
	for _, v := range m.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CosineMatrix computes pairwise cosine similarity between rows. The result
// is symmetric with a diagonal of exactly 1.0 and every value in [-1, 1].
// Rows with zero norm have similarity 0 to every other row.
func CosineMatrix(rows []SparseVector) Matrix {
	n := len(rows)
	m := NewMatrix(n)

	norms := make([]float64, n)
	for i, row := range rows {
		norms[i] = row.Norm()
	}

	for i := 0; i < n; i++ {
		m.Set(i, i, 1.0)
		if norms[i] == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			if norms[j] == 0 {
				continue
			}
			sim := clamp(rows[i].Dot(rows[j])/(norms[i]*norms[j]), -1, 1)
			m.Set(i, j, sim)
			m.Set(j, i, sim)
		}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
