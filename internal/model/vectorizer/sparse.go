package vectorizer

// Vector is a sparse feature vector. Indices are strictly increasing.
type Vector struct {
	Indices []int
	Values  []float64
}

// Dot returns the dot product of v with the dense weight slice w. Indices
// outside w are ignored.
func (v Vector) Dot(w []float64) float64 {
	var sum float64
	for k, idx := range v.Indices {
		if idx < len(w) {
			sum += v.Values[k] * w[idx]
		}
	}
	return sum
}
