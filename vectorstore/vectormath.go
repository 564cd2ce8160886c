package vectorstore

import "math"

// Pure float32 vector helpers shared by the ranking engine and the
// feedback processor.

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero
// or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// Add returns a + scale*b.
func Add(a, b []float32, scale float64) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] + float32(scale*float64(b[i]))
	}
	return out
}

// Project returns the component of v parallel to direction. A zero
// direction projects to the zero vector.
func Project(v, direction []float32) []float32 {
	out := make([]float32, len(v))
	if len(v) != len(direction) {
		return out
	}
	var dot, denom float64
	for i := range v {
		dot += float64(v[i]) * float64(direction[i])
		denom += float64(direction[i]) * float64(direction[i])
	}
	if denom == 0 {
		return out
	}
	scale := dot / denom
	for i := range direction {
		out[i] = float32(scale * float64(direction[i]))
	}
	return out
}

// Sub returns a - b.
func Sub(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Mean averages the given vectors; nil when the input is empty.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := range out {
			if i < len(v) {
				out[i] += v[i]
			}
		}
	}
	inv := 1.0 / float64(len(vectors))
	for i := range out {
		out[i] = float32(float64(out[i]) * inv)
	}
	return out
}
