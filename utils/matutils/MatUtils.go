// Package matutils implements utility functions for working with
// gonum matrices and vectors
package matutils

import (
	"gonum.org/v1/gonum/mat"
)

// RawData returns the float64 data underlying a vector. The data is
// returned without copying when v is a dense vector of unit stride.
// Otherwise, the data is copied into a newly allocated slice.
func RawData(v mat.Vector) []float64 {
	if dense, ok := v.(*mat.VecDense); ok && dense.RawVector().Inc == 1 {
		return dense.RawVector().Data
	}

	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}

// VecClip performs an element-wise clipping of a vector's values such
// that each value is at least min and at most max
func VecClip(a *mat.VecDense, min, max float64) {
	for i := 0; i < a.Len(); i++ {
		value := a.AtVec(i)

		if value < min {
			a.SetVec(i, min)
		} else if value > max {
			a.SetVec(i, max)
		}
	}
}
