package solver

import G "gorgonia.org/gorgonia"

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	StepSize  float64
	Epsilon   float64 // Smoothing factor
	Beta1     float64
	Beta2     float64
	Batch     int
	Clip      float64 // Gradient clipping threshold, <= 0 if no clipping
	L2Penalty float64 // L2 regularization penalty, <= 0 if no penalty
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
// and no gradient clipping or regularization
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, batchSize, -1.0, -1.0)
}

// NewAdam returns a new Adam Solver. Gradients are clipped to clip if
// clip > 0, and weights are decayed with an L2 penalty of l2Penalty if
// l2Penalty > 0.
func NewAdam(stepSize, epsilon, beta1, beta2 float64, batchSize int,
	clip, l2Penalty float64) (*Solver, error) {
	adam := AdamConfig{
		StepSize:  stepSize,
		Epsilon:   epsilon,
		Beta1:     beta1,
		Beta2:     beta2,
		Batch:     int(batchSize),
		Clip:      clip,
		L2Penalty: l2Penalty,
	}

	return newSolver(Adam, adam)
}

// Create returns a new Gorgonia Adam Solver as described by the
// AdamConfig
func (a AdamConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(a.StepSize),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(float64(a.Batch)),
	}
	if a.Clip > 0 {
		opts = append(opts, G.WithClip(a.Clip))
	}
	if a.L2Penalty > 0 {
		opts = append(opts, G.WithL2Reg(a.L2Penalty))
	}

	return G.NewAdamSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}
