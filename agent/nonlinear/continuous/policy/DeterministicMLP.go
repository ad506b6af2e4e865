// Package policy implements policies for continuous actions using
// function approximation with Gorgonia
package policy

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/goddpg/agent"
	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/timestep"
	"github.com/samuelfneumann/goddpg/utils/matutils"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// Continuous-action policies select actions bounded in
// [minAction, maxAction] along each action dimension.
const (
	minAction float64 = -1.0
	maxAction float64 = 1.0
)

// DeterministicMLP implements a deterministic policy over continuous
// actions parameterized by a multi-layered perceptron. The network's
// final layer applies a tanh activation so that each predicted action
// dimension is bounded in [-1, 1].
//
// During training, exploration noise from an Ornstein-Uhlenbeck
// process is added to the network's predictions. The noise is scaled
// by an adjustable factor, which learning algorithms can decay as
// training progresses. Actions are clipped to [-1, 1] after the noise
// is added. In evaluation mode, no noise is added and actions are the
// raw network predictions.
type DeterministicMLP struct {
	network.NeuralNet
	vm G.VM

	noise      *ornsteinUhlenbeck
	noiseScale float64

	actionDims int
	seed       int64
	eval       bool
}

// NewDeterministicMLP creates and returns a new DeterministicMLP
// policy. The hiddenSizes parameter defines the number of nodes in
// each hidden layer, the biases parameter outlines which hidden
// layers include bias units, and the activations parameter determines
// the activation function for each hidden layer. A final tanh layer
// is always added so that the policy predicts one bounded value per
// action dimension. The batch parameter determines the number of
// states over which the policy predicts actions at a time. Actions
// can be selected with SelectAction only when batch is 1.
//
// The mu, theta, and sigma parameters determine the Ornstein-Uhlenbeck
// exploration noise process, and noiseScale the initial scale of the
// exploration noise. The seed parameter seeds the noise process.
func NewDeterministicMLP(env environment.Environment, batch int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*network.Activation, mu, theta, sigma,
	noiseScale float64, seed int64) (agent.NoisyNNPolicy, error) {
	if env.ActionSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("newdeterministicmlp: actions must be " +
			"continuous")
	}

	features := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()

	net, err := network.NewMultiHeadMLP(features, batch, actionDims, g,
		hiddenSizes, biases, init, activations, network.TanH())
	if err != nil {
		return nil, fmt.Errorf("newdeterministicmlp: could not create "+
			"policy network: %v", err)
	}

	p := &DeterministicMLP{
		NeuralNet:  net,
		noise:      newOrnsteinUhlenbeck(actionDims, mu, theta, sigma, seed),
		noiseScale: noiseScale,
		actionDims: actionDims,
		seed:       seed,
	}

	// Action selection requires running the policy's computational
	// graph, which is only done for single states
	if batch == 1 {
		p.vm = G.NewTapeMachine(g)
	}

	return p, nil
}

// SelectAction selects and returns an action at the argument timestep
// t. The returned action is always within [-1, 1] along each
// dimension.
func (d *DeterministicMLP) SelectAction(t timestep.TimeStep) *mat.VecDense {
	if size := d.BatchSize(); size != 1 {
		panic(fmt.Sprintf("selectaction: action selection can only be done "+
			"with a policy with batch size 1 \n\twant(1) \n\thave(%v)", size))
	}

	obs := matutils.RawData(t.Observation)
	if err := d.SetInput(obs); err != nil {
		panic(fmt.Sprintf("selectaction: cannot set input: %v", err))
	}

	if err := d.vm.RunAll(); err != nil {
		panic(fmt.Sprintf("selectaction: could not run policy VM: %v", err))
	}
	defer d.vm.Reset()

	// Copy the prediction out of the network's output buffer, since
	// the noise below mutates the action in place
	data := make([]float64, d.actionDims)
	copy(data, d.Output()[0].Data().([]float64))
	action := mat.NewVecDense(d.actionDims, data)

	if !d.eval {
		noise := d.noise.sample()
		for i := 0; i < action.Len(); i++ {
			action.SetVec(i, action.AtVec(i)+d.noiseScale*noise[i])
		}
	}
	matutils.VecClip(action, minAction, maxAction)

	return action
}

// Network returns the neural network function approximator that the
// policy uses.
func (d *DeterministicMLP) Network() network.NeuralNet {
	return d.NeuralNet
}

// Clone clones a DeterministicMLP
func (d *DeterministicMLP) Clone() (agent.NNPolicy, error) {
	return d.CloneWithBatch(d.BatchSize())
}

// CloneWithBatch clones a DeterministicMLP with a new input batch
// size. The clone's exploration noise process starts from its initial
// state.
func (d *DeterministicMLP) CloneWithBatch(batch int) (agent.NNPolicy,
	error) {
	net, err := d.NeuralNet.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone policy "+
			"network: %v", err)
	}

	p := &DeterministicMLP{
		NeuralNet: net,
		noise: newOrnsteinUhlenbeck(d.actionDims, d.noise.mu, d.noise.theta,
			d.noise.sigma, d.seed),
		noiseScale: d.noiseScale,
		actionDims: d.actionDims,
		seed:       d.seed,
		eval:       d.eval,
	}

	if batch == 1 {
		p.vm = G.NewTapeMachine(net.Graph())
	}

	return p, nil
}

// SetNoiseScale sets the scale of the exploration noise added to
// selected actions
func (d *DeterministicMLP) SetNoiseScale(scale float64) {
	d.noiseScale = scale
}

// NoiseScale returns the scale of the exploration noise added to
// selected actions
func (d *DeterministicMLP) NoiseScale() float64 {
	return d.noiseScale
}

// ResetNoise resets the exploration noise process to its initial state
func (d *DeterministicMLP) ResetNoise() {
	d.noise.reset()
}

// Eval sets the policy into evaluation mode
func (d *DeterministicMLP) Eval() {
	d.eval = true
}

// Train sets the policy into training mode
func (d *DeterministicMLP) Train() {
	d.eval = false
}

// IsEval returns whether the policy is in evaluation mode
func (d *DeterministicMLP) IsEval() bool {
	return d.eval
}

// Close closes the policy's tape machine
func (d *DeterministicMLP) Close() error {
	if d.vm == nil {
		return nil
	}
	return d.vm.Close()
}

// GobEncode implements the gob.GobEncoder interface
func (d *DeterministicMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	// Encode through a pointer to the interface so that the decoder
	// can recover the network behind the policy's interface field
	net := d.NeuralNet
	err := enc.Encode(&net)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}

	err = enc.Encode(d.noiseScale)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode noise scale: %v",
			err)
	}

	err = enc.Encode(d.noise.mu)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode noise mean: %v",
			err)
	}

	err = enc.Encode(d.noise.theta)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode noise drift "+
			"rate: %v", err)
	}

	err = enc.Encode(d.noise.sigma)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode noise per-"+
			"timestep scale: %v", err)
	}

	err = enc.Encode(d.seed)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode seed: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (d *DeterministicMLP) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	err := dec.Decode(&d.NeuralNet)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode network: %v", err)
	}

	err = dec.Decode(&d.noiseScale)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode noise scale: %v", err)
	}

	var mu, theta, sigma float64
	err = dec.Decode(&mu)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode noise mean: %v", err)
	}

	err = dec.Decode(&theta)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode noise drift rate: %v",
			err)
	}

	err = dec.Decode(&sigma)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode noise per-timestep "+
			"scale: %v", err)
	}

	err = dec.Decode(&d.seed)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode seed: %v", err)
	}

	d.actionDims = d.NeuralNet.Outputs()[0]
	d.noise = newOrnsteinUhlenbeck(d.actionDims, mu, theta, sigma, d.seed)
	if d.BatchSize() == 1 {
		d.vm = G.NewTapeMachine(d.NeuralNet.Graph())
	}

	return nil
}
