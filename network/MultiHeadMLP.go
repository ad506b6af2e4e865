package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted. A final
// linear layer is always added so that the network predicts the
// requested number of outputs; the activation of that final layer is
// configurable so that the same type serves both value heads
// (identity) and bounded policy heads (tanh).
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for gobbing
	hiddenSizes      []int
	biases           []bool
	activations      []*Activation
	outputActivation *Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// validateMLP ensures one activation and one bias flag was given per
// hidden layer.
func validateMLP(hiddenSizes []int, biases []bool,
	activations []*Activation) error {
	if len(hiddenSizes) != len(activations) {
		msg := "invalid number of activations\n\twant(%d)\n\thave(%d)"
		return fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	if len(hiddenSizes) != len(biases) {
		msg := "invalid number of biases\n\twant(%d)\n\thave(%d)"
		return fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	return nil
}

// newMultiHeadMLPFromInput returns a new multi-head output MLP that
// has a specific node as its input node. If multiple input nodes are
// given, they are first concatenated along the feature (column)
// dimension.
//
// If addFinalLayer is true, a final linear layer with a bias unit and
// activation outputActivation is appended so that the network predicts
// outputs values. Otherwise the last hidden layer must already have
// outputs units.
func newMultiHeadMLPFromInput(inputs []*G.Node, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, prefix, suffix string,
	outputActivation *Activation, addFinalLayer bool) (*multiHeadMLP, error) {
	if err := validateMLP(hiddenSizes, biases, activations); err != nil {
		return nil, fmt.Errorf("newmultiheadmlpfrominput: %v", err)
	}

	// Concatenate inputs if necessary
	var input *G.Node
	if len(inputs) > 1 {
		input = G.Must(G.Concat(1, inputs...))
	} else {
		input = inputs[0]
	}

	if !input.IsMatrix() {
		return nil, fmt.Errorf("newmultiheadmlpfrominput: input must be a " +
			"matrix")
	}

	batch := input.Shape()[0]
	features := input.Shape()[1]

	// If required, add a final layer to ensure output heads are
	// predicted by the network. The argument slices are copied so that
	// the caller's slices are never extended in-place.
	layerSizes := make([]int, len(hiddenSizes))
	copy(layerSizes, hiddenSizes)
	layerBiases := make([]bool, len(biases))
	copy(layerBiases, biases)
	layerActivations := make([]*Activation, len(activations))
	copy(layerActivations, activations)

	if addFinalLayer {
		layerSizes = append(layerSizes, outputs)
		layerBiases = append(layerBiases, true)
		layerActivations = append(layerActivations, outputActivation)
	} else if len(layerSizes) == 0 ||
		outputs != layerSizes[len(layerSizes)-1] {
		msg := "newmultiheadmlpfrominput: claimed output is of size %v but " +
			"provided final network layer of size %v"
		var finalSize int
		if len(layerSizes) > 0 {
			finalSize = layerSizes[len(layerSizes)-1]
		}
		return nil, fmt.Errorf(msg, outputs, finalSize)
	}

	layers := addfcLayers(g, layerSizes, layerBiases, layerActivations, init,
		features, prefix, suffix)

	// Create the network and run the forward pass on the input node
	network := multiHeadMLP{
		g:                g,
		layers:           layers,
		input:            input,
		numOutputs:       outputs,
		numInputs:        features,
		batchSize:        batch,
		hiddenSizes:      hiddenSizes,
		biases:           biases,
		activations:      activations,
		outputActivation: outputActivation,
		learnables:       nil,
		model:            nil,
	}
	_, err := network.fwd(input)
	if err != nil {
		msg := "newmultiheadmlpfrominput: could not compute forward pass: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return &network, nil
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes. The number of output nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// layer is always added such that given any input, the number of
// predictions will be outputs. The final layer contains a bias unit
// and applies outputActivation, which may be Identity() for value
// networks or TanH() for policies with actions bounded in [-1, 1].
//
// The function works such that for index i, hiddenSizes[i] is the
// number of nodes in hidden layer i; biases[i] is true if the
// hidden layer will contain a bias unit and false otherwise; and
// activations[i] is the activation function for hidden layer i. The
// parameter init determines the weight initialization scheme.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, outputActivation *Activation) (NeuralNet,
	error) {
	if err := validateMLP(hiddenSizes, biases, activations); err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: %v", err)
	}
	if outputActivation == nil {
		outputActivation = Identity()
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	return newMultiHeadMLPFromInput([]*G.Node{input}, outputs, g, hiddenSizes,
		biases, init, activations, "", "", outputActivation, true)
}

// Graph returns the computational graph of the multiHeadMLP.
func (e *multiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// Clone clones a multiHeadMLP
func (e *multiHeadMLP) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// cloneWithInputTo clones a multiHeadMLP to a specific computational
// graph with a specified input node. If multiple input nodes are
// given, then they are first concatenated along the specified axis.
func (e *multiHeadMLP) cloneWithInputTo(axis int, inputs []*G.Node,
	graph *G.ExprGraph) (NeuralNet, error) {
	// Ensure inputs share the same graph
	for _, input := range inputs {
		if input.Graph() != graph {
			return nil, fmt.Errorf("clonewithinputto: not all inputs " +
				"have the same graph")
		}
	}

	// Concatenate inputs if necessary
	var input *G.Node
	if len(inputs) > 1 {
		input = G.Must(G.Concat(axis, inputs...))
	} else {
		input = inputs[0]
	}

	if !input.IsMatrix() {
		return nil, fmt.Errorf("clonewithinputto: input must be a matrix node")
	}

	// Copy fully connected layers
	l := make([]Layer, len(e.layers))
	for i := range e.layers {
		l[i] = e.layers[i].CloneTo(graph)
	}

	batchSize := input.Shape()[0]

	// Create the network and run the forward pass on the input node
	network := multiHeadMLP{
		g:                graph,
		layers:           l,
		input:            input,
		numOutputs:       e.numOutputs,
		numInputs:        input.Shape()[1],
		batchSize:        batchSize,
		hiddenSizes:      e.hiddenSizes,
		biases:           e.biases,
		activations:      e.activations,
		outputActivation: e.outputActivation,
	}
	_, err := network.fwd(input)
	if err != nil {
		return nil, fmt.Errorf("clonewithinputto: could not compute "+
			"forward pass: %v", err)
	}

	return &network, nil
}

// CloneWithBatch clones a multiHeadMLP with a new input batch
// size.
func (e *multiHeadMLP) CloneWithBatch(
	batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	// Create the input node
	inputShape := e.input.Shape()
	var input *G.Node
	if e.input.IsMatrix() {
		batchShape := append([]int{batchSize}, inputShape[1:]...)
		input = G.NewMatrix(
			graph,
			tensor.Float64,
			G.WithShape(batchShape...),
			G.WithName("input"),
			G.WithInit(G.Zeroes()),
		)
	} else {
		return nil, fmt.Errorf("clonewithbatch: invalid input type")
	}

	return e.cloneWithInputTo(-1, []*G.Node{input}, graph)
}

// BatchSize returns the batch size of inputs to the network
func (e *multiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single input
// vector that the network takes as input.
func (e *multiHeadMLP) Features() []int {
	return []int{e.numInputs}
}

// Outputs returns the number of outputs per output layer of the
// network
func (e *multiHeadMLP) Outputs() []int {
	return []int{e.numOutputs}
}

// OutputLayers returns the number of layers that produce predictions
func (e *multiHeadMLP) OutputLayers() int {
	return len(e.Prediction())
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *multiHeadMLP) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of a multiHeadMLP to be equal to the
// weights of another NeuralNet with the same architecture
func (e *multiHeadMLP) Set(source NeuralNet) error {
	return setLearnables(e, source)
}

// Polyak sets the weights of a multiHeadMLP to be a Polyak
// average between its current weights and the weights of another
// NeuralNet with the same architecture
func (e *multiHeadMLP) Polyak(source NeuralNet, tau float64) error {
	return polyakLearnables(e, source, tau)
}

// Learnables returns the learnable nodes in a multiHeadMLP
func (e *multiHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		e.learnables = e.computeLearnables()
	}
	return e.learnables
}

// computeLearnables computes all the learnables for the network
func (e *multiHeadMLP) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(e.layers))

	for i := range e.layers {
		learnables = append(learnables, e.layers[i].Weights())
		if bias := e.layers[i].Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return G.Nodes(learnables)
}

// Model returns the learnable nodes with their gradients.
func (e *multiHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		e.model = e.computeModel()
	}
	return e.model
}

// computeModel computes the model for the network
func (e *multiHeadMLP) computeModel() []G.ValueGrad {
	model := make([]G.ValueGrad, 0, 2*len(e.layers))
	for _, node := range e.Learnables() {
		model = append(model, node)
	}
	return model
}

// fwd performs the forward pass of the multiHeadMLP on the input
// node
func (e *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	inputShape := input.Shape()[len(input.Shape())-1]
	if inputShape != e.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", e.numInputs, inputShape)
	}

	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred

	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// Output returns the output of the multiHeadMLP after the last
// forward pass it computed.
func (e *multiHeadMLP) Output() []G.Value {
	return []G.Value{e.predVal}
}

// Prediction returns the node of the computational graph that stores
// the output of the multiHeadMLP
func (e *multiHeadMLP) Prediction() []*G.Node {
	return []*G.Node{e.prediction}
}

// GobEncode implements the gob.GobEncoder interface
func (e *multiHeadMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(e.numOutputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of outputs")
	}

	err = enc.Encode(e.numInputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of inputs")
	}

	err = enc.Encode(e.BatchSize())
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size")
	}

	err = enc.Encode(e.hiddenSizes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden sizes")
	}

	err = enc.Encode(e.biases)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode biases")
	}

	err = enc.Encode(e.activations)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activations")
	}

	err = enc.Encode(e.outputActivation)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode output activation")
	}

	// Store the layer weights
	for i, layer := range e.layers {
		err := enc.Encode(layer.(*fcLayer))
		if err != nil {
			msg := "gobencode: could not encode layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (e *multiHeadMLP) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numOutputs int
	err := dec.Decode(&numOutputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of outputs")
	}

	var numInputs int
	err = dec.Decode(&numInputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of inputs")
	}

	var batchSize int
	err = dec.Decode(&batchSize)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size")
	}

	var hiddenSizes []int
	err = dec.Decode(&hiddenSizes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden sizes")
	}

	var biases []bool
	err = dec.Decode(&biases)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode biases")
	}

	var activations []*Activation
	err = dec.Decode(&activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode activations")
	}

	var outputActivation *Activation
	err = dec.Decode(&outputActivation)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode output activation")
	}

	// Create a new MLP with the decoded architecture, then fill its
	// layers with the decoded weight values
	g := G.NewGraph()
	newNet, err := NewMultiHeadMLP(numInputs, batchSize, numOutputs, g,
		hiddenSizes, biases, G.Zeroes(), activations, outputActivation)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}
	newMLP := newNet.(*multiHeadMLP)

	for i := range newMLP.layers {
		err = dec.Decode(newMLP.layers[i].(*fcLayer))
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %v: %v", i,
				err)
		}
	}

	*e = *newMLP
	return nil
}
