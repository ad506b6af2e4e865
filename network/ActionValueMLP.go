package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// actionValueMLP implements a multi-layered perceptron which predicts
// the action value of continuous state-action pairs. The network takes
// two separate inputs, a batch of states and a batch of actions, and
// predicts a single scalar action value for each row in the batch.
//
// States are first processed alone by a root network. The root
// network's features are then concatenated with the raw actions and
// processed by a leaf network, which predicts the action value. A
// final linear layer is always added to the leaf network so that the
// predictions are unbounded scalars:
//
//	            ╭───────╮   ╭─────────────╮
//	state ────→ │ root  │ → │             │
//	            ╰───────╯   │    leaf     │ ──→ Q(state, action)
//	action ───────────────→ │             │
//	                        ╰─────────────╯
//
// The root network may have no hidden layers, in which case actions
// are concatenated directly with states at the input to the leaf
// network.
type actionValueMLP struct {
	g       *G.ExprGraph
	rootNet *multiHeadMLP
	leafNet *multiHeadMLP

	stateInput  *G.Node
	actionInput *G.Node

	numStates  int
	numActions int
	batchSize  int

	// Data needed for gobbing
	rootHiddenSizes []int
	rootBiases      []bool
	rootActivations []*Activation
	leafHiddenSizes []int
	leafBiases      []bool
	leafActivations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad
}

// NewActionValueMLP creates and returns a new action value MLP for
// continuous actions. The graph parameter g is populated with the
// network.
//
// States are processed by the hidden layers determined by
// rootHiddenSizes, rootBiases, and rootActivations before being
// concatenated with actions. The concatenation is processed by the
// hidden layers determined by leafHiddenSizes, leafBiases, and
// leafActivations, after which a final linear layer predicts a single
// action value per batch row. If rootHiddenSizes is empty, actions
// are concatenated directly with states.
func NewActionValueMLP(states, actions, batch int, g *G.ExprGraph,
	rootHiddenSizes []int, rootBiases []bool, rootActivations []*Activation,
	leafHiddenSizes []int, leafBiases []bool, leafActivations []*Activation,
	init G.InitWFn) (NeuralNet, error) {
	// Set up the state and action input nodes
	state := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, states),
		G.WithName("state"), G.WithInit(G.Zeroes()))
	action := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, actions),
		G.WithName("action"), G.WithInit(G.Zeroes()))

	return newActionValueMLPFromInputs(state, action, g, rootHiddenSizes,
		rootBiases, rootActivations, leafHiddenSizes, leafBiases,
		leafActivations, init)
}

// newActionValueMLPFromInputs returns a new action value MLP that has
// specific state and action nodes as its input nodes. The action node
// need not be an input node of the graph. In such cases the network
// predicts the action values of actions computed elsewhere in the
// graph, such as the predictions of a policy network.
func newActionValueMLPFromInputs(state, action *G.Node, g *G.ExprGraph,
	rootHiddenSizes []int, rootBiases []bool, rootActivations []*Activation,
	leafHiddenSizes []int, leafBiases []bool, leafActivations []*Activation,
	init G.InitWFn) (*actionValueMLP, error) {
	if !state.IsMatrix() || !action.IsMatrix() {
		return nil, fmt.Errorf("newactionvaluemlpfrominputs: state and " +
			"action inputs must be matrices")
	}
	if state.Shape()[0] != action.Shape()[0] {
		msg := "newactionvaluemlpfrominputs: state and action inputs must " +
			"have the same batch size \n\tstate(%v) \n\taction(%v)"
		return nil, fmt.Errorf(msg, state.Shape()[0], action.Shape()[0])
	}

	batch := state.Shape()[0]
	numStates := state.Shape()[1]
	numActions := action.Shape()[1]

	// States are processed by the root network alone. Actions do not
	// influence the predictions until the leaf network.
	var rootNet *multiHeadMLP
	var err error
	leafInputs := []*G.Node{state, action}
	if len(rootHiddenSizes) != 0 {
		rootNet, err = newMultiHeadMLPFromInput([]*G.Node{state},
			rootHiddenSizes[len(rootHiddenSizes)-1], g, rootHiddenSizes,
			rootBiases, init, rootActivations, "Root", "", nil, false)
		if err != nil {
			msg := "newactionvaluemlpfrominputs: could not create root " +
				"network: %v"
			return nil, fmt.Errorf(msg, err)
		}
		leafInputs = []*G.Node{rootNet.Prediction()[0], action}
	}

	leafNet, err := newMultiHeadMLPFromInput(leafInputs, 1, g,
		leafHiddenSizes, leafBiases, init, leafActivations, "Leaf", "",
		Identity(), true)
	if err != nil {
		msg := "newactionvaluemlpfrominputs: could not create leaf " +
			"network: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return &actionValueMLP{
		g:               g,
		rootNet:         rootNet,
		leafNet:         leafNet,
		stateInput:      state,
		actionInput:     action,
		numStates:       numStates,
		numActions:      numActions,
		batchSize:       batch,
		rootHiddenSizes: rootHiddenSizes,
		rootBiases:      rootBiases,
		rootActivations: rootActivations,
		leafHiddenSizes: leafHiddenSizes,
		leafBiases:      leafBiases,
		leafActivations: leafActivations,
	}, nil
}

// Graph returns the computational graph of the actionValueMLP
func (a *actionValueMLP) Graph() *G.ExprGraph {
	return a.g
}

// Clone clones an actionValueMLP
func (a *actionValueMLP) Clone() (NeuralNet, error) {
	return a.CloneWithBatch(a.batchSize)
}

// CloneWithBatch clones an actionValueMLP with a new input batch size
func (a *actionValueMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	state := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(batchSize, a.numStates), G.WithName("state"),
		G.WithInit(G.Zeroes()))
	action := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(batchSize, a.numActions), G.WithName("action"),
		G.WithInit(G.Zeroes()))

	return a.cloneWithInputTo(1, []*G.Node{state, action}, graph)
}

// cloneWithInputTo clones an actionValueMLP to a new computational
// graph with specified input nodes. Exactly two inputs are required.
// The first is used as the state input and the second as the action
// input. The axis parameter is ignored, since states and actions are
// only ever concatenated along the feature dimension.
func (a *actionValueMLP) cloneWithInputTo(axis int, inputs []*G.Node,
	graph *G.ExprGraph) (NeuralNet, error) {
	if len(inputs) != 2 {
		msg := "clonewithinputto: action value networks require a state " +
			"and an action input \n\twant(2) \n\thave(%v)"
		return nil, fmt.Errorf(msg, len(inputs))
	}
	state, action := inputs[0], inputs[1]
	if state.Graph() != graph || action.Graph() != graph {
		return nil, fmt.Errorf("clonewithinputto: not all inputs have " +
			"the same graph")
	}

	var rootClone *multiHeadMLP
	leafInputs := []*G.Node{state, action}
	if a.rootNet != nil {
		net, err := a.rootNet.cloneWithInputTo(1, []*G.Node{state}, graph)
		if err != nil {
			msg := "clonewithinputto: could not clone root network: %v"
			return nil, fmt.Errorf(msg, err)
		}
		rootClone = net.(*multiHeadMLP)
		leafInputs = []*G.Node{rootClone.Prediction()[0], action}
	}

	net, err := a.leafNet.cloneWithInputTo(1, leafInputs, graph)
	if err != nil {
		msg := "clonewithinputto: could not clone leaf network: %v"
		return nil, fmt.Errorf(msg, err)
	}
	leafClone := net.(*multiHeadMLP)

	return &actionValueMLP{
		g:               graph,
		rootNet:         rootClone,
		leafNet:         leafClone,
		stateInput:      state,
		actionInput:     action,
		numStates:       a.numStates,
		numActions:      a.numActions,
		batchSize:       state.Shape()[0],
		rootHiddenSizes: a.rootHiddenSizes,
		rootBiases:      a.rootBiases,
		rootActivations: a.rootActivations,
		leafHiddenSizes: a.leafHiddenSizes,
		leafBiases:      a.leafBiases,
		leafActivations: a.leafActivations,
	}, nil
}

// BatchSize returns the batch size of inputs to the network
func (a *actionValueMLP) BatchSize() int {
	return a.batchSize
}

// Features returns the number of state features and the number of
// action dimensions that the network takes as input.
func (a *actionValueMLP) Features() []int {
	return []int{a.numStates, a.numActions}
}

// Outputs returns the number of outputs per output layer of the
// network. Action value networks predict a single scalar per
// state-action pair.
func (a *actionValueMLP) Outputs() []int {
	return []int{1}
}

// OutputLayers returns the number of layers that produce predictions
func (a *actionValueMLP) OutputLayers() int {
	return len(a.Prediction())
}

// SetInput sets the values of the state and action input nodes before
// running the forward pass. The input slice holds the batch of states
// in row major order followed by the batch of actions in row major
// order.
func (a *actionValueMLP) SetInput(input []float64) error {
	stateSize := a.numStates * a.batchSize
	actionSize := a.numActions * a.batchSize
	if len(input) != stateSize+actionSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", stateSize+actionSize, len(input))
	}

	states := tensor.New(
		tensor.WithBacking(input[:stateSize]),
		tensor.WithShape(a.batchSize, a.numStates),
	)
	actions := tensor.New(
		tensor.WithBacking(input[stateSize:]),
		tensor.WithShape(a.batchSize, a.numActions),
	)

	err := G.Let(a.stateInput, states)
	if err != nil {
		return fmt.Errorf("setinput: could not set state input: %v", err)
	}
	err = G.Let(a.actionInput, actions)
	if err != nil {
		return fmt.Errorf("setinput: could not set action input: %v", err)
	}
	return nil
}

// Set sets the weights of an actionValueMLP to be equal to the
// weights of another NeuralNet with the same architecture
func (a *actionValueMLP) Set(source NeuralNet) error {
	return setLearnables(a, source)
}

// Polyak sets the weights of an actionValueMLP to be a Polyak
// average between its current weights and the weights of another
// NeuralNet with the same architecture
func (a *actionValueMLP) Polyak(source NeuralNet, tau float64) error {
	return polyakLearnables(a, source, tau)
}

// Learnables returns the learnable nodes in an actionValueMLP
func (a *actionValueMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if a.learnables == nil {
		var learnables G.Nodes
		if a.rootNet != nil {
			learnables = append(learnables, a.rootNet.Learnables()...)
		}
		learnables = append(learnables, a.leafNet.Learnables()...)
		a.learnables = learnables
	}
	return a.learnables
}

// Model returns the learnable nodes with their gradients.
func (a *actionValueMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if a.model == nil {
		var model []G.ValueGrad
		for _, node := range a.Learnables() {
			model = append(model, node)
		}
		a.model = model
	}
	return a.model
}

// Output returns the output of the actionValueMLP after the last
// forward pass it computed.
func (a *actionValueMLP) Output() []G.Value {
	return a.leafNet.Output()
}

// Prediction returns the node of the computational graph that stores
// the output of the actionValueMLP
func (a *actionValueMLP) Prediction() []*G.Node {
	return a.leafNet.Prediction()
}

// layers returns all fully connected layers of the network, root
// layers first.
func (a *actionValueMLP) layers() []Layer {
	var l []Layer
	if a.rootNet != nil {
		l = append(l, a.rootNet.layers...)
	}
	return append(l, a.leafNet.layers...)
}

// GobEncode implements the gob.GobEncoder interface
func (a *actionValueMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(a.numStates)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of states")
	}

	err = enc.Encode(a.numActions)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of actions")
	}

	err = enc.Encode(a.batchSize)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size")
	}

	err = enc.Encode(a.rootHiddenSizes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode root hidden sizes")
	}

	err = enc.Encode(a.rootBiases)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode root biases")
	}

	err = enc.Encode(a.rootActivations)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode root activations")
	}

	err = enc.Encode(a.leafHiddenSizes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode leaf hidden sizes")
	}

	err = enc.Encode(a.leafBiases)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode leaf biases")
	}

	err = enc.Encode(a.leafActivations)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode leaf activations")
	}

	// Store the layer weights, root layers first
	for i, layer := range a.layers() {
		err := enc.Encode(layer.(*fcLayer))
		if err != nil {
			msg := "gobencode: could not encode layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *actionValueMLP) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numStates int
	err := dec.Decode(&numStates)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of states")
	}

	var numActions int
	err = dec.Decode(&numActions)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of actions")
	}

	var batchSize int
	err = dec.Decode(&batchSize)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size")
	}

	var rootHiddenSizes []int
	err = dec.Decode(&rootHiddenSizes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode root hidden sizes")
	}

	var rootBiases []bool
	err = dec.Decode(&rootBiases)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode root biases")
	}

	var rootActivations []*Activation
	err = dec.Decode(&rootActivations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode root activations")
	}

	var leafHiddenSizes []int
	err = dec.Decode(&leafHiddenSizes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode leaf hidden sizes")
	}

	var leafBiases []bool
	err = dec.Decode(&leafBiases)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode leaf biases")
	}

	var leafActivations []*Activation
	err = dec.Decode(&leafActivations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode leaf activations")
	}

	// Create a new network with the decoded architecture, then fill
	// its layers with the decoded weight values
	g := G.NewGraph()
	newNet, err := NewActionValueMLP(numStates, numActions, batchSize, g,
		rootHiddenSizes, rootBiases, rootActivations, leafHiddenSizes,
		leafBiases, leafActivations, G.Zeroes())
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new network: %v",
			err)
	}
	newMLP := newNet.(*actionValueMLP)

	for i, layer := range newMLP.layers() {
		err = dec.Decode(layer.(*fcLayer))
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %v: %v", i,
				err)
		}
	}

	*a = *newMLP
	return nil
}
