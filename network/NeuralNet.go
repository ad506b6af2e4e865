// Package network implements feedforward neural networks on Gorgonia
// computational graphs. Networks constructed by this package share a
// common interface so that learning algorithms can treat policy
// networks, value networks, and action-value networks uniformly.
package network

import (
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func init() {
	// Register network types so that NeuralNets can be encoded and
	// decoded through interface values
	gob.Register(&multiHeadMLP{})
	gob.Register(&actionValueMLP{})
}

// NeuralNet implements a neural network on a Gorgonia computational
// graph. A NeuralNet may have many input nodes and many output layers.
// Features returns the number of input features per input node, and
// Outputs the number of predictions per output layer.
//
// Networks are cloneable. Clones are constructed on fresh graphs and
// share no state with the network they were cloned from; weights are
// copied by value at clone time. CloneWithBatch clones a network but
// alters the batch size of its input, which is how a single
// architecture is reused for both action selection (batch 1) and
// minibatch training.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	cloneWithInputTo(axis int, inputs []*G.Node, g *G.ExprGraph) (NeuralNet,
		error)

	BatchSize() int
	Features() []int
	Outputs() []int
	OutputLayers() int

	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	Output() []G.Value
	Prediction() []*G.Node
}

// Set sets the weights of dest to the weights of source. The networks
// must share an architecture, but may live on different graphs.
func Set(dest, source NeuralNet) error {
	err := dest.Set(source)
	if err != nil {
		return fmt.Errorf("set: could not set weights: %v", err)
	}
	return nil
}

// Polyak blends the weights of dest toward the weights of source:
//
//	θ_dest ← τ * θ_source + (1 - τ) * θ_dest
//
// Target networks are updated with this blending so that they track
// their learned counterparts slowly.
func Polyak(dest, source NeuralNet, tau float64) error {
	err := dest.Polyak(source, tau)
	if err != nil {
		return fmt.Errorf("polyak: could not average weights: %v", err)
	}
	return nil
}

// setLearnables copies the values of source's learnables into dest's
// learnables. The networks must have the same architecture.
func setLearnables(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("mismatched number of learnables \n\twant(%v) "+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		if !destLearnable.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("mismatched learnable shapes \n\twant(%v) "+
				"\n\thave(%v)", destLearnable.Shape(), sourceNodes[i].Shape())
		}

		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// polyakLearnables blends the values of source's learnables into
// dest's learnables with blending factor tau. The networks must have
// the same architecture.
func polyakLearnables(dest, source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("mismatched number of learnables \n\twant(%v) "+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i := range nodes {
		weights, ok := nodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("learnable %v is not a dense tensor", i)
		}
		sourceWeights, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("source learnable %v is not a dense tensor", i)
		}

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		err = G.Let(nodes[i], newWeights)
		if err != nil {
			return err
		}
	}
	return nil
}

// ComposeActorCritic clones a policy network and an action value
// network onto a single new computational graph, wiring the policy
// network's prediction to the action value network's action input.
// The two clones share a single state input node, which is set through
// the returned policy clone's SetInput. A single forward pass of the
// composed graph then computes both the policy's actions μ(s) and the
// action values of those actions Q(s, μ(s)).
//
// Deterministic policy gradient methods construct their policy loss
// this way. Gradients of the action values flow back through the
// action value clone's weights into the policy clone's weights, while
// a solver steps only the policy clone's model.
//
// The actor must be a network with a single input node and the critic
// an action value network. The batch sizes of the two networks must be
// equal, the actor's outputs must match the critic's action
// dimensions, and the actor's features must match the critic's state
// features.
func ComposeActorCritic(actor, critic NeuralNet) (NeuralNet, NeuralNet,
	error) {
	if len(actor.Features()) != 1 {
		msg := "composeactorcritic: actor must have a single input node " +
			"\n\twant(1) \n\thave(%v)"
		return nil, nil, fmt.Errorf(msg, len(actor.Features()))
	}
	if len(critic.Features()) != 2 {
		msg := "composeactorcritic: critic must take a state and an action " +
			"input \n\twant(2) \n\thave(%v)"
		return nil, nil, fmt.Errorf(msg, len(critic.Features()))
	}
	if actor.BatchSize() != critic.BatchSize() {
		msg := "composeactorcritic: mismatched batch sizes \n\tactor(%v) " +
			"\n\tcritic(%v)"
		return nil, nil, fmt.Errorf(msg, actor.BatchSize(),
			critic.BatchSize())
	}
	if actor.Features()[0] != critic.Features()[0] {
		msg := "composeactorcritic: mismatched state features \n\tactor(%v) " +
			"\n\tcritic(%v)"
		return nil, nil, fmt.Errorf(msg, actor.Features()[0],
			critic.Features()[0])
	}
	if actor.Outputs()[0] != critic.Features()[1] {
		msg := "composeactorcritic: actor outputs must match critic action " +
			"dimensions \n\tactor(%v) \n\tcritic(%v)"
		return nil, nil, fmt.Errorf(msg, actor.Outputs()[0],
			critic.Features()[1])
	}

	graph := G.NewGraph()
	state := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(actor.BatchSize(), actor.Features()[0]),
		G.WithName("state"),
		G.WithInit(G.Zeroes()),
	)

	actorClone, err := actor.cloneWithInputTo(1, []*G.Node{state}, graph)
	if err != nil {
		return nil, nil, fmt.Errorf("composeactorcritic: could not clone "+
			"actor: %v", err)
	}

	criticClone, err := critic.cloneWithInputTo(1,
		[]*G.Node{state, actorClone.Prediction()[0]}, graph)
	if err != nil {
		return nil, nil, fmt.Errorf("composeactorcritic: could not clone "+
			"critic: %v", err)
	}

	return actorClone, criticClone, nil
}
