// Package ddpg implements the Deep Deterministic Policy Gradient
// algorithm. DDPG learns a deterministic policy over continuous
// actions together with an action value critic. The critic is updated
// towards one-step TD targets computed by target networks, and the
// policy is updated by following the gradient of the critic's value
// of the policy's own actions.
//
// See Lillicrap et al. "Continuous control with deep reinforcement
// learning" for algorithmic details.
package ddpg

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/goddpg/agent"
	"github.com/samuelfneumann/goddpg/agent/nonlinear/continuous/policy"
	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/expreplay"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/solver"
	ts "github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DDPG implements the Deep Deterministic Policy Gradient algorithm.
//
// The agent holds a number of networks, each on its own computational
// graph:
//
//	behaviourPolicy: batch size 1, selects actions with exploration
//		noise added.
//	trainCritic: learns action values by minimizing the mean squared
//		TD error against targets fed through the targetQ, rewards,
//		and discounts nodes.
//	trainActor and composedCritic: clones of the policy network and
//		the training critic on a single shared graph, where the
//		critic clone's action input is the actor clone's prediction.
//		The policy improvement step follows the gradient of the
//		composed critic's value with respect to the actor clone's
//		weights only.
//	targetActor and targetCritic: slowly updated copies that compute
//		the TD target r + γQ'(s', μ'(s')).
//	evalCritic: batch size 1 copy of the training critic for
//		computing TD errors of single transitions.
//
// Weights flow between graphs by value: after each gradient update,
// the behaviour policy and the composed critic are set to the newly
// learned weights, and the target networks track the learned weights
// by Polyak averaging.
//
// Learning is gated: a learning round of consecutive gradient updates
// runs once every learnEvery observed transitions, and exploration
// noise is annealed a little with every round and every update.
type DDPG struct {
	behaviourPolicy agent.NoisyNNPolicy

	// Critic training
	trainCritic   network.NeuralNet
	trainCriticVM G.VM
	criticSolver  *solver.Solver

	// Input nodes of the critic's loss
	targetQ   *G.Node
	rewards   *G.Node
	discounts *G.Node

	// Policy improvement
	trainActor     network.NeuralNet
	composedCritic network.NeuralNet
	trainActorVM   G.VM
	policySolver   *solver.Solver

	// Target networks
	targetActor    network.NeuralNet
	targetActorVM  G.VM
	targetCritic   network.NeuralNet
	targetCriticVM G.VM

	// TD error evaluation
	evalCritic   network.NeuralNet
	evalCriticVM G.VM

	replay expreplay.ExperienceReplayer

	// Target network update schedule
	tau                  float64
	targetUpdateInterval int

	// Learning schedule
	learnEvery         int
	consecutiveUpdates int
	observations       int
	gradientSteps      int
	learnReady         bool

	// Exploration noise annealing
	noiseDecayPerRound  float64
	noiseDecayPerUpdate float64

	nextStep  ts.TimeStep
	batchSize int
}

// New creates and returns a new DDPG agent on the argument environment
func New(env environment.Environment, config Config,
	seed int64) (*DDPG, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if env.ActionSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("new: ddpg requires continuous actions")
	}

	numFeatures := env.ObservationSpec().Shape.Len()
	numActions := env.ActionSpec().Shape.Len()
	batchSize := config.BatchSize()
	init := config.InitWFn.InitWFn()

	// Behaviour policy for action selection
	gPolicy := G.NewGraph()
	behaviourPolicy, err := policy.NewDeterministicMLP(
		env,
		1,
		gPolicy,
		config.PolicyLayers,
		config.PolicyBiases,
		init,
		config.PolicyActivations,
		config.NoiseMu,
		config.NoiseTheta,
		config.NoiseSigma,
		config.InitialNoiseScale,
		seed,
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour policy: %v",
			err)
	}

	// Target actor at the training batch size. Clones copy weights by
	// value, so all networks created below start from the same
	// initialization as the behaviour policy and training critic.
	targetActor, err := behaviourPolicy.Network().CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target actor: %v", err)
	}
	targetActorVM := G.NewTapeMachine(targetActor.Graph())

	// Training critic
	gCritic := G.NewGraph()
	trainCritic, err := network.NewActionValueMLP(
		numFeatures,
		numActions,
		batchSize,
		gCritic,
		config.CriticRootLayers,
		config.CriticRootBiases,
		config.CriticRootActivations,
		config.CriticLeafLayers,
		config.CriticLeafBiases,
		config.CriticLeafActivations,
		init,
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic: %v", err)
	}

	// Create nodes to compute the TD target: r + γ * Q'(s', μ'(s')).
	// The target action values are predicted by the target networks
	// and fed through the targetQ node.
	targetQ := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batchSize, 1), G.WithName("targetQ"))
	rewards := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batchSize, 1), G.WithName("rewards"))
	discounts := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batchSize, 1), G.WithName("discounts"))

	updateTarget := G.Must(G.HadamardProd(discounts, targetQ))
	updateTarget = G.Must(G.Add(updateTarget, rewards))

	// Compute the Mean Squared TD error
	losses := G.Must(G.Sub(updateTarget, trainCritic.Prediction()[0]))
	losses = G.Must(G.Square(losses))
	criticCost := G.Must(G.Mean(losses))

	_, err = G.Grad(criticCost, trainCritic.Learnables()...)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute critic gradient: %v",
			err)
	}
	trainCriticVM := G.NewTapeMachine(
		gCritic,
		G.BindDualValues(trainCritic.Learnables()...),
	)

	// Target critic
	targetCritic, err := trainCritic.Clone()
	if err != nil {
		return nil, fmt.Errorf("new: could not create target critic: %v", err)
	}
	targetCriticVM := G.NewTapeMachine(targetCritic.Graph())

	// Compose the policy network and the training critic onto a
	// single graph to compute the deterministic policy gradient. The
	// policy improvement cost is -mean[Q(s, μ(s))], and gradients are
	// taken with respect to the actor clone's weights only.
	trainActor, composedCritic, err := network.ComposeActorCritic(targetActor,
		trainCritic)
	if err != nil {
		return nil, fmt.Errorf("new: could not compose policy and critic: %v",
			err)
	}

	policyCost := G.Must(G.Neg(G.Must(G.Mean(
		composedCritic.Prediction()[0]))))

	_, err = G.Grad(policyCost, trainActor.Learnables()...)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute policy gradient: %v",
			err)
	}
	trainActorVM := G.NewTapeMachine(
		trainActor.Graph(),
		G.BindDualValues(trainActor.Learnables()...),
	)

	// Evaluation critic for single-transition TD errors
	evalCritic, err := trainCritic.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create evaluation critic: %v",
			err)
	}
	evalCriticVM := G.NewTapeMachine(evalCritic.Graph())

	// Create the experience replay buffer. DDPG computes the next
	// actions itself with the target actor, so next actions are not
	// stored.
	replay, err := config.ExpReplay.Create(numFeatures, numActions, seed,
		false)
	if err != nil {
		return nil, fmt.Errorf("new: could not create experience replay "+
			"buffer: %v", err)
	}

	return &DDPG{
		behaviourPolicy: behaviourPolicy,

		trainCritic:   trainCritic,
		trainCriticVM: trainCriticVM,
		criticSolver:  config.CriticSolver,

		targetQ:   targetQ,
		rewards:   rewards,
		discounts: discounts,

		trainActor:     trainActor,
		composedCritic: composedCritic,
		trainActorVM:   trainActorVM,
		policySolver:   config.PolicySolver,

		targetActor:    targetActor,
		targetActorVM:  targetActorVM,
		targetCritic:   targetCritic,
		targetCriticVM: targetCriticVM,

		evalCritic:   evalCritic,
		evalCriticVM: evalCriticVM,

		replay: replay,

		tau:                  config.Tau,
		targetUpdateInterval: config.TargetUpdateInterval,

		learnEvery:         config.LearnEvery,
		consecutiveUpdates: config.ConsecutiveUpdates,

		noiseDecayPerRound:  config.NoiseDecayPerRound,
		noiseDecayPerUpdate: config.NoiseDecayPerUpdate,

		nextStep:  ts.TimeStep{},
		batchSize: batchSize,
	}, nil
}

// ObserveFirst observes and records the first episodic timestep
func (d *DDPG) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)\n", t.Number)
	}
	d.nextStep = t

	return nil
}

// Observe observes and records any timestep other than the first
// timestep. The transition from the last observed timestep under the
// argument action is added to the replay buffer immediately, so
// transitions into terminal states are recorded like any other.
func (d *DDPG) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if d.nextStep.Observation == nil {
		return fmt.Errorf("observe: no previous timestep, ObserveFirst() " +
			"must be called at the start of each episode")
	}

	actionVec, ok := action.(*mat.VecDense)
	if !ok {
		actionVec = mat.VecDenseCopyOf(action)
	}

	transition := ts.NewTransition(d.nextStep, actionVec, nextStep, nil)
	if err := d.replay.Add(transition); err != nil {
		return fmt.Errorf("observe: could not add to replay buffer: %v", err)
	}

	d.nextStep = nextStep
	d.observations++
	if d.observations%d.learnEvery == 0 {
		d.learnReady = true
	}

	return nil
}

// Step updates the weights of the agent's policy and critic networks.
// Updates are gated: once every learnEvery observed transitions, the
// next call to Step anneals the exploration noise and runs a round of
// consecutive gradient updates. All other calls are no-ops. Rounds on
// a replay buffer still below its minimum capacity anneal the noise
// but perform no updates.
func (d *DDPG) Step() error {
	if !d.learnReady {
		return nil
	}
	d.learnReady = false

	scale := d.behaviourPolicy.NoiseScale() * d.noiseDecayPerRound
	d.behaviourPolicy.SetNoiseScale(scale)

	for i := 0; i < d.consecutiveUpdates; i++ {
		err := d.update()
		if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
			// Not enough experience to learn from yet
			return nil
		}
		if err != nil {
			return fmt.Errorf("step: %v", err)
		}
	}

	return nil
}

// update performs a single gradient update on a minibatch sampled from
// the experience replay buffer
func (d *DDPG) update() error {
	S, A, R, discount, NextS, _, err := d.replay.Sample()
	if err != nil {
		return err
	}

	// Predict the next actions μ'(s') with the target actor
	if err := d.targetActor.SetInput(NextS); err != nil {
		return fmt.Errorf("update: could not set target actor input: %v", err)
	}
	if err := d.targetActorVM.RunAll(); err != nil {
		return fmt.Errorf("update: could not run target actor: %v", err)
	}
	nextActions := d.targetActor.Output()[0].Data().([]float64)

	// Predict the next action values Q'(s', μ'(s')) with the target
	// critic
	targetInput := make([]float64, len(NextS)+len(nextActions))
	copy(targetInput, NextS)
	copy(targetInput[len(NextS):], nextActions)
	if err := d.targetCritic.SetInput(targetInput); err != nil {
		return fmt.Errorf("update: could not set target critic input: %v", err)
	}
	if err := d.targetCriticVM.RunAll(); err != nil {
		return fmt.Errorf("update: could not run target critic: %v", err)
	}

	// Feed the TD target components into the critic's loss
	if err := G.Let(d.targetQ, d.targetCritic.Output()[0]); err != nil {
		return fmt.Errorf("update: could not set next action values: %v", err)
	}

	rewardTensor := tensor.New(tensor.WithBacking(R),
		tensor.WithShape(d.batchSize, 1))
	if err := G.Let(d.rewards, rewardTensor); err != nil {
		return fmt.Errorf("update: could not set rewards: %v", err)
	}

	discountTensor := tensor.New(tensor.WithBacking(discount),
		tensor.WithShape(d.batchSize, 1))
	if err := G.Let(d.discounts, discountTensor); err != nil {
		return fmt.Errorf("update: could not set discounts: %v", err)
	}

	d.targetActorVM.Reset()
	d.targetCriticVM.Reset()

	// Update the critic
	trainInput := make([]float64, len(S)+len(A))
	copy(trainInput, S)
	copy(trainInput[len(S):], A)
	if err := d.trainCritic.SetInput(trainInput); err != nil {
		return fmt.Errorf("update: could not set critic input: %v", err)
	}
	if err := d.trainCriticVM.RunAll(); err != nil {
		return fmt.Errorf("update: could not run critic update: %v", err)
	}
	if err := d.criticSolver.Step(d.trainCritic.Model()); err != nil {
		return fmt.Errorf("update: could not step critic solver: %v", err)
	}
	d.trainCriticVM.Reset()

	// Update the policy using the critic's newly learned weights
	if err := d.composedCritic.Set(d.trainCritic); err != nil {
		return fmt.Errorf("update: could not sync composed critic: %v", err)
	}
	if err := d.trainActor.SetInput(S); err != nil {
		return fmt.Errorf("update: could not set policy input: %v", err)
	}
	if err := d.trainActorVM.RunAll(); err != nil {
		return fmt.Errorf("update: could not run policy update: %v", err)
	}
	if err := d.policySolver.Step(d.trainActor.Model()); err != nil {
		return fmt.Errorf("update: could not step policy solver: %v", err)
	}
	d.trainActorVM.Reset()

	// The behaviour policy acts with the newly learned weights
	if err := d.behaviourPolicy.Network().Set(d.trainActor); err != nil {
		return fmt.Errorf("update: could not sync behaviour policy: %v", err)
	}

	d.gradientSteps++
	scale := d.behaviourPolicy.NoiseScale() * d.noiseDecayPerUpdate
	d.behaviourPolicy.SetNoiseScale(scale)

	// Update the target networks to track the newly learned weights
	if d.gradientSteps%d.targetUpdateInterval == 0 {
		if d.tau == 1.0 {
			if err := d.targetCritic.Set(d.trainCritic); err != nil {
				return fmt.Errorf("update: could not set target critic: %v",
					err)
			}
			if err := d.targetActor.Set(d.trainActor); err != nil {
				return fmt.Errorf("update: could not set target actor: %v",
					err)
			}
		} else {
			err := d.targetCritic.Polyak(d.trainCritic, d.tau)
			if err != nil {
				return fmt.Errorf("update: could not update target critic: %v",
					err)
			}
			err = d.targetActor.Polyak(d.trainActor, d.tau)
			if err != nil {
				return fmt.Errorf("update: could not update target actor: %v",
					err)
			}
		}
	}

	return nil
}

// SelectAction returns an action selected by the behaviour policy at
// the argument timestep. In training mode, exploration noise is added
// to the selected action.
func (d *DDPG) SelectAction(t ts.TimeStep) *mat.VecDense {
	return d.behaviourPolicy.SelectAction(t)
}

// TdError computes and returns the TD error of a single transition
// under the agent's current value function and policy
func (d *DDPG) TdError(t ts.Transition) float64 {
	// Compute the next action μ(s') without exploration noise
	wasEval := d.behaviourPolicy.IsEval()
	d.behaviourPolicy.Eval()
	nextAction := d.behaviourPolicy.SelectAction(
		ts.TimeStep{Observation: t.NextState},
	)
	if !wasEval {
		d.behaviourPolicy.Train()
	}

	// The evaluation critic tracks the training critic's weights
	if err := d.evalCritic.Set(d.trainCritic); err != nil {
		panic(fmt.Sprintf("tderror: could not sync evaluation critic: %v",
			err))
	}

	nextQ := d.evalQ(t.NextState.RawVector().Data,
		nextAction.RawVector().Data)
	q := d.evalQ(t.State.RawVector().Data, t.Action.RawVector().Data)

	return t.Reward + t.Discount*nextQ - q
}

// evalQ runs the evaluation critic on a single state-action pair and
// returns the predicted action value
func (d *DDPG) evalQ(state, action []float64) float64 {
	input := make([]float64, len(state)+len(action))
	copy(input, state)
	copy(input[len(state):], action)

	if err := d.evalCritic.SetInput(input); err != nil {
		panic(fmt.Sprintf("evalq: could not set critic input: %v", err))
	}
	if err := d.evalCriticVM.RunAll(); err != nil {
		panic(fmt.Sprintf("evalq: could not run critic: %v", err))
	}
	defer d.evalCriticVM.Reset()

	return d.evalCritic.Output()[0].Data().([]float64)[0]
}

// EndEpisode performs cleanup at the end of an episode. The
// exploration noise process returns to its initial state and the
// learning round schedule restarts.
func (d *DDPG) EndEpisode() {
	d.behaviourPolicy.ResetNoise()
	d.observations = 0
	d.learnReady = false
}

// Eval sets the agent into evaluation mode, where actions are selected
// without exploration noise
func (d *DDPG) Eval() {
	d.behaviourPolicy.Eval()
}

// Train sets the agent into training mode, where exploration noise is
// added to selected actions
func (d *DDPG) Train() {
	d.behaviourPolicy.Train()
}

// IsEval returns whether the agent is in evaluation mode
func (d *DDPG) IsEval() bool {
	return d.behaviourPolicy.IsEval()
}

// Close cleans up the resources of the agent
func (d *DDPG) Close() error {
	vms := []G.VM{
		d.trainCriticVM,
		d.trainActorVM,
		d.targetActorVM,
		d.targetCriticVM,
		d.evalCriticVM,
	}

	var firstErr error
	for _, vm := range vms {
		if err := vm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := d.behaviourPolicy.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// GobEncode implements the gob.GobEncoder interface so that the
// agent's learned state can be checkpointed
func (d *DDPG) GobEncode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := gob.NewEncoder(buf)

	policyNet := d.behaviourPolicy.Network()
	if err := enc.Encode(&policyNet); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode policy "+
			"network: %v", err)
	}

	noiseScale := d.behaviourPolicy.NoiseScale()
	if err := enc.Encode(noiseScale); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode noise scale: %v",
			err)
	}

	if err := enc.Encode(&d.trainCritic); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode critic: %v", err)
	}
	if err := enc.Encode(&d.targetActor); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode target actor: %v",
			err)
	}
	if err := enc.Encode(&d.targetCritic); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode target "+
			"critic: %v", err)
	}

	if err := enc.Encode(d.observations); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode observation "+
			"count: %v", err)
	}
	if err := enc.Encode(d.gradientSteps); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode gradient step "+
			"count: %v", err)
	}
	if err := enc.Encode(d.learnReady); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode learning "+
			"flag: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// weights are loaded into the agent's existing networks, so GobDecode
// can only be called on an agent constructed with New.
func (d *DDPG) GobDecode(in []byte) error {
	buf := bytes.NewBuffer(in)
	dec := gob.NewDecoder(buf)

	var policyNet network.NeuralNet
	if err := dec.Decode(&policyNet); err != nil {
		return fmt.Errorf("gobdecode: could not decode policy network: %v",
			err)
	}

	var noiseScale float64
	if err := dec.Decode(&noiseScale); err != nil {
		return fmt.Errorf("gobdecode: could not decode noise scale: %v", err)
	}

	var trainCritic network.NeuralNet
	if err := dec.Decode(&trainCritic); err != nil {
		return fmt.Errorf("gobdecode: could not decode critic: %v", err)
	}

	var targetActor network.NeuralNet
	if err := dec.Decode(&targetActor); err != nil {
		return fmt.Errorf("gobdecode: could not decode target actor: %v", err)
	}

	var targetCritic network.NeuralNet
	if err := dec.Decode(&targetCritic); err != nil {
		return fmt.Errorf("gobdecode: could not decode target critic: %v",
			err)
	}

	var observations int
	if err := dec.Decode(&observations); err != nil {
		return fmt.Errorf("gobdecode: could not decode observation count: %v",
			err)
	}
	var gradientSteps int
	if err := dec.Decode(&gradientSteps); err != nil {
		return fmt.Errorf("gobdecode: could not decode gradient step "+
			"count: %v", err)
	}
	var learnReady bool
	if err := dec.Decode(&learnReady); err != nil {
		return fmt.Errorf("gobdecode: could not decode learning flag: %v",
			err)
	}

	// Load the decoded weights into the live networks
	if err := d.behaviourPolicy.Network().Set(policyNet); err != nil {
		return fmt.Errorf("gobdecode: could not load policy network: %v", err)
	}
	if err := d.trainActor.Set(policyNet); err != nil {
		return fmt.Errorf("gobdecode: could not load policy network: %v", err)
	}
	if err := d.trainCritic.Set(trainCritic); err != nil {
		return fmt.Errorf("gobdecode: could not load critic: %v", err)
	}
	if err := d.composedCritic.Set(trainCritic); err != nil {
		return fmt.Errorf("gobdecode: could not load critic: %v", err)
	}
	if err := d.evalCritic.Set(trainCritic); err != nil {
		return fmt.Errorf("gobdecode: could not load critic: %v", err)
	}
	if err := d.targetActor.Set(targetActor); err != nil {
		return fmt.Errorf("gobdecode: could not load target actor: %v", err)
	}
	if err := d.targetCritic.Set(targetCritic); err != nil {
		return fmt.Errorf("gobdecode: could not load target critic: %v", err)
	}

	d.behaviourPolicy.SetNoiseScale(noiseScale)
	d.observations = observations
	d.gradientSteps = gradientSteps
	d.learnReady = learnReady

	return nil
}
