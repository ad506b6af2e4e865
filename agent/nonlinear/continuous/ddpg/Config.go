package ddpg

import (
	"fmt"

	"github.com/samuelfneumann/goddpg/agent"
	env "github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/expreplay"
	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/solver"
)

func init() {
	// Register ConfigList type so that it can be typed using
	// agent.TypedConfigList to help with serialization/deserialization.
	agent.Register(agent.DeterministicDDPGMLP, ConfigList{})
}

// ConfigList implements a list of Config's in a more efficient manner
// than simply using a slice of Config's.
type ConfigList struct {
	// Policy neural network architecture
	PolicyLayers      [][]int
	PolicyBiases      [][]bool
	PolicyActivations [][]*network.Activation
	PolicySolver      []*solver.Solver

	// Critic neural network architecture. Root layers process states
	// alone, after which actions are concatenated with the root
	// network's features and processed by the leaf layers.
	CriticRootLayers      [][]int
	CriticRootBiases      [][]bool
	CriticRootActivations [][]*network.Activation
	CriticLeafLayers      [][]int
	CriticLeafBiases      [][]bool
	CriticLeafActivations [][]*network.Activation
	CriticSolver          []*solver.Solver

	// Initialization algorithm for weights
	InitWFn []*initwfn.InitWFn

	// Experience replay parameters
	ExpReplay []expreplay.Config

	// Target net updates
	Tau                  []float64 // Polyak averaging constant
	TargetUpdateInterval []int     // Number of gradient steps between updates

	// Learning schedule
	LearnEvery         []int // Number of observed transitions per round
	ConsecutiveUpdates []int // Number of gradient updates per round

	// Ornstein-Uhlenbeck exploration noise
	NoiseMu             []float64
	NoiseTheta          []float64
	NoiseSigma          []float64
	InitialNoiseScale   []float64
	NoiseDecayPerRound  []float64
	NoiseDecayPerUpdate []float64
}

// NewConfigList returns a new ConfigList as an agent.TypedConfigList.
// Because the returned value is a TypedList, it can safely be JSON
// serialized and deserialized without specifying what the type of
// the ConfigList is.
func NewConfigList(
	PolicyLayers [][]int,
	PolicyBiases [][]bool,
	PolicyActivations [][]*network.Activation,
	PolicySolver []*solver.Solver,
	CriticRootLayers [][]int,
	CriticRootBiases [][]bool,
	CriticRootActivations [][]*network.Activation,
	CriticLeafLayers [][]int,
	CriticLeafBiases [][]bool,
	CriticLeafActivations [][]*network.Activation,
	CriticSolver []*solver.Solver,
	InitWFn []*initwfn.InitWFn,
	ExpReplay []expreplay.Config,
	Tau []float64,
	TargetUpdateInterval []int,
	LearnEvery []int,
	ConsecutiveUpdates []int,
	NoiseMu []float64,
	NoiseTheta []float64,
	NoiseSigma []float64,
	InitialNoiseScale []float64,
	NoiseDecayPerRound []float64,
	NoiseDecayPerUpdate []float64,
) agent.TypedConfigList {
	configs := ConfigList{
		PolicyLayers:          PolicyLayers,
		PolicyBiases:          PolicyBiases,
		PolicyActivations:     PolicyActivations,
		PolicySolver:          PolicySolver,
		CriticRootLayers:      CriticRootLayers,
		CriticRootBiases:      CriticRootBiases,
		CriticRootActivations: CriticRootActivations,
		CriticLeafLayers:      CriticLeafLayers,
		CriticLeafBiases:      CriticLeafBiases,
		CriticLeafActivations: CriticLeafActivations,
		CriticSolver:          CriticSolver,
		InitWFn:               InitWFn,
		ExpReplay:             ExpReplay,
		Tau:                   Tau,
		TargetUpdateInterval:  TargetUpdateInterval,
		LearnEvery:            LearnEvery,
		ConsecutiveUpdates:    ConsecutiveUpdates,
		NoiseMu:               NoiseMu,
		NoiseTheta:            NoiseTheta,
		NoiseSigma:            NoiseSigma,
		InitialNoiseScale:     InitialNoiseScale,
		NoiseDecayPerRound:    NoiseDecayPerRound,
		NoiseDecayPerUpdate:   NoiseDecayPerUpdate,
	}

	return agent.NewTypedConfigList(configs)
}

// Type returns the type of Config stored in the list
func (c ConfigList) Type() agent.Type {
	return c.Config().Type()
}

// Config returns an empty Config of the same type as that stored
// by the ConfigList
func (c ConfigList) Config() agent.Config {
	return Config{}
}

// Len returns the number of Config's in the list
func (c ConfigList) Len() int {
	return len(c.PolicyLayers) * len(c.PolicyBiases) *
		len(c.PolicyActivations) * len(c.PolicySolver) *
		len(c.CriticRootLayers) * len(c.CriticRootBiases) *
		len(c.CriticRootActivations) * len(c.CriticLeafLayers) *
		len(c.CriticLeafBiases) * len(c.CriticLeafActivations) *
		len(c.CriticSolver) * len(c.InitWFn) * len(c.ExpReplay) *
		len(c.Tau) * len(c.TargetUpdateInterval) * len(c.LearnEvery) *
		len(c.ConsecutiveUpdates) * len(c.NoiseMu) * len(c.NoiseTheta) *
		len(c.NoiseSigma) * len(c.InitialNoiseScale) *
		len(c.NoiseDecayPerRound) * len(c.NoiseDecayPerUpdate)
}

// Config implements a configuration for a DDPG agent
type Config struct {
	// Policy neural network architecture
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation
	PolicySolver      *solver.Solver

	// Critic neural network architecture. Root layers process states
	// alone, after which actions are concatenated with the root
	// network's features and processed by the leaf layers.
	CriticRootLayers      []int
	CriticRootBiases      []bool
	CriticRootActivations []*network.Activation
	CriticLeafLayers      []int
	CriticLeafBiases      []bool
	CriticLeafActivations []*network.Activation
	CriticSolver          *solver.Solver

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	// Experience replay parameters
	ExpReplay expreplay.Config

	// Target net updates
	Tau                  float64 // Polyak averaging constant
	TargetUpdateInterval int     // Number of gradient steps between updates

	// Learning schedule. Once every LearnEvery observed transitions, a
	// round of ConsecutiveUpdates gradient updates is performed.
	LearnEvery         int
	ConsecutiveUpdates int

	// Ornstein-Uhlenbeck exploration noise. The noise added to actions
	// is scaled by a factor starting at InitialNoiseScale and decaying
	// multiplicatively with every learning round and every gradient
	// update.
	NoiseMu             float64
	NoiseTheta          float64
	NoiseSigma          float64
	InitialNoiseScale   float64
	NoiseDecayPerRound  float64
	NoiseDecayPerUpdate float64
}

// BatchSize returns the batch size of the agent constructed using this
// Config
func (c Config) BatchSize() int {
	return c.ExpReplay.BatchSize()
}

// Type returns the type of the configuration
func (c Config) Type() agent.Type {
	return agent.DeterministicDDPGMLP
}

// Validate checks a Config to ensure it is a valid configuration of a
// DDPG agent.
func (c Config) Validate() error {
	if len(c.PolicyLayers) != len(c.PolicyBiases) {
		return fmt.Errorf("config: invalid number of policy biases"+
			"\n\twant(%v)\n\thave(%v)", len(c.PolicyLayers),
			len(c.PolicyBiases))
	}
	if len(c.PolicyLayers) != len(c.PolicyActivations) {
		return fmt.Errorf("config: invalid number of policy activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.PolicyLayers),
			len(c.PolicyActivations))
	}

	if len(c.CriticRootLayers) != len(c.CriticRootBiases) {
		return fmt.Errorf("config: invalid number of critic root biases"+
			"\n\twant(%v)\n\thave(%v)", len(c.CriticRootLayers),
			len(c.CriticRootBiases))
	}
	if len(c.CriticRootLayers) != len(c.CriticRootActivations) {
		return fmt.Errorf("config: invalid number of critic root activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.CriticRootLayers),
			len(c.CriticRootActivations))
	}
	if len(c.CriticLeafLayers) != len(c.CriticLeafBiases) {
		return fmt.Errorf("config: invalid number of critic leaf biases"+
			"\n\twant(%v)\n\thave(%v)", len(c.CriticLeafLayers),
			len(c.CriticLeafBiases))
	}
	if len(c.CriticLeafLayers) != len(c.CriticLeafActivations) {
		return fmt.Errorf("config: invalid number of critic leaf activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.CriticLeafLayers),
			len(c.CriticLeafActivations))
	}

	if c.PolicySolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("config: policy and critic solvers must be set")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("config: weight initializer must be set")
	}

	if c.Tau <= 0 || c.Tau > 1.0 {
		return fmt.Errorf("config: tau must be in (0, 1] \n\thave(%v)", c.Tau)
	}
	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("config: target networks must be updated at "+
			"positive gradient step intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateInterval)
	}
	if c.LearnEvery < 1 {
		return fmt.Errorf("config: learning rounds must occur at positive "+
			"timestep intervals \n\twant(>0) \n\thave(%v)", c.LearnEvery)
	}
	if c.ConsecutiveUpdates < 1 {
		return fmt.Errorf("config: learning rounds must perform a positive "+
			"number of updates \n\twant(>0) \n\thave(%v)",
			c.ConsecutiveUpdates)
	}

	if c.NoiseSigma < 0 {
		return fmt.Errorf("config: noise scale σ must be non-negative "+
			"\n\thave(%v)", c.NoiseSigma)
	}
	if c.InitialNoiseScale < 0 {
		return fmt.Errorf("config: initial noise scale must be non-negative "+
			"\n\thave(%v)", c.InitialNoiseScale)
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*DDPG)
	return ok
}

// CreateAgent creates a new DDPG agent based on the configuration
func (c Config) CreateAgent(e env.Environment, s uint64) (agent.Agent,
	error) {
	return New(e, c, int64(s))
}
