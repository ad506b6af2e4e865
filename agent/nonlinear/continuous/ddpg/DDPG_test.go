package ddpg

import (
	"math"
	"testing"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/environment/classiccontrol/pendulum"
	"github.com/samuelfneumann/goddpg/expreplay"
	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/solver"
	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// newTestAgent returns a DDPG agent with small networks on a pendulum
// environment that always starts episodes at the state (0.5, 0.0),
// along with the environment and its first timestep. The agent's
// learning schedule runs a round of 2 gradient updates every 3
// observed transitions on minibatches of 2 transitions, and its replay
// buffer requires 4 stored transitions before sampling.
func newTestAgent(t *testing.T) (*DDPG, environment.Environment,
	timestep.TimeStep) {
	t.Helper()

	policySol, err := solver.NewDefaultAdam(0.0001, 2)
	if err != nil {
		t.Fatal(err)
	}
	criticSol, err := solver.NewDefaultAdam(0.001, 2)
	if err != nil {
		t.Fatal(err)
	}
	initWFn, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}

	conf := Config{
		PolicyLayers:      []int{4},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{network.ReLU()},
		PolicySolver:      policySol,

		CriticRootLayers:      []int{4},
		CriticRootBiases:      []bool{true},
		CriticRootActivations: []*network.Activation{network.ReLU()},
		CriticLeafLayers:      []int{4},
		CriticLeafBiases:      []bool{true},
		CriticLeafActivations: []*network.Activation{network.ReLU()},
		CriticSolver:          criticSol,

		InitWFn: initWFn,
		ExpReplay: expreplay.Config{
			RemoveMethod:      expreplay.Fifo,
			SampleMethod:      expreplay.Uniform,
			RemoveSize:        1,
			SampleSize:        2,
			MaxReplayCapacity: 16,
			MinReplayCapacity: 4,
		},

		Tau:                  0.001,
		TargetUpdateInterval: 1,
		LearnEvery:           3,
		ConsecutiveUpdates:   2,

		NoiseMu:             0.0,
		NoiseTheta:          0.15,
		NoiseSigma:          0.2,
		InitialNoiseScale:   1.0,
		NoiseDecayPerRound:  0.975,
		NoiseDecayPerUpdate: 0.999,
	}

	bounds := []r1.Interval{
		{Min: 0.5, Max: 0.5},
		{Min: 0.0, Max: 0.0},
	}
	starter := environment.NewUniformStarter(bounds, 1)
	env, firstStep := pendulum.NewContinuous(
		pendulum.NewSwingUp(starter, 1000), 0.99)

	agent, err := New(env, conf, 13)
	if err != nil {
		t.Fatal(err)
	}
	return agent, env, firstStep
}

// observe steps the environment with a zero action and records the
// transition with the agent
func observe(t *testing.T, agent *DDPG, env environment.Environment) {
	t.Helper()

	action := mat.NewVecDense(1, []float64{0.0})
	next, _ := env.Step(action)
	if err := agent.Observe(action, next); err != nil {
		t.Fatal(err)
	}
}

func TestDDPGLearningSchedule(t *testing.T) {
	agent, env, firstStep := newTestAgent(t)
	defer agent.Close()

	if err := agent.ObserveFirst(firstStep); err != nil {
		t.Fatal(err)
	}

	// Learning rounds arm only once every 3 observed transitions
	for i := 0; i < 2; i++ {
		observe(t, agent, env)
		if agent.learnReady {
			t.Fatalf("observe: learning round armed after %v observations",
				i+1)
		}
	}
	observe(t, agent, env)
	if !agent.learnReady {
		t.Fatal("observe: learning round not armed after 3 observations")
	}

	// A round on a replay buffer below its minimum capacity anneals the
	// noise but performs no gradient updates and returns no error
	if err := agent.Step(); err != nil {
		t.Fatalf("step: error on a replay buffer below minimum capacity: %v",
			err)
	}
	if agent.gradientSteps != 0 {
		t.Fatalf("step: %v gradient updates on a replay buffer below "+
			"minimum capacity", agent.gradientSteps)
	}
	if agent.learnReady {
		t.Fatal("step: learning round still armed after running")
	}
	wantScale := 0.975
	if scale := agent.behaviourPolicy.NoiseScale(); scale != wantScale {
		t.Errorf("step: expected noise scale %v, got %v", wantScale, scale)
	}

	// Once the buffer holds enough transitions, an armed round runs 2
	// consecutive gradient updates
	for i := 0; i < 3; i++ {
		observe(t, agent, env)
	}
	if !agent.learnReady {
		t.Fatal("observe: learning round not armed after 3 more observations")
	}
	if err := agent.Step(); err != nil {
		t.Fatal(err)
	}
	if agent.gradientSteps != 2 {
		t.Fatalf("step: expected 2 gradient updates, got %v",
			agent.gradientSteps)
	}
	wantScale = 0.975 * 0.975 * 0.999 * 0.999
	if scale := agent.behaviourPolicy.NoiseScale(); math.Abs(
		scale-wantScale) > 1e-12 {
		t.Errorf("step: expected noise scale %v, got %v", wantScale, scale)
	}

	// Unarmed calls are no-ops
	if err := agent.Step(); err != nil {
		t.Fatal(err)
	}
	if agent.gradientSteps != 2 {
		t.Errorf("step: unarmed call performed %v gradient updates",
			agent.gradientSteps-2)
	}
	if scale := agent.behaviourPolicy.NoiseScale(); math.Abs(
		scale-wantScale) > 1e-12 {
		t.Errorf("step: unarmed call changed noise scale to %v", scale)
	}
}

func TestDDPGEndEpisodeRestartsSchedule(t *testing.T) {
	agent, env, firstStep := newTestAgent(t)
	defer agent.Close()

	if err := agent.ObserveFirst(firstStep); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		observe(t, agent, env)
	}
	if !agent.learnReady {
		t.Fatal("observe: learning round not armed after 3 observations")
	}

	agent.EndEpisode()
	if agent.learnReady {
		t.Error("endepisode: learning round still armed")
	}
	if agent.observations != 0 {
		t.Errorf("endepisode: observation count not restarted, got %v",
			agent.observations)
	}

	// The observation count restarts, so arming again takes a full 3
	// observations
	first := env.Reset()
	if err := agent.ObserveFirst(first); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		observe(t, agent, env)
		if agent.learnReady {
			t.Fatalf("observe: learning round armed after %v observations "+
				"of the new episode", i+1)
		}
	}
	observe(t, agent, env)
	if !agent.learnReady {
		t.Error("observe: learning round not armed after 3 observations " +
			"of the new episode")
	}
}
