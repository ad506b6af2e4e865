package ddpg

import (
	"testing"

	"github.com/samuelfneumann/goddpg/expreplay"
	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/solver"
)

// validConfig returns a valid DDPG configuration for use in tests
func validConfig(t *testing.T) Config {
	t.Helper()

	policySol, err := solver.NewDefaultAdam(0.0001, 1)
	if err != nil {
		t.Fatal(err)
	}
	criticSol, err := solver.NewAdam(0.001, 1e-8, 0.9, 0.999, 1, 1.0, 0.0001)
	if err != nil {
		t.Fatal(err)
	}
	initWFn, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}

	return Config{
		PolicyLayers:      []int{32, 32},
		PolicyBiases:      []bool{true, true},
		PolicyActivations: []*network.Activation{
			network.ReLU(),
			network.ReLU(),
		},
		PolicySolver: policySol,

		CriticRootLayers:      []int{32},
		CriticRootBiases:      []bool{true},
		CriticRootActivations: []*network.Activation{network.ReLU()},
		CriticLeafLayers:      []int{32},
		CriticLeafBiases:      []bool{true},
		CriticLeafActivations: []*network.Activation{network.ReLU()},
		CriticSolver:          criticSol,

		InitWFn: initWFn,
		ExpReplay: expreplay.Config{
			RemoveMethod:      expreplay.Fifo,
			SampleMethod:      expreplay.Uniform,
			RemoveSize:        1,
			SampleSize:        8,
			MaxReplayCapacity: 64,
			MinReplayCapacity: 8,
		},

		Tau:                  0.001,
		TargetUpdateInterval: 1,
		LearnEvery:           4,
		ConsecutiveUpdates:   2,

		NoiseMu:             0.0,
		NoiseTheta:          0.15,
		NoiseSigma:          0.2,
		InitialNoiseScale:   1.0,
		NoiseDecayPerRound:  0.975,
		NoiseDecayPerUpdate: 0.999,
	}
}

func TestConfigValidateAcceptsValidConfig(t *testing.T) {
	conf := validConfig(t)
	if err := conf.Validate(); err != nil {
		t.Errorf("validate: valid config rejected: %v", err)
	}
}

func TestConfigValidateRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			"mismatched policy biases",
			func(c *Config) { c.PolicyBiases = []bool{true} },
		},
		{
			"mismatched policy activations",
			func(c *Config) {
				c.PolicyActivations = []*network.Activation{network.ReLU()}
			},
		},
		{
			"mismatched critic root biases",
			func(c *Config) { c.CriticRootBiases = nil },
		},
		{
			"mismatched critic leaf activations",
			func(c *Config) { c.CriticLeafActivations = nil },
		},
		{
			"missing solver",
			func(c *Config) { c.CriticSolver = nil },
		},
		{
			"missing weight initializer",
			func(c *Config) { c.InitWFn = nil },
		},
		{
			"non-positive tau",
			func(c *Config) { c.Tau = 0.0 },
		},
		{
			"tau above 1",
			func(c *Config) { c.Tau = 1.5 },
		},
		{
			"non-positive target update interval",
			func(c *Config) { c.TargetUpdateInterval = 0 },
		},
		{
			"non-positive learning interval",
			func(c *Config) { c.LearnEvery = 0 },
		},
		{
			"non-positive consecutive updates",
			func(c *Config) { c.ConsecutiveUpdates = -1 },
		},
		{
			"negative noise sigma",
			func(c *Config) { c.NoiseSigma = -0.1 },
		},
		{
			"negative noise scale",
			func(c *Config) { c.InitialNoiseScale = -1.0 },
		},
	}

	for _, test := range tests {
		conf := validConfig(t)
		test.mutate(&conf)
		if err := conf.Validate(); err == nil {
			t.Errorf("validate: config with %v accepted", test.name)
		}
	}
}

func TestConfigBatchSize(t *testing.T) {
	conf := validConfig(t)
	if conf.BatchSize() != conf.ExpReplay.SampleSize {
		t.Errorf("batchSize: expected %v, got %v", conf.ExpReplay.SampleSize,
			conf.BatchSize())
	}
}
