// Package env reads the configuration that shardcomm-run passes to workers.
package env

import (
	"os"
	"strconv"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

const DefaultSeed = 1024

// Config is what a worker learns about its job from the environment.
type Config struct {
	Self      plan.PeerID
	InitPeers plan.PeerList
	Strategy  base.Strategy
	Parallel  parallel.Config
	Seed      int64
	JobID     string

	// Single is set when the process was not started by shardcomm-run.
	Single bool
}

func (c Config) Rank() int {
	r, _ := c.InitPeers.Rank(c.Self)
	return r
}

func (c Config) LocalRank() int {
	r, _ := c.InitPeers.LocalRank(c.Self)
	return r
}

func standalone() *Config {
	self := plan.PeerID{IPv4: plan.DefaultHostSpec.IPv4, Port: plan.DefaultPortRange.Begin}
	return &Config{
		Self:      self,
		InitPeers: plan.PeerList{self},
		Strategy:  base.DefaultStrategy,
		Parallel:  parallel.DefaultConfig,
		Seed:      DefaultSeed,
		Single:    true,
	}
}

// ParseConfigFromEnv reads the variables set by shardcomm-run. A process
// without SelfSpecEnvKey runs alone.
func ParseConfigFromEnv() (*Config, error) {
	spec, ok := os.LookupEnv(SelfSpecEnvKey)
	if !ok {
		return standalone(), nil
	}
	self, err := plan.ParsePeerID(spec)
	if err != nil {
		return nil, errors.Wrap(err, SelfSpecEnvKey)
	}
	peers, err := plan.ParsePeerList(os.Getenv(PeerListEnvKey))
	if err != nil {
		return nil, errors.Wrap(err, PeerListEnvKey)
	}
	if _, ok := peers.Rank(self); !ok {
		return nil, errors.Errorf("%s %s is not in %s %s", SelfSpecEnvKey, self, PeerListEnvKey, peers)
	}
	cfg := &Config{
		Self:      self,
		InitPeers: peers,
		Strategy:  base.DefaultStrategy,
		Parallel:  parallel.DefaultConfig,
		Seed:      DefaultSeed,
		JobID:     os.Getenv(JobIDEnvKey),
	}
	if val := os.Getenv(AllReduceStrategyEnvKey); val != "" {
		if cfg.Strategy, err = base.ParseStrategy(val); err != nil {
			return nil, err
		}
	}
	for key, dst := range map[string]*int{
		PipelineSizeEnvKey: &cfg.Parallel.PipelineSize,
		TensorSizeEnvKey:   &cfg.Parallel.TensorSize,
	} {
		if err := intFromEnv(key, dst); err != nil {
			return nil, err
		}
	}
	if val := os.Getenv(SeedEnvKey); val != "" {
		if cfg.Seed, err = strconv.ParseInt(val, 10, 64); err != nil {
			return nil, errors.Wrap(err, SeedEnvKey)
		}
	}
	return cfg, nil
}

// intFromEnv leaves dst alone when key is unset or empty.
func intFromEnv(key string, dst *int) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return errors.Wrap(err, key)
	}
	*dst = n
	return nil
}
