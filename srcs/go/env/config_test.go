package env

import (
	"testing"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseConfigFromEnv(t *testing.T) {
	t.Setenv(SelfSpecEnvKey, "127.0.0.1:10001")
	t.Setenv(PeerListEnvKey, "127.0.0.1:10000,127.0.0.1:10001,127.0.0.1:10002,127.0.0.1:10003")
	t.Setenv(AllReduceStrategyEnvKey, "RING")
	t.Setenv(TensorSizeEnvKey, "2")
	t.Setenv(SeedEnvKey, "7")
	t.Setenv(JobIDEnvKey, "job-1")

	cfg, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Single)
	assert.Equal(t, 1, cfg.Rank())
	assert.Equal(t, 1, cfg.LocalRank())
	assert.Equal(t, base.Ring, cfg.Strategy)
	assert.Equal(t, 1, cfg.Parallel.PipelineSize)
	assert.Equal(t, 2, cfg.Parallel.TensorSize)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "job-1", cfg.JobID)
}

func Test_ParseConfigFromEnv_Errors(t *testing.T) {
	t.Setenv(SelfSpecEnvKey, "127.0.0.1:9999")
	t.Setenv(PeerListEnvKey, "127.0.0.1:10000")
	_, err := ParseConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(SelfSpecEnvKey, "127.0.0.1:10000")
	t.Setenv(SeedEnvKey, "x")
	_, err = ParseConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(SeedEnvKey, "")
	t.Setenv(AllReduceStrategyEnvKey, "NOPE")
	_, err = ParseConfigFromEnv()
	assert.Error(t, err)
}

func Test_Standalone(t *testing.T) {
	cfg, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Single)
	assert.Equal(t, 0, cfg.Rank())
	assert.Len(t, cfg.InitPeers, 1)
	assert.Equal(t, int64(DefaultSeed), cfg.Seed)
	assert.Equal(t, parallel.DefaultConfig, cfg.Parallel)
}
