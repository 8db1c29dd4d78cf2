package env

// Internal environment variables set by shardcomm-run, users should not set them.
const (
	PeerListEnvKey          = `SHARDCOMM_INIT_PEERS`
	SelfSpecEnvKey          = `SHARDCOMM_SELF_SPEC` // self spec should never change during the life of a process
	AllReduceStrategyEnvKey = `SHARDCOMM_ALLREDUCE_STRATEGY`
	PipelineSizeEnvKey      = `SHARDCOMM_PARALLEL_PIPELINE_SIZE`
	TensorSizeEnvKey        = `SHARDCOMM_PARALLEL_TENSOR_SIZE`
	SeedEnvKey              = `SHARDCOMM_SEED`
	JobIDEnvKey             = `SHARDCOMM_JOB_ID`
)
