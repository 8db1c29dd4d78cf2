// Package config holds process wide tuning knobs. Each can be overridden
// by an environment variable, which the launcher forwards to every worker.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/pkg/errors"
)

const (
	ConnRetryCount  = 500
	ConnRetryPeriod = 200 * time.Millisecond
)

const (
	EnableStallDetectionEnvKey = `SHARDCOMM_CONFIG_ENABLE_STALL_DETECTION`
	LogLevelEnvKey             = `SHARDCOMM_CONFIG_LOG_LEVEL`
	StrategyHashMethodEnvKey   = `SHARDCOMM_CONFIG_STRATEGY_HASH_METHOD`
	ChunkSizeEnvKey            = `SHARDCOMM_CONFIG_CHUNK_SIZE`
	StallPeriodEnvKey          = `SHARDCOMM_CONFIG_STALL_PERIOD`
)

var (
	EnableStallDetection = false
	LogLevel             = `INFO`
	StrategyHashMethod   = `NAME`
	ChunkSize            = 1 << 20
	StallPeriod          = 10 * time.Second
)

var errNonPositive = errors.New("must be positive")

type setter func(string) error

var setters = map[string]setter{
	EnableStallDetectionEnvKey: func(v string) (err error) {
		EnableStallDetection, err = strconv.ParseBool(v)
		return err
	},
	LogLevelEnvKey: func(v string) error {
		LogLevel = strings.ToUpper(v)
		return nil
	},
	StrategyHashMethodEnvKey: func(v string) error {
		StrategyHashMethod = strings.ToUpper(v)
		return nil
	},
	ChunkSizeEnvKey: func(v string) error {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return err
		}
		if n == 0 {
			return errNonPositive
		}
		ChunkSize = int(n)
		return nil
	},
	StallPeriodEnvKey: func(v string) (err error) {
		StallPeriod, err = time.ParseDuration(v)
		return err
	},
}

// ConfigEnvKeys are forwarded by the launcher to every worker.
var ConfigEnvKeys = []string{
	EnableStallDetectionEnvKey,
	LogLevelEnvKey,
	StrategyHashMethodEnvKey,
	ChunkSizeEnvKey,
	StallPeriodEnvKey,
}

// Load applies every variable of ConfigEnvKeys that getenv returns.
func Load(getenv func(string) string) error {
	for _, k := range ConfigEnvKeys {
		if v := getenv(k); v != "" {
			if err := setters[k](v); err != nil {
				return errors.Wrapf(err, "%s=%q", k, v)
			}
		}
	}
	return nil
}

func init() {
	if err := Load(os.Getenv); err != nil {
		utils.ExitErr(err)
	}
}
