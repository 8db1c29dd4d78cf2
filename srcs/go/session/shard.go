package session

import (
	"github.com/lsds/shardcomm/srcs/go/config"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/spaolacci/murmur3"
)

// strategyHashFunc picks the route of the i-th chunk of a named workspace.
type strategyHashFunc func(i int, name string) uint64

// byIndex spreads the chunks of one workspace over the routes.
func byIndex(i int, _ string) uint64 { return uint64(i) }

// byName hashes the chunk name, which every peer derives alike.
func byName(_ int, name string) uint64 { return murmur3.Sum64([]byte(name)) }

func getStrategyHash() strategyHashFunc {
	switch config.StrategyHashMethod {
	case `NAME`:
		log.Debugf("routing chunks by workspace name")
		return byName
	default:
		return byIndex
	}
}
