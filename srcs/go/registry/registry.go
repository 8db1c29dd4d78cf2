// Package registry holds the groups of one process for every parallel mode.
package registry

import (
	"github.com/lsds/shardcomm/srcs/go/comm"
	"github.com/lsds/shardcomm/srcs/go/device"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/ordergroup"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/pkg/errors"
)

// LaunchConfig describes the place of the calling process in the world.
type LaunchConfig struct {
	Rank      int
	WorldSize int
	// LocalRank is the index of the process on its host, used to pick a device.
	LocalRank int
	Parallel  parallel.Config
	ForceCPU  bool
}

// Context implements comm.Registry.
type Context struct {
	rank    int
	layout  *parallel.Layout
	backend comm.Backend
	device  device.Device
	groups  map[parallel.Mode]comm.Group
	queues  map[parallel.Mode]*ordergroup.OrderGroup
}

var errNoGroup = errors.New("no group joined for mode")

// Launch joins, through b, the group of every parallel mode that contains
// cfg.Rank. Every process of the world must call Launch with the same
// WorldSize and Parallel config.
func Launch(cfg LaunchConfig, b comm.Backend) (*Context, error) {
	layout, err := parallel.NewLayout(cfg.WorldSize, cfg.Parallel)
	if err != nil {
		return nil, err
	}
	if cfg.Rank < 0 || cfg.Rank >= cfg.WorldSize {
		return nil, errors.Errorf("rank %d out of world of %d", cfg.Rank, cfg.WorldSize)
	}
	ctx := &Context{
		rank:    cfg.Rank,
		layout:  layout,
		backend: b,
		device:  device.Resolver{LocalRank: cfg.LocalRank, ForceCPU: cfg.ForceCPU}.Current(),
		groups:  make(map[parallel.Mode]comm.Group),
		queues:  make(map[parallel.Mode]*ordergroup.OrderGroup),
	}
	for _, m := range parallel.Modes {
		ranks := layout.GroupOf(m, cfg.Rank)
		g, err := b.JoinGroup(ranks)
		if err != nil {
			return nil, errors.Wrapf(err, "join %s group %v", m, ranks)
		}
		ctx.groups[m] = g
		ctx.queues[m] = ordergroup.New()
		log.Debugf("rank %d joined %s group %v as %d", cfg.Rank, m, ranks, g.Rank())
	}
	log.Infof("rank %d launched on %s: %s", cfg.Rank, ctx.device, layout)
	return ctx, nil
}

func (c *Context) Rank() int { return c.rank }

func (c *Context) Layout() parallel.Layout { return *c.layout }

func (c *Context) WorldSize(m parallel.Mode) int {
	return c.layout.Size(m)
}

func (c *Context) Group(m parallel.Mode) (comm.Group, error) {
	g, ok := c.groups[m]
	if !ok {
		return nil, errors.Wrap(errNoGroup, m.String())
	}
	return g, nil
}

func (c *Context) LocalRank(m parallel.Mode) int {
	return c.layout.LocalRank(m, c.rank)
}

func (c *Context) Device() device.Device { return c.device }

func (c *Context) Backend() comm.Backend { return c.backend }

func (c *Context) Queue(m parallel.Mode) *ordergroup.OrderGroup {
	if q, ok := c.queues[m]; ok {
		return q
	}
	return c.queues[parallel.Global]
}

// Close waits for pending operations and closes the backend.
func (c *Context) Close() error {
	for _, q := range c.queues {
		q.Wait()
	}
	return c.backend.Close()
}
