package execution

import (
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"golang.org/x/sync/errgroup"
)

// PeerFunc is an action applied to one peer.
type PeerFunc func(plan.PeerID) error

// Par runs a function for a list of Peers in parallel and reports every failure.
func Par(ps plan.PeerList, f func(plan.PeerID) error) error {
	errs := make([]error, len(ps))
	var g errgroup.Group
	for i, p := range ps {
		i, p := i, p
		g.Go(func() error {
			errs[i] = f(p)
			return errs[i]
		})
	}
	g.Wait()
	return utils.MergeErrors(errs, "par")
}

// Seq runs a function for a list of Peers sequentially
func Seq(ps plan.PeerList, f func(plan.PeerID) error) error {
	for _, p := range ps {
		if err := f(p); err != nil {
			return err
		}
	}
	return nil
}

func (f PeerFunc) Par(ps plan.PeerList) error { return Par(ps, f) }

func (f PeerFunc) Seq(ps plan.PeerList) error { return Seq(ps, f) }
