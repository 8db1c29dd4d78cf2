package session

import (
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/utils"
)

// AllReduce leaves in RecvBuf of every peer the combination with OP of the
// SendBuf of all peers.
func (sess *Session) AllReduce(w base.Workspace) error {
	log.Debugf("%s allreduce %s of %s", sess.prefix, w.Name, utils.ShowSize(int64(len(w.SendBuf.Data))))
	return sess.allReduce(w)
}
