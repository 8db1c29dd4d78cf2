package base

import (
	"fmt"

	"github.com/lsds/shardcomm/srcs/go/plan"
)

// Workspace names one collective call: RecvBuf receives the result of
// combining the SendBuf of every peer with OP. SendBuf and RecvBuf may be
// the same vector.
type Workspace struct {
	SendBuf *Vector
	RecvBuf *Vector
	OP      OP
	Name    string
}

func (w Workspace) IsEmpty() bool {
	return w.SendBuf.IsEmpty()
}

func (w Workspace) IsInplace() bool {
	if w.SendBuf == w.RecvBuf {
		return true
	}
	return len(w.SendBuf.Data) > 0 && len(w.RecvBuf.Data) > 0 && &w.SendBuf.Data[0] == &w.RecvBuf.Data[0]
}

// Forward makes RecvBuf hold SendBuf.
func (w Workspace) Forward() {
	if !w.IsInplace() {
		copy(w.RecvBuf.Data, w.SendBuf.Data)
	}
}

// Split cuts w into k workspaces over consecutive, nearly equal element
// ranges. Each part is named after w and its range.
func (w Workspace) Split(k int) []Workspace {
	parts := plan.EvenPartition(plan.Interval{End: w.SendBuf.Count}, k)
	ws := make([]Workspace, len(parts))
	for i, r := range parts {
		ws[i] = Workspace{
			SendBuf: w.SendBuf.Slice(r.Begin, r.End),
			RecvBuf: w.RecvBuf.Slice(r.Begin, r.End),
			OP:      w.OP,
			Name:    fmt.Sprintf("%s[%d:%d]", w.Name, r.Begin, r.End),
		}
	}
	return ws
}
