package plan

// Interval is the half-open range [Begin, End).
type Interval struct {
	Begin int
	End   int
}

func (i Interval) Len() int { return i.End - i.Begin }

// EvenPartition splits r into k consecutive parts whose lengths differ by
// at most one; the longer parts come first.
func EvenPartition(r Interval, k int) []Interval {
	parts := make([]Interval, k)
	n, extra := r.Len()/k, r.Len()%k
	at := r.Begin
	for i := range parts {
		size := n
		if i < extra {
			size++
		}
		parts[i] = Interval{Begin: at, End: at + size}
		at += size
	}
	return parts
}

// CeilPartition splits r into parts of ceil(len/k), the last one possibly
// shorter, so fewer than k parts come back when r is short. An empty r
// gives none.
func CeilPartition(r Interval, k int) []Interval {
	if r.Len() <= 0 || k <= 0 {
		return nil
	}
	size := (r.Len() + k - 1) / k
	var parts []Interval
	for at := r.Begin; at < r.End; at += size {
		parts = append(parts, Interval{Begin: at, End: min(at+size, r.End)})
	}
	return parts
}
