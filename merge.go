package filemon

// diffOp classifies one item of a sorted merge.
type diffOp uint8

const (
	// onlyCached: the name exists in the cached sequence only.
	onlyCached diffOp = iota + 1
	// onlyLive: the name exists in the live listing only.
	onlyLive
	// both: the name exists on both sides.
	both
)

// diffItem is one element of a reconciliation between a cached sequence and
// a live directory listing. cached is the zero value when op is onlyLive.
type diffItem[T any] struct {
	op     diffOp
	name   string
	cached T
}

// diffSorted merges a cached sequence with a live name listing, both
// strictly sorted ascending, into a single ordered diff. name extracts the
// sort key of a cached element.
func diffSorted[T any](cached []T, name func(T) string, live []string) []diffItem[T] {
	items := make([]diffItem[T], 0, max(len(cached), len(live)))
	i, j := 0, 0
	for i < len(cached) && j < len(live) {
		cn := name(cached[i])
		switch {
		case cn == live[j]:
			items = append(items, diffItem[T]{op: both, name: cn, cached: cached[i]})
			i++
			j++
		case cn < live[j]:
			items = append(items, diffItem[T]{op: onlyCached, name: cn, cached: cached[i]})
			i++
		default:
			items = append(items, diffItem[T]{op: onlyLive, name: live[j]})
			j++
		}
	}
	for ; i < len(cached); i++ {
		items = append(items, diffItem[T]{op: onlyCached, name: name(cached[i]), cached: cached[i]})
	}
	for ; j < len(live); j++ {
		items = append(items, diffItem[T]{op: onlyLive, name: live[j]})
	}
	return items
}
