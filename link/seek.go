package link

import "github.com/etalazz/durapack/frame"

// Resolver returns the frame ids a skip-list-carrying frame links directly
// to, in whatever order its opaque payload encodes them. durapack does not
// fix a skip-list payload format, so Seek takes the resolver as an explicit
// function rather than parsing a fixed layout itself.
type Resolver func(current frame.Frame) []uint64

// Seek follows the largest skip-list link that does not overshoot target,
// starting from the frame with id from, falling back to a linear walk over
// t.Frames when no skip-list link helps. This is an optimisation over the
// linear walk, not a correctness requirement: a nil resolver (or one that
// returns no candidates) degrades gracefully to pure linear search.
func Seek(t Timeline, from, target uint64, resolve Resolver) (frame.Frame, bool) {
	byID := make(map[uint64]frame.Frame, len(t.Frames))
	indexOf := make(map[uint64]int, len(t.Frames))
	for i, f := range t.Frames {
		byID[f.Header.FrameID] = f
		indexOf[f.Header.FrameID] = i
	}

	current, ok := byID[from]
	if !ok {
		return frame.Frame{}, false
	}
	if current.Header.FrameID == target {
		return current, true
	}

	visited := make(map[uint64]bool)
	for {
		if current.Header.FrameID == target {
			return current, true
		}
		if visited[current.Header.FrameID] {
			return frame.Frame{}, false
		}
		visited[current.Header.FrameID] = true

		if next, ok := bestSkipCandidate(current, target, resolve, byID); ok {
			current = next
			continue
		}

		idx, ok := indexOf[current.Header.FrameID]
		if !ok || idx+1 >= len(t.Frames) {
			return frame.Frame{}, false
		}
		current = t.Frames[idx+1]
	}
}

func bestSkipCandidate(current frame.Frame, target uint64, resolve Resolver, byID map[uint64]frame.Frame) (frame.Frame, bool) {
	if resolve == nil {
		return frame.Frame{}, false
	}
	best := uint64(0)
	found := false
	for _, candidateID := range resolve(current) {
		if candidateID > target {
			continue
		}
		if _, exists := byID[candidateID]; !exists {
			continue
		}
		if !found || candidateID > best {
			best = candidateID
			found = true
		}
	}
	if !found {
		return frame.Frame{}, false
	}
	return byID[best], true
}
