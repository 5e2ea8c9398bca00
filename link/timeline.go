// Package link implements the hash-chain linker: it reconstructs a logical
// timeline from an unordered multiset of recovered frames, classifies gaps,
// detects branch conflicts, clusters orphans, and can emit recovery recipes.
package link

import (
	"sort"

	"github.com/etalazz/durapack/frame"
)

// SequenceGap records a point in the timeline where the walk had to jump
// because no direct successor of the current frame was found.
type SequenceGap struct {
	Before       uint64
	After        uint64
	ExpectedHash [32]byte
}

// Timeline is the ordered reconstruction of a frame multiset: the frames
// themselves in chain order, the gaps the walk crossed, and whatever frames
// could not be attached at all.
type Timeline struct {
	Frames  []frame.Frame
	Gaps    []SequenceGap
	Orphans []frame.Frame

	// ReconstructedWithoutFirst is true when no IS_FIRST frame (equivalently
	// prev_hash == 0) existed in the input, so the walk had to start from
	// the smallest frame_id without a strict-start guarantee.
	ReconstructedWithoutFirst bool
}

// Continuity returns ordered/(ordered+orphans) as a percentage. A timeline
// with no orphans is 100% continuous even if it still has gaps.
func (t Timeline) Continuity() float64 {
	ordered := len(t.Frames)
	total := ordered + len(t.Orphans)
	if total == 0 {
		return 100
	}
	return float64(ordered) / float64(total) * 100
}

// BackLinkMismatch is emitted by VerifyBacklinks for a consecutive pair in
// the ordered timeline whose hash link does not actually hold — admissible
// because the gap-jump rule in Link attaches the nearest unvisited frame
// even when its prev_hash doesn't match, so verification must run as a
// separate pass.
type BackLinkMismatch struct {
	ID uint64
}

// Link reconstructs a Timeline from an unordered slice of frames, following
// the chain rule: successor s follows predecessor p iff
// s.PrevHash == frame.ChainHash(p, nil).
//
// Duplicate frame_ids: the first-seen frame for a given id is kept; later
// frames sharing that id are routed to the orphan set.
func Link(frames []frame.Frame) Timeline {
	if len(frames) == 0 {
		return Timeline{}
	}

	byID := make(map[uint64]frame.Frame, len(frames))
	order := make([]uint64, 0, len(frames))
	var duplicates []frame.Frame

	for _, f := range frames {
		if _, seen := byID[f.Header.FrameID]; seen {
			duplicates = append(duplicates, f)
			continue
		}
		byID[f.Header.FrameID] = f
		order = append(order, f.Header.FrameID)
	}

	// Successors indexed by the chain hash their prev_hash must equal.
	bySuccessorOf := make(map[[32]byte][]uint64, len(order))
	for _, id := range order {
		f := byID[id]
		bySuccessorOf[f.Header.PrevHash] = append(bySuccessorOf[f.Header.PrevHash], id)
	}

	visited := make(map[uint64]bool, len(order))

	head, ok := selectHead(byID, order)
	t := Timeline{ReconstructedWithoutFirst: !ok}
	if len(order) == 0 {
		t.Orphans = duplicates
		return t
	}

	current := head
	visited[current] = true
	t.Frames = append(t.Frames, byID[current])

	for len(visited) < len(order) {
		currentFrame := byID[current]
		successorHash := frame.ChainHash(currentFrame, nil)

		next, found := pickUnvisitedSuccessor(bySuccessorOf[successorHash], visited)
		if !found {
			nextID, any := minUnvisited(order, visited)
			if !any {
				break
			}
			nf := byID[nextID]
			t.Gaps = append(t.Gaps, SequenceGap{
				Before:       current,
				After:        nextID,
				ExpectedHash: nf.Header.PrevHash,
			})
			next = nextID
		}

		visited[next] = true
		t.Frames = append(t.Frames, byID[next])
		current = next
	}

	for _, id := range order {
		if !visited[id] {
			t.Orphans = append(t.Orphans, byID[id])
		}
	}
	t.Orphans = append(t.Orphans, duplicates...)

	return t
}

// selectHead picks the frame the walk should start from: prefer an IS_FIRST
// (or prev_hash == 0) frame, breaking ties by smallest frame_id; otherwise
// fall back to the smallest frame_id overall and report ok=false.
func selectHead(byID map[uint64]frame.Frame, order []uint64) (id uint64, ok bool) {
	candidates := make([]uint64, 0)
	for _, fid := range order {
		f := byID[fid]
		if f.Header.Flags.Has(frame.IsFirst) || f.Header.IsFirst() {
			candidates = append(candidates, fid)
		}
	}
	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
		return candidates[0], true
	}

	sorted := append([]uint64(nil), order...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[0], false
}

func pickUnvisitedSuccessor(candidates []uint64, visited map[uint64]bool) (uint64, bool) {
	best := uint64(0)
	found := false
	for _, id := range candidates {
		if visited[id] {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

func minUnvisited(order []uint64, visited map[uint64]bool) (uint64, bool) {
	best := uint64(0)
	found := false
	for _, id := range order {
		if visited[id] {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

// VerifyBacklinks walks consecutive pairs in t.Frames and reports every pair
// whose back-link does not actually hold.
func VerifyBacklinks(t Timeline) []BackLinkMismatch {
	var mismatches []BackLinkMismatch
	for i := 1; i < len(t.Frames); i++ {
		prev := t.Frames[i-1]
		curr := t.Frames[i]
		if curr.Header.PrevHash != frame.ChainHash(prev, nil) {
			mismatches = append(mismatches, BackLinkMismatch{ID: curr.Header.FrameID})
		}
	}
	return mismatches
}
