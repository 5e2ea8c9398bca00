package link_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etalazz/durapack/frame"
	"github.com/etalazz/durapack/link"
)

func chainedFrame(t *testing.T, id uint64, payload string, prev *frame.Frame, first, last bool) frame.Frame {
	t.Helper()
	var prevHash [32]byte
	if prev != nil {
		prevHash = frame.ChainHash(*prev, nil)
	}
	var flags frame.Flags
	if first {
		flags |= frame.IsFirst
	}
	if last {
		flags |= frame.IsLast
	}
	h := frame.Header{
		Version:    frame.ProtocolVersion,
		FrameID:    id,
		PrevHash:   prevHash,
		PayloadLen: uint32(len(payload)),
		Flags:      flags,
	}
	return frame.Frame{Header: h, Payload: []byte(payload)}
}

func buildChain(t *testing.T, payloads []string) []frame.Frame {
	t.Helper()
	frames := make([]frame.Frame, len(payloads))
	var prev *frame.Frame
	for i, p := range payloads {
		id := uint64(i + 1)
		f := chainedFrame(t, id, p, prev, i == 0, i == len(payloads)-1)
		frames[i] = f
		prevCopy := f
		prev = &prevCopy
	}
	return frames
}

func TestLinkedTriple(t *testing.T) {
	frames := buildChain(t, []string{"First frame", "Second frame", "Third frame"})

	timeline := link.Link(frames)
	require.Len(t, timeline.Frames, 3)
	assert.Equal(t, uint64(1), timeline.Frames[0].Header.FrameID)
	assert.Equal(t, uint64(2), timeline.Frames[1].Header.FrameID)
	assert.Equal(t, uint64(3), timeline.Frames[2].Header.FrameID)
	assert.Empty(t, timeline.Gaps)
	assert.Empty(t, timeline.Orphans)
	assert.InDelta(t, 100.0, timeline.Continuity(), 0.001)
}

func TestLinkSwappedPhysicalOrder(t *testing.T) {
	frames := buildChain(t, []string{"one", "two", "three", "four"})
	swapped := []frame.Frame{frames[2], frames[0], frames[3], frames[1]}

	timeline := link.Link(swapped)
	require.Len(t, timeline.Frames, 4)
	ids := make([]uint64, len(timeline.Frames))
	for i, f := range timeline.Frames {
		ids[i] = f.Header.FrameID
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids)
	assert.Empty(t, timeline.Gaps)
}

func TestLinkGapDetection(t *testing.T) {
	frames := buildChain(t, []string{"one", "two", "three"})
	withoutMiddle := []frame.Frame{frames[0], frames[2]}

	timeline := link.Link(withoutMiddle)
	require.Len(t, timeline.Gaps, 1)
	assert.Equal(t, uint64(1), timeline.Gaps[0].Before)
	assert.Equal(t, uint64(3), timeline.Gaps[0].After)
	assert.Empty(t, timeline.Orphans)
}

func TestContinuityMatchesOrphanPresence(t *testing.T) {
	frames := buildChain(t, []string{"one", "two", "three"})
	// A second frame claiming frame_id 2 (already taken by frames[1]) is a
	// duplicate: first-seen wins, and the duplicate is routed to orphans.
	duplicateOfTwo := chainedFrame(t, 2, "duplicate two", &frames[0], false, false)

	timeline := link.Link(append(frames, duplicateOfTwo))
	require.Len(t, timeline.Orphans, 1)
	assert.Less(t, timeline.Continuity(), 100.0)
}

func TestVerifyBacklinksCleanChain(t *testing.T) {
	frames := buildChain(t, []string{"a", "b", "c"})
	timeline := link.Link(frames)
	mismatches := link.VerifyBacklinks(timeline)
	assert.Empty(t, mismatches)
}

func TestConflictDetection(t *testing.T) {
	base := chainedFrame(t, 1, "root", nil, true, false)
	childA := chainedFrame(t, 2, "child a", &base, false, false)
	childB := chainedFrame(t, 3, "child b", &base, false, false)

	report := link.Analyze([]frame.Frame{base, childA, childB})
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, uint64(1), report.Conflicts[0].At)
	assert.ElementsMatch(t, []uint64{2, 3}, report.Conflicts[0].Contenders)
}

func TestOrphanClustering(t *testing.T) {
	frames := buildChain(t, []string{"one", "two", "three"})

	// Two duplicates of frame_id 2 that chain-hash to each other form one
	// two-node orphan cluster; a lone duplicate of frame_id 3 forms a
	// second, singleton cluster.
	dup2a := chainedFrame(t, 2, "dup two a", &frames[0], false, false)
	dup2b := chainedFrame(t, 2, "dup two b", &dup2a, false, false)
	dup3 := chainedFrame(t, 3, "dup three", nil, false, false)

	report := link.Analyze(append(append([]frame.Frame{}, frames...), dup2a, dup2b, dup3))
	require.Len(t, report.OrphanClusters, 2)
}

func TestReportToDotRendersGapsAndRecipes(t *testing.T) {
	frames := buildChain(t, []string{"one", "two", "three"})
	withoutMiddle := []frame.Frame{frames[0], frames[2]}

	report := link.Analyze(withoutMiddle)
	require.Len(t, report.Recipes, 1)

	dotText := link.ReportToDot(report)
	assert.True(t, strings.Contains(dotText, "digraph"))
	assert.True(t, strings.Contains(dotText, "frame 1"))
	assert.True(t, strings.Contains(dotText, "frame 3"))
	assert.True(t, strings.Contains(dotText, "gap: missing-by-id"))
	assert.True(t, strings.Contains(dotText, "insert parity frame"))
}

func TestSeekFallsBackToLinearWalk(t *testing.T) {
	frames := buildChain(t, []string{"a", "b", "c", "d"})
	timeline := link.Link(frames)

	found, ok := link.Seek(timeline, 1, 4, nil)
	require.True(t, ok)
	assert.Equal(t, uint64(4), found.Header.FrameID)
}

func TestSeekUsesSkipListResolver(t *testing.T) {
	frames := buildChain(t, []string{"a", "b", "c", "d", "e"})
	timeline := link.Link(frames)

	resolver := func(current frame.Frame) []uint64 {
		if current.Header.FrameID == 1 {
			return []uint64{4}
		}
		return nil
	}

	found, ok := link.Seek(timeline, 1, 4, resolver)
	require.True(t, ok)
	assert.Equal(t, uint64(4), found.Header.FrameID)
}
