package link

import (
	"fmt"
	"sort"

	"github.com/etalazz/durapack/frame"
	"github.com/etalazz/durapack/scan"
)

// GapReason classifies why a SequenceGap exists.
type GapReason string

const (
	// MissingById means the gap spans non-consecutive frame ids.
	MissingById GapReason = "missing_by_id"
	// MissingByHash means the gap is between consecutive ids whose hash
	// link is broken.
	MissingByHash GapReason = "missing_by_hash"
)

// GapAnalysis pairs a SequenceGap with its classification.
type GapAnalysis struct {
	Gap    SequenceGap
	Reason GapReason
}

// ChainConflict records a predecessor whose chain hash is claimed by more
// than one successor's prev_hash.
type ChainConflict struct {
	At         uint64
	Contenders []uint64
}

// OrphanCluster is a connected component among orphan frames, linked by the
// bidirectional hash-adjacency relation (a points at b, or b points at a).
type OrphanCluster struct {
	Frames []frame.Frame
}

// RecipeKind discriminates the two recovery recipe shapes.
type RecipeKind string

const (
	InsertParityFrame RecipeKind = "insert_parity_frame"
	RewindOffset       RecipeKind = "rewind_offset"
)

// RecoveryRecipe is a suggested remediation for a gap in the timeline.
type RecoveryRecipe struct {
	Kind RecipeKind

	// InsertParityFrame (Reason is set for both kinds)
	Between [2]uint64
	Reason  string

	// RewindOffset
	NearFrame uint64
	ByBytes   int64
}

// TimelineReport augments a Timeline with gap classification, conflicts,
// orphan clustering, and recovery recipes.
type TimelineReport struct {
	Timeline       Timeline
	GapAnalyses    []GapAnalysis
	Conflicts      []ChainConflict
	OrphanClusters []OrphanCluster
	Recipes        []RecoveryRecipe
}

// Analyze builds a TimelineReport from an unordered slice of frames, with no
// offset information available (so no RewindOffset recipes are produced).
func Analyze(frames []frame.Frame) TimelineReport {
	return analyze(frames, nil)
}

// AnalyzeLocated builds a TimelineReport from located frames, using their
// byte offsets to additionally emit RewindOffset recipes.
func AnalyzeLocated(located []scan.LocatedFrame) TimelineReport {
	frames := make([]frame.Frame, len(located))
	offsets := make(map[uint64]scan.LocatedFrame, len(located))
	for i, lf := range located {
		frames[i] = lf.Frame
		offsets[lf.Frame.Header.FrameID] = lf
	}
	return analyze(frames, offsets)
}

func analyze(frames []frame.Frame, offsets map[uint64]scan.LocatedFrame) TimelineReport {
	t := Link(frames)
	report := TimelineReport{Timeline: t}

	report.GapAnalyses = classifyGaps(t.Gaps)
	report.Conflicts = findConflicts(frames)
	report.OrphanClusters = clusterOrphans(t.Orphans)
	report.Recipes = buildRecipes(t.Gaps, offsets)

	return report
}

func classifyGaps(gaps []SequenceGap) []GapAnalysis {
	analyses := make([]GapAnalysis, len(gaps))
	for i, g := range gaps {
		reason := MissingByHash
		if g.After != g.Before+1 {
			reason = MissingById
		}
		analyses[i] = GapAnalysis{Gap: g, Reason: reason}
	}
	return analyses
}

// findConflicts groups frames by the predecessor id their prev_hash
// resolves to (via that predecessor's own chain hash) and reports any group
// claimed by more than one successor.
func findConflicts(frames []frame.Frame) []ChainConflict {
	hashToID := make(map[[32]byte]uint64, len(frames))
	for _, f := range frames {
		hashToID[frame.ChainHash(f, nil)] = f.Header.FrameID
	}

	bySuccessorsOf := make(map[uint64][]uint64)
	for _, f := range frames {
		predID, ok := hashToID[f.Header.PrevHash]
		if !ok {
			continue
		}
		bySuccessorsOf[predID] = append(bySuccessorsOf[predID], f.Header.FrameID)
	}

	var conflicts []ChainConflict
	preds := make([]uint64, 0, len(bySuccessorsOf))
	for pred := range bySuccessorsOf {
		preds = append(preds, pred)
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i] < preds[j] })

	for _, pred := range preds {
		contenders := bySuccessorsOf[pred]
		if len(contenders) <= 1 {
			continue
		}
		sorted := append([]uint64(nil), contenders...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		conflicts = append(conflicts, ChainConflict{At: pred, Contenders: sorted})
	}
	return conflicts
}

// clusterOrphans groups orphans by index rather than frame_id: two duplicate
// frames can legitimately share a frame_id while still being distinct nodes
// in the adjacency graph.
func clusterOrphans(orphans []frame.Frame) []OrphanCluster {
	if len(orphans) == 0 {
		return nil
	}

	hashOf := make([][32]byte, len(orphans))
	for i, o := range orphans {
		hashOf[i] = frame.ChainHash(o, nil)
	}

	adjacency := make([][]int, len(orphans))
	for i, a := range orphans {
		for j, b := range orphans {
			if i == j {
				continue
			}
			if a.Header.PrevHash == hashOf[j] || b.Header.PrevHash == hashOf[i] {
				adjacency[i] = append(adjacency[i], j)
			}
		}
	}

	visited := make([]bool, len(orphans))
	var clusters []OrphanCluster

	for start := range orphans {
		if visited[start] {
			continue
		}
		var component []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, n)
			for _, nb := range adjacency[n] {
				if !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		sort.Ints(component)
		frames := make([]frame.Frame, len(component))
		for i, idx := range component {
			frames[i] = orphans[idx]
		}
		clusters = append(clusters, OrphanCluster{Frames: frames})
	}
	return clusters
}

func buildRecipes(gaps []SequenceGap, offsets map[uint64]scan.LocatedFrame) []RecoveryRecipe {
	var recipes []RecoveryRecipe
	for _, g := range gaps {
		recipes = append(recipes, RecoveryRecipe{
			Kind:    InsertParityFrame,
			Between: [2]uint64{g.Before, g.After},
			Reason:  fmt.Sprintf("frame %d references a predecessor that was never found between %d and %d", g.After, g.Before, g.After),
		})

		if offsets == nil {
			continue
		}
		before, hasBefore := offsets[g.Before]
		after, hasAfter := offsets[g.After]
		if !hasBefore || !hasAfter {
			continue
		}
		expectedEnd := before.Offset + before.Size
		recipes = append(recipes, RecoveryRecipe{
			Kind:      RewindOffset,
			NearFrame: g.After,
			ByBytes:   int64(after.Offset) - int64(expectedEnd),
			Reason:    fmt.Sprintf("frame %d starts %d bytes from where frame %d's contiguous successor was expected", g.After, int64(after.Offset)-int64(expectedEnd), g.Before),
		})
	}
	return recipes
}
