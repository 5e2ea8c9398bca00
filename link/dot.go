package link

import (
	"fmt"

	"github.com/emicklei/dot"
)

// ReportToDot renders a TimelineReport as a Graphviz DOT graph: ordered
// frames as nodes, solid edges for the chain, dashed red edges for gaps,
// dotted orange edges for conflicts, note-shaped nodes for recipes, and
// dashed clusters for orphan groups.
func ReportToDot(report TimelineReport) string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	nodes := make(map[uint64]dot.Node, len(report.Timeline.Frames))
	for _, f := range report.Timeline.Frames {
		n := g.Node(fmt.Sprintf("frame_%d", f.Header.FrameID)).
			Label(fmt.Sprintf("frame %d", f.Header.FrameID))
		nodes[f.Header.FrameID] = n
	}

	for i := 1; i < len(report.Timeline.Frames); i++ {
		prev := report.Timeline.Frames[i-1].Header.FrameID
		curr := report.Timeline.Frames[i].Header.FrameID
		g.Edge(nodes[prev], nodes[curr])
	}

	for _, ga := range report.GapAnalyses {
		before, hasBefore := nodes[ga.Gap.Before]
		after, hasAfter := nodes[ga.Gap.After]
		if !hasBefore || !hasAfter {
			continue
		}
		label := "gap: missing-by-id"
		if ga.Reason == MissingByHash {
			label = "gap: missing-by-hash"
		}
		g.Edge(before, after).Attr("style", "dashed").Attr("color", "red").Attr("label", label)
	}

	for _, c := range report.Conflicts {
		pred, hasPred := nodes[c.At]
		if !hasPred {
			continue
		}
		for _, contender := range c.Contenders {
			succ, ok := nodes[contender]
			if !ok {
				continue
			}
			g.Edge(pred, succ).Attr("style", "dotted").Attr("color", "orange").Attr("label", "conflict")
		}
	}

	for i, recipe := range report.Recipes {
		note := g.Node(fmt.Sprintf("recipe_%d", i)).
			Attr("shape", "note").
			Label(recipeLabel(recipe))
		switch recipe.Kind {
		case InsertParityFrame:
			if n, ok := nodes[recipe.Between[1]]; ok {
				g.Edge(note, n).Attr("style", "dotted")
			}
		case RewindOffset:
			if n, ok := nodes[recipe.NearFrame]; ok {
				g.Edge(note, n).Attr("style", "dotted")
			}
		}
	}

	for i, cluster := range report.OrphanClusters {
		sub := g.Subgraph(fmt.Sprintf("cluster_orphans_%d", i), dot.ClusterOption{})
		sub.Attr("style", "dashed").Attr("label", fmt.Sprintf("orphan cluster %d", i))
		for _, f := range cluster.Frames {
			sub.Node(fmt.Sprintf("orphan_%d", f.Header.FrameID)).
				Label(fmt.Sprintf("orphan %d", f.Header.FrameID))
		}
	}

	return g.String()
}

func recipeLabel(r RecoveryRecipe) string {
	switch r.Kind {
	case InsertParityFrame:
		return fmt.Sprintf("insert parity frame\nbetween %d and %d", r.Between[0], r.Between[1])
	case RewindOffset:
		return fmt.Sprintf("rewind near frame %d\nby %d bytes", r.NearFrame, r.ByBytes)
	default:
		return string(r.Kind)
	}
}
