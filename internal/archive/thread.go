package archive

import (
	"sort"

	"redarch/internal/model"
)

// AssembleThread builds a nested comment tree from a post's comments in one
// linear pass. The input is every comment of the post (any order, though the
// store delivers them pre-sorted); no further queries are issued.
//
// Children are attached under their parents and sorted by score descending
// (ID ascending as tie-break) during assembly. maxDepth limits nesting:
// comments deeper than maxDepth are dropped from the tree (a depth of 0
// means unlimited). Comments whose parent comment is missing from the input
// are attached at the root rather than dropped.
func AssembleThread(comments []model.Comment, maxDepth int) []*model.CommentNode {
	nodes := make(map[string]*model.CommentNode, len(comments))
	for i := range comments {
		c := comments[i]
		nodes[c.ID] = &model.CommentNode{Comment: c}
	}

	var roots []*model.CommentNode
	for _, n := range nodes {
		if n.Comment.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[n.Comment.ParentID]
		if !ok {
			// Parent comment absent from the dump: surface at top level.
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	sortSiblings(roots)
	for _, n := range nodes {
		sortSiblings(n.Children)
	}

	assignDepth(roots, 0)
	if maxDepth > 0 {
		roots = pruneDepth(roots, maxDepth)
	}
	return roots
}

func sortSiblings(nodes []*model.CommentNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Comment.Score != nodes[j].Comment.Score {
			return nodes[i].Comment.Score > nodes[j].Comment.Score
		}
		return nodes[i].Comment.ID < nodes[j].Comment.ID
	})
}

func assignDepth(nodes []*model.CommentNode, depth int) {
	for _, n := range nodes {
		n.Depth = depth
		assignDepth(n.Children, depth+1)
	}
}

// pruneDepth removes nodes at depth >= maxDepth. Depth is zero-based, so
// maxDepth=1 keeps only top-level comments.
func pruneDepth(nodes []*model.CommentNode, maxDepth int) []*model.CommentNode {
	kept := nodes[:0]
	for _, n := range nodes {
		if n.Depth >= maxDepth {
			continue
		}
		n.Children = pruneDepth(n.Children, maxDepth)
		kept = append(kept, n)
	}
	return kept
}

// CountThread returns the number of nodes in an assembled tree.
func CountThread(nodes []*model.CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + CountThread(n.Children)
	}
	return total
}
