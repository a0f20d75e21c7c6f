// Package graph resolves parent/child relationships across the combined
// task-and-occurrence set. Traversals carry visited-set guards: a cyclic
// parent link is a data-integrity bug in the store, not a reason to hang.
package graph

import (
	"slices"

	"github.com/sandeepkv93/remind/internal/model"
)

type Resolver struct {
	byID     map[string]model.Entry
	children map[string][]string
	order    []string
}

// Build indexes the entries. Entries without an id are dropped; on duplicate
// ids the first entry wins.
func Build(entries []model.Entry) *Resolver {
	r := &Resolver{
		byID:     make(map[string]model.Entry, len(entries)),
		children: make(map[string][]string),
	}
	for _, e := range entries {
		id := e.ID()
		if id == "" {
			continue
		}
		if _, dup := r.byID[id]; dup {
			continue
		}
		r.byID[id] = e
		r.order = append(r.order, id)
	}
	for _, id := range r.order {
		if pid := r.byID[id].ParentID(); pid != "" {
			r.children[pid] = append(r.children[pid], id)
		}
	}
	for pid := range r.children {
		r.sortSiblings(r.children[pid])
	}
	return r
}

func (r *Resolver) ByID(id string) (model.Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// IDs returns every indexed id in input order.
func (r *Resolver) IDs() []string {
	return slices.Clone(r.order)
}

// ChildrenOf returns the direct children of id, ordered by sort then id.
func (r *Resolver) ChildrenOf(id string) []string {
	return slices.Clone(r.children[id])
}

// DescendantsOf returns every task below id, depth-first. The traversal is
// iterative and tolerates cycles by refusing to revisit a node.
func (r *Resolver) DescendantsOf(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	stack := slices.Clone(r.children[id])
	slices.Reverse(stack)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		kids := r.children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// AncestorsOf walks parentId links upward, nearest first, stopping at the
// top, at a dangling link, or on a cycle.
func (r *Resolver) AncestorsOf(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	cur, ok := r.byID[id]
	for ok {
		pid := cur.ParentID()
		if pid == "" || visited[pid] {
			break
		}
		parent, found := r.byID[pid]
		if !found {
			break
		}
		visited[pid] = true
		out = append(out, pid)
		cur = parent
		ok = true
	}
	return out
}

func (r *Resolver) sortSiblings(ids []string) {
	slices.SortStableFunc(ids, func(a, b string) int {
		sa, sb := r.byID[a].Sort(), r.byID[b].Sort()
		if sa != sb {
			return sa - sb
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
}
