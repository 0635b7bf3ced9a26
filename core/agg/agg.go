// Package agg has the aggregation tree that job results are merged into.
package agg

import (
	"maps"
	"slices"
	"sync"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
)

// ReduceFunc reduces a record set into a summary. It is called with records
// in sorted key order and must be deterministic.
type ReduceFunc func(records schema.Report) schema.Summary

// leaf is the result slot of one (owner, category, module) triple.
type leaf struct {
	module  schema.ModuleRef
	report  schema.Report
	summary schema.Summary
	err     error
}

type categoryNode struct {
	modules map[string]*leaf // keyed by module dir
	summary schema.Summary
}

type ownerNode struct {
	categories map[schema.Category]*categoryNode
	summary    schema.Summary
}

// Tree is owner -> category -> module -> leaf, plus roll-up summaries at
// category, owner and global level. All mutation goes through the mutex;
// raw reports are the only durable fact and summaries are derived.
type Tree struct {
	mu         sync.Mutex
	reduce     ReduceFunc
	owners     map[string]*ownerNode
	summary    schema.Summary
	summarized bool
}

// NewTree creates an empty tree holding only the global node.
func NewTree(reduce ReduceFunc) *Tree {
	return &Tree{
		reduce: reduce,
		owners: make(map[string]*ownerNode),
	}
}

// EnsureOwner creates the owner subtree if it does not exist yet.
func (t *Tree) EnsureOwner(owner string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ownerLocked(owner)
}

// RecordLeaf stores the raw report for a module. Writing the same triple
// again replaces the previous report.
func (t *Tree) RecordLeaf(owner string, category schema.Category, module schema.ModuleRef, report schema.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.categoryLocked(owner, category).modules[module.Dir] = &leaf{module: module, report: report}
	t.summarized = false
}

// RecordFailure marks a module leaf as failed. Failed leaves carry no report
// and are left out of every roll-up.
func (t *Tree) RecordFailure(owner string, category schema.Category, module schema.ModuleRef, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.categoryLocked(owner, category).modules[module.Dir] = &leaf{module: module, err: err}
	t.summarized = false
}

// ComputeSummaries recomputes every summary from the raw reports, bottom-up:
// module, then category, then owner, then global. It must only be called
// after all jobs have finished.
func (t *Tree) ComputeSummaries() {
	t.mu.Lock()
	defer t.mu.Unlock()

	var global schema.Report
	for _, owner := range slices.Sorted(maps.Keys(t.owners)) {
		on := t.owners[owner]

		var ownerRecords schema.Report
		for _, category := range slices.Sorted(maps.Keys(on.categories)) {
			cn := on.categories[category]

			var categoryRecords schema.Report
			for _, dir := range slices.Sorted(maps.Keys(cn.modules)) {
				lf := cn.modules[dir]
				if lf.err != nil {
					lf.summary = schema.Summary{}
					continue
				}
				lf.summary = t.reduce(lf.report)
				categoryRecords = append(categoryRecords, lf.report...)
			}
			cn.summary = t.reduce(categoryRecords)
			ownerRecords = append(ownerRecords, categoryRecords...)
		}
		on.summary = t.reduce(ownerRecords)
		global = append(global, ownerRecords...)
	}
	t.summary = t.reduce(global)
	t.summarized = true
}

// Snapshot returns a read-only copy of the summarized tree with owners,
// categories and modules in sorted order.
func (t *Tree) Snapshot() (schema.TreeView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.summarized {
		return schema.TreeView{}, contract.ErrNotSummarized
	}

	view := schema.TreeView{Summary: t.summary}
	for _, owner := range slices.Sorted(maps.Keys(t.owners)) {
		on := t.owners[owner]
		ov := schema.OwnerView{Owner: owner, Summary: on.summary}
		for _, category := range slices.Sorted(maps.Keys(on.categories)) {
			cn := on.categories[category]
			cv := schema.CategoryView{Category: category, Summary: cn.summary}
			for _, dir := range slices.Sorted(maps.Keys(cn.modules)) {
				lf := cn.modules[dir]
				mv := schema.ModuleView{
					Module:  lf.module,
					Summary: lf.summary,
					Report:  slices.Clone(lf.report),
				}
				if lf.err != nil {
					mv.Failed = true
					mv.Error = lf.err.Error()
				}
				cv.Modules = append(cv.Modules, mv)
			}
			ov.Categories = append(ov.Categories, cv)
		}
		view.Owners = append(view.Owners, ov)
	}
	return view, nil
}

// Stats returns the number of leaves and how many of them failed.
func (t *Tree) Stats() (leaves, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, on := range t.owners {
		for _, cn := range on.categories {
			for _, lf := range cn.modules {
				leaves++
				if lf.err != nil {
					failed++
				}
			}
		}
	}
	return leaves, failed
}

// Owners returns the owner labels currently in the tree, sorted.
func (t *Tree) Owners() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.owners))
}

func (t *Tree) ownerLocked(owner string) *ownerNode {
	on, ok := t.owners[owner]
	if !ok {
		on = &ownerNode{categories: make(map[schema.Category]*categoryNode)}
		t.owners[owner] = on
	}
	return on
}

func (t *Tree) categoryLocked(owner string, category schema.Category) *categoryNode {
	on := t.ownerLocked(owner)
	cn, ok := on.categories[category]
	if !ok {
		cn = &categoryNode{modules: make(map[string]*leaf)}
		on.categories[category] = cn
	}
	return cn
}
