// Package prefixindex implements the in-memory prefix tree over lower-cased
// item names that serves autocomplete.
//
// An Index is immutable once Build returns and is safe for any number of
// concurrent readers without locking. Changes to the catalog are picked up
// only by building a new Index.
package prefixindex

import (
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
)

type node struct {
	children map[rune]*node
	ids      []int64
	end      bool
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Index maps every prefix of every indexed name to the identifiers of the
// items whose lower-cased name starts with it.
type Index struct {
	root    *node
	items   int
	nodes   int
	builtAt time.Time
}

// Empty returns an index with no items.
func Empty() *Index {
	return &Index{root: newNode(), nodes: 1}
}

// Build indexes items by lower-cased name. When an identifier appears more
// than once the first occurrence wins.
func Build(items []catalog.Item) *Index {
	idx := Empty()
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		idx.insert(strings.ToLower(item.Name), item.ID)
	}
	idx.items = len(seen)
	idx.builtAt = time.Now()
	return idx
}

// insert attaches id to every node on the path of word. Each id is inserted
// once, so a node never holds it twice.
func (idx *Index) insert(word string, id int64) {
	n := idx.root
	for _, r := range word {
		child, ok := n.children[r]
		if !ok {
			child = newNode()
			n.children[r] = child
			idx.nodes++
		}
		n = child
		n.ids = append(n.ids, id)
	}
	n.end = true
}

// Search returns the identifiers of every indexed item whose lower-cased name
// starts with the lower-cased prefix, de-duplicated and in ascending order.
// The empty prefix matches every item.
func (idx *Index) Search(prefix string) []int64 {
	n := idx.root
	for _, r := range strings.ToLower(prefix) {
		child, ok := n.children[r]
		if !ok {
			return nil
		}
		n = child
	}

	seen := make(map[int64]struct{}, len(n.ids))
	var out []int64
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, id := range cur.ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		for _, child := range cur.children {
			stack = append(stack, child)
		}
	}
	slices.Sort(out)
	return out
}

// Contains reports whether word was inserted as a complete name.
func (idx *Index) Contains(word string) bool {
	n := idx.root
	for _, r := range strings.ToLower(word) {
		child, ok := n.children[r]
		if !ok {
			return false
		}
		n = child
	}
	return n.end
}

// Len returns the number of distinct items indexed.
func (idx *Index) Len() int { return idx.items }

// Nodes returns the number of trie nodes, root included.
func (idx *Index) Nodes() int { return idx.nodes }

// BuiltAt returns when the index was built; zero for Empty.
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }
