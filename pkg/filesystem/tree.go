package filesystem

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Tree is an arena of nodes. Ownership runs top-down through each directory's children; nodes refer back to their
// parent by id only.
type Tree struct {
	Root  NodeID
	nodes map[NodeID]*Node
	next  NodeID
}

// NewTree returns a tree holding only an empty root directory.
func NewTree(now time.Time) *Tree {
	t := &Tree{nodes: make(map[NodeID]*Node), next: 1}
	root := NewDirectory("", now)
	root.ID = t.allocate()
	root.Parent = root.ID
	t.nodes[root.ID] = root
	t.Root = root.ID
	return t
}

func (t *Tree) allocate() NodeID {
	id := t.next
	t.next++
	return id
}

// Node returns the node with the given id, or nil when it is not part of the tree.
func (t *Tree) Node(id NodeID) *Node {
	return t.nodes[id]
}

// Len returns the number of nodes in the tree, the root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// CompareNames orders names case-insensitively, falling back to byte order so the result is total.
func CompareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Children returns the children of a directory sorted with CompareNames.
func (t *Tree) Children(id NodeID) []*Node {
	n := t.nodes[id]
	if n == nil || !n.IsDirectory {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, t.nodes[c])
	}
	sort.Slice(out, func(i, j int) bool {
		return CompareNames(out[i].Name, out[j].Name) < 0
	})
	return out
}

// Find returns the child of parent whose name matches case-insensitively.
func (t *Tree) Find(parent NodeID, name string) *Node {
	n := t.nodes[parent]
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if child := t.nodes[c]; strings.EqualFold(child.Name, name) {
			return child
		}
	}
	return nil
}

// AddChild inserts a detached node under parent and returns its new id. Children of node, if any, are not carried
// over; build subtrees by adding one level at a time.
func (t *Tree) AddChild(parent NodeID, node *Node) (NodeID, error) {
	p := t.nodes[parent]
	if p == nil {
		return 0, fmt.Errorf("parent node %d is not in the tree", parent)
	}
	if !p.IsDirectory {
		return 0, fmt.Errorf("parent %q is not a directory", t.Path(parent))
	}
	if node.Name == "" || strings.ContainsRune(node.Name, '/') {
		return 0, fmt.Errorf("invalid name %q", node.Name)
	}
	if existing := t.Find(parent, node.Name); existing != nil {
		return 0, fmt.Errorf("%q already exists in %q", existing.Name, t.Path(parent))
	}

	node.ID = t.allocate()
	node.Parent = parent
	node.children = nil
	t.nodes[node.ID] = node
	p.children = append(p.children, node.ID)
	return node.ID, nil
}

// Detach removes a node and everything below it. It reports false when id is the root or not in the tree.
func (t *Tree) Detach(id NodeID) bool {
	n := t.nodes[id]
	if n == nil || id == t.Root {
		return false
	}
	if p := t.nodes[n.Parent]; p != nil {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i:i], p.children[i+1:]...)
				break
			}
		}
	}
	t.drop(id)
	return true
}

func (t *Tree) drop(id NodeID) {
	n := t.nodes[id]
	for _, c := range n.children {
		t.drop(c)
	}
	delete(t.nodes, id)
}

// Path returns the slash separated path of a node, "/" for the root.
func (t *Tree) Path(id NodeID) string {
	var parts []string
	for n := t.nodes[id]; n != nil && n.ID != t.Root; n = t.nodes[n.Parent] {
		parts = append(parts, n.Name)
	}
	if len(parts) == 0 {
		return "/"
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// Lookup resolves a slash separated path case-insensitively.
func (t *Tree) Lookup(path string) *Node {
	n := t.nodes[t.Root]
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if n = t.Find(n.ID, part); n == nil {
			return nil
		}
	}
	return n
}

// WalkFunc is called for every node visited by Walk. Returning SkipDir from a directory skips its children.
type WalkFunc func(n *Node, path string) error

var SkipDir = errors.New("skip this directory")

// Walk visits the root and then every node depth-first, children in CompareNames order.
func (t *Tree) Walk(fn WalkFunc) error {
	return t.walk(t.Root, fn)
}

func (t *Tree) walk(id NodeID, fn WalkFunc) error {
	n := t.nodes[id]
	if err := fn(n, t.Path(id)); err != nil {
		if errors.Is(err, SkipDir) {
			return nil
		}
		return err
	}
	for _, c := range t.Children(id) {
		if err := t.walk(c.ID, fn); err != nil {
			return err
		}
	}
	return nil
}
