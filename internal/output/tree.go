package output

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

type treeNode struct {
	name     string
	isDir    bool
	children []*treeNode
}

func (n *treeNode) findOrCreate(name string) *treeNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	child := &treeNode{name: name}
	n.children = append(n.children, child)
	return child
}

// Tree collects found paths and renders them as a directory tree. It is safe
// for concurrent use.
type Tree struct {
	mu   sync.Mutex
	root *treeNode
	size int
}

// NewTree returns an empty tree rooted at "/".
func NewTree() *Tree {
	return &Tree{root: &treeNode{name: "/", isDir: true}}
}

// Add records a found path such as "/admin/" or "/admin/config.php". Parent
// directories are implied.
func (t *Tree) Add(path string, isDir bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	node := t.root
	for i, p := range parts {
		node = node.findOrCreate(p)
		if i < len(parts)-1 {
			node.isDir = true
		}
	}
	if isDir {
		node.isDir = true
	}
	t.size++
}

// Len reports how many paths were added.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Render writes the tree to w. Nothing is written for an empty tree.
func (t *Tree) Render(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.root.children) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  Discovered paths:\n")
	printChildren(w, t.root, "  ")
}

func printChildren(w io.Writer, node *treeNode, prefix string) {
	slices.SortFunc(node.children, func(a, b *treeNode) int {
		return strings.Compare(a.name, b.name)
	})
	for i, child := range node.children {
		isLast := i == len(node.children)-1
		connector := "├── "
		if isLast {
			connector = "└── "
		}
		name := child.name
		if child.isDir {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, name)
		nextPrefix := prefix + "│   "
		if isLast {
			nextPrefix = prefix + "    "
		}
		printChildren(w, child, nextPrefix)
	}
}
