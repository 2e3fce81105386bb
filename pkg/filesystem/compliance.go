package filesystem

import (
	"sort"

	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/validation"
)

// FindNonCompliantNames returns the sorted paths of every node whose name cannot be recorded unchanged as a level 1
// identifier.
func FindNonCompliantNames(t *Tree) []string {
	seen := map[string]bool{}
	var out []string
	_ = t.Walk(func(n *Node, path string) error {
		if n.ID == t.Root || validation.IsCompliant(n.Name) || seen[path] {
			return nil
		}
		seen[path] = true
		out = append(out, path)
		return nil
	})
	sort.Strings(out)
	return out
}
