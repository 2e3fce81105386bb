package testing

import "github.com/bgrewell/iso-edit-kit/pkg/filesystem"

// GetFileAndFolderCounts returns the number of directories (excluding the root) and non-directory entries in t.
func GetFileAndFolderCounts(t *filesystem.Tree) (int, int) {
	var folderCount, fileCount int

	_ = t.Walk(func(n *filesystem.Node, path string) error {
		switch {
		case n.ID == t.Root:
		case n.IsDirectory:
			folderCount++
		default:
			fileCount++
		}
		return nil
	})
	return folderCount, fileCount
}
