package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
)

// ContainsNonASCIIPrintable returns true if the string has any
// characters outside ASCII [32..126], i.e., not a standard printable.
func ContainsNonASCIIPrintable(s string) bool {
	for _, r := range s {
		if r < 32 || r > 126 {
			return true
		}
	}
	return false
}

// Validate compares the nodes of t against a ground-truth listing and writes a summary to w.
//   - gtPath: path to the ground_truth.json, names are relative paths without a leading '/'
//
// It returns an error naming the number of missing and extra entries when they differ, or when a name holds
// non-printable characters.
func Validate(w io.Writer, t *filesystem.Tree, gtPath string) error {
	groundTruth, err := LoadGroundTruth(gtPath)
	if err != nil {
		return err
	}

	treeMap := make(map[string]*filesystem.Node)
	err = t.Walk(func(n *filesystem.Node, path string) error {
		if n.ID == t.Root {
			return nil
		}
		if ContainsNonASCIIPrintable(n.Name) {
			return fmt.Errorf("non-ASCII printable characters in entry: %q", path)
		}
		treeMap[strings.TrimPrefix(path, "/")] = n
		return nil
	})
	if err != nil {
		return err
	}

	gtMap := make(map[string]GroundTruthEntry)
	for _, gt := range groundTruth {
		gtMap[gt.Name] = gt
	}

	var missing []GroundTruthEntry
	for name, gt := range gtMap {
		if _, found := treeMap[name]; !found {
			missing = append(missing, gt)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Name < missing[j].Name })

	var extra []string
	for name := range treeMap {
		if _, found := gtMap[name]; !found {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintln(w, "VALIDATION RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 40))

	if len(missing) == 0 && len(extra) == 0 {
		fmt.Fprintln(w, "All entries match the ground truth!")
		return nil
	}

	if len(missing) > 0 {
		fmt.Fprintln(w, "Missing entries (in ground truth, not in image):")
		for _, m := range missing {
			fmt.Fprintf(w, "  - [%s] %s\n", kind(m.IsDirectory), m.Name)
		}
	} else {
		fmt.Fprintln(w, "No missing entries.")
	}

	if len(extra) > 0 {
		fmt.Fprintln(w, "\nExtra entries (in image, not in ground truth):")
		for _, x := range extra {
			fmt.Fprintf(w, "  - [%s] %s\n", kind(treeMap[x].IsDirectory), x)
		}
	} else {
		fmt.Fprintln(w, "No extra entries.")
	}

	fmt.Fprintln(w, strings.Repeat("=", 40))
	return fmt.Errorf("%d missing and %d extra entries", len(missing), len(extra))
}

func kind(dir bool) string {
	if dir {
		return "DIR"
	}
	return "FILE"
}

// GroundTruthEntry represents a single record from the JSON.
type GroundTruthEntry struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	Attr           string `json:"attr"`
	Size           int64  `json:"size"`
	CompressedSize int64  `json:"compressed_size"`
	Name           string `json:"name"`
	IsDirectory    bool   `json:"is_directory"`
}

// LoadGroundTruth reads the JSON from a file and unmarshals it into a slice.
func LoadGroundTruth(filePath string) ([]GroundTruthEntry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []GroundTruthEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return entries, nil
}
