package layout

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/directory"
)

// Print writes one line per allocation in volume order.
//   - `useColor` controls whether colored output is used.
//   - `useHexOffset` prints offsets in hexadecimal if true.
func (l *Layout) Print(w io.Writer, useColor bool, useHexOffset bool) {
	colorMap := map[Kind]func(a ...interface{}) string{
		SystemArea:  color.New(color.FgBlue, color.Bold).SprintFunc(),
		Descriptor:  color.New(color.FgYellow, color.Bold).SprintFunc(),
		BootCatalog: color.New(color.FgRed, color.Bold).SprintFunc(),
		PathTableL:  color.New(color.FgMagenta, color.Bold).SprintFunc(),
		PathTableM:  color.New(color.FgMagenta, color.Bold).SprintFunc(),
		Directory:   color.New(color.FgCyan, color.Bold).SprintFunc(),
		FilePayload: color.New(color.FgGreen, color.Bold).SprintFunc(),
	}
	offsetColor := color.New(color.FgGreen).SprintFunc()
	headerColor := color.New(color.FgCyan, color.Bold).SprintFunc()

	if !useColor {
		plain := func(a ...interface{}) string { return fmt.Sprint(a...) }
		for key := range colorMap {
			colorMap[key] = plain
		}
		offsetColor = plain
		headerColor = plain
	}

	offsetWidth := 14
	categoryWidth := 20
	lengthWidth := 12
	if useHexOffset {
		offsetWidth = 18
	}

	fmt.Fprintln(w, headerColor("\n=== ISO Layout ==="))
	for _, a := range l.Allocations {
		offset := int64(a.LBA) * consts.ISO9660_SECTOR_SIZE
		offsetStr := fmt.Sprintf("Offset: %*d", offsetWidth-8, offset)
		if useHexOffset {
			offsetStr = fmt.Sprintf("Offset: %#*x", offsetWidth-8, offset)
		}
		fmt.Fprintf(w, "[%s] [%s] [%s] %s\n",
			offsetColor(offsetStr),
			colorMap[a.Kind](fmt.Sprintf("%-*s", categoryWidth, a.Kind)),
			offsetColor(fmt.Sprintf("%*s", lengthWidth, formatSize(int64(a.Blocks)*consts.ISO9660_SECTOR_SIZE))),
			l.detail(a),
		)
	}
	fmt.Fprintln(w, headerColor("=============================="))
}

func (l *Layout) detail(a Allocation) string {
	tree := l.plan.tree
	switch a.Kind {
	case SystemArea:
		return fmt.Sprintf("LBA 0-%d", a.Blocks-1)
	case Descriptor:
		return fmt.Sprintf("%d descriptors at LBA %d", a.Blocks, a.LBA)
	case BootCatalog:
		return fmt.Sprintf("%d entries", len(l.plan.opts.Boot))
	case PathTableL, PathTableM:
		return fmt.Sprintf("%s, %d bytes", a.Hierarchy, l.PathTables[a.Hierarchy].Size)
	case Directory:
		if a.Hierarchy == directory.Joliet {
			return fmt.Sprintf("%s (joliet)", tree.Path(a.Node))
		}
		return tree.Path(a.Node)
	case FilePayload:
		return fmt.Sprintf("%s (%d bytes)", tree.Path(a.Node), tree.Node(a.Node).Size)
	}
	return ""
}

// formatSize converts a size in bytes to a human-readable format.
func formatSize(size int64) string {
	const (
		MB = 1024 * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%8.2f GB", float64(size)/float64(GB))
	case size >= MB:
		return fmt.Sprintf("%8.2f MB", float64(size)/float64(MB))
	default:
		return fmt.Sprintf("%8d B ", size)
	}
}
