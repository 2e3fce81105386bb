package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bgrewell/usage"
	"github.com/fatih/color"

	"github.com/bgrewell/iso-edit-kit"
	"github.com/bgrewell/iso-edit-kit/pkg/core"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/parser"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
)

func printTree(img iso.Image, useColor bool) error {
	dirColor := color.New(color.FgBlue, color.Bold).SprintFunc()
	linkColor := color.New(color.FgCyan).SprintFunc()
	if !useColor {
		dirColor = fmt.Sprint
		linkColor = fmt.Sprint
	}
	return img.Tree().Walk(func(n *filesystem.Node, path string) error {
		if path == "/" {
			fmt.Println(dirColor("/"))
			return nil
		}
		indent := strings.Repeat("  ", strings.Count(path, "/")-1)
		switch {
		case n.IsDirectory:
			fmt.Printf("%s%s/\n", indent, dirColor(n.Name))
		case n.IsSymlink():
			fmt.Printf("%s%s -> %s\n", indent, linkColor(n.Name), n.SymlinkTarget)
		default:
			fmt.Printf("%s%s (%d bytes)\n", indent, n.Name, n.Size)
		}
		return nil
	})
}

func printInfo(w io.Writer, info *parser.Info, boots []core.BootInfo) {
	if info == nil {
		return
	}
	fmt.Fprintf(w, "System ID:   %s\n", info.SystemID)
	fmt.Fprintf(w, "Volume ID:   %s\n", info.VolumeID)
	fmt.Fprintf(w, "Blocks:      %d\n", info.VolumeBlocks)
	fmt.Fprintf(w, "Hierarchy:   %s (joliet=%t rockridge=%t)\n", info.Hierarchy, info.HasJoliet, info.HasRockRidge)
	if !info.Created.IsZero() {
		fmt.Fprintf(w, "Created:     %s\n", info.Created)
	}
	if info.UDF != nil && info.UDF.Present {
		fmt.Fprintln(w, "UDF:         present (ignored)")
	}
	for i, v := range info.Volumes {
		kind := v.Type.String()
		if v.Joliet {
			kind = "joliet"
		}
		fmt.Fprintf(w, "Volume [%d]:  %s id=%q blocks=%d path-table=%d@L%d/M%d\n",
			i, kind, v.VolumeID, v.VolumeBlocks, v.PathTableSize, v.LPathTable, v.MPathTable)
	}
	for i, p := range info.Partitions {
		fmt.Fprintf(w, "Partition [%d]: id=%q system=%q lba=%d blocks=%d\n",
			i, p.VolumePartitionIdentifier, p.SystemIdentifier, p.VolumePartitionLocation, p.VolumePartitionSize)
	}
	for i, b := range boots {
		path := b.Path
		if path == "" {
			path = fmt.Sprintf("<LBA %d>", b.Entry.ImageLBA)
		}
		fmt.Fprintf(w, "Boot [%d]:    platform=%v emulation=%v sectors=%d %s\n", i, b.Platform, b.Emulation, b.Entry.SectorCount, path)
	}
	fmt.Fprintln(w)
}

func main() {
	u := usage.NewUsage(
		usage.WithApplicationName("isoview"),
		usage.WithApplicationDescription("isoview prints the volume information, directory tree and block layout of an ISO 9660 image."),
	)
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose output", "optional", nil)
	showLayout := u.AddBooleanOption("l", "layout", false, "Print the block layout the image would be saved with", "display", nil)
	hex := u.AddBooleanOption("x", "hex", false, "Print layout offsets in hexadecimal", "display", nil)
	noColor := u.AddBooleanOption("nc", "no-color", false, "Disable colored output", "display", nil)
	noRockRidge := u.AddBooleanOption("nr", "no-rockridge", false, "Ignore Rock Ridge entries when reading", "display", nil)
	path := u.AddArgument(1, "iso-path", "Path to the iso file", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the iso file <path> must be provided"))
		os.Exit(1)
	}

	logger := logging.DefaultLogger()
	if *verbose {
		logger = logging.NewLogger(logging.NewSimpleLogger(os.Stderr, logging.LEVEL_DEBUG, !*noColor))
	}

	img, err := iso.Open(*path,
		option.WithCreateLogger(logger),
		option.WithOpenOptions(option.WithRockRidgeEnabled(!*noRockRidge)),
	)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer img.Close()

	printInfo(os.Stdout, img.Info(), img.ExtractBootInfo())
	if err := printTree(img, !*noColor); err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	if *showLayout {
		l, err := img.Layout()
		if err != nil {
			u.PrintError(err)
			os.Exit(1)
		}
		fmt.Println()
		l.Print(os.Stdout, !*noColor, *hex)
	}
}
