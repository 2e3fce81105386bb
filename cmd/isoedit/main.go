package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bgrewell/usage"

	"github.com/bgrewell/iso-edit-kit"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
)

// addPaths adds every comma separated local path to the root of img: directories recursively, files directly.
func addPaths(img iso.Image, list string) error {
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		st, err := os.Stat(p)
		if err != nil {
			return err
		}
		if st.IsDir() {
			_, err = img.ImportDirectory(p, img.Root())
		} else {
			_, err = img.AddFile(p, img.Root())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bootEmulation parses the emulation argument. Emulation only applies to a BIOS boot image.
func bootEmulation(name, bootImage *string, efi bool) (boot.Emulation, error) {
	if name == nil {
		return boot.NoEmulation, nil
	}
	e, err := boot.ParseEmulation(*name)
	if err != nil {
		return boot.NoEmulation, err
	}
	if e != boot.NoEmulation && (bootImage == nil || *bootImage == "" || efi) {
		return boot.NoEmulation, fmt.Errorf("<emulation> %s needs a BIOS <boot-image>", e)
	}
	return e, nil
}

func main() {
	u := usage.NewUsage(
		usage.WithApplicationName("isoedit"),
		usage.WithApplicationDescription("isoedit loads an ISO 9660 image (or starts a new one), adds local files and directories to its root and writes the result as a new image."),
	)
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Enable debug logging", "optional", nil)
	trace := u.AddBooleanOption("vv", "trace", false, "Enable trace logging", "optional", nil)
	noJoliet := u.AddBooleanOption("nj", "no-joliet", false, "Do not write a Joliet hierarchy", "output", nil)
	noRockRidge := u.AddBooleanOption("nr", "no-rockridge", false, "Do not write Rock Ridge entries", "output", nil)
	hybrid := u.AddBooleanOption("y", "hybrid", false, "Write a hybrid MBR so the image boots from USB media", "output", nil)
	efi := u.AddBooleanOption("e", "efi", false, "Treat the boot image as an EFI image", "output", nil)
	source := u.AddArgument(1, "source", "Image to edit, or 'new' to start from an empty image", "")
	output := u.AddArgument(2, "output", "Path the edited image is written to", "")
	add := u.AddArgument(3, "add", "Comma separated local files and directories to add to the image root", "")
	bootImage := u.AddArgument(4, "boot-image", "Local El Torito boot image", "")
	emulation := u.AddArgument(5, "emulation", "Boot image emulation: noemul, floppy12, floppy144, floppy288 or harddisk", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}
	if *help {
		u.PrintUsage()
		os.Exit(0)
	}
	if source == nil || *source == "" || output == nil || *output == "" {
		u.PrintError(fmt.Errorf("<source> and <output> must be provided"))
		os.Exit(1)
	}

	emul, err := bootEmulation(emulation, bootImage, *efi)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	level := -1
	switch {
	case *trace:
		level = logging.LEVEL_TRACE
	case *verbose:
		level = logging.LEVEL_DEBUG
	}
	logger := logging.DefaultLogger()
	if level >= 0 {
		logger = logging.NewLogger(logging.NewSimpleLogger(os.Stderr, level, true))
	}

	var img iso.Image
	if *source == "new" {
		img = iso.New(option.WithCreateLogger(logger))
	} else {
		img, err = iso.Open(*source, option.WithCreateLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
			os.Exit(1)
		}
	}
	defer img.Close()

	if add != nil && *add != "" {
		if err := addPaths(img, *add); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to add files: %v\n", err)
			os.Exit(1)
		}
	}
	if bootImage != nil && *bootImage != "" {
		if *efi {
			img.SetEFIBootImage(*bootImage)
		} else {
			img.SetBootImage(*bootImage)
			img.SetBootEmulation(emul)
		}
	}
	if names := img.NonCompliantNames(); len(names) > 0 && *noJoliet && *noRockRidge {
		fmt.Fprintf(os.Stderr, "Warning: %d names will be shortened to 8.3 form:\n", len(names))
		for _, n := range names {
			fmt.Fprintf(os.Stderr, "  %s\n", n)
		}
	}

	spinner, err := InitializeSpinner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize spinner: %v\n", err)
		fmt.Fprintf(os.Stderr, "Progress updates will be disabled.\n")
		spinner = nil
	}

	err = img.Save(*output,
		option.WithJoliet(!*noJoliet),
		option.WithRockRidge(!*noRockRidge),
		option.WithHybrid(*hybrid),
		option.WithSaveProgress(CreateProgressCallback(spinner)),
	)
	if err != nil {
		if spinner != nil {
			spinner.StopFailMessage(fmt.Sprintf(" Failed to save image: %v", err))
			spinner.StopFail()
		} else {
			fmt.Fprintf(os.Stderr, "Failed to save image: %v\n", err)
		}
		os.Exit(1)
	}
	if spinner != nil {
		spinner.StopMessage(fmt.Sprintf(" Image written to %s (%d blocks)", *output, img.VolumeSize()))
		spinner.Stop()
	}
}
