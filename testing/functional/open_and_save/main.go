package main

import (
	"crypto/md5"
	"fmt"
	"os"

	"github.com/bgrewell/usage"

	"github.com/bgrewell/iso-edit-kit"
	isotesting "github.com/bgrewell/iso-edit-kit/internal/testing"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
)

// contentHashes maps every file path of img to the MD5 of its bytes.
func contentHashes(img iso.Image) (map[string]string, error) {
	hashes := make(map[string]string)
	err := img.Tree().Walk(func(n *filesystem.Node, path string) error {
		if n.IsDirectory || n.IsSymlink() {
			return nil
		}
		data, err := img.GetFileBytes(n.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		hashes[path] = fmt.Sprintf("%x", md5.Sum(data))
		return nil
	})
	return hashes, err
}

func main() {

	u := usage.NewUsage(
		usage.WithApplicationName("open_and_save"),
		usage.WithApplicationDescription("open_and_save is a functional testing application that is part of iso-edit-kit and is designed to verify that the open, parse and writing logic of iso-edit-kit is working as expected."),
	)
	help := u.AddBooleanOption("h", "help", false, "Display this help message", "", nil)
	rm := u.AddBooleanOption("rm", "remove-test-file", true, "Remove the test file after running the tests", "", nil)
	input := u.AddArgument(1, "input", "The input ISO file to run the tests against", "")
	groundTruth := u.AddArgument(2, "ground-truth", "Optional ground_truth.json listing the expected entries", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if input == nil || *input == "" {
		u.PrintError(fmt.Errorf("location of the input iso file <input> must be provided"))
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.NewSimpleLogger(os.Stderr, logging.LEVEL_DEBUG, true))
	i, err := iso.Open(*input, option.WithCreateLogger(logger))
	if err != nil {
		fmt.Printf("Failed to open ISO file: %s\n", err)
		os.Exit(1)
	}
	defer i.Close()

	if groundTruth != nil && *groundTruth != "" {
		if err := isotesting.Validate(os.Stdout, i.Tree(), *groundTruth); err != nil {
			fmt.Printf("Input does not match ground truth: %s\n", err)
			os.Exit(1)
		}
	}

	inputFolders, inputFiles := isotesting.GetFileAndFolderCounts(i.Tree())
	inputHashes, err := contentHashes(i)
	if err != nil {
		fmt.Printf("Failed to read input files: %s\n", err)
		os.Exit(1)
	}

	o, err := os.CreateTemp("", "open_and_save_test_*.iso")
	if err != nil {
		fmt.Printf("Failed to create temporary file: %s\n", err)
		os.Exit(1)
	}
	o.Close()

	if *rm {
		defer os.Remove(o.Name())
	} else {
		fmt.Printf("Temporary file: %s\n", o.Name())
	}

	if err := i.Save(o.Name()); err != nil {
		fmt.Printf("Failed to save ISO file: %s\n", err)
		os.Exit(1)
	}

	saved, err := iso.Open(o.Name(), option.WithCreateLogger(logger))
	if err != nil {
		fmt.Printf("Failed to reopen saved ISO file: %s\n", err)
		os.Exit(1)
	}
	defer saved.Close()

	outputFolders, outputFiles := isotesting.GetFileAndFolderCounts(saved.Tree())
	if inputFolders != outputFolders || inputFiles != outputFiles {
		fmt.Printf("Entry counts differ:\n  Input:  %d folders, %d files\n  Output: %d folders, %d files\n",
			inputFolders, inputFiles, outputFolders, outputFiles)
		os.Exit(1)
	}

	outputHashes, err := contentHashes(saved)
	if err != nil {
		fmt.Printf("Failed to read output files: %s\n", err)
		os.Exit(1)
	}
	failed := false
	for path, inputHash := range inputHashes {
		if outputHash := outputHashes[path]; outputHash != inputHash {
			fmt.Printf("MD5 hash of %s does not match:\n  Input:  %s\n  Output: %s\n", path, inputHash, outputHash)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	fmt.Printf("Round trip preserved %d folders and %d files\n", outputFolders, outputFiles)
}
