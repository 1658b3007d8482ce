package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var imageOutput string

var imageCmd = &cobra.Command{
	Use:   "image <image-id>",
	Short: "Fetch an image record",
	Long: `Fetch an image record by id and write the decoded image to a file.

Only the owner of the image can fetch it. Use -o to pick the output
path, or "-o -" to write the raw bytes to stdout.

Examples:
  dayli-cli image 5f1b2c3d-0000-0000-0000-000000000001
  dayli-cli image -o ./sunset.png 5f1b2c3d-0000-0000-0000-000000000001`,
	Args: cobra.ExactArgs(1),
	RunE: runImage,
}

func init() {
	imageCmd.Flags().StringVarP(&imageOutput, "output", "o", "", "output path (default: record filename, \"-\" for stdout)")
}

func runImage(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	img, err := client.FetchImage(context.Background(), args[0])
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	data, err := img.Bytes()
	if err != nil {
		return err
	}

	savedTo := imageOutput
	if savedTo == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}

	if savedTo == "" {
		savedTo = img.Filename
	}
	if dir := filepath.Dir(savedTo); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(savedTo, data, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	formatter := getFormatter()
	return formatter.FormatImage(os.Stdout, img, savedTo)
}
