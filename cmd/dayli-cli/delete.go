package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayli-app/dayli/clientcli"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <file-path> [file-path...]",
	Short: "Delete files from the store",
	Long: `Delete one or more files.

The server checks ownership against the stored object metadata before
removing anything. Paths are the bucket-prefixed keys returned on
upload.

Examples:
  dayli-cli delete dayli-data/memories/u1/1700000000000_abc_sunset.jpg
  dayli-cli delete -q dayli-data/memories/u1/a.jpg dayli-data/memories/u1/b.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(context.Background(), clientcli.DeleteOptions{
		Paths: args,
	})
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	formatter := getFormatter()
	if err := formatter.FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	// Return error if any deletes failed
	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}

// exitError is returned when we want to exit with a specific code
// but don't want cobra to print an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}
