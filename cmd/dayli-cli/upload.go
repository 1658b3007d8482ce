package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayli-app/dayli/clientcli"
)

var (
	uploadType        string
	uploadContentType string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [local-path...]",
	Short: "Upload images to the store",
	Long: `Upload one or more images.

The server validates the file type, checks the rate ceiling, and issues
a presigned credential scoped to your user. The file then goes straight
to the object store.

Examples:
  dayli-cli upload ./sunset.jpg
  dayli-cli upload --type profile_pictures ./avatar.png
  dayli-cli upload ./a.jpg ./b.jpg ./c.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadType, "type", "memories", "upload type: memories, profile_pictures")
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "override content-type")
}

func runUpload(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results := make([]clientcli.UploadResult, 0, len(args))
	for _, localPath := range args {
		result, uploadErr := client.Upload(context.Background(), clientcli.UploadOptions{
			LocalPath:   localPath,
			UploadType:  uploadType,
			ContentType: uploadContentType,
		})
		if uploadErr != nil {
			result = clientcli.UploadResult{LocalPath: localPath, Err: uploadErr}
		}
		results = append(results, result)
	}

	formatter := getFormatter()
	if err := formatter.FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return results[i].Err
		}
	}

	return nil
}
