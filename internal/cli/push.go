package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aletheia-ng/pidginforge/internal/hub"
)

// pushCmd represents the push command
var pushCmd = &cobra.Command{
	Use:   "push [file.jsonl] [repo-id]",
	Short: "Upload a JSONL file to a Hugging Face dataset repo",
	Long: `Upload generated records to the Hugging Face Hub.

Creates the dataset repository if it does not exist, then commits the file
as data/train.jsonl on the main branch. Requires HF_TOKEN.

Example:
  pidginforge push pidgin_data/news/data.jsonl aletheia-ng/pidgin-news`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPush(cmd, args[0], args[1])
	},
}

var pushPathInRepo string

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().StringVar(&pushPathInRepo, "path-in-repo", "data/train.jsonl", "destination path inside the dataset repo")
}

func runPush(cmd *cobra.Command, jsonlPath, repoID string) error {
	lines, err := countLines(jsonlPath)
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Printf("Found %d records\n", lines)
	}

	client, err := hub.NewClient("")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := client.CreateDatasetRepo(ctx, repoID); err != nil {
		return err
	}
	if err := client.UploadFile(ctx, jsonlPath, repoID, pushPathInRepo); err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("Uploaded to https://huggingface.co/datasets/%s\n", repoID)
	}
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
