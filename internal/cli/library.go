package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ragcloud/internal/usecase"
)

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add a pasted block of text",
	Long: `Add text as a new document named blok-YYYYMMDD-HHMMSS. With no arguments,
or with "-", the text is read from standard input.

Examples:
  ragcloud add "raft elects a leader per term"
  pbpaste | ragcloud add`,
	RunE: runAdd,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Add a text file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Add every matching text file below a directory",
	Long: `Add every file below dir that matches upload.includes and none of
upload.excludes, in path order, then rebuild the index once.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <position>",
	Short: "Delete the document at a position (see list)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents with their positions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed every chunk and replace the index",
	Args:  cobra.NoArgs,
	RunE:  runRebuild,
}

func init() {
	rootCmd.AddCommand(addCmd, uploadCmd, ingestCmd, deleteCmd, listCmd, rebuildCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 || text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	var res *usecase.MutationResult
	err = withSpinner(cmd, "Indexing", func() error {
		r, err := a.library.AddText(cmd.Context(), text)
		res = r
		return err
	})
	if err != nil {
		return reportPartial(cmd, res, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d chunks, %d indexed)\n", res.Name, res.Chunks, res.Indexed)
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))

	var res *usecase.MutationResult
	err = withSpinner(cmd, "Indexing", func() error {
		r, err := a.library.Upload(cmd.Context(), name, contentType, data)
		res = r
		return err
	})
	if err != nil {
		return reportPartial(cmd, res, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d chunks, %d indexed)\n", res.Name, res.Chunks, res.Indexed)
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root)
	}

	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Scanning %s...\n", root)

	bar := newSpinner(cmd, "Ingesting")
	result, err := a.library.Ingest(cmd.Context(), root, func(path string) {
		bar.Describe("Ingesting " + filepath.Base(path))
		bar.Add(1)
	})
	bar.Finish()

	out := cmd.OutOrStdout()
	if result != nil {
		fmt.Fprintf(out, "Added:   %d\n", len(result.Added))
		fmt.Fprintf(out, "Skipped: %d\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Fprintf(out, "  - %s\n", s)
		}
		if len(result.Errors) > 0 {
			fmt.Fprintf(out, "Errors:  %d\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
		}
		fmt.Fprintf(out, "Indexed: %d chunks\n", result.Indexed)
	}
	return err
}

func runDelete(cmd *cobra.Command, args []string) error {
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid position %q: %w", args[0], err)
	}

	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	var res *usecase.MutationResult
	err = withSpinner(cmd, "Reindexing", func() error {
		r, err := a.library.Delete(cmd.Context(), pos)
		res = r
		return err
	})
	if err != nil {
		return reportPartial(cmd, res, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d chunks indexed)\n", res.Name, res.Indexed)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	docs := a.library.List(cmd.Context())
	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents.")
		return nil
	}
	for i, d := range docs {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(out, "%d. %s (%d chunks)\n", i, name, len(d.Chunks))
	}
	return nil
}

func runRebuild(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	var n int
	err = withSpinner(cmd, "Rebuilding index", func() error {
		var err error
		n, err = a.library.Rebuild(cmd.Context())
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks\n", n)
	return nil
}
