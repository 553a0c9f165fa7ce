package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragcloud/internal/adapter/index"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Print the sync backend and artifact locations",
	Args:  cobra.NoArgs,
	RunE:  runDebug,
}

func init() {
	rootCmd.AddCommand(debugCmd)
}

func runDebug(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	backend := a.cfg.Sync.Backend
	if backend == "" {
		backend = "dir"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mode=%s remote=%s path=%s\n", backend, a.cfg.Sync.Path, a.cfg.StoreDir())
	fmt.Fprintf(out, "store=%s\n", a.store.LocalPath())
	fmt.Fprintf(out, "embeddings=%s\n", a.index.LocalPath(index.EmbeddingsArtifact))
	fmt.Fprintf(out, "index=%s\n", a.index.LocalPath(index.IndexArtifact))
	fmt.Fprintf(out, "meta=%s\n", a.index.LocalPath(index.MetaArtifact))

	if snap, err := a.index.Load(cmd.Context()); err == nil {
		fmt.Fprintf(out, "build=%s chunks=%d\n", snap.BuildID, snap.Size())
	} else {
		fmt.Fprintf(out, "build=none (%v)\n", err)
	}
	return nil
}
