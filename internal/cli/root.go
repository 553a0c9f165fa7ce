package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ragcloud/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ragcloud",
	Short: "ragcloud - a small document library with embedding retrieval",
	Long: `ragcloud keeps a library of text documents, indexes their chunks with an
embedding model and retrieves the most relevant chunks for a question. The
library and the index are mirrored to a sync backend so that every process
sees the same corpus.

Example usage:
  ragcloud add "some notes"           # Add a pasted block
  ragcloud upload notes.txt           # Add a text file
  ragcloud query -q "what is a raft"  # Show the top chunks
  ragcloud ask -q "what is a raft"    # Answer from the top chunks`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		config.LoadEnv(rootDir)

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragcloud.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory for config and .env (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
