package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragcloud/internal/usecase"
)

func newSpinner(cmd *cobra.Command, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionClearOnFinish(),
	)
}

// withSpinner runs fn while a spinner ticks on stderr.
func withSpinner(cmd *cobra.Command, description string, fn func() error) error {
	bar := newSpinner(cmd, description)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()

	err := fn()
	close(done)
	bar.Finish()
	return err
}

// reportPartial tells the user what did persist before err.
func reportPartial(cmd *cobra.Command, res *usecase.MutationResult, err error) error {
	if res != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s, but the index was not updated; the next query will rebuild it.\n", res.Name)
	}
	return err
}
