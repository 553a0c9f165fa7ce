package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Read questions line by line from standard input and answer each one.

Commands:
  :history  print the questions and answers of this session
  :clear    forget the session history
  :quit     leave (as does end of input)`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	asker, err := a.asker()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case ":quit", ":q":
			return nil
		case ":clear":
			a.session.Clear()
			fmt.Fprintln(out, "History cleared.")
		case ":history":
			for i, ex := range a.session.History() {
				fmt.Fprintf(out, "[%d] Q: %s\n    A: %s\n", i+1, ex.Question, ex.Answer)
			}
		default:
			ans, err := asker.Ask(cmd.Context(), line, 0)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			} else {
				fmt.Fprintln(out, ans.Text)
			}
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
