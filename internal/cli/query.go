package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the chunks most relevant to a question",
	Long: `Retrieve the top-k chunks for a question without generating an answer.

Examples:
  ragcloud query -q "leader election"
  ragcloud query -q "leader election" --top-k 3 --json`,
	RunE: runQuery,
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the most relevant chunks",
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(queryCmd, askCmd)
	for _, c := range []*cobra.Command{queryCmd, askCmd} {
		c.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
		c.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks (default from config)")
		c.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
		c.MarkFlagRequired("query")
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	chunks := a.retrieve.Retrieve(cmd.Context(), queryText, queryTopK)

	out := cmd.OutOrStdout()
	if queryJSON {
		output, _ := json.MarshalIndent(chunks, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Top %d chunks for: %s\n\n", len(chunks), queryText)
	for i, c := range chunks {
		fmt.Fprintf(out, "--- [%d] ---\n%s\n\n", i+1, c)
	}
	return nil
}

type askOutput struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Context  []string `json:"context"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	asker, err := a.asker()
	if err != nil {
		return err
	}

	ans, err := asker.Ask(cmd.Context(), queryText, queryTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		output, _ := json.MarshalIndent(askOutput{Question: ans.Question, Answer: ans.Text, Context: ans.Context}, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}
	fmt.Fprintln(out, ans.Text)
	return nil
}
