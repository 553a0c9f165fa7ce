package generation

import (
	"strings"
)

const serviceName = "generation"

// BuildPrompt joins the system instructions, the question and the retrieved
// context into a single prompt.
func BuildPrompt(instructions, query string, contextChunks []string) string {
	var b strings.Builder
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nCONTEXT:\n")
	b.WriteString(strings.Join(contextChunks, "\n"))
	return b.String()
}

var formattingStripper = strings.NewReplacer("*", "", "_", "", "~", "", "`", "")

// StripFormatting removes Markdown emphasis and code characters.
func StripFormatting(answer string) string {
	return formattingStripper.Replace(answer)
}
