package usecase

import (
	"context"
	"fmt"
	"strings"

	"ragcloud/internal/domain"
	"ragcloud/internal/port"
)

// AskUseCase answers a question from retrieved context.
type AskUseCase struct {
	retrieve  port.Retriever
	generator port.Generator
	session   *Session
}

// Answer is a generated answer and the context it was grounded on.
type Answer struct {
	Question string
	Text     string
	Context  []string
}

// NewAskUseCase creates a new ask use case. session may be nil.
func NewAskUseCase(retrieve port.Retriever, generator port.Generator, session *Session) *AskUseCase {
	return &AskUseCase{
		retrieve:  retrieve,
		generator: generator,
		session:   session,
	}
}

// Ask retrieves up to k chunks for question, generates an answer and
// records it in the session.
func (u *AskUseCase) Ask(ctx context.Context, question string, k int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.NewValidationError("question", "empty")
	}

	chunks := u.retrieve.Retrieve(ctx, question, k)

	text, err := u.generator.Generate(ctx, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if u.session != nil {
		u.session.Record(question, text)
	}
	return &Answer{Question: question, Text: text, Context: chunks}, nil
}
