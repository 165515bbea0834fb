// Package chat implements the follow-up question session grounded in a
// single verification report.
package chat

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/clearcheck/verify-cli/internal/config"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

const systemPromptTemplate = `You are a follow-up assistant for a content-verification report.
Answer the user's questions grounded ONLY in the report below. If the report
does not contain the answer, say so rather than speculating.

REPORT:
%s`

// Session is one grounded chat. It is scoped to exactly one report;
// switching reports means creating a new Session and discarding this one.
// A Session is not safe for concurrent use: Send must not be called again
// before the previous call returns.
type Session struct {
	cfg        *config.Config
	model      anthropic.Client
	grounding  string
	transcript []model.ChatMessage
	inFlight   bool
}

// New creates a session grounded in the full text of one report. Returns
// nil when the report is empty: there is nothing to answer questions about.
func New(cfg *config.Config, client anthropic.Client, groundingReport string) *Session {
	if groundingReport == "" {
		return nil
	}
	return &Session{
		cfg:       cfg,
		model:     client,
		grounding: groundingReport,
	}
}

// Transcript returns a copy of the transcript so far.
func (s *Session) Transcript() []model.ChatMessage {
	return append([]model.ChatMessage(nil), s.transcript...)
}

// Send relays a user message and streams the model's reply. The user
// message is appended to the transcript immediately; a single placeholder
// model entry is appended before streaming starts and grows chunk by chunk,
// so there is always exactly one in-progress model entry during a send.
func (s *Session) Send(ctx context.Context, message string, onChunk func(string)) error {
	if s.inFlight {
		return eris.New("chat: send already in progress")
	}
	s.inFlight = true
	defer func() { s.inFlight = false }()

	s.transcript = append(s.transcript, model.ChatMessage{Role: model.ChatRoleUser, Content: message})
	s.transcript = append(s.transcript, model.ChatMessage{Role: model.ChatRoleModel})
	replyIdx := len(s.transcript) - 1

	stream, err := s.model.StreamMessage(ctx, anthropic.MessageRequest{
		Model:     s.cfg.Anthropic.SynthesisModel,
		MaxTokens: s.cfg.Anthropic.MaxTokens,
		System:    anthropic.CachedSystemBlocks(fmt.Sprintf(systemPromptTemplate, s.grounding)),
		Messages:  s.history(),
	})
	if err != nil {
		return eris.Wrap(err, "chat: start reply stream")
	}
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Text()
		s.transcript[replyIdx].Content += chunk
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := stream.Err(); err != nil {
		return eris.Wrap(err, "chat: reply stream")
	}
	return nil
}

// history converts the transcript (minus the empty in-progress entry) to
// model client messages.
func (s *Session) history() []anthropic.Message {
	msgs := make([]anthropic.Message, 0, len(s.transcript))
	for _, m := range s.transcript {
		if m.Role == model.ChatRoleModel && m.Content == "" {
			continue
		}
		role := "user"
		if m.Role == model.ChatRoleModel {
			role = "assistant"
		}
		msgs = append(msgs, anthropic.Message{Role: role, Content: m.Content})
	}
	return msgs
}
