package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lemonbanan4/ai-web-research/internal/llm"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"
)

const ChatSystemPrompt = "You are a research assistant."

var ErrInvalidRole = errors.New("history role must be user or assistant")

// ChatService answers follow-up questions about a research topic.
type ChatService interface {
	Reply(ctx context.Context, history []llm.Message, query string) (string, error)
}

type chatService struct {
	client llm.Client
	logger *slog.Logger
}

// NewChatService accepts a nil client; Reply then reports a ConfigError.
func NewChatService(client llm.Client, logger *slog.Logger) ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &chatService{client: client, logger: logger}
}

func (s *chatService) Reply(ctx context.Context, history []llm.Message, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.ErrInvalidQuery
	}
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: ChatSystemPrompt})
	for i, m := range history {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return "", fmt.Errorf("%w: history[%d] has role %q", ErrInvalidRole, i, m.Role)
		}
		messages = append(messages, m)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	if s.client == nil {
		return "", &domain.ConfigError{Key: "llmApiKey"}
	}
	reply, err := s.client.Complete(ctx, messages)
	if err != nil {
		s.logger.Warn("chat completion failed", "err", err)
		return "", &domain.UpstreamError{Service: "llm", Err: err}
	}
	return reply, nil
}
