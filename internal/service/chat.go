package service

import (
	"context"
	"fmt"

	"github.com/swarmoffice/orchestrator/internal/llm"
)

// StreamAgentChat proxies a direct conversation with a single agent,
// injecting the agent persona ahead of the caller's messages. Chunks are
// forwarded to the callback as they arrive from the gateway.
func (s *Service) StreamAgentChat(ctx context.Context, agentID, model string, messages []llm.ChatMessage, callback llm.StreamCallback) error {
	if _, ok := s.registry.FindByID(agentID); !ok {
		return fmt.Errorf("unknown agent %q", agentID)
	}
	if model == "" {
		model = s.config.DefaultModel
	}
	req := &llm.ChatCompletionRequest{
		Model: model,
		Messages: append([]llm.ChatMessage{
			{Role: "system", Content: s.registry.SystemPrompt(agentID)},
		}, messages...),
	}
	return s.llm.CreateChatCompletionStream(ctx, req, callback)
}
