package llm

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/swarmoffice/orchestrator/internal/domain"
)

// StreamOptions configures one streaming exchange with the gateway on
// behalf of an agent.
type StreamOptions struct {
	Messages    []ChatMessage
	AgentID     string
	Model       string
	MaxTokens   int
	Temperature *float64

	// OnDelta receives each incremental text chunk.
	OnDelta func(text string)
	// OnEvent receives lifecycle markers: planning before the request,
	// generating once headers arrive, complete on graceful finish.
	OnEvent func(event domain.AgentEvent)
	// OnDone is called exactly once on success, including user cancellation.
	OnDone func()
	// OnError is called exactly once on failure.
	OnError func(message string)
}

func (o *StreamOptions) emitEvent(t domain.AgentEventType, label string) {
	if o.OnEvent != nil {
		o.OnEvent(domain.NewAgentEvent(o.AgentID, t, label))
	}
}

// StreamChat performs one streaming request/response exchange with the
// gateway. Control returns through the option callbacks; cancelling ctx
// stops the read and reports completion via OnDone, not OnError, so a
// user-initiated stop is never treated as a failure.
func (c *Client) StreamChat(ctx context.Context, opts StreamOptions) {
	opts.emitEvent(domain.AgentEventPlanning, "Analyzing request...")

	req := &ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    opts.Messages,
		Temperature: opts.Temperature,
		Stream:      true,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = &opts.MaxTokens
	}

	resp, err := c.post(ctx, req)
	if err != nil {
		if stopped(ctx, err) {
			opts.emitEvent(domain.AgentEventComplete, "Stopped by user")
			if opts.OnDone != nil {
				opts.OnDone()
			}
			return
		}
		opts.OnError(err.Error())
		return
	}
	if resp.Body == nil {
		opts.OnError("no response stream")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		opts.OnError(statusError(resp.StatusCode, respBody).Error())
		return
	}

	opts.emitEvent(domain.AgentEventGenerating, "Generating response...")

	var dec StreamDecoder
	buf := make([]byte, 4096)
	for !dec.Done() {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, text := range dec.Feed(buf[:n]) {
				if opts.OnDelta != nil {
					opts.OnDelta(text)
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if stopped(ctx, readErr) {
				opts.emitEvent(domain.AgentEventComplete, "Stopped by user")
				if opts.OnDone != nil {
					opts.OnDone()
				}
				return
			}
			opts.OnError(readErr.Error())
			return
		}
	}
	for _, text := range dec.Flush() {
		if opts.OnDelta != nil {
			opts.OnDelta(text)
		}
	}

	opts.emitEvent(domain.AgentEventComplete, "Task complete")
	if opts.OnDone != nil {
		opts.OnDone()
	}
}

// stopped reports whether err is the result of ctx being cancelled.
func stopped(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}
