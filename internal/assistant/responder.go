// Package assistant contains the provider-agnostic orchestration loop that
// turns a prompt, a bounded history and the registered skills into a final
// assistant answer, transparently resolving the model's tool calls.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openclaw/clawbot/internal/cache"
	"github.com/openclaw/clawbot/internal/history"
	"github.com/openclaw/clawbot/internal/provider"
	"github.com/openclaw/clawbot/internal/skill"
	"go.uber.org/zap"
)

// ErrToolLoopLimit is returned when the model keeps requesting tools past
// the configured round ceiling.
var ErrToolLoopLimit = errors.New("tool-loop limit exceeded")

// Fixed tool-result strings handed back to the model instead of aborting the
// turn.
const (
	resultSkillNotFound = "Erro: Ferramenta não encontrada"
	msgSTTNotSupported  = "Desculpe, a transcrição de áudio não está disponível neste modelo."
)

const defaultSystemPrompt = "Você é o OpenClaw, um assistente inteligente integrado ao WhatsApp. " +
	"Responda de forma direta e útil. Use as ferramentas disponíveis quando necessário."

// Recorder receives instrumentation events from the loop. A nil Recorder
// disables instrumentation.
type Recorder interface {
	ObserveRequest(model string, d time.Duration)
	AddTokens(model string, prompt, completion int)
	IncError(kind string)
}

// Options tune a Responder. Zero values fall back to the documented
// defaults.
type Options struct {
	SystemPrompt  string
	Temperature   float64       // sampling temperature, default 0.7
	MaxAttempts   int           // retry ceiling per completion, default 3
	BaseBackoff   time.Duration // first retry delay, default 1s
	MaxToolRounds int           // tool-round ceiling, default 8
	CacheTTL      time.Duration // response cache TTL, default 1h
}

// Responder drives the completion/tool-execution state machine over any
// provider.Provider. One instance serves the whole process; it is safe for
// concurrent use.
type Responder struct {
	provider provider.Provider
	registry *skill.Registry
	cache    cache.Cache // optional
	recorder Recorder    // optional
	opts     Options
	logger   *zap.Logger
}

// New creates a Responder. registry and c may be nil, disabling tool calling
// and caching respectively.
func New(p provider.Provider, registry *skill.Registry, c cache.Cache, opts Options, logger *zap.Logger) *Responder {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 8
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Responder{
		provider: p,
		registry: registry,
		cache:    c,
		opts:     opts,
		logger:   logger,
	}
}

// SetRecorder attaches an instrumentation sink.
func (r *Responder) SetRecorder(rec Recorder) { r.recorder = rec }

// GenerateResponse produces the assistant's final text answer for a prompt,
// resolving any number of tool rounds along the way. image, when non-empty,
// is a data URL attached to the user turn.
func (r *Responder) GenerateResponse(ctx context.Context, prompt string, hist []history.Message, image string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}

	key := fingerprint(prompt, hist, image)
	if r.cache != nil {
		if v, ok, err := r.cache.Get(ctx, key); err != nil {
			r.logger.Warn("cache lookup failed", zap.Error(err))
		} else if ok {
			r.logger.Debug("response cache hit")
			return v, nil
		}
	}

	messages := r.buildMessages(prompt, hist, image)
	var tools []provider.Tool
	if r.registry != nil {
		tools = r.registry.ToolManifest()
	}

	req := &provider.ChatRequest{
		Messages:    messages,
		Temperature: r.opts.Temperature,
		Tools:       tools,
	}
	if len(tools) > 0 {
		req.ToolChoice = "auto"
	}

	for round := 0; round <= r.opts.MaxToolRounds; round++ {
		resp, err := r.complete(ctx, req)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			// Terminal: plain text (possibly empty, meaning "no content").
			// Only first-round answers are cached; anything reached through
			// a tool round depends on dynamic tool output.
			if round == 0 && resp.Content != "" && r.cache != nil {
				if err := r.cache.Set(ctx, key, resp.Content, r.opts.CacheTTL); err != nil {
					r.logger.Warn("cache write failed", zap.Error(err))
				}
			}
			return resp.Content, nil
		}

		// Append the assistant's tool-call message, then one result message
		// per call, strictly in the order the model returned them.
		req.Messages = append(req.Messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result := r.executeToolCall(ctx, tc)
			req.Messages = append(req.Messages, provider.Message{
				Role:       "tool",
				Content:    result,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}
		r.logger.Debug("tool round complete",
			zap.Int("round", round+1),
			zap.Int("tool_calls", len(resp.ToolCalls)))
	}

	if r.recorder != nil {
		r.recorder.IncError("tool_loop_limit")
	}
	return "", fmt.Errorf("%w after %d rounds", ErrToolLoopLimit, r.opts.MaxToolRounds)
}

// executeToolCall resolves one tool call against the registry. Failures of
// any kind become an error string in the result so the model can react;
// sibling calls in the batch are unaffected.
func (r *Responder) executeToolCall(ctx context.Context, tc provider.ToolCall) string {
	name := tc.Function.Name
	s, ok := r.registry.Get(name)
	if !ok {
		r.logger.Warn("model requested unknown skill", zap.String("skill", name))
		return resultSkillNotFound
	}

	args := map[string]any{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("Erro na execução: argumentos JSON inválidos: %v", err)
		}
	}
	if err := skill.ValidateArgs(s, args); err != nil {
		return fmt.Sprintf("Erro na execução: %v", err)
	}

	r.logger.Info("executing skill", zap.String("skill", name))
	result, err := s.Execute(ctx, args)
	if err != nil {
		if r.recorder != nil {
			r.recorder.IncError("skill_execution")
		}
		return fmt.Sprintf("Erro na execução: %v", err)
	}
	serialized, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("Erro na execução: resultado não serializável: %v", err)
	}
	return string(serialized)
}

// complete submits the request, retrying transient failures with
// exponential backoff up to the attempt ceiling. A rate-limit retry-after
// hint overrides the computed delay for that attempt.
func (r *Responder) complete(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	var lastErr error
	delay := r.opts.BaseBackoff
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		start := time.Now()
		resp, err := r.provider.Chat(ctx, req)
		if err == nil {
			if r.recorder != nil {
				r.recorder.ObserveRequest(resp.Model, time.Since(start))
				r.recorder.AddTokens(resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			}
			return resp, nil
		}
		lastErr = err
		if !provider.IsRetryable(err) {
			if r.recorder != nil {
				r.recorder.IncError("permanent")
			}
			return nil, err
		}
		if r.recorder != nil {
			r.recorder.IncError("transient")
		}
		if attempt == r.opts.MaxAttempts {
			break
		}

		wait := delay
		if hint, ok := provider.RetryAfterHint(err); ok {
			wait = hint
		}
		r.logger.Warn("completion attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.opts.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("completion failed after %d attempts: %w", r.opts.MaxAttempts, lastErr)
}

func (r *Responder) buildMessages(prompt string, hist []history.Message, image string) []provider.Message {
	msgs := make([]provider.Message, 0, len(hist)+2)
	msgs = append(msgs, provider.Message{Role: "system", Content: r.opts.SystemPrompt})
	for _, h := range hist {
		msgs = append(msgs, provider.Message{Role: h.Role, Content: h.Content, Name: h.Name})
	}
	user := provider.Message{Role: "user", Content: prompt}
	if image != "" {
		user.Images = []string{image}
	}
	return append(msgs, user)
}

// TranscribeAudio converts an audio payload to text. Backends without
// speech-to-text yield a fixed notice instead of failing the turn.
func (r *Responder) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	text, err := r.provider.Transcribe(ctx, audio, mimeType)
	if err != nil {
		if errors.Is(err, provider.ErrNotSupported) {
			return msgSTTNotSupported, nil
		}
		return "", err
	}
	return text, nil
}

// GenerateAudio converts text to a binary audio payload. Backends without
// speech synthesis fail with provider.ErrNotSupported; callers must not
// retry those.
func (r *Responder) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	return r.provider.Synthesize(ctx, text)
}
