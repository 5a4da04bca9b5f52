// Package handler connects the WhatsApp transport to the assistant: it
// filters inbound messages, resolves media, runs the response loop and
// delivers the reply.
package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openclaw/clawbot/internal/assistant"
	"github.com/openclaw/clawbot/internal/history"
	"github.com/openclaw/clawbot/internal/provider"
	"github.com/openclaw/clawbot/internal/security"
	"github.com/openclaw/clawbot/internal/whatsapp"
)

const (
	msgProcessingError = "Desculpe, ocorreu um erro ao processar sua solicitação."
	handleTimeout      = 5 * time.Minute
)

// Sender is the outbound half of the transport, satisfied by both
// whatsapp adapters.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
	SendAudio(ctx context.Context, to string, audio []byte) error
	DownloadMedia(ctx context.Context, msg *whatsapp.InboundMessage) ([]byte, error)
}

// Options tune the handler.
type Options struct {
	AudioResponse bool // reply to voice messages with synthesized audio
	HistoryLimit  int  // messages of context per chat, default 20
}

// Handler processes inbound WhatsApp messages sequentially per chat;
// different chats proceed in parallel.
type Handler struct {
	sender    Sender
	responder *assistant.Responder
	store     history.Store
	allowlist *security.Allowlist
	opts      Options
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires a Handler. Register its Handle method with the transport's
// OnMessage.
func New(sender Sender, responder *assistant.Responder, store history.Store, allowlist *security.Allowlist, opts Options, logger *zap.Logger) *Handler {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Handler{
		sender:    sender,
		responder: responder,
		store:     store,
		allowlist: allowlist,
		opts:      opts,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// chatLock returns the mutex serializing one chat's messages.
func (h *Handler) chatLock(chatID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[chatID] = lock
	}
	return lock
}

// Handle processes one inbound message end to end. It is the transport
// callback and never panics outward; every failure path ends in either a
// silent drop or an apology message.
func (h *Handler) Handle(msg *whatsapp.InboundMessage) {
	if msg == nil || msg.FromMe || msg.ChatID == "" {
		return
	}
	if !h.allowlist.IsAllowed(msg.Sender) {
		return
	}

	logger := h.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("chat_id", msg.ChatID))

	lock := h.chatLock(msg.ChatID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := h.process(ctx, msg, logger); err != nil {
		logger.Error("message processing failed", zap.Error(err))
		if err := h.sender.SendText(ctx, msg.ChatID, msgProcessingError); err != nil {
			logger.Error("apology delivery failed", zap.Error(err))
		}
	}
}

func (h *Handler) process(ctx context.Context, msg *whatsapp.InboundMessage, logger *zap.Logger) error {
	prompt, image, err := h.resolveContent(ctx, msg, logger)
	if err != nil {
		return err
	}
	if prompt == "" {
		logger.Debug("message has no usable content, skipping")
		return nil
	}

	hist, err := h.store.GetHistory(ctx, msg.ChatID, h.opts.HistoryLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	start := time.Now()
	reply, err := h.responder.GenerateResponse(ctx, prompt, hist, image)
	if err != nil {
		return fmt.Errorf("generate response: %w", err)
	}
	logger.Info("response generated",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("history", len(hist)))
	if reply == "" {
		logger.Warn("model returned empty response")
		return nil
	}

	// Persist exactly the two turns of this exchange. History failures are
	// logged but do not block delivery.
	if err := h.store.AddMessage(ctx, msg.ChatID, history.Message{Role: "user", Content: prompt}); err != nil {
		logger.Warn("persist user turn failed", zap.Error(err))
	}
	if err := h.store.AddMessage(ctx, msg.ChatID, history.Message{Role: "assistant", Content: reply}); err != nil {
		logger.Warn("persist assistant turn failed", zap.Error(err))
	}

	if msg.Type == whatsapp.TypeAudio && h.opts.AudioResponse {
		if h.sendAudioReply(ctx, msg.ChatID, reply, logger) {
			return nil
		}
	}
	if err := h.sender.SendText(ctx, msg.ChatID, reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// resolveContent extracts the prompt text and an optional image data URL
// from the inbound message, transcribing voice notes along the way.
func (h *Handler) resolveContent(ctx context.Context, msg *whatsapp.InboundMessage, logger *zap.Logger) (prompt, image string, err error) {
	switch msg.Type {
	case whatsapp.TypeText:
		return msg.Body, "", nil

	case whatsapp.TypeAudio:
		data, err := h.sender.DownloadMedia(ctx, msg)
		if err != nil {
			return "", "", fmt.Errorf("download audio: %w", err)
		}
		text, err := h.responder.TranscribeAudio(ctx, data, msg.MimeType)
		if err != nil {
			return "", "", fmt.Errorf("transcribe audio: %w", err)
		}
		logger.Info("audio transcribed", zap.Int("bytes", len(data)))
		return text, "", nil

	case whatsapp.TypeImage:
		prompt := msg.Body
		if prompt == "" {
			prompt = "Descreva esta imagem."
		}
		data, err := h.sender.DownloadMedia(ctx, msg)
		if err != nil {
			return "", "", fmt.Errorf("download image: %w", err)
		}
		mime := msg.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
		return prompt, dataURL, nil

	default:
		return "", "", nil
	}
}

// sendAudioReply tries to answer a voice message in kind. Reports whether
// delivery happened; on any failure the caller falls back to text.
func (h *Handler) sendAudioReply(ctx context.Context, chatID, reply string, logger *zap.Logger) bool {
	audio, err := h.responder.GenerateAudio(ctx, reply)
	if err != nil {
		if errors.Is(err, provider.ErrNotSupported) {
			logger.Debug("provider has no speech synthesis, replying with text")
		} else {
			logger.Warn("speech synthesis failed, replying with text", zap.Error(err))
		}
		return false
	}
	if err := h.sender.SendAudio(ctx, chatID, audio); err != nil {
		logger.Warn("audio delivery failed, replying with text", zap.Error(err))
		return false
	}
	return true
}
