package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/clawbot/internal/assistant"
	"github.com/openclaw/clawbot/internal/history"
	"github.com/openclaw/clawbot/internal/provider"
	"github.com/openclaw/clawbot/internal/security"
	"github.com/openclaw/clawbot/internal/whatsapp"
)

// stubProvider returns a fixed reply (or error) for every chat request.
type stubProvider struct {
	reply      string
	chatErr    error
	transcript string
	audio      []byte
}

func (p *stubProvider) ID() string   { return "stub" }
func (p *stubProvider) Name() string { return "Stub" }

func (p *stubProvider) Chat(context.Context, *provider.ChatRequest) (*provider.ChatResponse, error) {
	if p.chatErr != nil {
		return nil, p.chatErr
	}
	return &provider.ChatResponse{Model: "stub", Content: p.reply, FinishReason: "stop"}, nil
}

func (p *stubProvider) Transcribe(context.Context, []byte, string) (string, error) {
	if p.transcript == "" {
		return "", provider.ErrNotSupported
	}
	return p.transcript, nil
}

func (p *stubProvider) Synthesize(context.Context, string) ([]byte, error) {
	if p.audio == nil {
		return nil, provider.ErrNotSupported
	}
	return p.audio, nil
}

func (p *stubProvider) HealthCheck(context.Context) error { return nil }

// recordingSender captures outbound messages.
type recordingSender struct {
	mu     sync.Mutex
	texts  []string
	audios [][]byte
	media  []byte
}

func (s *recordingSender) SendText(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSender) SendAudio(_ context.Context, to string, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audios = append(s.audios, audio)
	return nil
}

func (s *recordingSender) DownloadMedia(context.Context, *whatsapp.InboundMessage) ([]byte, error) {
	return s.media, nil
}

func newTestHandler(t *testing.T, p provider.Provider, opts Options) (*Handler, *recordingSender, history.Store) {
	t.Helper()
	logger := zap.NewNop()
	sender := &recordingSender{media: []byte("media-bytes")}
	store := history.NewMemoryStore(20, logger)
	allowlist := security.NewAllowlist([]string{"5511999999999"}, logger)
	responder := assistant.New(p, nil, nil, assistant.Options{BaseBackoff: time.Millisecond}, logger)
	return New(sender, responder, store, allowlist, opts, logger), sender, store
}

func inbound(msgType whatsapp.MessageType, body string) *whatsapp.InboundMessage {
	msg := &whatsapp.InboundMessage{
		ID:        "msg1",
		ChatID:    "5511999999999@s.whatsapp.net",
		Sender:    "5511999999999@s.whatsapp.net",
		Type:      msgType,
		Body:      body,
		Timestamp: time.Now(),
	}
	if msgType != whatsapp.TypeText {
		msg.Media = "handle"
	}
	return msg
}

func TestHandleTextMessage(t *testing.T) {
	h, sender, store := newTestHandler(t, &stubProvider{reply: "resposta"}, Options{})

	h.Handle(inbound(whatsapp.TypeText, "pergunta"))

	if len(sender.texts) != 1 || sender.texts[0] != "resposta" {
		t.Errorf("sent texts = %v, want the model reply", sender.texts)
	}

	// Exactly the user and assistant turns are persisted.
	msgs, _ := store.GetHistory(context.Background(), "5511999999999@s.whatsapp.net", 10)
	if len(msgs) != 2 {
		t.Fatalf("got %d persisted turns, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "pergunta" {
		t.Errorf("user turn = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "resposta" {
		t.Errorf("assistant turn = %+v", msgs[1])
	}
}

func TestHandleDeniedSender(t *testing.T) {
	h, sender, store := newTestHandler(t, &stubProvider{reply: "resposta"}, Options{})

	msg := inbound(whatsapp.TypeText, "pergunta")
	msg.Sender = "5511000000000@s.whatsapp.net"
	h.Handle(msg)

	if len(sender.texts) != 0 {
		t.Errorf("denied sender must be silently ignored, sent %v", sender.texts)
	}
	if msgs, _ := store.GetHistory(context.Background(), msg.ChatID, 10); len(msgs) != 0 {
		t.Errorf("denied sender must leave no history, got %v", msgs)
	}
}

func TestHandleSkipsOwnAndMalformed(t *testing.T) {
	h, sender, _ := newTestHandler(t, &stubProvider{reply: "resposta"}, Options{})

	own := inbound(whatsapp.TypeText, "eco")
	own.FromMe = true
	h.Handle(own)

	malformed := inbound(whatsapp.TypeText, "x")
	malformed.ChatID = ""
	h.Handle(malformed)

	h.Handle(nil)

	if len(sender.texts) != 0 {
		t.Errorf("expected no sends, got %v", sender.texts)
	}
}

func TestHandleFailureSendsApology(t *testing.T) {
	h, sender, store := newTestHandler(t,
		&stubProvider{chatErr: &provider.APIError{Status: 400, Body: "bad"}}, Options{})

	h.Handle(inbound(whatsapp.TypeText, "pergunta"))

	if len(sender.texts) != 1 || sender.texts[0] != msgProcessingError {
		t.Errorf("sent texts = %v, want the apology message", sender.texts)
	}
	if msgs, _ := store.GetHistory(context.Background(), "5511999999999@s.whatsapp.net", 10); len(msgs) != 0 {
		t.Errorf("failed exchange must not be persisted, got %v", msgs)
	}
}

func TestHandleAudioMessage(t *testing.T) {
	p := &stubProvider{reply: "resposta", transcript: "pergunta falada", audio: []byte("ogg")}
	h, sender, store := newTestHandler(t, p, Options{AudioResponse: true})

	h.Handle(inbound(whatsapp.TypeAudio, ""))

	if len(sender.audios) != 1 {
		t.Fatalf("expected one audio reply, got %d", len(sender.audios))
	}
	if len(sender.texts) != 0 {
		t.Errorf("audio reply delivered, no text expected; got %v", sender.texts)
	}

	msgs, _ := store.GetHistory(context.Background(), "5511999999999@s.whatsapp.net", 10)
	if len(msgs) != 2 || msgs[0].Content != "pergunta falada" {
		t.Errorf("transcription should be the persisted prompt, got %v", msgs)
	}
}

func TestHandleAudioFallsBackToText(t *testing.T) {
	// Provider transcribes but cannot synthesize.
	p := &stubProvider{reply: "resposta", transcript: "pergunta falada"}
	h, sender, _ := newTestHandler(t, p, Options{AudioResponse: true})

	h.Handle(inbound(whatsapp.TypeAudio, ""))

	if len(sender.audios) != 0 {
		t.Errorf("no synthesis available, audio sends = %d", len(sender.audios))
	}
	if len(sender.texts) != 1 || sender.texts[0] != "resposta" {
		t.Errorf("expected text fallback, got %v", sender.texts)
	}
}
