package whatsapp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WahaClient talks to a WAHA (WhatsApp HTTP API) gateway: outbound calls go
// through its REST API, inbound events arrive on a local webhook.
type WahaClient struct {
	rest     *resty.Client
	session  string
	port     int
	server   *http.Server
	handlers []Handler
	logger   *zap.Logger
}

// WahaConfig configures the WAHA adapter.
type WahaConfig struct {
	BaseURL     string
	APIKey      string
	Session     string
	WebhookPort int
}

// NewWahaClient creates a WAHA adapter. The webhook server is started by
// Connect.
func NewWahaClient(cfg WahaConfig, logger *zap.Logger) *WahaClient {
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	if cfg.WebhookPort == 0 {
		cfg.WebhookPort = 3000
	}
	rest := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("X-Api-Key", cfg.APIKey).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(8 * time.Second)

	return &WahaClient{
		rest:    rest,
		session: cfg.Session,
		port:    cfg.WebhookPort,
		logger:  logger,
	}
}

// wahaEvent is the webhook envelope WAHA posts for every event.
type wahaEvent struct {
	Event   string      `json:"event"`
	Payload wahaPayload `json:"payload"`
}

type wahaPayload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	FromMe    bool   `json:"fromMe"`
	Body      string `json:"body"`
	HasMedia  bool   `json:"hasMedia"`
	Type      string `json:"type"` // chat|image|audio|ptt|...
	MediaURL  string `json:"mediaUrl"`
	Timestamp int64  `json:"timestamp"`
	Media     *struct {
		URL      string `json:"url"`
		Mimetype string `json:"mimetype"`
	} `json:"media"`
	Status string `json:"status"`
}

// Connect starts the webhook server.
func (c *WahaClient) Connect(_ context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Post("/webhook", c.handleWebhook)

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.port),
		Handler: r,
	}
	go func() {
		c.logger.Info("webhook server listening", zap.Int("port", c.port))
		if err := c.server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Error("webhook server error", zap.Error(err))
		}
	}()
	return nil
}

func (c *WahaClient) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event wahaEvent
	if err := decodeJSONBody(r, &event); err != nil {
		c.logger.Warn("malformed webhook payload", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch event.Event {
	case "message", "message.any":
		msg := normalizeWahaMessage(&event.Payload)
		for _, h := range c.handlers {
			h(msg)
		}
	case "session.status":
		c.logger.Info("session status", zap.String("status", event.Payload.Status))
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func normalizeWahaMessage(p *wahaPayload) *InboundMessage {
	msg := &InboundMessage{
		ID:        p.ID,
		ChatID:    p.From,
		Sender:    p.From,
		FromMe:    p.FromMe,
		Body:      p.Body,
		Timestamp: time.Unix(p.Timestamp, 0),
	}
	switch p.Type {
	case "chat", "text", "":
		msg.Type = TypeText
	case "image":
		msg.Type = TypeImage
	case "audio", "ptt":
		msg.Type = TypeAudio
	default:
		msg.Type = TypeOther
	}

	mediaURL := p.MediaURL
	if mediaURL == "" && p.Media != nil {
		mediaURL = p.Media.URL
	}
	if p.HasMedia && mediaURL != "" {
		msg.Media = mediaURL
	}
	if p.Media != nil {
		msg.MimeType = p.Media.Mimetype
	}
	return msg
}

// Disconnect stops the webhook server.
func (c *WahaClient) Disconnect() error {
	if c.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}

// OnMessage registers an inbound message handler. Must be called before
// Connect.
func (c *WahaClient) OnMessage(h Handler) {
	c.handlers = append(c.handlers, h)
}

// SendText sends a text message through the gateway.
func (c *WahaClient) SendText(ctx context.Context, to, text string) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chatId":  to,
			"text":    text,
			"session": c.session,
		}).
		Post("/api/sendText")
	if err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send text: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendAudio sends a voice message; WAHA expects the file as a base64 data
// URL.
func (c *WahaClient) SendAudio(ctx context.Context, to string, audio []byte) error {
	dataURL := "data:audio/mp4;base64," + base64.StdEncoding.EncodeToString(audio)
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chatId": to,
			"file": map[string]any{
				"mimetype": "audio/mp4",
				"data":     dataURL,
				"filename": "voice.mp4",
			},
			"session": c.session,
		}).
		Post("/api/sendVoice")
	if err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send audio: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SetTyping toggles the "typing..." indicator; failures are logged, never
// fatal.
func (c *WahaClient) SetTyping(ctx context.Context, to string, typing bool) {
	endpoint := "/api/stopTyping"
	if typing {
		endpoint = "/api/startTyping"
	}
	_, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{"chatId": to, "session": c.session}).
		Post(endpoint)
	if err != nil {
		c.logger.Warn("set typing state failed", zap.Error(err))
	}
}

// DownloadMedia fetches the media payload referenced by an inbound message.
func (c *WahaClient) DownloadMedia(ctx context.Context, msg *InboundMessage) ([]byte, error) {
	url, ok := msg.Media.(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("message has no downloadable media")
	}
	req := c.rest.R().SetContext(ctx).SetDoNotParseResponse(true)
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer resp.RawBody().Close()
	if resp.IsError() {
		return nil, fmt.Errorf("download media: status %d", resp.StatusCode())
	}
	return io.ReadAll(resp.RawBody())
}

// decodeJSONBody decodes a request body, capped at 50MB to match the media
// payloads WAHA may deliver inline.
func decodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 50<<20)).Decode(v)
}
