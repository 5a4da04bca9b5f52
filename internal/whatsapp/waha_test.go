package whatsapp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestNormalizeWahaMessage(t *testing.T) {
	cases := []struct {
		name     string
		payload  wahaPayload
		wantType MessageType
		hasMedia bool
	}{
		{
			name:     "chat message",
			payload:  wahaPayload{ID: "1", From: "5511999999999@c.us", Type: "chat", Body: "oi"},
			wantType: TypeText,
		},
		{
			name: "voice note",
			payload: wahaPayload{
				ID: "2", From: "5511999999999@c.us", Type: "ptt", HasMedia: true,
				MediaURL: "http://waha/media/2.ogg",
			},
			wantType: TypeAudio,
			hasMedia: true,
		},
		{
			name: "image with nested media",
			payload: wahaPayload{
				ID: "3", From: "5511999999999@c.us", Type: "image", HasMedia: true,
				Media: &struct {
					URL      string `json:"url"`
					Mimetype string `json:"mimetype"`
				}{URL: "http://waha/media/3.jpg", Mimetype: "image/jpeg"},
			},
			wantType: TypeImage,
			hasMedia: true,
		},
		{
			name:     "unknown type",
			payload:  wahaPayload{ID: "4", From: "x@c.us", Type: "sticker"},
			wantType: TypeOther,
		},
	}

	for _, tc := range cases {
		msg := normalizeWahaMessage(&tc.payload)
		if msg.Type != tc.wantType {
			t.Errorf("%s: type = %q, want %q", tc.name, msg.Type, tc.wantType)
		}
		if msg.HasMedia() != tc.hasMedia {
			t.Errorf("%s: HasMedia = %v, want %v", tc.name, msg.HasMedia(), tc.hasMedia)
		}
		if msg.ChatID != tc.payload.From {
			t.Errorf("%s: chat id = %q", tc.name, msg.ChatID)
		}
	}
}

func TestWebhookDispatch(t *testing.T) {
	c := NewWahaClient(WahaConfig{BaseURL: "http://waha"}, zap.NewNop())

	var mu sync.Mutex
	var received []*InboundMessage
	c.OnMessage(func(msg *InboundMessage) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		w := httptest.NewRecorder()
		c.handleWebhook(w, req)
		return w
	}

	// A message event reaches the handler.
	w := post(`{"event":"message","payload":{"id":"1","from":"5511999999999@c.us","type":"chat","body":"oi"}}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if len(received) != 1 || received[0].Body != "oi" {
		t.Fatalf("received = %v", received)
	}

	// Session status events are logged, not dispatched.
	post(`{"event":"session.status","payload":{"status":"WORKING"}}`)
	if len(received) != 1 {
		t.Errorf("session.status should not reach message handlers")
	}

	// Malformed payloads get a 400.
	if w := post(`{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed payload status = %d, want 400", w.Code)
	}
}
