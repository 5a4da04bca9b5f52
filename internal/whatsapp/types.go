// Package whatsapp contains the messaging client boundary: a normalized
// inbound message shape and the adapters that speak to WhatsApp, either
// through a WAHA HTTP gateway or directly over the whatsmeow socket client.
package whatsapp

import (
	"context"
	"time"
)

// MessageType classifies the inbound payload.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeAudio MessageType = "audio"
	TypeOther MessageType = "other"
)

// InboundMessage is a normalized message from either adapter. Media holds an
// adapter-specific handle used by DownloadMedia (a URL for WAHA, a protobuf
// message for whatsmeow).
type InboundMessage struct {
	ID        string
	ChatID    string
	Sender    string
	FromMe    bool
	Type      MessageType
	Body      string
	MimeType  string
	Media     any
	Timestamp time.Time
}

// HasMedia reports whether the message carries a downloadable payload.
func (m *InboundMessage) HasMedia() bool { return m.Media != nil }

// Handler processes one inbound message.
type Handler func(msg *InboundMessage)

// Client is the messaging transport consumed by the message orchestrator.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error
	OnMessage(h Handler)
	SendText(ctx context.Context, to, text string) error
	SendAudio(ctx context.Context, to string, audio []byte) error
	DownloadMedia(ctx context.Context, msg *InboundMessage) ([]byte, error)
}
