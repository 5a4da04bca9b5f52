package whatsapp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	_ "modernc.org/sqlite" // CGO-free driver for the device store
)

// MeowClient connects directly to WhatsApp over the whatsmeow socket
// client, pairing via QR code on first run. Device credentials live in a
// local SQLite store.
type MeowClient struct {
	client   *whatsmeow.Client
	store    *sqlstore.Container
	handlers []Handler
	logger   *zap.Logger
}

// NewMeowClient initializes the device store and socket client.
func NewMeowClient(dbPath string, logger *zap.Logger) (*MeowClient, error) {
	dbLog := waLog.Stdout("Database", "ERROR", true)
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	container, err := sqlstore.New(context.Background(), "sqlite", dsn, dbLog)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	clientLog := waLog.Stdout("Client", "ERROR", true)
	return &MeowClient{
		client: whatsmeow.NewClient(deviceStore, clientLog),
		store:  container,
		logger: logger,
	}, nil
}

// Connect logs in (showing a QR code when the device is not yet paired) and
// starts dispatching events.
func (c *MeowClient) Connect(ctx context.Context) error {
	c.client.AddEventHandler(c.handleEvent)

	if c.client.Store.ID == nil {
		qrChan, _ := c.client.GetQRChannel(ctx)
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		c.logger.Info("scan the QR code with WhatsApp to pair")
		for evt := range qrChan {
			if evt.Event == "code" {
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			} else {
				c.logger.Info("pairing event", zap.String("event", evt.Event))
			}
		}
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.logger.Info("WhatsApp connected",
		zap.String("jid", c.client.Store.ID.ToNonAD().String()))
	return nil
}

// Disconnect closes the socket.
func (c *MeowClient) Disconnect() error {
	c.client.Disconnect()
	return nil
}

// OnMessage registers an inbound message handler. Must be called before
// Connect.
func (c *MeowClient) OnMessage(h Handler) {
	c.handlers = append(c.handlers, h)
}

func (c *MeowClient) handleEvent(evt any) {
	v, ok := evt.(*events.Message)
	if !ok {
		return
	}

	msg := &InboundMessage{
		ID:        v.Info.ID,
		ChatID:    v.Info.Chat.String(),
		Sender:    v.Info.Sender.String(),
		FromMe:    v.Info.IsFromMe,
		Timestamp: v.Info.Timestamp,
	}

	switch {
	case v.Message.GetConversation() != "":
		msg.Type = TypeText
		msg.Body = v.Message.GetConversation()
	case v.Message.GetExtendedTextMessage().GetText() != "":
		msg.Type = TypeText
		msg.Body = v.Message.GetExtendedTextMessage().GetText()
	case v.Message.GetImageMessage() != nil:
		img := v.Message.GetImageMessage()
		msg.Type = TypeImage
		msg.Body = img.GetCaption()
		msg.MimeType = img.GetMimetype()
		msg.Media = img
	case v.Message.GetAudioMessage() != nil:
		audio := v.Message.GetAudioMessage()
		msg.Type = TypeAudio
		msg.MimeType = audio.GetMimetype()
		msg.Media = audio
	default:
		msg.Type = TypeOther
	}

	for _, h := range c.handlers {
		h(msg)
	}
}

// SendText sends a plain text message.
func (c *MeowClient) SendText(ctx context.Context, to, text string) error {
	jid, err := parseJID(to)
	if err != nil {
		return err
	}
	_, err = c.client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(text),
	})
	return err
}

// SendAudio uploads and sends a voice note (opus-in-ogg).
func (c *MeowClient) SendAudio(ctx context.Context, to string, audio []byte) error {
	jid, err := parseJID(to)
	if err != nil {
		return err
	}
	uploaded, err := c.client.Upload(ctx, audio, whatsmeow.MediaAudio)
	if err != nil {
		return fmt.Errorf("upload audio: %w", err)
	}
	_, err = c.client.SendMessage(ctx, jid, &waProto.Message{
		AudioMessage: &waProto.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String("audio/ogg; codecs=opus"),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uint64(len(audio))),
			PTT:           proto.Bool(true),
		},
	})
	return err
}

// DownloadMedia downloads the encrypted media payload of an inbound
// message.
func (c *MeowClient) DownloadMedia(ctx context.Context, msg *InboundMessage) ([]byte, error) {
	downloadable, ok := msg.Media.(whatsmeow.DownloadableMessage)
	if !ok {
		return nil, fmt.Errorf("message has no downloadable media")
	}
	return c.client.Download(ctx, downloadable)
}

// SetTyping shows the "composing" presence in a chat; failures are logged,
// never fatal.
func (c *MeowClient) SetTyping(ctx context.Context, to string, typing bool) {
	jid, err := parseJID(to)
	if err != nil {
		return
	}
	state := types.ChatPresencePaused
	if typing {
		state = types.ChatPresenceComposing
	}
	if err := c.client.SendChatPresence(ctx, jid, state, types.ChatPresenceMediaText); err != nil {
		c.logger.Warn("set chat presence failed", zap.Error(err))
	}
}

func parseJID(raw string) (types.JID, error) {
	if !strings.Contains(raw, "@") {
		return types.NewJID(raw, types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid JID %q: %w", raw, err)
	}
	return jid, nil
}
