package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/openclaw/clawbot/internal/skill"
)

const defaultEventTimeZone = "America/Sao_Paulo"

// CalendarConfig carries the OAuth2 credentials for the calendar skill. The
// refresh token comes from a one-time consent flow done outside the bot.
type CalendarConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
}

type calendarSkill struct {
	svc    *calendar.Service
	logger *zap.Logger
}

// NewCalendarSkill manages events on the primary Google Calendar.
func NewCalendarSkill(cfg CalendarConfig, logger *zap.Logger) *skill.Skill {
	var svc *calendar.Service
	if cfg.RefreshToken != "" {
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
			Scopes: []string{calendar.CalendarScope},
		}
		ts := oauthCfg.TokenSource(context.Background(),
			&oauth2.Token{RefreshToken: cfg.RefreshToken})
		var err error
		svc, err = calendar.NewService(context.Background(), option.WithTokenSource(ts))
		if err != nil {
			logger.Error("calendar service init failed", zap.Error(err))
			svc = nil
		}
	} else {
		logger.Warn("Google refresh token not configured, the calendar skill will reject every call")
	}

	c := &calendarSkill{svc: svc, logger: logger}

	return &skill.Skill{
		Name:        "google_calendar",
		Description: "Gerencia eventos no Google Calendar. Permite listar (com filtros de data), criar, atualizar e excluir eventos, com suporte a fusos horários.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"list", "create", "update", "delete"},
					"description": "A ação a ser realizada no calendário.",
				},
				"summary":     map[string]any{"type": "string", "description": "Título do evento (obrigatório para create/update)."},
				"description": map[string]any{"type": "string", "description": "Descrição detalhada do evento."},
				"location":    map[string]any{"type": "string", "description": "Local do evento."},
				"startTime":   map[string]any{"type": "string", "description": "Data e hora de início no formato ISO 8601 (ex: 2023-10-27T10:00:00-03:00)."},
				"endTime":     map[string]any{"type": "string", "description": "Data e hora de término no formato ISO 8601."},
				"eventId":     map[string]any{"type": "string", "description": "ID do evento (obrigatório para update/delete)."},
				"maxResults":  map[string]any{"type": "number", "description": "Número máximo de eventos a listar (padrão 10)."},
				"attendees": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Lista de emails dos participantes.",
				},
				"timeZone": map[string]any{"type": "string", "description": `Fuso horário do evento (ex: "America/Sao_Paulo", "UTC"). Padrão: "America/Sao_Paulo".`},
				"timeMin":  map[string]any{"type": "string", "description": "Data mínima para listar eventos (ISO 8601). Padrão: agora."},
				"timeMax":  map[string]any{"type": "string", "description": "Data máxima para listar eventos (ISO 8601)."},
			},
			"required": []string{"action"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if c.svc == nil {
				return "Erro: credenciais do Google Calendar não configuradas no servidor.", nil
			}
			action, _ := args["action"].(string)
			result, err := c.dispatch(ctx, action, args)
			if err != nil {
				c.logger.Error("calendar skill error", zap.String("action", action), zap.Error(err))
				return fmt.Sprintf("Erro ao executar ação %s: %v", action, err), nil
			}
			return result, nil
		},
	}
}

func (c *calendarSkill) dispatch(ctx context.Context, action string, args map[string]any) (string, error) {
	switch action {
	case "list":
		return c.listEvents(ctx, args)
	case "create":
		return c.createEvent(ctx, args)
	case "update":
		return c.updateEvent(ctx, args)
	case "delete":
		eventID, _ := args["eventId"].(string)
		return c.deleteEvent(ctx, eventID)
	default:
		return "Ação inválida. Use: list, create, update, ou delete.", nil
	}
}

func (c *calendarSkill) listEvents(ctx context.Context, args map[string]any) (string, error) {
	maxResults := int64(10)
	if n, ok := args["maxResults"].(float64); ok && n > 0 {
		maxResults = int64(n)
	}
	timeMin, _ := args["timeMin"].(string)
	if timeMin == "" {
		timeMin = time.Now().Format(time.RFC3339)
	}

	call := c.svc.Events.List("primary").
		Context(ctx).
		TimeMin(timeMin).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime")
	if timeMax, _ := args["timeMax"].(string); timeMax != "" {
		call = call.TimeMax(timeMax)
	}

	res, err := call.Do()
	if err != nil {
		return "", err
	}
	if len(res.Items) == 0 {
		return "Nenhum evento encontrado no período solicitado.", nil
	}

	var lines []string
	for i, event := range res.Items {
		start := event.Start.DateTime
		if start == "" {
			start = event.Start.Date
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (ID: %s)", i+1, start, event.Summary, event.Id))
	}
	return strings.Join(lines, "\n"), nil
}

func (c *calendarSkill) createEvent(ctx context.Context, args map[string]any) (string, error) {
	summary, _ := args["summary"].(string)
	startTime, _ := args["startTime"].(string)
	endTime, _ := args["endTime"].(string)
	if summary == "" || startTime == "" || endTime == "" {
		return "Erro: summary, startTime e endTime são obrigatórios para criar um evento.", nil
	}

	tz := eventTimeZone(args)
	event := &calendar.Event{
		Summary:   summary,
		Start:     &calendar.EventDateTime{DateTime: startTime, TimeZone: tz},
		End:       &calendar.EventDateTime{DateTime: endTime, TimeZone: tz},
		Attendees: eventAttendees(args),
	}
	event.Description, _ = args["description"].(string)
	event.Location, _ = args["location"].(string)

	res, err := c.svc.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Evento criado com sucesso! Link: %s (ID: %s)", res.HtmlLink, res.Id), nil
}

func (c *calendarSkill) updateEvent(ctx context.Context, args map[string]any) (string, error) {
	eventID, _ := args["eventId"].(string)
	if eventID == "" {
		return "Erro: eventId é obrigatório para atualizar um evento.", nil
	}

	tz := eventTimeZone(args)
	patch := &calendar.Event{}
	patch.Summary, _ = args["summary"].(string)
	patch.Description, _ = args["description"].(string)
	patch.Location, _ = args["location"].(string)
	if startTime, _ := args["startTime"].(string); startTime != "" {
		patch.Start = &calendar.EventDateTime{DateTime: startTime, TimeZone: tz}
	}
	if endTime, _ := args["endTime"].(string); endTime != "" {
		patch.End = &calendar.EventDateTime{DateTime: endTime, TimeZone: tz}
	}
	patch.Attendees = eventAttendees(args)

	res, err := c.svc.Events.Patch("primary", eventID, patch).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Evento atualizado com sucesso! Link: %s", res.HtmlLink), nil
}

func (c *calendarSkill) deleteEvent(ctx context.Context, eventID string) (string, error) {
	if eventID == "" {
		return "Erro: eventId é obrigatório para excluir um evento.", nil
	}
	if err := c.svc.Events.Delete("primary", eventID).Context(ctx).Do(); err != nil {
		return "", err
	}
	return "Evento excluído com sucesso.", nil
}

func eventTimeZone(args map[string]any) string {
	if tz, _ := args["timeZone"].(string); tz != "" {
		return tz
	}
	return defaultEventTimeZone
}

func eventAttendees(args map[string]any) []*calendar.EventAttendee {
	raw, ok := args["attendees"].([]any)
	if !ok {
		return nil
	}
	var attendees []*calendar.EventAttendee
	for _, item := range raw {
		if email, ok := item.(string); ok && email != "" {
			attendees = append(attendees, &calendar.EventAttendee{Email: email})
		}
	}
	return attendees
}
