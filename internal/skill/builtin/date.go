// Package builtin ships the skills the assistant registers out of the box:
// date lookup, web search, file access, terminal commands, Notion and
// Google Calendar integrations. Each constructor returns a *skill.Skill
// ready for Registry.Register.
package builtin

import (
	"context"
	"time"

	"github.com/openclaw/clawbot/internal/skill"
)

var saoPaulo = mustLoadLocation("America/Sao_Paulo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewDateSkill returns the current date and time, the cheapest way to give
// the model temporal context.
func NewDateSkill() *skill.Skill {
	return &skill.Skill{
		Name:        "get_current_date",
		Description: `Retorna a data e hora atuais. Use quando o usuário perguntar "que dia é hoje" ou precisar de contexto temporal.`,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"format": map[string]any{
					"type":        "string",
					"description": `O formato desejado para a data (ex: "ISO", "locale"). Opcional.`,
					"enum":        []string{"ISO", "locale"},
				},
			},
			"required": []string{},
		},
		Execute: func(_ context.Context, args map[string]any) (any, error) {
			now := time.Now()
			if format, _ := args["format"].(string); format == "ISO" {
				return now.UTC().Format(time.RFC3339), nil
			}
			return now.In(saoPaulo).Format("02/01/2006, 15:04:05"), nil
		},
	}
}
