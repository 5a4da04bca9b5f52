package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/openclaw/clawbot/internal/skill"
)

const searchEndpoint = "https://api.duckduckgo.com/"

type searchResponse struct {
	AbstractText  string        `json:"AbstractText"`
	AbstractURL   string        `json:"AbstractURL"`
	Heading       string        `json:"Heading"`
	RelatedTopics []searchTopic `json:"RelatedTopics"`
}

type searchTopic struct {
	Text     string        `json:"Text"`
	FirstURL string        `json:"FirstURL"`
	Topics   []searchTopic `json:"Topics"`
}

// NewWebSearchSkill queries DuckDuckGo and returns the top three results
// formatted for the model.
func NewWebSearchSkill(logger *zap.Logger) *skill.Skill {
	rest := resty.New().
		SetBaseURL(searchEndpoint).
		SetTimeout(15 * time.Second).
		SetRetryCount(2)

	return &skill.Skill{
		Name:        "web_search",
		Description: "Realiza pesquisas na internet para encontrar informações atualizadas.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "O termo ou pergunta a ser pesquisada.",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			logger.Info("executing web search", zap.String("query", query))

			var result searchResponse
			resp, err := rest.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"q":           query,
					"format":      "json",
					"no_redirect": "1",
					"no_html":     "1",
				}).
				SetResult(&result).
				Get("")
			if err != nil {
				logger.Error("web search failed", zap.Error(err))
				return "Ocorreu um erro ao realizar a pesquisa na web.", nil
			}
			if resp.IsError() {
				logger.Error("web search failed", zap.Int("status", resp.StatusCode()))
				return "Ocorreu um erro ao realizar a pesquisa na web.", nil
			}

			results := flattenResults(&result)
			if len(results) == 0 {
				return "Nenhum resultado encontrado para esta pesquisa.", nil
			}
			if len(results) > 3 {
				results = results[:3]
			}
			return fmt.Sprintf("Resultados da busca para %q:\n\n%s",
				query, strings.Join(results, "\n---\n")), nil
		},
	}
}

// flattenResults turns the instant-answer payload into formatted entries,
// abstract first, then related topics (one level of nesting).
func flattenResults(r *searchResponse) []string {
	var out []string
	if r.AbstractText != "" {
		out = append(out, formatResult(r.Heading, r.AbstractURL, r.AbstractText))
	}
	for _, t := range r.RelatedTopics {
		if t.Text != "" {
			out = append(out, formatResult(topicTitle(t.Text), t.FirstURL, t.Text))
			continue
		}
		for _, sub := range t.Topics {
			if sub.Text != "" {
				out = append(out, formatResult(topicTitle(sub.Text), sub.FirstURL, sub.Text))
			}
		}
	}
	return out
}

func formatResult(title, url, snippet string) string {
	return fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s\n", title, url, snippet)
}

// topicTitle extracts a short title from a "Title - description" topic text.
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	return text
}
