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

const (
	notionBaseURL = "https://api.notion.com/v1"
	notionVersion = "2022-06-28"
)

var notionBlockTypes = map[string]struct{}{
	"paragraph": {}, "heading_1": {}, "heading_2": {}, "heading_3": {},
	"to_do": {}, "bulleted_list_item": {},
}

type notionSkill struct {
	rest   *resty.Client
	logger *zap.Logger
}

// NewNotionSkill manages Notion pages and databases through the REST API.
// With an empty API key the skill still registers but every call reports
// the missing configuration to the model.
func NewNotionSkill(apiKey string, logger *zap.Logger) *skill.Skill {
	n := &notionSkill{
		rest: resty.New().
			SetBaseURL(notionBaseURL).
			SetAuthToken(apiKey).
			SetHeader("Notion-Version", notionVersion).
			SetTimeout(20 * time.Second),
		logger: logger,
	}
	if apiKey == "" {
		logger.Warn("Notion API key not configured, the notion skill will reject every call")
	}

	return &skill.Skill{
		Name:        "notion",
		Description: "Integração com o Notion para gerenciar páginas e bancos de dados. Permite buscar, criar, ler, editar propriedades e arquivar páginas.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"search", "create_page", "get_page_content", "append_block", "archive_page", "query_database", "update_page"},
					"description": "A ação a ser realizada no Notion.",
				},
				"query":      map[string]any{"type": "string", "description": `Termo de busca (para action="search").`},
				"databaseId": map[string]any{"type": "string", "description": "ID do banco de dados (para create_page ou query_database)."},
				"pageId":     map[string]any{"type": "string", "description": "ID da página (para get_page_content, append_block, archive_page ou update_page)."},
				"title":      map[string]any{"type": "string", "description": `Título da nova página (para action="create_page").`},
				"content":    map[string]any{"type": "string", "description": "Conteúdo de texto a ser adicionado (para create_page ou append_block)."},
				"filter_property": map[string]any{
					"type":        "string",
					"description": `Nome da propriedade para filtrar em query_database (ex: "Priority", "Category").`,
				},
				"filter_value": map[string]any{
					"type":        "string",
					"description": `Valor exato para o filtro (ex: "High", "Personal").`,
				},
				"block_type": map[string]any{
					"type":        "string",
					"enum":        []string{"paragraph", "heading_1", "heading_2", "heading_3", "to_do", "bulleted_list_item"},
					"description": "Tipo do bloco a ser adicionado (padrão: paragraph).",
				},
				"properties": map[string]any{
					"type":        "object",
					"description": `Objeto JSON com propriedades para atualizar (ex: {"Status": {"status": {"name": "Done"}}}).`,
				},
			},
			"required": []string{"action"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			if apiKey == "" {
				return "Erro: Notion API Key não configurada no servidor.", nil
			}
			action, _ := args["action"].(string)
			result, err := n.dispatch(ctx, action, args)
			if err != nil {
				n.logger.Error("notion skill error", zap.String("action", action), zap.Error(err))
				return fmt.Sprintf("Erro ao executar ação %s: %v", action, err), nil
			}
			return result, nil
		},
	}
}

func (n *notionSkill) dispatch(ctx context.Context, action string, args map[string]any) (string, error) {
	str := func(key string) string { s, _ := args[key].(string); return s }

	switch action {
	case "search":
		return n.search(ctx, str("query"))
	case "create_page":
		return n.createPage(ctx, str("databaseId"), str("title"), str("content"))
	case "get_page_content":
		return n.getPageContent(ctx, str("pageId"))
	case "append_block":
		return n.appendBlock(ctx, str("pageId"), str("content"), str("block_type"))
	case "archive_page":
		return n.archivePage(ctx, str("pageId"))
	case "query_database":
		return n.queryDatabase(ctx, str("databaseId"), str("filter_property"), str("filter_value"))
	case "update_page":
		props, _ := args["properties"].(map[string]any)
		return n.updatePage(ctx, str("pageId"), props)
	default:
		return "Ação inválida. Use: search, create_page, get_page_content, append_block, archive_page, query_database ou update_page.", nil
	}
}

type notionList struct {
	Results []map[string]any `json:"results"`
}

func (n *notionSkill) call(ctx context.Context, method, path string, body any, out any) error {
	req := n.rest.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (n *notionSkill) search(ctx context.Context, query string) (string, error) {
	var list notionList
	err := n.call(ctx, "POST", "/search", map[string]any{
		"query":     query,
		"sort":      map[string]any{"direction": "descending", "timestamp": "last_edited_time"},
		"page_size": 10,
	}, &list)
	if err != nil {
		return "", err
	}
	if len(list.Results) == 0 {
		return "Nenhum resultado encontrado no Notion.", nil
	}

	var lines []string
	for _, item := range list.Results {
		kind, _ := item["object"].(string)
		title := notionItemTitle(item, kind)
		id, _ := item["id"].(string)
		lines = append(lines, fmt.Sprintf("- [%s] %s (ID: %s)", strings.ToUpper(kind), title, id))
	}
	label := query
	if label == "" {
		label = "tudo"
	}
	return fmt.Sprintf("Resultados da busca por %q:\n%s", label, strings.Join(lines, "\n")), nil
}

func (n *notionSkill) createPage(ctx context.Context, databaseID, title, content string) (string, error) {
	if databaseID == "" || title == "" {
		return "Erro: databaseId e title são obrigatórios para criar uma página.", nil
	}

	var children []map[string]any
	if content != "" {
		children = append(children, notionBlock("paragraph", content))
	}

	var page struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	// The title property is assumed to be named "Name", the Notion default.
	err := n.call(ctx, "POST", "/pages", map[string]any{
		"parent": map[string]any{"database_id": databaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{{"text": map[string]any{"content": title}}},
			},
		},
		"children": children,
	}, &page)
	if err != nil {
		return fmt.Sprintf(`Erro ao criar página: %v. Verifique se a propriedade de título do database se chama "Name".`, err), nil
	}
	return fmt.Sprintf("Página criada com sucesso! ID: %s URL: %s", page.ID, page.URL), nil
}

func (n *notionSkill) getPageContent(ctx context.Context, pageID string) (string, error) {
	if pageID == "" {
		return "Erro: pageId é obrigatório para ler o conteúdo.", nil
	}
	var list notionList
	if err := n.call(ctx, "GET", "/blocks/"+pageID+"/children?page_size=20", nil, &list); err != nil {
		return "", err
	}

	var lines []string
	for _, block := range list.Results {
		if line := renderNotionBlock(block); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "Página vazia ou conteúdo não suportado (apenas texto simples é exibido).", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (n *notionSkill) appendBlock(ctx context.Context, pageID, content, blockType string) (string, error) {
	if pageID == "" || content == "" {
		return "Erro: pageId e content são obrigatórios para adicionar conteúdo.", nil
	}
	if _, ok := notionBlockTypes[blockType]; !ok {
		blockType = "paragraph"
	}
	err := n.call(ctx, "PATCH", "/blocks/"+pageID+"/children", map[string]any{
		"children": []map[string]any{notionBlock(blockType, content)},
	}, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Conteúdo (%s) adicionado com sucesso ao final da página.", blockType), nil
}

func (n *notionSkill) archivePage(ctx context.Context, pageID string) (string, error) {
	if pageID == "" {
		return "Erro: pageId é obrigatório para arquivar uma página.", nil
	}
	if err := n.call(ctx, "PATCH", "/pages/"+pageID, map[string]any{"archived": true}, nil); err != nil {
		return "", err
	}
	return fmt.Sprintf("Página %s arquivada com sucesso.", pageID), nil
}

func (n *notionSkill) queryDatabase(ctx context.Context, databaseID, filterProperty, filterValue string) (string, error) {
	if databaseID == "" {
		return "Erro: databaseId é obrigatório para consultar um banco de dados.", nil
	}
	body := map[string]any{"page_size": 10}
	if filterProperty != "" && filterValue != "" {
		body["filter"] = map[string]any{
			"property":  filterProperty,
			"rich_text": map[string]any{"contains": filterValue},
		}
	}

	var list notionList
	if err := n.call(ctx, "POST", "/databases/"+databaseID+"/query", body, &list); err != nil {
		return "", err
	}
	if len(list.Results) == 0 {
		return "Nenhum item encontrado no banco de dados com os filtros aplicados.", nil
	}

	var lines []string
	for _, page := range list.Results {
		id, _ := page["id"].(string)
		lines = append(lines, fmt.Sprintf("- %s (ID: %s)", notionItemTitle(page, "page"), id))
	}
	return strings.Join(lines, "\n"), nil
}

func (n *notionSkill) updatePage(ctx context.Context, pageID string, properties map[string]any) (string, error) {
	if pageID == "" || len(properties) == 0 {
		return "Erro: pageId e properties são obrigatórios para atualizar uma página.", nil
	}
	err := n.call(ctx, "PATCH", "/pages/"+pageID, map[string]any{"properties": properties}, nil)
	if err != nil {
		return fmt.Sprintf("Erro ao atualizar página: %v", err), nil
	}
	return fmt.Sprintf("Página %s atualizada com sucesso.", pageID), nil
}

func notionBlock(blockType, content string) map[string]any {
	richText := []map[string]any{{"type": "text", "text": map[string]any{"content": content}}}
	inner := map[string]any{"rich_text": richText}
	if blockType == "to_do" {
		inner["checked"] = false
	}
	return map[string]any{"object": "block", "type": blockType, blockType: inner}
}

// notionItemTitle digs the title out of a page or database object. Pages
// keep it in whichever property has type "title", databases at the top
// level.
func notionItemTitle(item map[string]any, kind string) string {
	const fallback = "Sem título"
	if kind == "database" {
		if title, ok := item["title"].([]any); ok {
			if text := plainText(title); text != "" {
				return text
			}
		}
		return fallback
	}
	props, _ := item["properties"].(map[string]any)
	for _, raw := range props {
		prop, _ := raw.(map[string]any)
		if prop["type"] != "title" {
			continue
		}
		if title, ok := prop["title"].([]any); ok {
			if text := plainText(title); text != "" {
				return text
			}
		}
	}
	return fallback
}

func plainText(richText []any) string {
	var b strings.Builder
	for _, raw := range richText {
		if part, ok := raw.(map[string]any); ok {
			if text, ok := part["plain_text"].(string); ok {
				b.WriteString(text)
			}
		}
	}
	return b.String()
}

func renderNotionBlock(block map[string]any) string {
	kind, _ := block["type"].(string)
	inner, _ := block[kind].(map[string]any)
	if inner == nil {
		return ""
	}
	richText, _ := inner["rich_text"].([]any)
	text := plainText(richText)
	if text == "" {
		return ""
	}
	switch kind {
	case "paragraph":
		return text
	case "heading_1":
		return "# " + text
	case "heading_2":
		return "## " + text
	case "heading_3":
		return "### " + text
	case "to_do":
		check := "[ ]"
		if checked, _ := inner["checked"].(bool); checked {
			check = "[x]"
		}
		return check + " " + text
	case "bulleted_list_item":
		return "- " + text
	}
	return ""
}
