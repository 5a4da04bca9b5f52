package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/openclaw/clawbot/internal/skill"
)

// maxFileContent caps how much file content is returned to the model so a
// large file cannot blow up the context window.
const maxFileContent = 5000

// NewFileSkill lists directories and reads files, confined to baseDir. Paths
// that resolve outside baseDir are rejected.
func NewFileSkill(baseDir string, logger *zap.Logger) *skill.Skill {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	baseDir, _ = filepath.Abs(baseDir)

	return &skill.Skill{
		Name:        "file_manager",
		Description: "Lista arquivos ou lê o conteúdo de um arquivo específico em um diretório seguro.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"list", "read"},
					"description": `Ação a ser executada: "list" para listar arquivos, "read" para ler conteúdo.`,
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Caminho do arquivo ou diretório (relativo ao diretório raiz do projeto).",
				},
			},
			"required": []string{"action", "path"},
		},
		Execute: func(_ context.Context, args map[string]any) (any, error) {
			action, _ := args["action"].(string)
			rawPath, _ := args["path"].(string)

			requested := rawPath
			if !filepath.IsAbs(requested) {
				requested = filepath.Join(baseDir, requested)
			}
			requested = filepath.Clean(requested)
			if requested != baseDir && !strings.HasPrefix(requested, baseDir+string(filepath.Separator)) {
				logger.Warn("file access outside base directory",
					zap.String("path", rawPath), zap.String("resolved", requested))
				return "Erro de Segurança: Acesso negado a diretórios fora do escopo do projeto.", nil
			}

			logger.Info("file skill", zap.String("action", action), zap.String("path", requested))

			switch action {
			case "list":
				return listDir(rawPath, requested)
			case "read":
				return readFile(rawPath, requested)
			default:
				return "Ação desconhecida.", nil
			}
		},
	}
}

func listDir(rawPath, resolved string) (any, error) {
	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Sprintf("Erro ao acessar arquivo/diretório: %v", err), nil
	}
	if !info.IsDir() {
		return fmt.Sprintf("Erro: %q não é um diretório.", rawPath), nil
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return fmt.Sprintf("Erro ao acessar arquivo/diretório: %v", err), nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return fmt.Sprintf("Arquivos em %q:\n%s", rawPath, strings.Join(names, "\n")), nil
}

func readFile(rawPath, resolved string) (any, error) {
	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Sprintf("Erro ao acessar arquivo/diretório: %v", err), nil
	}
	if info.IsDir() {
		return fmt.Sprintf("Erro: %q não é um arquivo.", rawPath), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Sprintf("Erro ao acessar arquivo/diretório: %v", err), nil
	}
	content := string(data)
	if len(content) > maxFileContent {
		return fmt.Sprintf("Conteúdo do arquivo %q (truncado nos primeiros %d caracteres):\n\n%s...",
			rawPath, maxFileContent, content[:maxFileContent]), nil
	}
	return fmt.Sprintf("Conteúdo do arquivo %q:\n\n%s", rawPath, content), nil
}
