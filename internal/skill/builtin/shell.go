package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/clawbot/internal/skill"
)

// allowedBinaries is the closed set of programs the model may run.
var allowedBinaries = map[string]struct{}{
	"git":    {},
	"npm":    {},
	"node":   {},
	"echo":   {},
	"ls":     {},
	"pwd":    {},
	"whoami": {},
	"date":   {},
	"curl":   {},
	"ping":   {},
	"uptime": {},
}

const (
	commandTimeout = 10 * time.Second
	maxCmdOutput   = 2000
)

// NewCommandSkill runs allowlisted terminal commands. Shell metacharacters
// are rejected and the command is executed directly, never through a shell.
func NewCommandSkill(logger *zap.Logger) *skill.Skill {
	return &skill.Skill{
		Name:        "terminal_command",
		Description: "Executa comandos de terminal permitidos de forma segura.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": `O comando de terminal completo a ser executado (ex: "git status", "npm test").`,
				},
			},
			"required": []string{"command"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			raw, _ := args["command"].(string)
			command := strings.TrimSpace(raw)
			fields := strings.Fields(command)
			if len(fields) == 0 {
				return "Erro: comando vazio.", nil
			}

			if _, ok := allowedBinaries[fields[0]]; !ok {
				logger.Warn("blocked command", zap.String("command", command))
				return fmt.Sprintf("Erro de Segurança: O comando %q não está na lista de permitidos.", fields[0]), nil
			}
			if strings.ContainsAny(command, ";&|`$") {
				logger.Warn("blocked shell metacharacters", zap.String("command", command))
				return "Erro de Segurança: Caracteres de encadeamento (; | & ` $) não são permitidos.", nil
			}

			logger.Info("executing command", zap.String("command", command))

			cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			defer cancel()

			cmd := exec.CommandContext(cmdCtx, fields[0], fields[1:]...)
			var stdout, stderr strings.Builder
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			err := cmd.Run()

			var out strings.Builder
			if stdout.Len() > 0 {
				fmt.Fprintf(&out, "STDOUT:\n%s\n", stdout.String())
			}
			if stderr.Len() > 0 {
				fmt.Fprintf(&out, "STDERR:\n%s\n", stderr.String())
			}

			if err != nil {
				logger.Error("command failed", zap.String("command", command), zap.Error(err))
				msg := fmt.Sprintf("Erro na execução do comando: %v", err)
				if stderr.Len() > 0 {
					msg += "\nSTDERR: " + stderr.String()
				}
				if stdout.Len() > 0 {
					msg += "\nSTDOUT: " + stdout.String()
				}
				return msg, nil
			}

			if out.Len() == 0 {
				return "Comando executado com sucesso (sem saída).", nil
			}
			result := out.String()
			if len(result) > maxCmdOutput {
				return result[:maxCmdOutput] + "\n... (saída truncada)", nil
			}
			return result, nil
		},
	}
}
