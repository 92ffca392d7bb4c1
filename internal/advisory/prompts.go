package advisory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
)

// DefaultPrompt is used when a request carries no prompt of its own.
const DefaultPrompt = "Gerar ações prioritárias para reduzir risco psicossocial"

// SchemaName names the structured output format sent to engines that support it.
const SchemaName = "ai_actions"

// MaxActions bounds the actions requested from the engine.
const MaxActions = 5

const systemPrompt = `Você é especialista em saúde ocupacional.
Use obrigatoriamente os textos de recent_notes_7d.
Se aparecer "assédio", inclua ação específica.
Responda SOMENTE JSON válido conforme o schema.`

// schemaHint is appended for engines without native structured output.
const schemaHint = `

Formato obrigatório:
{"actions":[{"title":"...","why":"...","steps":["..."],"priority":"Alta|Média|Baixa","owner_hint":"..."}]}
No máximo 5 ações. Sem texto fora do JSON.`

// SystemPrompt returns the instruction block. withSchema adds an inline
// description of the expected document.
func SystemPrompt(withSchema bool) string {
	if withSchema {
		return systemPrompt + schemaHint
	}
	return systemPrompt
}

type userPayload struct {
	Prompt       string      `json:"prompt"`
	RecentNotes7 []Candidate `json:"recent_notes_7d"`
}

// UserPayload renders the JSON user message carrying the prompt and the
// selected notes.
func UserPayload(prompt string, notes []Candidate) (string, error) {
	if notes == nil {
		notes = []Candidate{}
	}
	b, err := json.Marshal(userPayload{Prompt: prompt, RecentNotes7: notes})
	if err != nil {
		return "", fmt.Errorf("marshal advisory payload: %w", err)
	}
	return string(b), nil
}

// ActionSchema is the strict JSON schema for the engine's response document.
func ActionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"actions": map[string]any{
				"type":     "array",
				"maxItems": MaxActions,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"title":      map[string]any{"type": "string"},
						"why":        map[string]any{"type": "string"},
						"steps":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"priority":   map[string]any{"type": "string", "enum": []string{PriorityHigh, PriorityMedium, PriorityLow}},
						"owner_hint": map[string]any{"type": "string"},
					},
					"required": []string{"title", "why", "steps", "priority", "owner_hint"},
				},
			},
		},
		"required": []string{"actions"},
	}
}

// SummaryPrompt asks for an executive summary of a month cycle.
func SummaryPrompt(m aggregate.CycleMetrics) string {
	return fmt.Sprintf(`Você é um especialista em riscos psicossociais no trabalho.
Gere um resumo executivo (no máximo 3 bullets) para um relatório mensal.

Dados do ciclo:
- Ciclo: %s
- Funcionários analisados: %d
- Alertas críticos: %d
- Burnout médio 7d: %.2f

Regras:
- Português (BR)
- Direto, estilo gestor
- Inclua 1 recomendação prática`,
		m.CycleLabel, m.EmployeesAnalyzed, m.CriticalAlerts, m.BurnoutAvg7d)
}

// SummaryBullets renders up to n actions as "• title — why" lines.
// It returns nil when there are no actions.
func SummaryBullets(actions []ActionItem, n int) *string {
	if len(actions) == 0 {
		return nil
	}
	if len(actions) > n {
		actions = actions[:n]
	}
	lines := make([]string, 0, len(actions))
	for _, a := range actions {
		line := "• " + a.Title
		if a.Why != "" {
			line += " — " + a.Why
		}
		lines = append(lines, line)
	}
	out := strings.Join(lines, "\n")
	return &out
}
