package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Manager manages language-generation providers with fallback logic
type Manager struct {
	providers []Provider
	logger    *zap.Logger
}

// NewManager creates a new provider manager
func NewManager(providers []Provider, logger *zap.Logger) *Manager {
	return &Manager{
		providers: providers,
		logger:    logger,
	}
}

// GetAvailableProvider returns the first available provider
func (m *Manager) GetAvailableProvider() Provider {
	for _, provider := range m.providers {
		if provider.IsAvailable() {
			return provider
		}
	}
	return nil
}

// ExecuteWithFallback executes a method on providers with fallback logic
func (m *Manager) ExecuteWithFallback(
	ctx context.Context,
	method func(Provider, context.Context) (string, error),
) (string, error) {
	if len(m.providers) == 0 {
		return "", fmt.Errorf("no providers available")
	}

	var lastErr error
	for _, provider := range m.providers {
		if !provider.IsAvailable() {
			continue
		}

		result, err := method(provider, ctx)
		if err == nil {
			m.logger.Debug("Successfully used provider",
				zap.String("provider", provider.Name()),
			)
			return result, nil
		}

		lastErr = err
		m.logger.Warn("Provider failed, trying next",
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
	}

	if lastErr == nil {
		return "", fmt.Errorf("no providers available")
	}
	return "", fmt.Errorf("all providers failed. Last error: %w", lastErr)
}

// GenerateTurn asks the generator to drive one conversation turn.
// The returned text is expected to be the JSON object described in the
// prompt; parsing and retry policy belong to the caller.
func (m *Manager) GenerateTurn(ctx context.Context, req *TurnRequest) (string, error) {
	system := req.Persona + "\n\n" + turnFormatInstruction
	if req.Strict {
		system = req.Persona + "\n\n" + turnStrictInstruction
	}

	var sb strings.Builder
	sb.WriteString("Dados já coletados:\n")
	sb.WriteString(formatSlots(req.Slots))
	if req.NextQuestion != "" {
		sb.WriteString("\nPróxima pergunta do roteiro: ")
		sb.WriteString(req.NextQuestion)
		sb.WriteString("\n")
	} else {
		sb.WriteString("\nNão há mais perguntas no roteiro.\n")
	}
	sb.WriteString("\nFala do cliente: ")
	if req.Utterance == "" {
		sb.WriteString("(nada reconhecido)")
	} else {
		sb.WriteString(req.Utterance)
	}

	messages := append(append([]Message{}, req.History...), Message{Role: "user", Content: sb.String()})

	return m.ExecuteWithFallback(ctx, func(provider Provider, ctx context.Context) (string, error) {
		return provider.Chat(ctx, system, messages)
	})
}

// RewriteLine asks for a tone-only rewrite of a fixed line.
// This call site uses the reply-text-only response shape.
func (m *Manager) RewriteLine(ctx context.Context, req *RewriteRequest) (string, error) {
	system := req.Persona + "\n\nReescreva a frase enviada no seu tom de voz, sem acrescentar informação nova. Responda apenas com a frase reescrita."

	messages := []Message{{Role: "user", Content: req.Line}}

	return m.ExecuteWithFallback(ctx, func(provider Provider, ctx context.Context) (string, error) {
		return provider.Chat(ctx, system, messages)
	})
}

// SummarizeLead reduces a finished transcript into the lead brief body.
func (m *Manager) SummarizeLead(ctx context.Context, req *SummaryRequest) (string, error) {
	system := "Você é uma assistente que resume reuniões comerciais em tópicos objetivos."

	prompt := fmt.Sprintf(`Resuma a seguinte conversa da Pat Glam com um cliente. Destaque:
- Perfil do contato (profissional ou não)
- Assunto principal
- Sinais de interesse ou objeção
- Oportunidades de venda
- Próximos passos sugeridos
- Citações importantes
- Tags

Conversa:
%s
`, req.Transcript)

	messages := []Message{{Role: "user", Content: prompt}}

	return m.ExecuteWithFallback(ctx, func(provider Provider, ctx context.Context) (string, error) {
		return provider.Chat(ctx, system, messages)
	})
}

const turnFormatInstruction = `Responda SEMPRE com um objeto JSON neste formato:
{"reply": "o que você vai falar", "slots": {"city": "", "experience": "", "handle": "", "consent": ""}, "asked": "pergunta do roteiro que você fez, se fez", "end_call": false}
Preencha em "slots" apenas os valores que o cliente realmente informou nesta fala.`

const turnStrictInstruction = `Responda APENAS com JSON válido, sem texto antes ou depois, sem cercas de código:
{"reply": "...", "slots": {}, "asked": "...", "end_call": false}`

func formatSlots(slots map[string]string) string {
	if len(slots) == 0 {
		return "(nenhum)\n"
	}
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := slots[k]
		if v == "" {
			v = "(vazio)"
		}
		sb.WriteString("- " + k + ": " + v + "\n")
	}
	return sb.String()
}
