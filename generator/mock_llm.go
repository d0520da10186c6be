package generator

import (
	"context"
	"strings"
	"unicode/utf8"
)

// MockLLM is an offline stand-in for local runs. It echoes the start of the
// transcript inside a minutes skeleton.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	excerpt := strings.TrimSpace(transcriptOf(prompt.User))
	if utf8.RuneCountInString(excerpt) > 280 {
		excerpt = string([]rune(excerpt)[:280]) + "…"
	}

	var sb strings.Builder
	sb.WriteString("# Ata da Reunião\n\n")
	sb.WriteString("**Data:** Data não especificada\n")
	sb.WriteString("**Participantes:** Não listados\n\n")
	sb.WriteString("## Visão Geral\n\n")
	sb.WriteString("Resumo gerado localmente, sem chamada ao modelo.\n\n")
	sb.WriteString("## Pontos-Chave da Discussão\n\n")
	sb.WriteString("* Trecho da transcrição:\n\n")
	sb.WriteString("> ")
	sb.WriteString(strings.ReplaceAll(excerpt, "\n", " "))
	sb.WriteString("\n\n## Itens de Ação\n\n")
	sb.WriteString("* Revisar esta ata. Responsável: Não atribuído. Prazo: Não mencionado. Prioridade: Média\n")
	return sb.String(), nil
}

func transcriptOf(user string) string {
	if i := strings.LastIndex(user, transcriptMarker); i >= 0 {
		return user[i+len(transcriptMarker):]
	}
	return user
}
