package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSummary = `# Ata da Reunião

## Visão Geral
Reunião de **planejamento** do trimestre.

## Pontos Discutidos
* Orçamento de **marketing**
* Contratação
  * Backend
  * Dados

## Itens de Ação
1. Revisar proposta
2. Enviar convite

- [x] Ata enviada
- [ ] Follow-up agendado

> 📘 Nota: dados preliminares

> Citação simples

---

` + "```go\nfmt.Println(\"ok\")\n```\n"

func TestToChatMarkupRules(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "## Decisões", "*Decisões*"},
		{"heading level one", "# Ata", "*Ata*"},
		{"heading with bold", "## **Ações**", "*Ações*"},
		{"bold", "texto **forte** aqui", "texto *forte* aqui"},
		{"two bolds", "**a** e **b**", "*a* e *b*"},
		{"star bullet", "* item", "• item"},
		{"dash bullet", "- item", "• item"},
		{"indented bullet", "  * sub", "  • sub"},
		{"bullet with bold", "* **Responsável:** Ana", "• *Responsável:* Ana"},
		{"blank lines", "a\n\n\n\nb", "a\n\nb"},
		{"single blank line kept", "a\n\nb", "a\n\nb"},
		{"plain", "sem formatação", "sem formatação"},
		{"hash without space", "#tag", "#tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToChatMarkup(tt.in))
		})
	}
}

func TestToChatMarkupIdempotent(t *testing.T) {
	corpus := []string{
		sampleSummary,
		"***x***",
		"******",
		"** x**",
		"# *a* and *b*",
		"# **",
		"# - ",
		"## a ** b",
		"* * *",
		"- - x",
		"**a** **b** ***c***",
		"#######  seven",
		"\n\n\n\n",
		"line\r\n\r\n\r\n\r\nnext",
		"  - **bold** item\n\n\n* other",
		"**unclosed",
		"",
	}

	for _, in := range corpus {
		once := ToChatMarkup(in)
		assert.Equal(t, once, ToChatMarkup(once), "input %q", in)
	}
}

func TestToDocumentBlocks(t *testing.T) {
	doc := ToDocumentBlocks(sampleSummary)

	types := make([]BlockType, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		types = append(types, b.Type)
	}
	assert.Equal(t, []BlockType{
		Heading1,
		Heading2, Paragraph,
		Heading2, BulletedListItem, BulletedListItem,
		Heading2, NumberedListItem, NumberedListItem,
		ToDo, ToDo,
		Callout,
		Quote,
		Divider,
		Code,
	}, types)

	assert.Equal(t, "Ata da Reunião", doc.Blocks[0].Text())

	para := doc.Blocks[2]
	require.Len(t, para.Spans, 3)
	assert.Equal(t, "planejamento", para.Spans[1].Text)
	assert.True(t, para.Spans[1].Bold)
	assert.False(t, para.Spans[0].Bold)

	nested := doc.Blocks[5]
	assert.Equal(t, "Contratação", nested.Text())
	require.Len(t, nested.Children, 2)
	assert.Equal(t, BulletedListItem, nested.Children[0].Type)
	assert.Equal(t, "Backend", nested.Children[0].Text())

	assert.True(t, doc.Blocks[9].Checked)
	assert.Equal(t, "Ata enviada", doc.Blocks[9].Text())
	assert.False(t, doc.Blocks[10].Checked)

	callout := doc.Blocks[11]
	assert.Equal(t, "📘", callout.Icon)
	assert.Equal(t, "Nota: dados preliminares", callout.Text())

	assert.Equal(t, "Citação simples", doc.Blocks[12].Text())

	code := doc.Blocks[14]
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, `fmt.Println("ok")`, code.Text())
}

func TestToDocumentBlocksHeadingLevels(t *testing.T) {
	doc := ToDocumentBlocks("#### Quatro\n\n###### Seis")
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, Heading3, doc.Blocks[0].Type)
	assert.Equal(t, Heading3, doc.Blocks[1].Type)
}

func TestToDocumentBlocksDegradesUnsupported(t *testing.T) {
	doc := ToDocumentBlocks("| a | b |\n|---|---|\n| 1 | 2 |\n\n<div>raw</div>\n")
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, Paragraph, doc.Blocks[0].Type)
	assert.Equal(t, "a | b\n1 | 2", doc.Blocks[0].Text())
	assert.Equal(t, Paragraph, doc.Blocks[1].Type)
	assert.Equal(t, "<div>raw</div>", doc.Blocks[1].Text())
}

func TestToDocumentBlocksUnknownCodeLanguage(t *testing.T) {
	doc := ToDocumentBlocks("```brainfuck\n+++\n```")
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "plain text", doc.Blocks[0].Language)
}

func TestPlainTextKeepsParagraphBoundaries(t *testing.T) {
	paragraphs := []string{"Primeiro parágrafo.", "Segundo parágrafo.", "Terceiro."}
	doc := ToDocumentBlocks(strings.Join(paragraphs, "\n\n"))

	for _, b := range doc.Blocks {
		assert.Equal(t, Paragraph, b.Type)
	}
	assert.Equal(t, paragraphs, strings.Split(doc.PlainText(), "\n\n"))
}

func TestPlainTextNestedBlocks(t *testing.T) {
	doc := ToDocumentBlocks("- pai\n  - filho")
	assert.Equal(t, "pai\n  filho", doc.PlainText())
}

func TestToDocumentBlocksEmpty(t *testing.T) {
	assert.Empty(t, ToDocumentBlocks("").Blocks)
}
