package markup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const defaultCodeLanguage = "plain text"

// Languages accepted by Notion code blocks, keyed by common Markdown fence names.
var codeLanguages = map[string]string{
	"bash": "bash", "sh": "shell", "shell": "shell", "zsh": "shell",
	"c": "c", "cpp": "c++", "c++": "c++", "csharp": "c#", "cs": "c#",
	"css": "css", "diff": "diff", "go": "go", "golang": "go",
	"html": "html", "java": "java", "javascript": "javascript", "js": "javascript",
	"json": "json", "kotlin": "kotlin", "markdown": "markdown", "md": "markdown",
	"php": "php", "python": "python", "py": "python", "ruby": "ruby", "rb": "ruby",
	"rust": "rust", "rs": "rust", "sql": "sql", "swift": "swift",
	"typescript": "typescript", "ts": "typescript", "xml": "xml",
	"yaml": "yaml", "yml": "yaml", "mermaid": "mermaid",
}

var mdEngine = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToDocumentBlocks parses markdown and maps it to content blocks. Constructs
// without a block counterpart (tables, raw HTML, images) degrade to paragraphs.
func ToDocumentBlocks(markdown string) Document {
	src := []byte(markdown)
	root := mdEngine.Parser().Parse(text.NewReader(src))
	c := converter{src: src}
	return Document{Blocks: c.children(root)}
}

type converter struct {
	src []byte
}

func (c converter) children(parent ast.Node) []Block {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.block(n)...)
	}
	return out
}

func (c converter) block(n ast.Node) []Block {
	switch v := n.(type) {
	case *ast.Heading:
		return []Block{{Type: headingType(v.Level), Spans: c.inlines(v)}}
	case *ast.Paragraph, *ast.TextBlock:
		spans := c.inlines(v)
		if len(spans) == 0 {
			return nil
		}
		return []Block{{Type: Paragraph, Spans: spans}}
	case *ast.List:
		var items []Block
		for it := v.FirstChild(); it != nil; it = it.NextSibling() {
			items = append(items, c.listItem(it, v.IsOrdered()))
		}
		return items
	case *ast.Blockquote:
		return []Block{c.quote(v)}
	case *ast.FencedCodeBlock:
		lang := codeLanguage(string(v.Language(c.src)))
		return []Block{{Type: Code, Language: lang, Spans: []Span{{Text: c.lines(v.Lines())}}}}
	case *ast.CodeBlock:
		return []Block{{Type: Code, Language: defaultCodeLanguage, Spans: []Span{{Text: c.lines(v.Lines())}}}}
	case *ast.ThematicBreak:
		return []Block{{Type: Divider}}
	case *ast.HTMLBlock:
		raw := strings.TrimSpace(c.lines(v.Lines()))
		if raw == "" {
			return nil
		}
		return []Block{{Type: Paragraph, Spans: []Span{{Text: raw}}}}
	case *extast.Table:
		return []Block{{Type: Paragraph, Spans: []Span{{Text: c.tableText(v)}}}}
	default:
		spans := c.inlines(n)
		if len(spans) == 0 {
			return nil
		}
		return []Block{{Type: Paragraph, Spans: spans}}
	}
}

func (c converter) listItem(item ast.Node, ordered bool) Block {
	b := Block{Type: BulletedListItem}
	if ordered {
		b.Type = NumberedListItem
	}

	first := item.FirstChild()
	rest := first
	switch first.(type) {
	case *ast.TextBlock, *ast.Paragraph:
		if box, ok := first.FirstChild().(*extast.TaskCheckBox); ok {
			b.Type = ToDo
			b.Checked = box.IsChecked
		}
		b.Spans = trimLeadingSpace(c.inlines(first))
		rest = first.NextSibling()
	}

	for n := rest; n != nil; n = n.NextSibling() {
		b.Children = append(b.Children, c.block(n)...)
	}
	return b
}

func (c converter) quote(q *ast.Blockquote) Block {
	inner := c.children(q)
	b := Block{Type: Quote}
	if len(inner) > 0 && inner[0].Type == Paragraph {
		b.Spans = inner[0].Spans
		inner = inner[1:]
	}
	b.Children = inner

	if icon, spans, ok := leadingEmoji(b.Spans); ok {
		b.Type = Callout
		b.Icon = icon
		b.Spans = spans
	}
	return b
}

// inlines flattens the inline children of n into styled spans.
func (c converter) inlines(n ast.Node) []Span {
	var out []Span
	c.collect(n, Span{}, &out)
	return out
}

func (c converter) collect(n ast.Node, style Span, out *[]Span) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch v := child.(type) {
		case *ast.Text:
			appendSpan(out, style, string(v.Segment.Value(c.src)))
			if v.SoftLineBreak() || v.HardLineBreak() {
				appendSpan(out, style, "\n")
			}
		case *ast.String:
			appendSpan(out, style, string(v.Value))
		case *ast.Emphasis:
			s := style
			if v.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			c.collect(v, s, out)
		case *extast.Strikethrough:
			s := style
			s.Strikethrough = true
			c.collect(v, s, out)
		case *ast.CodeSpan:
			s := style
			s.Code = true
			c.collect(v, s, out)
		case *ast.Link:
			s := style
			s.Link = string(v.Destination)
			c.collect(v, s, out)
		case *ast.Image:
			s := style
			s.Link = string(v.Destination)
			c.collect(v, s, out)
		case *ast.AutoLink:
			s := style
			s.Link = string(v.URL(c.src))
			appendSpan(out, s, string(v.Label(c.src)))
		case *ast.RawHTML:
			for i := 0; i < v.Segments.Len(); i++ {
				seg := v.Segments.At(i)
				appendSpan(out, style, string(seg.Value(c.src)))
			}
		case *extast.TaskCheckBox:
			// rendered through Block.Checked
		default:
			c.collect(child, style, out)
		}
	}
}

func appendSpan(out *[]Span, style Span, s string) {
	if s == "" {
		return
	}
	if n := len(*out); n > 0 && (*out)[n-1].sameStyle(style) {
		(*out)[n-1].Text += s
		return
	}
	style.Text = s
	*out = append(*out, style)
}

func (c converter) lines(segs *text.Segments) string {
	var sb strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(c.src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c converter) tableText(t *extast.Table) string {
	var rows []string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(Block{Spans: c.inlines(cell)}.Text()))
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "\n")
}

func headingType(level int) BlockType {
	switch level {
	case 1:
		return Heading1
	case 2:
		return Heading2
	default:
		return Heading3
	}
}

func codeLanguage(fence string) string {
	if lang, ok := codeLanguages[strings.ToLower(strings.TrimSpace(fence))]; ok {
		return lang
	}
	return defaultCodeLanguage
}

// leadingEmoji reports whether the first span opens with an emoji and returns
// it along with the spans minus that emoji and the space after it.
func leadingEmoji(spans []Span) (string, []Span, bool) {
	if len(spans) == 0 {
		return "", spans, false
	}
	first := spans[0].Text
	r, size := utf8.DecodeRuneInString(first)
	if !isEmoji(r) {
		return "", spans, false
	}
	// keep variation selectors and joiners with the icon
	for size < len(first) {
		next, n := utf8.DecodeRuneInString(first[size:])
		if next != '\uFE0F' && next != '\u200D' && !isEmoji(next) {
			break
		}
		size += n
	}

	icon := first[:size]
	out := append([]Span(nil), spans...)
	out[0].Text = strings.TrimLeft(first[size:], " ")
	if out[0].Text == "" {
		out = out[1:]
	}
	return icon, out, true
}

func isEmoji(r rune) bool {
	return (r >= 0x1F000 && r <= 0x1FAFF) || (r >= 0x2600 && r <= 0x27BF) || unicode.Is(unicode.So, r)
}

func trimLeadingSpace(spans []Span) []Span {
	if len(spans) == 0 {
		return spans
	}
	spans[0].Text = strings.TrimLeft(spans[0].Text, " ")
	if spans[0].Text == "" {
		return spans[1:]
	}
	return spans
}
