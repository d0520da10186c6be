// Package markup turns the canonical Markdown summary into the native
// representation of each destination: typed content blocks for the document
// workspace and mrkdwn text for chat.
package markup

import "strings"

// BlockType tags a content block. Values match the Notion block type names.
type BlockType string

const (
	Paragraph        BlockType = "paragraph"
	Heading1         BlockType = "heading_1"
	Heading2         BlockType = "heading_2"
	Heading3         BlockType = "heading_3"
	BulletedListItem BlockType = "bulleted_list_item"
	NumberedListItem BlockType = "numbered_list_item"
	ToDo             BlockType = "to_do"
	Quote            BlockType = "quote"
	Callout          BlockType = "callout"
	Code             BlockType = "code"
	Divider          BlockType = "divider"
)

// Span is a run of text sharing one set of inline annotations.
type Span struct {
	Text          string
	Bold          bool
	Italic        bool
	Strikethrough bool
	Code          bool
	Link          string
}

func (s Span) sameStyle(o Span) bool {
	return s.Bold == o.Bold && s.Italic == o.Italic && s.Strikethrough == o.Strikethrough &&
		s.Code == o.Code && s.Link == o.Link
}

// Block is one typed content block. Children holds nested blocks such as
// sub-list items or the body of a quote.
type Block struct {
	Type     BlockType
	Spans    []Span
	Language string // code blocks only
	Icon     string // callouts only
	Checked  bool   // to_do only
	Children []Block
}

// Text concatenates the block's spans.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Document is the ordered block sequence of one summary.
type Document struct {
	Blocks []Block
}

// PlainText renders the document back to text. Top-level blocks are separated by
// a blank line, nested blocks follow their parent on indented lines.
func (d Document) PlainText() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		var sb strings.Builder
		writePlain(&sb, b, "")
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

func writePlain(sb *strings.Builder, b Block, indent string) {
	sb.WriteString(indent)
	if b.Icon != "" {
		sb.WriteString(b.Icon + " ")
	}
	sb.WriteString(b.Text())
	for _, c := range b.Children {
		sb.WriteString("\n")
		writePlain(sb, c, indent+"  ")
	}
}
