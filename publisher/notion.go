package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"meeting_minutes_publisher/chunk"
	"meeting_minutes_publisher/markup"
)

const (
	// Notion request ceilings.
	notionMaxChildren = 100
	notionMaxText     = 2000
	notionMaxDepth    = 2
)

type notionPages interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

type notionBlocks interface {
	AppendChildren(ctx context.Context, id notionapi.BlockID, req *notionapi.AppendBlockChildrenRequest) (*notionapi.AppendBlockChildrenResponse, error)
}

// NotionOptions selects where pages are created.
type NotionOptions struct {
	ParentID string
	// ParentType is "page" (default) or "database".
	ParentType string
	// TitleProperty names the title column of a database parent; defaults to "Name".
	TitleProperty string
}

// NotionPublisher creates one Notion page per summary.
type NotionPublisher struct {
	pages  notionPages
	blocks notionBlocks
	opts   NotionOptions
	logger *slog.Logger
}

// NewNotionPublisher wraps client. A nil client yields a publisher whose every
// Publish fails with ErrNotConfigured.
func NewNotionPublisher(client *notionapi.Client, opts NotionOptions, logger *slog.Logger) *NotionPublisher {
	p := &NotionPublisher{opts: opts, logger: loggerOrDefault(logger)}
	if client != nil {
		p.pages = client.Page
		p.blocks = client.Block
	}
	return p
}

func (p *NotionPublisher) Destination() Destination { return Document }

// Publish creates a child page titled title under target (or the configured
// parent) whose body is summary converted to Notion blocks.
func (p *NotionPublisher) Publish(ctx context.Context, target, title, summary string) (Receipt, error) {
	start := time.Now()
	id, err := p.createPage(ctx, target, title, summary)
	return settle(Document, start, id, err)
}

func (p *NotionPublisher) createPage(ctx context.Context, target, title, summary string) (string, error) {
	if p.pages == nil {
		return "", fmt.Errorf("notion: %w", ErrNotConfigured)
	}
	parentID := target
	if parentID == "" {
		parentID = p.opts.ParentID
	}
	if parentID == "" || title == "" {
		return "", errors.New("notion: parent id and title are required")
	}
	if !IsValidID(parentID) {
		return "", fmt.Errorf("notion parent %q: %w", parentID, ErrInvalidResourceID)
	}

	doc := markup.ToDocumentBlocks(summary)
	batches, err := chunk.Batch(toNotionBlocks(fitNesting(doc.Blocks, 1)), notionMaxChildren)
	if err != nil {
		return "", err
	}

	req := &notionapi.PageCreateRequest{
		Parent:     p.parent(parentID),
		Properties: p.titleProperties(title),
	}
	if len(batches) > 0 {
		req.Children = batches[0]
	}

	page, err := p.pages.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("notion create page: %w", err)
	}
	pageID := string(page.ID)

	for i := 1; i < len(batches); i++ {
		_, err := p.blocks.AppendChildren(ctx, notionapi.BlockID(pageID), &notionapi.AppendBlockChildrenRequest{
			Children: batches[i],
		})
		if err != nil {
			return "", fmt.Errorf("notion append blocks to page %s (batch %d/%d): %w", pageID, i+1, len(batches), err)
		}
	}

	p.logger.Info("notion page created", "page_id", pageID, "blocks", len(doc.Blocks))
	return pageID, nil
}

func (p *NotionPublisher) parent(id string) notionapi.Parent {
	if p.opts.ParentType == "database" {
		return notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(id)}
	}
	return notionapi.Parent{Type: notionapi.ParentTypePageID, PageID: notionapi.PageID(id)}
}

func (p *NotionPublisher) titleProperties(title string) notionapi.Properties {
	key := "title"
	if p.opts.ParentType == "database" {
		key = p.opts.TitleProperty
		if key == "" {
			key = "Name"
		}
	}
	return notionapi.Properties{
		key: notionapi.TitleProperty{
			Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: title}}},
		},
	}
}

// fitNesting reshapes blocks found at depth (top level is 1) so that no block
// nests deeper than notionMaxDepth and no child list exceeds notionMaxChildren.
// Descendants below the deepest level follow their ancestor as siblings in
// document order; children past the ceiling follow their parent.
func fitNesting(blocks []markup.Block, depth int) []markup.Block {
	out := make([]markup.Block, 0, len(blocks))
	for _, b := range blocks {
		children := b.Children
		b.Children = nil
		if depth >= notionMaxDepth {
			out = append(out, b)
			out = append(out, fitNesting(children, depth)...)
			continue
		}
		children = fitNesting(children, depth+1)
		var overflow []markup.Block
		if len(children) > notionMaxChildren {
			children, overflow = children[:notionMaxChildren], children[notionMaxChildren:]
		}
		b.Children = children
		out = append(out, b)
		out = append(out, overflow...)
	}
	return out
}

func toNotionBlocks(blocks []markup.Block) []notionapi.Block {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]notionapi.Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, toNotionBlock(b))
	}
	return out
}

func toNotionBlock(b markup.Block) notionapi.Block {
	basic := notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockType(b.Type)}
	rt := richText(b.Spans)
	children := toNotionBlocks(b.Children)

	switch b.Type {
	case markup.Heading1:
		return &notionapi.Heading1Block{BasicBlock: basic, Heading1: notionapi.Heading{RichText: rt}}
	case markup.Heading2:
		return &notionapi.Heading2Block{BasicBlock: basic, Heading2: notionapi.Heading{RichText: rt}}
	case markup.Heading3:
		return &notionapi.Heading3Block{BasicBlock: basic, Heading3: notionapi.Heading{RichText: rt}}
	case markup.BulletedListItem:
		return &notionapi.BulletedListItemBlock{BasicBlock: basic, BulletedListItem: notionapi.ListItem{RichText: rt, Children: children}}
	case markup.NumberedListItem:
		return &notionapi.NumberedListItemBlock{BasicBlock: basic, NumberedListItem: notionapi.ListItem{RichText: rt, Children: children}}
	case markup.ToDo:
		return &notionapi.ToDoBlock{BasicBlock: basic, ToDo: notionapi.ToDo{RichText: rt, Checked: b.Checked, Children: children}}
	case markup.Quote:
		return &notionapi.QuoteBlock{BasicBlock: basic, Quote: notionapi.Quote{RichText: rt, Children: children}}
	case markup.Callout:
		emoji := notionapi.Emoji(b.Icon)
		return &notionapi.CalloutBlock{BasicBlock: basic, Callout: notionapi.Callout{
			RichText: rt,
			Icon:     &notionapi.Icon{Type: "emoji", Emoji: &emoji},
			Children: children,
		}}
	case markup.Code:
		return &notionapi.CodeBlock{BasicBlock: basic, Code: notionapi.Code{RichText: rt, Language: b.Language}}
	case markup.Divider:
		return &notionapi.DividerBlock{BasicBlock: basic, Divider: notionapi.Divider{}}
	default:
		basic.Type = notionapi.BlockTypeParagraph
		return &notionapi.ParagraphBlock{BasicBlock: basic, Paragraph: notionapi.Paragraph{RichText: rt, Children: children}}
	}
}

// richText maps spans to rich text objects, splitting any run longer than the
// per-object ceiling.
func richText(spans []markup.Span) []notionapi.RichText {
	out := []notionapi.RichText{}
	for _, s := range spans {
		pieces, _ := chunk.Split(s.Text, notionMaxText)
		for _, piece := range pieces {
			rt := notionapi.RichText{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: piece},
				Annotations: &notionapi.Annotations{
					Bold:          s.Bold,
					Italic:        s.Italic,
					Strikethrough: s.Strikethrough,
					Code:          s.Code,
					Color:         notionapi.ColorDefault,
				},
			}
			if strings.HasPrefix(s.Link, "http://") || strings.HasPrefix(s.Link, "https://") {
				rt.Text.Link = &notionapi.Link{Url: s.Link}
			}
			out = append(out, rt)
		}
	}
	return out
}
