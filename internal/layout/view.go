package layout

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"carbonsink/internal/models"
)

//go:embed templates/report.md
var reportTemplate string

//go:embed templates/page.html.tmpl
var pageTemplate string

var errNoData = errors.New("report data is required")

// markdownPunct is escaped in substituted values so a zone name cannot alter the layout
var markdownPunct = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`|`, `\|`, `<`, `\<`, `>`, `\>`, `#`, `\#`, `!`, `\!`,
)

// View lays out report records as documents
type View struct {
	markdown goldmark.Markdown
	source   string
	page     *template.Template
}

// NewView creates a view over the built-in report template
func NewView() *View {
	return NewViewWithTemplate(reportTemplate)
}

// NewViewWithTemplate creates a view over a custom markdown template with {{field}} placeholders
func NewViewWithTemplate(source string) *View {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &View{
		markdown: md,
		source:   source,
		page:     template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// Build substitutes the record into the template and parses the result
func (v *View) Build(data *models.ReportData) (*Document, error) {
	if data == nil {
		return nil, errNoData
	}

	fields := data.Fields()
	for name, value := range fields {
		if !strings.HasSuffix(name, "_url") {
			fields[name] = markdownPunct.Replace(value)
		}
	}
	src := []byte(models.ReplaceTemplateVariables(v.source, fields))

	root := v.markdown.Parser().Parse(text.NewReader(src))
	doc := &Document{page: v.page}

	// index of the section receiving blocks; content before the first heading goes to "overview"
	current := -1
	section := func() *Section {
		if current < 0 {
			doc.Sections = append(doc.Sections, Section{ID: "overview"})
			current = len(doc.Sections) - 1
		}
		return &doc.Sections[current]
	}
	figures := 0

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := inlineText(node, src)
			switch {
			case node.Level == 1 && doc.Title == "":
				doc.Title = title
			case node.Level <= 2:
				doc.Sections = append(doc.Sections, Section{ID: headingID(node, len(doc.Sections)), Title: title})
				current = len(doc.Sections) - 1
			default:
				s := section()
				s.Blocks = append(s.Blocks, Block{Kind: BlockHeading, Text: title})
			}

		case *ast.Paragraph:
			s := section()
			if img := soleImage(node, src); img != nil {
				figures++
				s.Blocks = append(s.Blocks, Block{Kind: BlockImage, Image: &Image{
					ID:     "figure-" + strconv.Itoa(figures),
					Alt:    inlineText(img, src),
					Source: string(img.Destination),
					Broken: len(img.Destination) == 0,
				}})
				continue
			}
			s.Blocks = append(s.Blocks, Block{Kind: BlockParagraph, Text: inlineText(node, src)})

		case *ast.List:
			var items []string
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				items = append(items, inlineText(item, src))
			}
			s := section()
			s.Blocks = append(s.Blocks, Block{Kind: BlockList, Items: items})

		case *extast.Table:
			s := section()
			s.Blocks = append(s.Blocks, tableBlock(node, src))
		}
	}

	if doc.Title == "" && len(doc.Sections) == 0 {
		return nil, fmt.Errorf("report template produced an empty document")
	}
	return doc, nil
}

func tableBlock(table *extast.Table, src []byte) Block {
	block := Block{Kind: BlockTable}
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineText(cell, src))
		}
		if _, ok := row.(*extast.TableHeader); ok {
			block.Header = cells
			continue
		}
		block.Rows = append(block.Rows, cells)
	}
	return block
}

// soleImage returns the image when it is the only content of a paragraph
func soleImage(p *ast.Paragraph, src []byte) *ast.Image {
	var img *ast.Image
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Image:
			if img != nil {
				return nil
			}
			img = n
		case *ast.Text:
			if len(bytes.TrimSpace(n.Segment.Value(src))) > 0 {
				return nil
			}
		default:
			return nil
		}
	}
	return img
}

func headingID(h *ast.Heading, index int) string {
	if v, ok := h.AttributeString("id"); ok {
		if id, ok := v.([]byte); ok && len(id) > 0 {
			return string(id)
		}
	}
	return "section-" + strconv.Itoa(index+1)
}

// inlineText flattens the text under n, joining soft line breaks with spaces
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Image:
			if c != n {
				return ast.WalkSkipChildren, nil
			}
		case *ast.Text:
			b.Write(util.UnescapePunctuations(t.Segment.Value(src)))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.ListItem, *ast.Paragraph, *ast.TextBlock:
			if b.Len() > 0 && c != n {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
