package layout

import (
	"html/template"
	"io"
)

// BlockKind identifies the content of a Block
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
	BlockTable     BlockKind = "table"
	BlockImage     BlockKind = "image"
)

// Image is an embedded figure. Source holds the data URL from the report record;
// AssetPath is set once the figure has been written next to the rendered page.
type Image struct {
	ID        string
	Alt       string
	Source    string
	AssetPath string
	Broken    bool
}

// Src is the reference the rendered page uses for the image
func (i *Image) Src() template.URL {
	if i.AssetPath != "" {
		return template.URL(i.AssetPath)
	}
	return template.URL(i.Source)
}

// Block is one unit of section content
type Block struct {
	Kind   BlockKind
	Text   string
	Items  []string
	Header []string
	Rows   [][]string
	Image  *Image
}

// Section groups blocks under a level-two heading
type Section struct {
	ID     string
	Title  string
	Blocks []Block
}

// Document is a laid out report
type Document struct {
	Title    string
	Sections []Section

	page *template.Template
}

// Images returns every figure in document order
func (d *Document) Images() []*Image {
	var images []*Image
	for _, s := range d.Sections {
		for _, b := range s.Blocks {
			if b.Kind == BlockImage && b.Image != nil {
				images = append(images, b.Image)
			}
		}
	}
	return images
}

// WriteHTML renders the document as a standalone page
func (d *Document) WriteHTML(w io.Writer) error {
	return d.page.Execute(w, d)
}

// WriteStandaloneHTML renders the page with every figure inlined from its source
func (d *Document) WriteStandaloneHTML(w io.Writer) error {
	clone := *d
	clone.Sections = make([]Section, len(d.Sections))
	for i, s := range d.Sections {
		s.Blocks = append([]Block(nil), s.Blocks...)
		for j := range s.Blocks {
			if img := s.Blocks[j].Image; img != nil {
				inlined := *img
				inlined.AssetPath = ""
				s.Blocks[j].Image = &inlined
			}
		}
		clone.Sections[i] = s
	}
	return clone.page.Execute(w, &clone)
}
