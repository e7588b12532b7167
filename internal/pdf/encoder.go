package pdf

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"carbonsink/internal/layout"
	"carbonsink/internal/logger"
)

var (
	// ErrElementHidden is returned when the element is not visible and would capture blank
	ErrElementHidden = errors.New("element is hidden")
	// ErrEmptyElement is returned when the element has no laid out content
	ErrEmptyElement = errors.New("element has no content")
)

//go:embed fonts/*.ttf
var fonts embed.FS

// Element is rendered report content ready for capture
type Element interface {
	Visible() bool
	Document() *layout.Document
	Dir() string
}

// Color scheme
var (
	colorPrimary   = [3]int{30, 58, 95}
	colorTextDark  = [3]int{44, 62, 80}
	colorTextMuted = [3]int{127, 140, 141}
	colorGridLine  = [3]int{220, 220, 220}
	colorTableAlt  = [3]int{241, 245, 249}
)

const (
	fontFamily   = "DejaVu"
	bodySize     = 10.0
	lineHeight   = 5.0
	sectionGap   = 4.0
	placeholderH = 20.0
	cssDPI       = 96.0
	mmPerInch    = 25.4
)

// Encoder captures rendered report content into a paginated PDF
type Encoder struct {
	log *logger.Logger
}

// NewEncoder creates a PDF encoder
func NewEncoder() *Encoder {
	return &Encoder{log: logger.Component("pdf")}
}

// Encode writes el as a PDF to w and returns the number of pages
func (e *Encoder) Encode(ctx context.Context, el Element, opts Options, w io.Writer) (int, error) {
	if !el.Visible() {
		return 0, ErrElementHidden
	}
	doc := el.Document()
	if doc == nil {
		return 0, ErrEmptyElement
	}
	opts = opts.withDefaults()

	regular, bold, err := loadFonts(opts.FontFile)
	if err != nil {
		return 0, err
	}
	p := newPageWriter(doc.Title, el.Dir(), opts, regular, bold)
	p.doc.AddPage()

	if doc.Title != "" {
		p.title(doc.Title)
	}
	for i := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		p.section(&doc.Sections[i])
	}

	if p.doc.Err() {
		return 0, fmt.Errorf("failed to lay out PDF: %w", p.doc.Error())
	}

	var buf bytes.Buffer
	if err := p.doc.Output(&buf); err != nil {
		return 0, fmt.Errorf("PDF output error: %w", err)
	}
	pages := p.doc.PageCount()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to write PDF: %w", err)
	}

	e.log.Debug("PDF encoded", logger.Fields{"pages": pages, "bytes": buf.Len(), "images": p.images})
	return pages, nil
}

// pageWriter lays out one document onto fpdf pages
type pageWriter struct {
	doc    *fpdf.Fpdf
	opts   Options
	dir    string
	left   float64
	width  float64
	top    float64
	bottom float64
	images int
}

// loadFonts returns the regular and bold faces, using the TTF at path for both when set
func loadFonts(path string) ([]byte, []byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read PDF font: %w", err)
		}
		return data, data, nil
	}
	regular, err := fonts.ReadFile("fonts/DejaVuSansCondensed.ttf")
	if err != nil {
		return nil, nil, err
	}
	bold, err := fonts.ReadFile("fonts/DejaVuSansCondensed-Bold.ttf")
	if err != nil {
		return nil, nil, err
	}
	return regular, bold, nil
}

func newPageWriter(title, dir string, opts Options, regular, bold []byte) *pageWriter {
	doc := fpdf.New(opts.Orientation, "mm", opts.PageSize, "")
	doc.AddUTF8FontFromBytes(fontFamily, "", regular)
	doc.AddUTF8FontFromBytes(fontFamily, "B", bold)
	doc.SetCompression(!opts.uncompressed)
	m := opts.MarginMM
	doc.SetMargins(m, m, m)
	doc.SetAutoPageBreak(true, m)
	doc.SetTitle(title, true)
	doc.SetCreator("carbonsink", true)
	doc.AliasNbPages("")

	pageW, pageH := doc.GetPageSize()
	p := &pageWriter{
		doc:    doc,
		opts:   opts,
		dir:    dir,
		left:   m,
		width:  pageW - 2*m,
		top:    m,
		bottom: pageH - m,
	}

	doc.SetHeaderFunc(func() {
		doc.SetDrawColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
		doc.SetLineWidth(0.3)
		doc.Line(p.left, p.top-2, p.left+p.width, p.top-2)
		p.normalize()
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-m + 2)
		doc.SetFont(fontFamily, "", 8)
		doc.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		doc.CellFormat(0, 4, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	return p
}

// normalize resets drawing state so a page never inherits the previous page's styles.
// It runs from the header func, which covers automatic page breaks as well.
func (p *pageWriter) normalize() {
	p.bodyStyle()
	p.doc.SetFillColor(255, 255, 255)
	p.doc.SetDashPattern([]float64{}, 0)
	p.doc.SetXY(p.left, p.top)
}

func (p *pageWriter) newPage() {
	p.doc.AddPage()
}

func (p *pageWriter) remaining() float64 {
	return p.bottom - p.doc.GetY()
}

// keep starts a new page when a block of height h does not fit but would fit on an empty page
func (p *pageWriter) keep(kind string, h float64) {
	if !p.opts.avoids(kind) {
		return
	}
	if h > p.remaining() && h <= p.bottom-p.top && p.doc.GetY() > p.top {
		p.newPage()
	}
}

func (p *pageWriter) title(text string) {
	p.doc.SetFont(fontFamily, "B", 18)
	p.doc.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	p.doc.MultiCell(p.width, 9, toBMP(text), "", "L", false)
	p.doc.SetDrawColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	p.doc.SetLineWidth(0.5)
	y := p.doc.GetY() + 1
	p.doc.Line(p.left, y, p.left+p.width, y)
	p.doc.SetY(y + sectionGap)
	p.bodyStyle()
}

// bodyStyle restores body text style without moving the cursor
func (p *pageWriter) bodyStyle() {
	p.doc.SetFont(fontFamily, "", bodySize)
	p.doc.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	p.doc.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
	p.doc.SetLineWidth(0.2)
}

func (p *pageWriter) section(s *layout.Section) {
	p.keep(AvoidSection, p.sectionHeight(s))

	if s.Title != "" {
		p.doc.SetFont(fontFamily, "B", 13)
		p.doc.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
		p.doc.MultiCell(p.width, 7, toBMP(s.Title), "", "L", false)
		p.doc.Ln(1)
		p.bodyStyle()
	}
	for i := range s.Blocks {
		p.block(&s.Blocks[i])
	}
	p.doc.Ln(sectionGap)
}

func (p *pageWriter) block(b *layout.Block) {
	switch b.Kind {
	case layout.BlockHeading:
		p.doc.SetFont(fontFamily, "B", 11)
		p.doc.MultiCell(p.width, 6, toBMP(b.Text), "", "L", false)
		p.bodyStyle()
	case layout.BlockParagraph:
		p.doc.MultiCell(p.width, lineHeight, toBMP(b.Text), "", "L", false)
		p.doc.Ln(2)
	case layout.BlockList:
		for _, item := range b.Items {
			p.doc.SetX(p.left + 2)
			p.doc.MultiCell(p.width-2, lineHeight, toBMP("• "+item), "", "L", false)
		}
		p.doc.Ln(2)
	case layout.BlockTable:
		p.table(b)
	case layout.BlockImage:
		p.image(b.Image)
	}
}

func (p *pageWriter) columnWidths(n int) []float64 {
	widths := make([]float64, n)
	if n == 2 {
		widths[0], widths[1] = p.width*0.45, p.width*0.55
		return widths
	}
	for i := range widths {
		widths[i] = p.width / float64(n)
	}
	return widths
}

func (p *pageWriter) rowHeight(cells []string, widths []float64) float64 {
	lines := 1
	for i, c := range cells {
		if i >= len(widths) {
			break
		}
		if n := p.lines(c, widths[i]-2); n > lines {
			lines = n
		}
	}
	return float64(lines)*lineHeight + 2
}

func (p *pageWriter) tableHeight(b *layout.Block) float64 {
	cols := columnCount(b)
	if cols == 0 {
		return 0
	}
	widths := p.columnWidths(cols)
	h := 0.0
	if len(b.Header) > 0 {
		p.doc.SetFont(fontFamily, "B", bodySize)
		h += p.rowHeight(b.Header, widths)
		p.doc.SetFont(fontFamily, "", bodySize)
	}
	for _, row := range b.Rows {
		h += p.rowHeight(row, widths)
	}
	return h + 2
}

func (p *pageWriter) table(b *layout.Block) {
	cols := columnCount(b)
	if cols == 0 {
		return
	}
	widths := p.columnWidths(cols)
	p.keep(AvoidTable, p.tableHeight(b))

	header := func() {
		if len(b.Header) == 0 {
			return
		}
		p.doc.SetFont(fontFamily, "B", bodySize)
		p.doc.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
		p.doc.SetTextColor(255, 255, 255)
		p.row(b.Header, widths, true)
		p.bodyStyle()
	}

	header()
	for i, row := range b.Rows {
		if p.rowHeight(row, widths) > p.remaining() {
			p.newPage()
			header()
		}
		fill := i%2 == 1
		if fill {
			p.doc.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		}
		p.row(row, widths, fill)
		p.doc.SetFillColor(255, 255, 255)
	}
	p.doc.Ln(2)
}

func (p *pageWriter) row(cells []string, widths []float64, fill bool) {
	h := p.rowHeight(cells, widths)
	x, y := p.left, p.doc.GetY()
	style := "D"
	if fill {
		style = "FD"
	}
	for i, w := range widths {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		p.doc.Rect(x, y, w, h, style)
		p.doc.SetXY(x+1, y+1)
		p.doc.MultiCell(w-2, lineHeight, toBMP(text), "", "L", false)
		x += w
	}
	p.doc.SetXY(p.left, y+h)
}

// imageSize returns the printed size of a staged raster, or false when it cannot be embedded
func (p *pageWriter) imageSize(img *layout.Image) (string, float64, float64, bool) {
	if img == nil || img.Broken || img.AssetPath == "" {
		return "", 0, placeholderH, false
	}
	var imageType string
	switch strings.ToLower(filepath.Ext(img.AssetPath)) {
	case ".png":
		imageType = "PNG"
	case ".jpg", ".jpeg":
		imageType = "JPG"
	default:
		return "", 0, placeholderH, false
	}

	f, err := os.Open(filepath.Join(p.dir, filepath.FromSlash(img.AssetPath)))
	if err != nil {
		return "", 0, placeholderH, false
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width == 0 {
		return "", 0, placeholderH, false
	}

	w := float64(cfg.Width) / p.opts.Scale * mmPerInch / cssDPI
	if w > p.width {
		w = p.width
	}
	h := w * float64(cfg.Height) / float64(cfg.Width)
	if limit := p.bottom - p.top; h > limit {
		w, h = w*limit/h, limit
	}
	return imageType, w, h, true
}

func (p *pageWriter) image(img *layout.Image) {
	imageType, w, h, ok := p.imageSize(img)
	p.keep(AvoidChart, h+2)
	if h > p.remaining() {
		p.newPage()
	}
	y := p.doc.GetY()

	if ok {
		data, err := os.ReadFile(filepath.Join(p.dir, filepath.FromSlash(img.AssetPath)))
		if err == nil {
			opts := fpdf.ImageOptions{ImageType: imageType}
			p.doc.RegisterImageOptionsReader(img.ID, opts, bytes.NewReader(data))
			if !p.doc.Err() {
				x := p.left + (p.width-w)/2
				p.doc.ImageOptions(img.ID, x, y, w, h, false, opts, 0, "")
				p.doc.SetXY(p.left, y+h+2)
				p.images++
				return
			}
			p.doc.ClearError()
		}
	}

	alt := "Image"
	if img != nil && img.Alt != "" {
		alt = img.Alt
	}
	p.doc.SetDashPattern([]float64{1, 1}, 0)
	p.doc.Rect(p.left, y, p.width, placeholderH, "D")
	p.doc.SetDashPattern([]float64{}, 0)
	p.doc.SetXY(p.left, y+placeholderH/2-lineHeight/2)
	p.doc.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	p.doc.CellFormat(p.width, lineHeight, toBMP(alt+": image unavailable"), "", 0, "C", false, 0, "")
	p.bodyStyle()
	p.doc.SetXY(p.left, y+placeholderH+2)
}

// sectionHeight estimates the printed height of a section
func (p *pageWriter) sectionHeight(s *layout.Section) float64 {
	h := sectionGap
	if s.Title != "" {
		h += 8
	}
	for i := range s.Blocks {
		b := &s.Blocks[i]
		switch b.Kind {
		case layout.BlockHeading:
			h += 6
		case layout.BlockParagraph:
			h += float64(p.lines(b.Text, p.width))*lineHeight + 2
		case layout.BlockList:
			for _, item := range b.Items {
				h += float64(p.lines("• "+item, p.width-2)) * lineHeight
			}
			h += 2
		case layout.BlockTable:
			h += p.tableHeight(b)
		case layout.BlockImage:
			_, _, ih, _ := p.imageSize(b.Image)
			h += ih + 2
		}
	}
	return h
}

// lines counts the wrapped lines of text at width w in the current font
func (p *pageWriter) lines(text string, w float64) int {
	if n := len(p.doc.SplitText(toBMP(text), w)); n > 0 {
		return n
	}
	return 1
}

func columnCount(b *layout.Block) int {
	n := len(b.Header)
	for _, row := range b.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// toBMP replaces runes outside the Basic Multilingual Plane, which UTF-8 font width tables do not cover
func toBMP(s string) string {
	for _, r := range s {
		if r > 0xFFFF {
			return strings.Map(func(r rune) rune {
				if r > 0xFFFF {
					return utf8.RuneError
				}
				return r
			}, s)
		}
	}
	return s
}
