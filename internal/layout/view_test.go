package layout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonsink/internal/models"
)

const pngDataURL = "data:image/png;base64,iVBORw0KGgo="

func sampleData() *models.ReportData {
	return &models.ReportData{
		ReportID:         "RPT-12-1724166245000",
		StartDate:        "2024/8/1",
		EndDate:          "2024/8/20",
		ProjectID:        "PRJ-12",
		ProjectName:      "North_Ridge *A*",
		TotalCarbonSink:  "12.000",
		EquivalentCars:   "5",
		AvgNDVI:          "0.6500",
		VegetationStatus: "good",
		CarbonChartURL:   pngDataURL,
	}
}

func TestBuildSections(t *testing.T) {
	doc, err := NewView().Build(sampleData())
	require.NoError(t, err)

	assert.Equal(t, "Carbon Sink Monitoring Report", doc.Title)

	var ids []string
	for _, s := range doc.Sections {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{
		"overview",
		"project-information",
		"executive-summary",
		"carbon-sequestration-results",
		"vegetation-condition",
		"data-quality",
		"conclusions-and-recommendations",
	}, ids)

	overview := doc.Sections[0]
	require.Len(t, overview.Blocks, 1)
	assert.Equal(t, BlockList, overview.Blocks[0].Kind)
	assert.Equal(t, "Report ID: RPT-12-1724166245000", overview.Blocks[0].Items[0])
	assert.Equal(t, "Monitoring period: 2024/8/1 to 2024/8/20", overview.Blocks[0].Items[1])

	summary := doc.Sections[2]
	require.Len(t, summary.Blocks, 1)
	assert.Equal(t, BlockParagraph, summary.Blocks[0].Kind)
	assert.Contains(t, summary.Blocks[0].Text, "sequestered 12.000 t CO2e in total, comparable to the annual emissions of 5 passenger cars. The average NDVI")
}

func TestBuildKeepsValuesLiteral(t *testing.T) {
	doc, err := NewView().Build(sampleData())
	require.NoError(t, err)

	table := doc.Sections[1].Blocks[0]
	require.Equal(t, BlockTable, table.Kind)
	assert.Equal(t, []string{"Item", "Value"}, table.Header)
	require.Len(t, table.Rows, 6)
	assert.Equal(t, []string{"Project ID", "PRJ-12"}, table.Rows[0])
	assert.Equal(t, []string{"Project name", "North_Ridge *A*"}, table.Rows[1])
}

func TestBuildImages(t *testing.T) {
	doc, err := NewView().Build(sampleData())
	require.NoError(t, err)

	images := doc.Images()
	require.Len(t, images, 3)

	assert.Equal(t, "Monitoring zone boundary", images[0].Alt)
	assert.True(t, images[0].Broken)

	assert.Equal(t, "Carbon absorption trend", images[1].Alt)
	assert.Equal(t, pngDataURL, images[1].Source)
	assert.False(t, images[1].Broken)

	assert.Equal(t, "NDVI trend", images[2].Alt)
	assert.True(t, images[2].Broken)

	assert.Equal(t, "figure-1", images[0].ID)
	assert.Equal(t, "figure-3", images[2].ID)
}

func TestWriteHTML(t *testing.T) {
	doc, err := NewView().Build(sampleData())
	require.NoError(t, err)
	doc.Images()[1].AssetPath = "assets/figure-2.png"

	var buf bytes.Buffer
	require.NoError(t, doc.WriteHTML(&buf))
	html := buf.String()

	assert.Contains(t, html, "<title>Carbon Sink Monitoring Report</title>")
	assert.Contains(t, html, `<section id="executive-summary">`)
	assert.Contains(t, html, "page-break-inside: avoid")
	assert.Contains(t, html, `<img src="assets/figure-2.png" alt="Carbon absorption trend">`)
	assert.Contains(t, html, "NDVI trend: image unavailable")
	assert.Contains(t, html, "<td>North_Ridge *A*</td>")
}

func TestBuildRequiresData(t *testing.T) {
	_, err := NewView().Build(nil)
	assert.Error(t, err)
}

func TestCustomTemplate(t *testing.T) {
	view := NewViewWithTemplate("Report {{report_id}} for {{unknown}}\n\n### Notes\n\nDone.\n")

	doc, err := view.Build(sampleData())
	require.NoError(t, err)

	assert.Empty(t, doc.Title)
	require.Len(t, doc.Sections, 1)
	blocks := doc.Sections[0].Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, "Report RPT-12-1724166245000 for {{unknown}}", blocks[0].Text)
	assert.Equal(t, BlockHeading, blocks[1].Kind)
	assert.Equal(t, "Notes", blocks[1].Text)
	assert.Equal(t, "Done.", blocks[2].Text)
}

func TestEmptyTemplate(t *testing.T) {
	_, err := NewViewWithTemplate("").Build(sampleData())
	assert.Error(t, err)
}

func TestWriteStandaloneHTML(t *testing.T) {
	doc, err := NewView().Build(sampleData())
	require.NoError(t, err)
	doc.Images()[1].AssetPath = "assets/figure-2.png"

	var buf bytes.Buffer
	require.NoError(t, doc.WriteStandaloneHTML(&buf))

	assert.Contains(t, buf.String(), `src="`+pngDataURL+`"`)
	assert.NotContains(t, buf.String(), "assets/figure-2.png")
	assert.Equal(t, "assets/figure-2.png", doc.Images()[1].AssetPath, "original document is untouched")
}
