package export_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/export"
	"github.com/c360studio/heritrace/graph"
)

const articleTurtle = `
@prefix fabio: <http://purl.org/spar/fabio/> .
@prefix dcterms: <http://purl.org/dc/terms/> .
@prefix prism: <http://prismstandard.org/namespaces/basic/2.0/> .
@prefix datacite: <http://purl.org/spar/datacite/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

<https://w3id.org/oc/meta/br/0601> a fabio:JournalArticle, fabio:Expression ;
    dcterms:title "A \"quoted\" title" ;
    dcterms:description "Sommario"@it ;
    prism:publicationDate "2024-05"^^xsd:gYearMonth ;
    datacite:hasIdentifier <https://w3id.org/oc/meta/id/0601> .

<https://w3id.org/oc/meta/id/0601> a datacite:Identifier ;
    <http://example.org/custom> "x" .
`

func newExporter(t *testing.T) *export.RDFExporter {
	t.Helper()
	g, err := graph.ParseString(articleTurtle, graph.FormatTurtle)
	require.NoError(t, err)
	e := export.NewRDFExporter()
	e.AddGraph(g)
	return e
}

func TestExportTurtle(t *testing.T) {
	output, err := newExporter(t).Export(export.FormatTurtle)
	require.NoError(t, err)

	assert.Contains(t, output, "@prefix fabio: <http://purl.org/spar/fabio/> .")
	assert.NotContains(t, output, "@prefix foaf:", "unused prefixes are omitted")
	assert.Contains(t, output, "<https://w3id.org/oc/meta/br/0601>\n    a fabio:JournalArticle, fabio:Expression ;")
	assert.Contains(t, output, `dcterms:title "A \"quoted\" title" ;`)
	assert.Contains(t, output, `dcterms:description "Sommario"@it ;`)
	assert.Contains(t, output, `prism:publicationDate "2024-05"^^xsd:gYearMonth ;`)
	assert.Contains(t, output, "<http://example.org/custom> \"x\" .")

	// The output parses back into the same graph.
	back, err := graph.ParseString(output, graph.FormatTurtle)
	require.NoError(t, err)
	assert.Equal(t, 8, back.Len())
}

func TestExportNTriples(t *testing.T) {
	output, err := newExporter(t).Export(export.FormatNTriples)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	assert.Len(t, lines, 8)
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, " ."), line)
	}
	assert.Contains(t, output, `<https://w3id.org/oc/meta/br/0601> <http://prismstandard.org/namespaces/basic/2.0/publicationDate> "2024-05"^^<http://www.w3.org/2001/XMLSchema#gYearMonth> .`)
}

func TestExportJSONLD(t *testing.T) {
	output, err := newExporter(t).Export(export.FormatJSONLD)
	require.NoError(t, err)

	var doc struct {
		Context map[string]string `json:"@context"`
		Graph   []map[string]any  `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &doc))

	assert.Equal(t, "http://purl.org/dc/terms/", doc.Context["dcterms"])
	require.Len(t, doc.Graph, 2)

	article := doc.Graph[0]
	assert.Equal(t, "https://w3id.org/oc/meta/br/0601", article["@id"])
	assert.Equal(t, []any{"fabio:JournalArticle", "fabio:Expression"}, article["@type"])
	assert.Equal(t, []any{`A "quoted" title`}, article["dcterms:title"])
	assert.Equal(t, []any{map[string]any{"@value": "Sommario", "@language": "it"}}, article["dcterms:description"])
	assert.Equal(t, []any{map[string]any{"@id": "https://w3id.org/oc/meta/id/0601"}}, article["datacite:hasIdentifier"])
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := export.NewRDFExporter().Export("rdfxml")
	assert.Error(t, err)
}

func TestExportEmpty(t *testing.T) {
	e := export.NewRDFExporter()
	output, err := e.Export(export.FormatTurtle)
	require.NoError(t, err)
	assert.Empty(t, output)
	assert.Equal(t, 0, e.Len())
}
