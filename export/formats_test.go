package export_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/heritrace/export"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want export.Format
	}{
		{"turtle", export.FormatTurtle},
		{"TTL", export.FormatTurtle},
		{"text/turtle", export.FormatTurtle},
		{".nt", export.FormatNTriples},
		{"application/n-triples", export.FormatNTriples},
		{"json-ld", export.FormatJSONLD},
		{"application/ld+json", export.FormatJSONLD},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := export.ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := export.ParseFormat("rdf/xml")
	assert.Error(t, err)

	f, err := export.FormatForPath("out/article.jsonld")
	require.NoError(t, err)
	assert.Equal(t, export.FormatJSONLD, f)
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   export.Format
		ok     bool
	}{
		{"empty", "", export.FormatTurtle, true},
		{"wildcard", "*/*", export.FormatTurtle, true},
		{"exact", "application/ld+json", export.FormatJSONLD, true},
		{"quality", "text/turtle;q=0.5, application/n-triples", export.FormatNTriples, true},
		{"skips unsupported", "text/html, application/ld+json;q=0.1", export.FormatJSONLD, true},
		{"nothing acceptable", "text/html", "", false},
		{"zero quality", "text/turtle;q=0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := export.Negotiate(tt.accept, export.FormatTurtle)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRegistry(t *testing.T) {
	for _, f := range []export.Format{export.FormatTurtle, export.FormatNTriples, export.FormatJSONLD} {
		info, ok := export.GetFormatInfo(f)
		require.True(t, ok, f)
		assert.Equal(t, f, info.Name)
		assert.NotEmpty(t, info.MIMEType)
	}
}
