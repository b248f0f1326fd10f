package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactAndExpand(t *testing.T) {
	tests := []struct {
		iri  string
		want string
	}{
		{"http://www.w3.org/2001/XMLSchema#integer", "xsd:integer"},
		{"http://purl.org/spar/fabio/JournalArticle", "fabio:JournalArticle"},
		{"http://purl.org/dc/terms/title", "dcterms:title"},
		{"https://w3id.org/oc/meta/br/0601", "https://w3id.org/oc/meta/br/0601"},
		{"http://purl.org/spar/datacite/", "http://purl.org/spar/datacite/"},
		{"http://purl.org/spar/datacite/has/slash", "http://purl.org/spar/datacite/has/slash"},
	}
	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			got := Compact(tt.iri)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.iri, Expand(got))
		})
	}

	assert.Equal(t, "http://example.org/x", Expand("http://example.org/x"))
	assert.Equal(t, "unknown:x", Expand("unknown:x"))
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "integer", LocalName("http://www.w3.org/2001/XMLSchema#integer"))
	assert.Equal(t, "title", LocalName("http://purl.org/dc/terms/title"))
	assert.Equal(t, "http://example.org/", LocalName("http://example.org/"))
}
