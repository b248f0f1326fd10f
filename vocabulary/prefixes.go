// Package vocabulary binds the namespaces used across HERITRACE to their
// conventional prefixes.
package vocabulary

import (
	"strings"

	"github.com/c360studio/heritrace/vocabulary/heritrace"
	"github.com/c360studio/heritrace/vocabulary/shacl"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

// Binding associates a prefix with a namespace IRI.
type Binding struct {
	Prefix    string
	Namespace string
}

// Prefixes lists the known bindings. Longer namespaces come first where one
// is a prefix of another so that Compact picks the most specific match.
var Prefixes = []Binding{
	{"heritrace", heritrace.Namespace},
	{"fabio", heritrace.FaBiONamespace},
	{"foaf", heritrace.FOAFNamespace},
	{"datacite", heritrace.DataCiteNamespace},
	{"literal", heritrace.LiteralNamespace},
	{"pro", heritrace.PRONamespace},
	{"frbr", heritrace.FRBRNamespace},
	{"dcterms", heritrace.DCTermsNamespace},
	{"prism", heritrace.PRISMNamespace},
	{"oco", heritrace.OCONamespace},
	{"schema", heritrace.SchemaOrgNamespace},
	{shacl.Prefix, shacl.Namespace},
	{"rdf", shacl.RDFNamespace},
	{xsd.Prefix, xsd.Namespace},
}

// Compact returns the prefixed name of iri ("xsd:integer") or iri itself
// when no binding matches or the local part is empty.
func Compact(iri string) string {
	for _, b := range Prefixes {
		if !strings.HasPrefix(iri, b.Namespace) {
			continue
		}
		local := iri[len(b.Namespace):]
		if local == "" || !isLocalName(local) {
			return iri
		}
		return b.Prefix + ":" + local
	}
	return iri
}

// Expand turns a prefixed name into a full IRI. Values that are not prefixed
// names with a known prefix are returned unchanged.
func Expand(name string) string {
	prefix, local, ok := strings.Cut(name, ":")
	if !ok || strings.HasPrefix(local, "//") {
		return name
	}
	for _, b := range Prefixes {
		if b.Prefix == prefix {
			return b.Namespace + local
		}
	}
	return name
}

// LocalName returns the part of iri after the last '#', '/' or ':'.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/:"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

func isLocalName(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return !strings.HasSuffix(s, ".")
}
