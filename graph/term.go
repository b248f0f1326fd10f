// Package graph provides the RDF term model and an indexed in-memory graph
// used both for SHACL shapes and for entity data.
package graph

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/c360studio/heritrace/vocabulary/shacl"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

// TermKind distinguishes the three kinds of RDF term.
type TermKind int

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

// String returns the name of the term kind.
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is an RDF term. All implementations are comparable values and can be
// used as map keys.
type Term interface {
	// Kind reports whether the term is an IRI, a blank node or a literal.
	Kind() TermKind

	// String returns the IRI, the blank node label or the lexical form.
	String() string

	// NTriples returns the term serialized in N-Triples syntax.
	NTriples() string
}

// Well-known RDF terms.
const (
	RDFType       IRI = shacl.RDFType
	RDFFirst      IRI = shacl.RDFFirst
	RDFRest       IRI = shacl.RDFRest
	RDFNil        IRI = shacl.RDFNil
	RDFLangString IRI = shacl.RDFLangString
)

// IRI is an absolute resource identifier.
type IRI string

// Kind implements Term.
func (i IRI) Kind() TermKind { return KindIRI }

// String implements Term.
func (i IRI) String() string { return string(i) }

// NTriples implements Term.
func (i IRI) NTriples() string { return "<" + string(i) + ">" }

// Blank is a blank node identified by its document-scoped label.
type Blank string

// Kind implements Term.
func (b Blank) Kind() TermKind { return KindBlank }

// String implements Term.
func (b Blank) String() string { return string(b) }

// NTriples implements Term.
func (b Blank) NTriples() string { return "_:" + string(b) }

// Literal is a lexical value with a datatype and, for rdf:langString, a
// language tag. The zero Datatype is never produced by constructors.
type Literal struct {
	Value    string
	Datatype IRI
	Lang     string
}

// NewLiteral returns an xsd:string literal.
func NewLiteral(value string) Literal {
	return Literal{Value: value, Datatype: xsd.String}
}

// NewTypedLiteral returns a literal with the given datatype. An empty
// datatype defaults to xsd:string.
func NewTypedLiteral(value string, datatype IRI) Literal {
	if datatype == "" {
		datatype = xsd.String
	}
	return Literal{Value: value, Datatype: datatype}
}

// NewLangLiteral returns a language-tagged string.
func NewLangLiteral(value, lang string) Literal {
	return Literal{Value: value, Datatype: RDFLangString, Lang: strings.ToLower(lang)}
}

// Kind implements Term.
func (l Literal) Kind() TermKind { return KindLiteral }

// String implements Term.
func (l Literal) String() string { return l.Value }

// NTriples implements Term.
func (l Literal) NTriples() string {
	quoted := `"` + EscapeString(l.Value) + `"`
	switch {
	case l.Lang != "":
		return quoted + "@" + l.Lang
	case l.Datatype == "" || l.Datatype == xsd.String:
		return quoted
	default:
		return quoted + "^^" + l.Datatype.NTriples()
	}
}

// Triple is a single RDF statement.
type Triple struct {
	Subject   Term
	Predicate IRI
	Object    Term
}

// String returns the triple in N-Triples syntax without the trailing newline.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject.NTriples(), t.Predicate.NTriples(), t.Object.NTriples())
}

// IsIRI reports whether t is an IRI.
func IsIRI(t Term) bool {
	return t != nil && t.Kind() == KindIRI
}

// IsLiteral reports whether t is a literal.
func IsLiteral(t Term) bool {
	return t != nil && t.Kind() == KindLiteral
}

// LooksLikeIRI reports whether s is an absolute IRI: it has a scheme, no
// whitespace and none of the characters N-Triples forbids inside <...>.
func LooksLikeIRI(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n<>\"{}|^`\\") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "urn", "mailto", "doi", "info", "tag", "ftp", "file":
		return u.Opaque != "" || u.Path != "" || u.Host != ""
	default:
		return false
	}
}

// ParseTerm turns a user-supplied string into an IRI when it looks like one
// and into an xsd:string literal otherwise.
func ParseTerm(s string) Term {
	if LooksLikeIRI(s) {
		return IRI(s)
	}
	return NewLiteral(s)
}

// EscapeString escapes a lexical form for N-Triples and Turtle.
func EscapeString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
