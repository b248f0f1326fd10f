package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knakk/rdf"
)

// Format is an RDF serialization accepted by Parse.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatRDFXML   Format = "rdfxml"
)

// ErrUnsupportedFormat is returned for serializations the decoder cannot read.
var ErrUnsupportedFormat = errors.New("unsupported RDF format")

// FormatFromPath infers the serialization from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl", ".turtle":
		return FormatTurtle, nil
	case ".nt":
		return FormatNTriples, nil
	case ".rdf", ".owl", ".xml":
		return FormatRDFXML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func (f Format) decoderFormat() (rdf.Format, error) {
	switch f {
	case FormatTurtle:
		return rdf.Turtle, nil
	case FormatNTriples:
		return rdf.NTriples, nil
	case FormatRDFXML:
		return rdf.RDFXML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// ParseOptions tunes Parse.
type ParseOptions struct {
	// BaseIRI resolves relative IRIs in Turtle and RDF/XML documents.
	BaseIRI string

	// BlankPrefix is prepended to every blank node label so that labels from
	// different documents never collide once merged into one graph.
	BlankPrefix string
}

// Parse decodes a document into a new graph.
func Parse(r io.Reader, format Format, opts ParseOptions) (*Graph, error) {
	g := New()
	if err := ParseInto(g, r, format, opts); err != nil {
		return nil, err
	}
	return g, nil
}

// ParseString is a convenience wrapper around Parse for inline documents.
func ParseString(doc string, format Format) (*Graph, error) {
	return Parse(strings.NewReader(doc), format, ParseOptions{})
}

// ParseInto decodes a document and adds its triples to g.
func ParseInto(g *Graph, r io.Reader, format Format, opts ParseOptions) error {
	df, err := format.decoderFormat()
	if err != nil {
		return err
	}

	if format == FormatTurtle {
		src, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read %s: %w", format, err)
		}
		r = bytes.NewReader(turtleSafe(src))
	}

	dec := rdf.NewTripleDecoder(r, df)
	if opts.BaseIRI != "" {
		base, err := rdf.NewIRI(opts.BaseIRI)
		if err != nil {
			return fmt.Errorf("invalid base IRI %q: %w", opts.BaseIRI, err)
		}
		if err := dec.SetOption(rdf.Base, base); err != nil {
			return fmt.Errorf("set base IRI: %w", err)
		}
	}

	for {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", format, err)
		}

		s, err := fromRDF(tr.Subj, opts.BlankPrefix)
		if err != nil {
			return err
		}
		o, err := fromRDF(tr.Obj, opts.BlankPrefix)
		if err != nil {
			return err
		}
		g.Add(Triple{Subject: s, Predicate: IRI(tr.Pred.String()), Object: o})
	}
}

// turtleSafe rewrites whitespace outside string literals, IRIs and comments
// so that every token ends in a plain space. The knakk/rdf lexer only accepts
// a space, a comma, a semicolon or a closing bracket after a numeric literal,
// which rejects "sh:maxCount 1" at the end of a line.
func turtleSafe(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/16)

	var quote []byte
	inIRI, inComment := false, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != nil:
			out = append(out, c)
			if c == '\\' && i+1 < len(src) {
				i++
				out = append(out, src[i])
				continue
			}
			if c == quote[0] && bytes.HasPrefix(src[i:], quote) {
				out = append(out, quote[1:]...)
				i += len(quote) - 1
				quote = nil
			}
		case inIRI:
			out = append(out, c)
			if c == '>' {
				inIRI = false
			}
		case inComment:
			out = append(out, c)
			if c == '\n' || c == '\r' {
				inComment = false
			}
		default:
			switch c {
			case '"', '\'':
				quote = src[i : i+1]
				if long := bytes.Repeat(quote, 3); bytes.HasPrefix(src[i:], long) {
					quote = long
				}
				out = append(out, quote...)
				i += len(quote) - 1
			case '<':
				inIRI = true
				out = append(out, c)
			case '#':
				inComment = true
				out = append(out, ' ', c)
			case '\\':
				out = append(out, c)
				if i+1 < len(src) {
					i++
					out = append(out, src[i])
				}
			case '\n':
				out = append(out, ' ', c)
			case '\t', '\r':
				out = append(out, ' ')
			default:
				out = append(out, c)
			}
		}
	}
	return out
}

// LoadFiles reads every file matched by the patterns into one graph. Patterns
// support doublestar globs ("shapes/**/*.ttl"); plain paths are read as-is.
// A pattern that matches nothing is an error.
func LoadFiles(patterns ...string) (*Graph, error) {
	paths, err := ExpandPatterns(patterns...)
	if err != nil {
		return nil, err
	}

	g := New()
	for i, path := range paths {
		if err := loadFile(g, path, fmt.Sprintf("f%d_", i)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ExpandPatterns resolves glob patterns into a de-duplicated, ordered list of
// regular files.
func ExpandPatterns(patterns ...string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files: %w", pattern, os.ErrNotExist)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if info.IsDir() || seen[m] {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	return paths, nil
}

func loadFile(g *Graph, path, blankPrefix string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := ParseInto(g, f, format, ParseOptions{BlankPrefix: blankPrefix}); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// FromRDF converts a decoded knakk/rdf term. Blank node labels are kept.
func FromRDF(t rdf.Term) (Term, error) {
	return fromRDF(t, "")
}

func fromRDF(t rdf.Term, blankPrefix string) (Term, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return IRI(v.String()), nil
	case rdf.Blank:
		return Blank(blankPrefix + v.String()), nil
	case rdf.Literal:
		if v.Lang() != "" {
			return NewLangLiteral(v.String(), v.Lang()), nil
		}
		return NewTypedLiteral(v.String(), IRI(v.DataType.String())), nil
	default:
		return nil, fmt.Errorf("unexpected RDF term %T", t)
	}
}
