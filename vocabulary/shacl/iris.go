// Package shacl provides IRI constants for the W3C Shapes Constraint Language
// and the RDF collection terms needed to read SHACL lists.
package shacl

// Namespace is the base IRI for SHACL terms.
const Namespace = "http://www.w3.org/ns/shacl#"

// Prefix is the conventional prefix bound to Namespace.
const Prefix = "sh"

// Shape classes.
const (
	NodeShape     = Namespace + "NodeShape"
	PropertyShape = Namespace + "PropertyShape"
)

// Targets and structure.
const (
	TargetClass = Namespace + "targetClass"
	Property    = Namespace + "property"
	Path        = Namespace + "path"
	Node        = Namespace + "node"
	Or          = Namespace + "or"
	Name        = Namespace + "name"
	Order       = Namespace + "order"
	Description = Namespace + "description"
)

// Value constraints.
const (
	Datatype = Namespace + "datatype"
	Class    = Namespace + "class"
	MinCount = Namespace + "minCount"
	MaxCount = Namespace + "maxCount"
	HasValue = Namespace + "hasValue"
	In       = Namespace + "in"
	Pattern  = Namespace + "pattern"
	Flags    = Namespace + "flags"
	Message  = Namespace + "message"
)

// Non-standard extensions used by HERITRACE shapes.
//
// sh:condition holds a blank node [sh:path P; sh:hasValue V] that must be
// satisfied by the subject before the sibling sh:pattern is enforced.
// sh:classIn holds an RDF list of accepted classes.
const (
	Condition = Namespace + "condition"
	ClassIn   = Namespace + "classIn"
)

// RDF vocabulary terms used when walking shapes.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFType       = RDFNamespace + "type"
	RDFFirst      = RDFNamespace + "first"
	RDFRest       = RDFNamespace + "rest"
	RDFNil        = RDFNamespace + "nil"
	RDFLangString = RDFNamespace + "langString"
)
