// Package xsd provides IRI constants for the XML Schema datatypes accepted
// in literal values.
package xsd

// Namespace is the base IRI for XML Schema datatypes.
const Namespace = "http://www.w3.org/2001/XMLSchema#"

// Prefix is the conventional prefix bound to Namespace.
const Prefix = "xsd"

// String datatypes.
const (
	String           = Namespace + "string"
	NormalizedString = Namespace + "normalizedString"
	Token            = Namespace + "token"
	Language         = Namespace + "language"
	AnyURI           = Namespace + "anyURI"
)

// Numeric datatypes.
const (
	Boolean            = Namespace + "boolean"
	Integer            = Namespace + "integer"
	Int                = Namespace + "int"
	Long               = Namespace + "long"
	Short              = Namespace + "short"
	Byte               = Namespace + "byte"
	PositiveInteger    = Namespace + "positiveInteger"
	NegativeInteger    = Namespace + "negativeInteger"
	NonNegativeInteger = Namespace + "nonNegativeInteger"
	NonPositiveInteger = Namespace + "nonPositiveInteger"
	UnsignedInt        = Namespace + "unsignedInt"
	Decimal            = Namespace + "decimal"
	Float              = Namespace + "float"
	Double             = Namespace + "double"
)

// Temporal datatypes.
const (
	Date       = Namespace + "date"
	DateTime   = Namespace + "dateTime"
	Time       = Namespace + "time"
	GYear      = Namespace + "gYear"
	GYearMonth = Namespace + "gYearMonth"
	Duration   = Namespace + "duration"
)

// Binary datatypes.
const (
	HexBinary    = Namespace + "hexBinary"
	Base64Binary = Namespace + "base64Binary"
)
