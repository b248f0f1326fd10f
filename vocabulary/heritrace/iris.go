// Package heritrace provides IRI constants for the bibliographic ontologies
// curated by HERITRACE (SPAR ontologies, FOAF, Dublin Core, PRISM) and for
// the application's own namespace.
package heritrace

import "github.com/c360studio/semstreams/vocabulary"

// Namespace is the base IRI for HERITRACE application terms.
const Namespace = "https://w3id.org/heritrace/ontology/"

// Ontology namespaces.
const (
	FaBiONamespace     = "http://purl.org/spar/fabio/"
	FOAFNamespace      = "http://xmlns.com/foaf/0.1/"
	DataCiteNamespace  = "http://purl.org/spar/datacite/"
	LiteralNamespace   = "http://www.essepuntato.it/2010/06/literalreification/"
	PRONamespace       = "http://purl.org/spar/pro/"
	FRBRNamespace      = "http://purl.org/vocab/frbr/core#"
	DCTermsNamespace   = "http://purl.org/dc/terms/"
	PRISMNamespace     = "http://prismstandard.org/namespaces/basic/2.0/"
	OCONamespace       = "https://w3id.org/oc/ontology/"
	SchemaOrgNamespace = "http://schema.org/"
)

// Classes.
const (
	// ClassExpression is a bibliographic resource (OMID short name "br").
	ClassExpression = FaBiONamespace + "Expression"

	// ClassJournalArticle is a journal article.
	ClassJournalArticle = FaBiONamespace + "JournalArticle"

	// ClassJournal is a periodical.
	ClassJournal = FaBiONamespace + "Journal"

	// ClassAgent is a responsible agent (OMID short name "ra").
	ClassAgent = FOAFNamespace + "Agent"

	// ClassIdentifier is an identifier entity (OMID short name "id").
	ClassIdentifier = DataCiteNamespace + "Identifier"

	// ClassRoleInTime is an agent role (OMID short name "ar").
	ClassRoleInTime = PRONamespace + "RoleInTime"

	// ClassManifestation is a resource embodiment (OMID short name "re").
	ClassManifestation = FaBiONamespace + "Manifestation"
)

// Predicates.
const (
	Title                = vocabulary.DcTitle
	Description          = DCTermsNamespace + "description"
	PublicationDate      = PRISMNamespace + "publicationDate"
	HasIdentifier        = DataCiteNamespace + "hasIdentifier"
	UsesIDScheme         = DataCiteNamespace + "usesIdentifierScheme"
	HasLiteralValue      = LiteralNamespace + "hasLiteralValue"
	IsDocumentContextFor = PRONamespace + "isDocumentContextFor"
	WithRole             = PRONamespace + "withRole"
	IsHeldBy             = PRONamespace + "isHeldBy"
	HasNext              = OCONamespace + "hasNext"
	PartOf               = FRBRNamespace + "partOf"
	Embodiment           = FRBRNamespace + "embodiment"
	GivenName            = FOAFNamespace + "givenName"
	FamilyName           = FOAFNamespace + "familyName"
	Name                 = vocabulary.FoafName
)

// Identifier schemes.
const (
	SchemeDOI   = DataCiteNamespace + "doi"
	SchemeISSN  = DataCiteNamespace + "issn"
	SchemeISBN  = DataCiteNamespace + "isbn"
	SchemeORCID = DataCiteNamespace + "orcid"
	SchemeOMID  = DataCiteNamespace + "omid"
)

// Roles.
const (
	RoleAuthor    = PRONamespace + "author"
	RoleEditor    = PRONamespace + "editor"
	RolePublisher = PRONamespace + "publisher"
)
