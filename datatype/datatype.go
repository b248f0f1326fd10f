// Package datatype holds the per-datatype validator table used to check and
// normalize literal values against XSD datatypes.
package datatype

import (
	"encoding/base64"
	"encoding/hex"
	"math"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

// Validator checks a lexical form. On success it returns the canonical form
// to store.
type Validator func(value string) (string, bool)

// Entry binds a datatype to its validator.
type Entry struct {
	Datatype  graph.IRI
	Validator Validator
}

// Table lists every supported datatype with its validator.
var Table = []Entry{
	{xsd.String, validateString},
	{xsd.NormalizedString, validateNormalizedString},
	{xsd.Token, validateToken},
	{xsd.Language, validateLanguage},
	{xsd.AnyURI, validateAnyURI},
	{xsd.Boolean, validateBoolean},
	{xsd.Integer, integerIn(nil, nil)},
	{xsd.Int, integerIn(big.NewInt(math.MinInt32), big.NewInt(math.MaxInt32))},
	{xsd.Long, integerIn(big.NewInt(math.MinInt64), big.NewInt(math.MaxInt64))},
	{xsd.Short, integerIn(big.NewInt(math.MinInt16), big.NewInt(math.MaxInt16))},
	{xsd.Byte, integerIn(big.NewInt(math.MinInt8), big.NewInt(math.MaxInt8))},
	{xsd.PositiveInteger, integerIn(big.NewInt(1), nil)},
	{xsd.NegativeInteger, integerIn(nil, big.NewInt(-1))},
	{xsd.NonNegativeInteger, integerIn(big.NewInt(0), nil)},
	{xsd.NonPositiveInteger, integerIn(nil, big.NewInt(0))},
	{xsd.UnsignedInt, integerIn(big.NewInt(0), big.NewInt(math.MaxUint32))},
	{xsd.Decimal, validateDecimal},
	{xsd.Float, validateFloat},
	{xsd.Double, validateFloat},
	{xsd.Date, validateDate},
	{xsd.DateTime, validateDateTime},
	{xsd.Time, validateTime},
	{xsd.GYear, validateGYear},
	{xsd.GYearMonth, validateGYearMonth},
	{xsd.Duration, validateDuration},
	{xsd.HexBinary, validateHexBinary},
	{xsd.Base64Binary, validateBase64Binary},
}

// inferenceOrder lists the datatypes tried by Infer, most specific first.
var inferenceOrder = []graph.IRI{
	xsd.Integer,
	xsd.Decimal,
	xsd.Boolean,
	xsd.DateTime,
	xsd.Date,
	xsd.GYearMonth,
	xsd.GYear,
	xsd.AnyURI,
}

var byDatatype = func() map[graph.IRI]Validator {
	m := make(map[graph.IRI]Validator, len(Table))
	for _, e := range Table {
		m[e.Datatype] = e.Validator
	}
	return m
}()

// Lookup returns the validator for a datatype.
func Lookup(datatype graph.IRI) (Validator, bool) {
	v, ok := byDatatype[datatype]
	return v, ok
}

// Known reports whether the table has a validator for the datatype.
func Known(datatype graph.IRI) bool {
	_, ok := byDatatype[datatype]
	return ok
}

// Validate checks a value against one datatype. Datatypes missing from the
// table accept the value unchanged.
func Validate(value string, datatype graph.IRI) (graph.Literal, bool) {
	v, ok := byDatatype[datatype]
	if !ok {
		return graph.NewTypedLiteral(value, datatype), true
	}
	canonical, ok := v(value)
	if !ok {
		return graph.Literal{}, false
	}
	return graph.NewTypedLiteral(canonical, datatype), true
}

// Convert tries the datatypes in order and returns the literal produced by
// the first one that accepts the value.
func Convert(value string, datatypes ...graph.IRI) (graph.Literal, bool) {
	for _, dt := range datatypes {
		if lit, ok := Validate(value, dt); ok {
			return lit, true
		}
	}
	return graph.Literal{}, false
}

// Infer picks a datatype for an untyped value. Values matching none of the
// specific datatypes are strings.
func Infer(value string) graph.IRI {
	for _, dt := range inferenceOrder {
		if _, ok := byDatatype[dt](value); ok {
			return dt
		}
	}
	return xsd.String
}

func validateString(value string) (string, bool) {
	return value, true
}

func validateNormalizedString(value string) (string, bool) {
	if strings.ContainsAny(value, "\r\n\t") {
		return "", false
	}
	return value, true
}

func validateToken(value string) (string, bool) {
	if _, ok := validateNormalizedString(value); !ok {
		return "", false
	}
	if strings.TrimSpace(value) != value || strings.Contains(value, "  ") {
		return "", false
	}
	return value, true
}

var languagePattern = regexp.MustCompile(`^[a-zA-Z]{1,8}(-[a-zA-Z0-9]{1,8})*$`)

func validateLanguage(value string) (string, bool) {
	if !languagePattern.MatchString(value) {
		return "", false
	}
	return value, true
}

func validateAnyURI(value string) (string, bool) {
	if !graph.LooksLikeIRI(value) {
		return "", false
	}
	if _, err := url.Parse(value); err != nil {
		return "", false
	}
	return value, true
}

func validateBoolean(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return "true", true
	case "false", "0":
		return "false", true
	default:
		return "", false
	}
}

var integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)

// integerIn builds an integer validator with optional inclusive bounds.
func integerIn(minValue, maxValue *big.Int) Validator {
	return func(value string) (string, bool) {
		value = strings.TrimSpace(value)
		if !integerPattern.MatchString(value) {
			return "", false
		}
		n, ok := new(big.Int).SetString(strings.TrimPrefix(value, "+"), 10)
		if !ok {
			return "", false
		}
		if minValue != nil && n.Cmp(minValue) < 0 {
			return "", false
		}
		if maxValue != nil && n.Cmp(maxValue) > 0 {
			return "", false
		}
		return n.String(), true
	}
}

var decimalPattern = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

func validateDecimal(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !decimalPattern.MatchString(value) {
		return "", false
	}
	return strings.TrimPrefix(value, "+"), true
}

func validateFloat(value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch value {
	case "INF", "+INF", "-INF", "NaN":
		return value, true
	}
	if strings.ContainsAny(value, "xXpP_") {
		return "", false
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return "", false
	}
	return value, true
}

const timezone = `(Z|[+-](0[0-9]|1[0-3]):[0-5][0-9]|[+-]14:00)?`

var (
	datePattern       = regexp.MustCompile(`^(-?[0-9]{4,})-([0-9]{2})-([0-9]{2})` + timezone + `$`)
	dateTimePattern   = regexp.MustCompile(`^-?[0-9]{4,}-[0-9]{2}-[0-9]{2}T([0-9]{2}):([0-9]{2}):([0-9]{2})(\.[0-9]+)?` + timezone + `$`)
	timePattern       = regexp.MustCompile(`^([0-9]{2}):([0-9]{2}):([0-9]{2})(\.[0-9]+)?` + timezone + `$`)
	gYearPattern      = regexp.MustCompile(`^-?[0-9]{4,}` + timezone + `$`)
	gYearMonthPattern = regexp.MustCompile(`^-?[0-9]{4,}-(0[1-9]|1[0-2])` + timezone + `$`)
	durationPattern   = regexp.MustCompile(`^-?P([0-9]+Y)?([0-9]+M)?([0-9]+D)?(T([0-9]+H)?([0-9]+M)?([0-9]+(\.[0-9]+)?S)?)?$`)
)

func validateDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	m := datePattern.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	year, err := strconv.Atoi(strings.TrimPrefix(m[1], "-"))
	if err != nil {
		return "", false
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if !validDay(year, month, day) {
		return "", false
	}
	return value, true
}

func validateDateTime(value string) (string, bool) {
	value = strings.TrimSpace(value)
	m := dateTimePattern.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	datePart := value[:strings.Index(value, "T")]
	if _, ok := validateDate(datePart); !ok {
		return "", false
	}
	if !validClock(m[1], m[2], m[3]) {
		return "", false
	}
	return value, true
}

func validateTime(value string) (string, bool) {
	value = strings.TrimSpace(value)
	m := timePattern.FindStringSubmatch(value)
	if m == nil || !validClock(m[1], m[2], m[3]) {
		return "", false
	}
	return value, true
}

func validateGYear(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !gYearPattern.MatchString(value) {
		return "", false
	}
	return value, true
}

func validateGYearMonth(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !gYearMonthPattern.MatchString(value) {
		return "", false
	}
	return value, true
}

func validateDuration(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !durationPattern.MatchString(value) {
		return "", false
	}
	body := strings.TrimPrefix(value, "-")
	if body == "P" || strings.HasSuffix(body, "T") {
		return "", false
	}
	return value, true
}

func validateHexBinary(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if _, err := hex.DecodeString(value); err != nil {
		return "", false
	}
	return strings.ToUpper(value), true
}

func validateBase64Binary(value string) (string, bool) {
	compact := strings.Join(strings.Fields(value), "")
	if _, err := base64.StdEncoding.DecodeString(compact); err != nil {
		return "", false
	}
	return compact, true
}

func validDay(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	// time.Date normalizes overflowing days into the next month.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day
}

func validClock(hh, mm, ss string) bool {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	if h == 24 {
		return m == 0 && s == 0
	}
	return h < 24 && m < 60 && s < 60
}
