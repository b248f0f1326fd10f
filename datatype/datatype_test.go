package datatype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary/xsd"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		datatype  graph.IRI
		value     string
		wantOK    bool
		canonical string
	}{
		{"string accepts anything", xsd.String, "any\nthing", true, "any\nthing"},
		{"normalizedString rejects newline", xsd.NormalizedString, "a\nb", false, ""},
		{"token rejects double space", xsd.Token, "a  b", false, ""},
		{"language tag", xsd.Language, "en-GB", true, "en-GB"},
		{"anyURI", xsd.AnyURI, "https://doi.org/10.1000/1", true, "https://doi.org/10.1000/1"},
		{"anyURI rejects plain text", xsd.AnyURI, "not a uri", false, ""},
		{"boolean canonical", xsd.Boolean, "TRUE", true, "true"},
		{"boolean numeric", xsd.Boolean, "0", true, "false"},
		{"boolean rejects words", xsd.Boolean, "yes", false, ""},
		{"integer strips plus and zeros", xsd.Integer, "+007", true, "7"},
		{"integer rejects decimal", xsd.Integer, "1.5", false, ""},
		{"big integer", xsd.Integer, "123456789012345678901234567890", true, "123456789012345678901234567890"},
		{"int overflow", xsd.Int, "2147483648", false, ""},
		{"byte in range", xsd.Byte, "-128", true, "-128"},
		{"positiveInteger rejects zero", xsd.PositiveInteger, "0", false, ""},
		{"nonNegativeInteger accepts zero", xsd.NonNegativeInteger, "0", true, "0"},
		{"negativeInteger", xsd.NegativeInteger, "-3", true, "-3"},
		{"unsignedInt rejects negative", xsd.UnsignedInt, "-1", false, ""},
		{"decimal", xsd.Decimal, "+3.14", true, "3.14"},
		{"decimal rejects exponent", xsd.Decimal, "1e3", false, ""},
		{"double exponent", xsd.Double, "1.5E3", true, "1.5E3"},
		{"double special", xsd.Double, "-INF", true, "-INF"},
		{"float rejects hex", xsd.Float, "0x1p3", false, ""},
		{"date", xsd.Date, "2024-02-29", true, "2024-02-29"},
		{"date not leap", xsd.Date, "2023-02-29", false, ""},
		{"date with timezone", xsd.Date, "2024-01-31Z", true, "2024-01-31Z"},
		{"dateTime", xsd.DateTime, "2024-01-31T10:20:30.5+02:00", true, "2024-01-31T10:20:30.5+02:00"},
		{"dateTime bad hour", xsd.DateTime, "2024-01-31T25:00:00", false, ""},
		{"time", xsd.Time, "24:00:00", true, "24:00:00"},
		{"gYear", xsd.GYear, "1999", true, "1999"},
		{"gYear rejects short", xsd.GYear, "99", false, ""},
		{"gYearMonth", xsd.GYearMonth, "1999-12", true, "1999-12"},
		{"gYearMonth bad month", xsd.GYearMonth, "1999-13", false, ""},
		{"duration", xsd.Duration, "P1Y2M3DT4H5M6.5S", true, "P1Y2M3DT4H5M6.5S"},
		{"duration empty", xsd.Duration, "P", false, ""},
		{"duration dangling T", xsd.Duration, "P1DT", false, ""},
		{"hexBinary", xsd.HexBinary, "0fa1", true, "0FA1"},
		{"hexBinary odd length", xsd.HexBinary, "abc", false, ""},
		{"base64Binary", xsd.Base64Binary, "aGVs bG8=", true, "aGVsbG8="},
		{"unknown datatype accepted", "http://example.org/custom", "whatever", true, "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lit, ok := Validate(tt.value, tt.datatype)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.canonical, lit.Value)
				assert.Equal(t, tt.datatype, lit.Datatype)
			}
		})
	}
}

func TestConvertFirstMatchWins(t *testing.T) {
	lit, ok := Convert("2024", xsd.Date, xsd.GYear, xsd.Integer)
	assert.True(t, ok)
	assert.Equal(t, graph.IRI(xsd.GYear), lit.Datatype)

	_, ok = Convert("not-a-date", xsd.Date, xsd.GYear)
	assert.False(t, ok)

	_, ok = Convert("anything")
	assert.False(t, ok, "no datatypes means nothing can accept the value")
}

func TestInfer(t *testing.T) {
	tests := map[string]graph.IRI{
		"42":                  xsd.Integer,
		"4.2":                 xsd.Decimal,
		"true":                xsd.Boolean,
		"2024-01-31T10:00:00": xsd.DateTime,
		"2024-01-31":          xsd.Date,
		"2024-01":             xsd.GYearMonth,
		"https://example.org": xsd.AnyURI,
		"Alan Turing":         xsd.String,
	}
	for value, want := range tests {
		t.Run(value, func(t *testing.T) {
			assert.Equal(t, want, Infer(value))
		})
	}
}

func TestTableIsComplete(t *testing.T) {
	for _, e := range Table {
		assert.True(t, Known(e.Datatype), "%s must be indexed", e.Datatype)
		_, ok := Lookup(e.Datatype)
		assert.True(t, ok)
	}
	assert.False(t, Known("http://example.org/unknown"))
}
