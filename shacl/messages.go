package shacl

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. The English text doubles as the catalog key.
const (
	msgMaxCount     = "The property %s allows at most %d value(s)"
	msgMinCount     = "The property %s requires at least %d value(s)"
	msgNotAllowed   = "The value %s is not allowed for %s. Allowed values: %s"
	msgPattern      = "The value %s for %s does not match the required format %s"
	msgNotResource  = "The value %s for %s must be the URI of a resource"
	msgWrongClass   = "The resource %s must be an instance of %s"
	msgDatatype     = "The value %s is not valid for %s. Expected: %s"
	msgUnknownValue = "The value %s for %s must be a literal"
)

// SupportedLanguages are the languages with a message catalog. The first one
// is the fallback.
var SupportedLanguages = []language.Tag{language.English, language.Italian}

var matcher = language.NewMatcher(SupportedLanguages)

func init() {
	it := language.Italian
	for key, msg := range map[string]string{
		msgMaxCount:     "La proprietà %s ammette al massimo %d valore/i",
		msgMinCount:     "La proprietà %s richiede almeno %d valore/i",
		msgNotAllowed:   "Il valore %s non è ammesso per %s. Valori ammessi: %s",
		msgPattern:      "Il valore %s per %s non rispetta il formato richiesto %s",
		msgNotResource:  "Il valore %s per %s deve essere l'URI di una risorsa",
		msgWrongClass:   "La risorsa %s deve essere un'istanza di %s",
		msgDatatype:     "Il valore %s non è valido per %s. Tipo atteso: %s",
		msgUnknownValue: "Il valore %s per %s deve essere un letterale",
	} {
		if err := message.SetString(it, key, msg); err != nil {
			panic(err)
		}
	}
}

// MatchLanguage picks the best supported language for a list of preferences,
// each either a BCP 47 tag or a full Accept-Language header. Unparseable or
// empty input falls back to English.
func MatchLanguage(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return SupportedLanguages[0]
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return SupportedLanguages[0]
	}
	return SupportedLanguages[idx]
}

func printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
