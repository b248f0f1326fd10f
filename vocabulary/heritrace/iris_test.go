package heritrace

import (
	"strings"
	"testing"
)

func TestPredicatesInNamespace(t *testing.T) {
	tests := []struct {
		iri       string
		namespace string
	}{
		{Title, DCTermsNamespace},
		{Description, DCTermsNamespace},
		{Name, FOAFNamespace},
		{GivenName, FOAFNamespace},
		{PublicationDate, PRISMNamespace},
		{UsesIDScheme, DataCiteNamespace},
		{IsHeldBy, PRONamespace},
	}

	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			if !strings.HasPrefix(tt.iri, tt.namespace) {
				t.Errorf("%s is not in namespace %s", tt.iri, tt.namespace)
			}
		})
	}
}
