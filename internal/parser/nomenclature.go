package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var attorneySlugPattern = regexp.MustCompile(`/attorneys/([^/]+)\.html`)

// Nomenclature is the decomposed profile slug, e.g. 94401-ca-haitham-ballout-336338.
type Nomenclature struct {
	ID        string
	Zip       string
	State     string
	Name      string
	ProfileID string
}

// ParseNomenclature splits a slug of the form ZIP-STATE-NAME...-ID. The name
// may have any number of tokens, including none.
func ParseNomenclature(id string) (Nomenclature, bool) {
	n := Nomenclature{ID: id}
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return n, false
	}

	n.Zip = parts[0]
	n.State = strings.ToUpper(parts[1])
	n.ProfileID = parts[len(parts)-1]
	n.Name = cases.Title(language.English).String(strings.Join(parts[2:len(parts)-1], " "))
	return n, true
}

// NomenclatureFromURL extracts the slug from a profile URL. The returned value
// carries the ID whenever a slug is present, even if it does not decompose.
func NomenclatureFromURL(profileURL string) (Nomenclature, bool) {
	m := attorneySlugPattern.FindStringSubmatch(profileURL)
	if m == nil {
		return Nomenclature{}, false
	}
	n, _ := ParseNomenclature(m[1])
	return n, true
}
