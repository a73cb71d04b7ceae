package descriptor

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openqsrx/qumi-codes/entities"
)

// Synthesize builds a description for a package the nomenclature has none for,
// e.g. "Lidocaine HCl 20.0 MG/ML Vial [Xylocaine]". It reads the converted
// strength and APIMeasure, so it must run after both are set.
func Synthesize(rec *entities.PackageRecord) string {
	genericName := strings.ToLower(rec.NonProprietaryName)
	genericName = strings.ReplaceAll(genericName, ", and", ",")
	genericName = strings.ReplaceAll(genericName, " and", ",")
	genericName = strings.ReplaceAll(genericName, ", ", ",")

	names := strings.Split(genericName, ",")
	sort.Strings(names)
	substances := strings.Split(strings.ToLower(rec.SubstanceName), "; ")
	amounts := strings.Split(rec.Strength, "; ")
	units := strings.Split(rec.APIMeasure, "; ")

	prefix := ""
	labelled := true
	switch {
	case len(names) == len(amounts) && (len(names) == 1 || firstTwo(names[0]) == firstTwo(substances[0])):
	case len(substances) == len(amounts):
		names = substances
	default:
		labelled = false
		prefix = strings.ReplaceAll(genericName, ",", ", ") + " "
	}

	parts := make([]string, 0, len(amounts))
	for i, amount := range amounts {
		var b strings.Builder
		if labelled {
			b.WriteString(capitalize(names[i]))
			b.WriteString(" ")
		}
		b.WriteString(amount)
		if i < len(units) && units[i] != "" {
			b.WriteString(" ")
			b.WriteString(units[i])
		}
		parts = append(parts, b.String())
	}

	desc := prefix + strings.Join(parts, "; ")
	if form := entities.Value(rec.DosageForm); form != "" {
		desc += " " + form
	}
	if brand := rec.ProprietaryName; brand != "" && !strings.EqualFold(brand, rec.NonProprietaryName) {
		desc += " [" + title(brand) + "]"
	}
	return desc
}

func firstTwo(s string) string {
	if len(s) > 2 {
		return s[:2]
	}
	return s
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func title(s string) string {
	return cases.Title(language.Und).String(s)
}
