// Package formatter standardizes, sorts and persists the published code table.
package formatter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var deaSchedules = map[string]string{
	"CII":  "2",
	"CIII": "3",
	"CIV":  "4",
	"CV":   "5",
	"CVI":  "6",
}

var measureReplacer = strings.NewReplacer("ML", "mL", "MG", "mg", "MCG", "mcg", "MEQ", "mEq")

var hclReplacer = strings.NewReplacer(
	"HYDROCHLORIDE", "HCl",
	"Hydrochloride", "HCl",
	"hydrochloride", "HCl",
	"Hcl", "HCl",
)

// descriptionUnitFixes lowers unit abbreviations that sit between a space or
// slash and a space, slash or semicolon. They are applied one after another so
// that "MG/ML " becomes "mg/mL ".
var descriptionUnitFixes = func() [][2]string {
	units := [][2]string{{"ML", "mL"}, {"MG", "mg"}, {"MCG", "mcg"}, {"MEQ", "mEq"}}
	var fixes [][2]string
	for _, u := range units {
		for _, pre := range []string{" ", "/"} {
			for _, post := range []string{" ", "/", ";"} {
				fixes = append(fixes, [2]string{pre + u[0] + post, pre + u[1] + post})
			}
		}
	}
	return fixes
}()

// StandardizeDEA maps CII..CVI to 2..6. Other values pass through.
func StandardizeDEA(dea string) string {
	if n, ok := deaSchedules[strings.TrimSpace(dea)]; ok {
		return n
	}
	return dea
}

// StandardizeStrength drops a trailing ".0" from each item of a "; " list.
func StandardizeStrength(strength string) string {
	items := strings.Split(strength, "; ")
	for i, item := range items {
		if len(item) >= 2 && strings.Index(item, ".0") == len(item)-2 {
			items[i] = item[:len(item)-2]
		}
	}
	return strings.Join(items, "; ")
}

// StandardizeMeasure lowers ML, MG, MCG and MEQ.
func StandardizeMeasure(measure string) string {
	return measureReplacer.Replace(measure)
}

// ToHCl abbreviates hydrochloride.
func ToHCl(s string) string {
	return hclReplacer.Replace(s)
}

// StandardizeDescription abbreviates hydrochloride, capitalizes the first
// letter, drops ".0" before spaces and lowers unit abbreviations.
func StandardizeDescription(desc string) string {
	desc = ToHCl(desc)
	if r, size := utf8.DecodeRuneInString(desc); r != utf8.RuneError {
		desc = string(unicode.ToUpper(r)) + desc[size:]
	}
	desc = strings.ReplaceAll(desc, ".0 ", " ")
	for _, fix := range descriptionUnitFixes {
		desc = strings.ReplaceAll(desc, fix[0], fix[1])
	}
	return desc
}
