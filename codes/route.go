// Package codes classifies packages by route and derives the canonical and short
// product codes.
package codes

import (
	"slices"
	"strings"
)

// simplifiedRoutes are checked in order; the first one contained in a route
// name replaces it.
var simplifiedRoutes = []string{"INTRAMUSCULAR", "EPIDURAL", "INTRAVENOUS", "INFILTRATION"}

var injectionRoutes = []string{
	"EPIDURAL", "INFILTRATION", "INTRACAVERNOUS", "INTRADERMAL", "INTRAMUSCULAR",
	"INTRATHECAL", "INTRAVENOUS", "INTRAVENTRICULAR", "INTRAVESICAL", "INTRAVITREAL",
	"PARENTERAL", "PERINEURAL", "SUBCUTANEOUS",
}

var dropRoutes = map[string]string{
	"AURICULAR (OTIC)": "OTIC",
	"OPHTHALMIC":       "OPHTHALMIC",
	"IRRIGATION":       "IRRIGATION",
}

// routeClasses are the classes a nomenclature dose form group may not override.
var routeClasses = []string{
	"BUCCAL", "CHEWABLE", "DENTAL", "DISINTEGRATING ORAL", "DRUG IMPLANT", "GRANULE",
	"INHALANT", "INJECTABLE", "INTRAPERITONEAL", "INTRATRACHEAL", "IRRIGATION", "LOZENGE",
	"MEDICATED PAD OR TAPE", "MOUTHWASH", "MUCOSAL", "NASAL", "OPHTHALMIC", "ORAL",
	"ORAL CREAM", "ORAL FILM", "ORAL FOAM", "ORAL GEL", "ORAL LIQUID", "ORAL OINTMENT",
	"ORAL PASTE", "ORAL POWDER", "ORAL SPRAY", "OTIC", "PASTE", "PELLET", "PILL",
	"PYELOCALYCEAL", "RECTAL", "SHAMPOO", "SOAP", "SUBLINGUAL", "TOOTHPASTE", "TOPICAL",
	"TRANSDERMAL", "URETHRAL", "VAGINAL",
}

// FormClass collapses every injection dosage form to INJECTABLE.
func FormClass(dosageFormName string) string {
	if strings.Contains(dosageFormName, "INJECT") {
		return "INJECTABLE"
	}
	return dosageFormName
}

// SimplifyRoute reduces a multi-route name such as "INTRAVENOUS; INTRAMUSCULAR"
// to a single parenteral route.
func SimplifyRoute(routeName string) string {
	for _, r := range simplifiedRoutes {
		if strings.Contains(routeName, r) {
			return r
		}
	}
	return routeName
}

// RouteClass maps a dosage form class, a simplified route and a simplified
// package form to a coarse route class.
func RouteClass(formClass, route, doseForm string) string {
	switch {
	case formClass == "INJECTION", slices.Contains(injectionRoutes, route), doseForm == "INJECTION":
		return "INJECTABLE"
	case strings.Contains(route, "INHALATION"):
		return "INHALANT"
	}
	if class, ok := dropRoutes[route]; ok {
		return class
	}
	return formClass
}

// DosageRoute lets the nomenclature dose form group replace a form class that
// is not one of the known route classes.
func DosageRoute(formClass string, dfg *string) string {
	if dfg != nil && *dfg != "" && !slices.Contains(routeClasses, formClass) {
		return *dfg
	}
	return formClass
}

// IsRouteClass reports whether class is one of the known route classes.
func IsRouteClass(class string) bool {
	return slices.Contains(routeClasses, class)
}
