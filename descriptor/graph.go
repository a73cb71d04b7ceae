// Package descriptor refines package descriptions and dosage forms from the
// RxNorm concept graph.
package descriptor

import "github.com/openqsrx/qumi-codes/entities"

// Relationship names read from RXNREL.
const (
	RelDoseFormOf  = "dose_form_of"
	RelInverseIsa  = "inverse_isa"
	RelTradenameOf = "tradename_of"
)

// Term types read from RXNCONSO.
const (
	TTYDoseForm      = "DF"
	TTYDoseFormGroup = "DFG"
	TTYBrandedDrug   = "SBD"
	TTYClinicalDrug  = "SCD"
)

// Relations and TermTypes list what the refiner needs from the nomenclature.
var (
	Relations = []string{RelDoseFormOf, RelInverseIsa, RelTradenameOf}
	TermTypes = []string{TTYDoseForm, TTYDoseFormGroup, TTYBrandedDrug, TTYClinicalDrug}
)

// Graph is an in-memory, read-only view of the nomenclature relationships and
// concept strings. Neighbour and string lists keep table order.
type Graph struct {
	edges    map[string]map[string][]string
	concepts map[string]map[string][]string
}

// NewGraph indexes relation and concept rows.
func NewGraph(relations []entities.Relation, concepts []entities.Concept) *Graph {
	g := &Graph{
		edges:    make(map[string]map[string][]string),
		concepts: make(map[string]map[string][]string),
	}

	for _, r := range relations {
		byID, ok := g.edges[r.Rela]
		if !ok {
			byID = make(map[string][]string)
			g.edges[r.Rela] = byID
		}
		byID[r.RxCUI1] = append(byID[r.RxCUI1], r.RxCUI2)
	}

	for _, c := range concepts {
		byID, ok := g.concepts[c.TTY]
		if !ok {
			byID = make(map[string][]string)
			g.concepts[c.TTY] = byID
		}
		byID[c.RxCUI] = append(byID[c.RxCUI], c.Str)
	}

	return g
}

// Related returns the targets of rela edges leaving rxcui.
func (g *Graph) Related(rela, rxcui string) []string {
	return g.edges[rela][rxcui]
}

// String returns the first concept string of the given term type.
func (g *Graph) String(tty, rxcui string) (string, bool) {
	strs := g.concepts[tty][rxcui]
	if len(strs) == 0 {
		return "", false
	}
	return strs[0], true
}

// firstString returns the first target, in order, that has a tty string.
func (g *Graph) firstString(tty string, targets []string) (target, str string, ok bool) {
	for _, t := range targets {
		if s, found := g.String(tty, t); found {
			return t, s, true
		}
	}
	return "", "", false
}
