// Package disambiguation picks one RxNorm candidate per NDC and folds it to the
// family identifier used in canonical codes.
package disambiguation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/openqsrx/qumi-codes/entities"
)

// Resolve takes one row per (NDC, candidate) and returns one row per NDC,
// sorted by NDC, with ResolvedID set.
//
// The most frequent RxCUI+CodeDosage key wins for each NDC. Rows whose
// candidate is missing or ends in 9 are then resolved by name: first among
// rows sharing CodeDosage and lower-cased brand, then among rows sharing
// CodeDosage and substance. Finally the trailing digit is dropped.
//
// Only RxCUI, CodeDosage, the names and Seq are read, so Resolve is idempotent.
func Resolve(records []entities.PackageRecord) []entities.PackageRecord {
	kept := choose(records)

	byBrand := resolveByName(kept, ids(kept), func(r *entities.PackageRecord) string {
		return strings.ToLower(r.ProprietaryName)
	})
	bySubstance := resolveByName(kept, byBrand, func(r *entities.PackageRecord) string {
		return r.SubstanceName
	})

	for i := range kept {
		rec := &kept[i]
		resolved := rec.RxCUI
		if ambiguous(rec.RxCUI) {
			resolved = bySubstance[i]
		}
		rec.ResolvedID = fold(repairNine(rec.RxCUI, resolved))
	}
	return kept
}

type compositeKey struct {
	rxcui      string
	present    bool
	codeDosage string
}

func keyOf(r *entities.PackageRecord) compositeKey {
	return compositeKey{rxcui: entities.Value(r.RxCUI), present: r.RxCUI != nil, codeDosage: r.CodeDosage}
}

// choose keeps, for each NDC, the row whose composite key is most frequent in
// the whole input. Ties go to the lowest Seq.
func choose(records []entities.PackageRecord) []entities.PackageRecord {
	counts := make(map[compositeKey]int, len(records))
	for i := range records {
		counts[keyOf(&records[i])]++
	}

	best := make(map[string]int, len(records))
	for i := range records {
		rec := &records[i]
		j, ok := best[rec.NDC]
		if !ok {
			best[rec.NDC] = i
			continue
		}
		cur := &records[j]
		ci, cj := counts[keyOf(rec)], counts[keyOf(cur)]
		if ci > cj || (ci == cj && rec.Seq < cur.Seq) {
			best[rec.NDC] = i
		}
	}

	kept := make([]entities.PackageRecord, 0, len(best))
	for _, i := range best {
		kept = append(kept, records[i])
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].NDC < kept[j].NDC })
	return kept
}

func ids(records []entities.PackageRecord) []*string {
	out := make([]*string, len(records))
	for i := range records {
		out[i] = records[i].RxCUI
	}
	return out
}

type groupKey struct {
	codeDosage string
	name       string
}

// resolveByName gives every row the most frequent identifier of its
// (CodeDosage, name) group. Frequencies are counted over current; a missing
// identifier counts 0.
func resolveByName(records []entities.PackageRecord, current []*string, name func(*entities.PackageRecord) string) []*string {
	freq := make(map[string]int, len(current))
	for _, id := range current {
		if id != nil {
			freq[*id]++
		}
	}
	count := func(id *string) int {
		if id == nil {
			return 0
		}
		return freq[*id]
	}

	winner := make(map[groupKey]int, len(records))
	for i := range records {
		key := groupKey{codeDosage: records[i].CodeDosage, name: name(&records[i])}
		j, ok := winner[key]
		if !ok {
			winner[key] = i
			continue
		}
		ci, cj := count(current[i]), count(current[j])
		if ci > cj || (ci == cj && records[i].Seq < records[j].Seq) {
			winner[key] = i
		}
	}

	out := make([]*string, len(records))
	for i := range records {
		key := groupKey{codeDosage: records[i].CodeDosage, name: name(&records[i])}
		out[i] = current[winner[key]]
	}
	return out
}

func ambiguous(rxcui *string) bool {
	return rxcui == nil || strings.HasSuffix(*rxcui, "9")
}

// repairNine keeps a candidate ending in 9 unless the resolved identifier is
// its successor family (e.g. 12349 resolved to 12350).
func repairNine(rxcui, resolved *string) *string {
	if rxcui == nil || !strings.HasSuffix(*rxcui, "9") {
		return resolved
	}
	if resolved == nil {
		return rxcui
	}

	own, err := strconv.Atoi(prefix(*rxcui))
	if err != nil {
		return rxcui
	}
	other, err := strconv.Atoi(prefix(*resolved))
	if err != nil || own+1 != other {
		return rxcui
	}
	return resolved
}

// fold drops the trailing digit so identifiers within a range of ten share a family.
func fold(id *string) *string {
	if id == nil {
		return nil
	}
	return entities.Str(prefix(*id))
}

func prefix(id string) string {
	if id == "" {
		return id
	}
	return id[:len(id)-1]
}
