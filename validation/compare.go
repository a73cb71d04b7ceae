package validation

import (
	"fmt"
	"io"
	"sort"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/interfaces"
)

// Missing marks the absent side of a change.
const Missing = "NaN"

// Change is one NDC whose short code differs between two tables.
type Change struct {
	NDC         string
	Old         string
	New         string
	Description string
	Strength    string
	Measure     string
}

// String renders the change as "NDC:\told -> new\tdescription \tstrength measure".
func (c Change) String() string {
	return fmt.Sprintf("%s:\t%s -> %s\t%s \t%s %s", c.NDC, c.Old, c.New, c.Description, c.Strength, c.Measure)
}

// Compare diffs the short codes of two tables keyed by NDC. Changes are
// ordered by NDC. The displayed fields come from the current table unless the
// NDC was removed.
func Compare(reference, current []entities.OutputRow) ([]Change, interfaces.ChurnSummary) {
	old := index(reference)
	cur := index(current)

	keys := make([]string, 0, len(old)+len(cur))
	for k := range old {
		keys = append(keys, k)
	}
	for k := range cur {
		if _, ok := old[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var changes []Change
	var summary interfaces.ChurnSummary
	for _, k := range keys {
		o, hasOld := old[k]
		n, hasNew := cur[k]

		switch {
		case !hasOld:
			summary.Added++
			changes = append(changes, change(k, Missing, n.QumiCode, n))
		case !hasNew:
			summary.Removed++
			changes = append(changes, change(k, o.QumiCode, Missing, o))
		case o.QumiCode != n.QumiCode:
			summary.Changed++
			changes = append(changes, change(k, o.QumiCode, n.QumiCode, n))
		}
	}
	return changes, summary
}

func change(code, oldCode, newCode string, shown *entities.OutputRow) Change {
	return Change{
		NDC:         code,
		Old:         oldCode,
		New:         newCode,
		Description: shown.Description,
		Strength:    shown.Strength,
		Measure:     shown.Measure,
	}
}

// index keeps the first row of each NDC.
func index(rows []entities.OutputRow) map[string]*entities.OutputRow {
	m := make(map[string]*entities.OutputRow, len(rows))
	for i := range rows {
		if _, ok := m[rows[i].NDC]; !ok {
			m[rows[i].NDC] = &rows[i]
		}
	}
	return m
}

// PrintChanges writes one line per change.
func PrintChanges(w io.Writer, changes []Change) error {
	for _, c := range changes {
		if _, err := fmt.Fprintln(w, c.String()); err != nil {
			return err
		}
	}
	return nil
}
