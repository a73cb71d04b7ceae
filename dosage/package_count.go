package dosage

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	parenthesesRegex = regexp.MustCompile(`\([^)]*\)`)
	sectionRegex     = regexp.MustCompile(`^(\d+(\.\d+)?)\s*([^\d\(\)]*)\s*in\s*(\d+)\s*([^\d\(\)]*)`)
)

// measurableUnits end the count: "10 mL in 1 VIAL" describes a volume, not units.
var measurableUnits = []string{"mL", "L", "g", "mg"}

type section struct {
	count     string
	unit      string
	container string
}

func splitSections(description string) []section {
	var sections []section
	for _, part := range strings.Split(description, " / ") {
		part = parenthesesRegex.ReplaceAllString(part, "")
		m := sectionRegex.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		sections = append(sections, section{
			count:     m[1],
			unit:      strings.TrimSpace(m[3]),
			container: strings.TrimSpace(m[5]),
		})
	}
	return sections
}

// PackageCount returns the number of countable units in the outermost package.
// "10 BLISTER PACK in 1 CARTON / 10 TABLET in 1 BLISTER PACK" yields "100".
func PackageCount(description string) string {
	sections := splitSections(description)
	if len(sections) == 0 {
		return "1"
	}

	count := 1
	word := sections[0].container
	for _, s := range sections {
		if s.container != word || slices.Contains(measurableUnits, s.unit) {
			break
		}
		n, err := strconv.Atoi(s.count)
		if err != nil {
			break
		}
		count *= n
		word = s.unit
	}

	return strconv.Itoa(count)
}
