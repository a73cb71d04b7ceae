package entities

// OutputRow is one line of the published code table.
type OutputRow struct {
	NDC                string `validate:"required,ndc"`
	RxCUI              string `validate:"omitempty,numeric"`
	PreHashCode        string
	QumiCode           string `validate:"required,min=1,max=7,shortcode"`
	PackageCount       string `validate:"omitempty,numeric"`
	Supplier           string
	Description        string `validate:"required"`
	DosageForm         string
	DosageRoute        string
	Strength           string
	Measure            string
	ANDA               string
	GenericDescription string
	DEA                string `validate:"omitempty,oneof=2 3 4 5 6"`
}

// Columns is the header of the published table. PreHashColumn is inserted after
// RXCUI in debug mode.
var Columns = []string{
	"NDC", "RXCUI", "QUMI Code", "Package Count", "Supplier", "Description",
	"Dosage Form", "Dosage Route", "Strength", "Measure", "ANDA",
	"Generic Description", "DEA",
}

const PreHashColumn = "Pre-Hash Code"

// Field returns the value of the named column.
func (o *OutputRow) Field(column string) string {
	switch column {
	case "NDC":
		return o.NDC
	case "RXCUI":
		return o.RxCUI
	case PreHashColumn:
		return o.PreHashCode
	case "QUMI Code":
		return o.QumiCode
	case "Package Count":
		return o.PackageCount
	case "Supplier":
		return o.Supplier
	case "Description":
		return o.Description
	case "Dosage Form":
		return o.DosageForm
	case "Dosage Route":
		return o.DosageRoute
	case "Strength":
		return o.Strength
	case "Measure":
		return o.Measure
	case "ANDA":
		return o.ANDA
	case "Generic Description":
		return o.GenericDescription
	case "DEA":
		return o.DEA
	}
	return ""
}

// SetField assigns the named column. Unknown columns are ignored.
func (o *OutputRow) SetField(column, value string) {
	switch column {
	case "NDC":
		o.NDC = value
	case "RXCUI":
		o.RxCUI = value
	case PreHashColumn:
		o.PreHashCode = value
	case "QUMI Code":
		o.QumiCode = value
	case "Package Count":
		o.PackageCount = value
	case "Supplier":
		o.Supplier = value
	case "Description":
		o.Description = value
	case "Dosage Form":
		o.DosageForm = value
	case "Dosage Route":
		o.DosageRoute = value
	case "Strength":
		o.Strength = value
	case "Measure":
		o.Measure = value
	case "ANDA":
		o.ANDA = value
	case "Generic Description":
		o.GenericDescription = value
	case "DEA":
		o.DEA = value
	}
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID      string
	Rows       []OutputRow
	Collisions int
}
