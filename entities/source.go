package entities

// RegistryRow is one row of an FDA directory table, keyed by header name.
type RegistryRow map[string]string

// NDCLink is one row of the nomenclature NDC table.
type NDCLink struct {
	NDC   string
	RxCUI string
}

// Relation is one nomenclature relationship: RxCUI2 is Rela of RxCUI1.
type Relation struct {
	RxCUI1 string
	RxCUI2 string
	Rela   string
}

// Concept is one nomenclature concept string.
type Concept struct {
	RxCUI string
	Str   string
	TTY   string
}

// Dataset bundles every input of a pipeline run.
type Dataset struct {
	Packages  []RegistryRow
	Products  []RegistryRow
	NDCLinks  []NDCLink
	Relations []Relation
	Concepts  []Concept
}
