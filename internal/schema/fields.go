// Package schema defines the column vocabulary of an import file: the closed
// set of core record fields, the reserved marker columns, and the taxonomy
// names the importer writes to.
package schema

// FieldType represents the storage type of a core record field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldDate
	FieldEnum
	FieldList // comma-separated list of names
	FieldMap  // JSON object of taxonomy -> terms
)

// FieldSpec describes one core record field.
type FieldSpec struct {
	Name       string    // Column header name (must match CSV exactly)
	Type       FieldType // Storage type
	EnumValues []string  // Valid values for FieldEnum type
}

// Reserved marker columns.
const (
	// AttachmentColumn names the single media file for a record.
	AttachmentColumn = "_attachment"

	// TagColumn may repeat; every occurrence contributes one tag.
	TagColumn = "_tag"
)

// Taxonomies and reserved metadata keys written by the importer.
const (
	TagTaxonomy      = "post_tag"
	CategoryTaxonomy = "category"
	ThumbnailMetaKey = "_thumbnail_id"
)

// Field names referenced by name elsewhere in the module.
const (
	ColumnID     = "ID"
	ColumnTitle  = "post_title"
	ColumnType   = "post_type"
	ColumnStatus = "post_status"
)

// CoreFieldSpecs is the closed set of record attributes a CSV column can
// address directly. Header matching is exact and case-sensitive.
var CoreFieldSpecs = []FieldSpec{
	{Name: "ID", Type: FieldInt},
	{Name: "menu_order", Type: FieldInt},
	{Name: "comment_status", Type: FieldEnum, EnumValues: []string{"open", "closed"}},
	{Name: "ping_status", Type: FieldEnum, EnumValues: []string{"open", "closed"}},
	{Name: "pinged", Type: FieldText},
	{Name: "post_author", Type: FieldInt},
	{Name: "post_category", Type: FieldList},
	{Name: "post_content", Type: FieldText},
	{Name: "post_date", Type: FieldDate},
	{Name: "post_date_gmt", Type: FieldDate},
	{Name: "post_excerpt", Type: FieldText},
	{Name: "post_name", Type: FieldText},
	{Name: "post_parent", Type: FieldInt},
	{Name: "post_password", Type: FieldText},
	{Name: "post_status", Type: FieldText},
	{Name: "post_title", Type: FieldText},
	{Name: "post_type", Type: FieldText},
	{Name: "tags_input", Type: FieldList},
	{Name: "to_ping", Type: FieldText},
	{Name: "tax_input", Type: FieldMap},
}

var coreFieldIndex = func() map[string]FieldSpec {
	idx := make(map[string]FieldSpec, len(CoreFieldSpecs))
	for _, spec := range CoreFieldSpecs {
		idx[spec.Name] = spec
	}
	return idx
}()

// IsCoreField reports whether name is one of the core record fields.
func IsCoreField(name string) bool {
	_, ok := coreFieldIndex[name]
	return ok
}

// Spec returns the FieldSpec for a core field name.
func Spec(name string) (FieldSpec, bool) {
	spec, ok := coreFieldIndex[name]
	return spec, ok
}
