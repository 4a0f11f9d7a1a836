package loam

// SnapshotMetadata is the frontmatter of an archived dump.
// The nodes themselves live in the document body as JSON. Loam writes
// frontmatter scalars as strings, so Count is kept in its decimal form.
type SnapshotMetadata struct {
	Name  string `json:"name" mapstructure:"name"`
	Axis  string `json:"axis" mapstructure:"axis"`
	Query string `json:"query,omitempty" mapstructure:"query"`
	Count string `json:"count" mapstructure:"count"`
}
