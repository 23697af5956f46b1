package localdump

// MarkdownHeader is the YAML front matter written at the top of each exported page.
type MarkdownHeader struct {
	Title         string   `yaml:"title"`
	ObjectID      string   `yaml:"object_id"`
	Space         string   `yaml:"space,omitempty"`
	Version       int      `yaml:"version,omitempty"`
	Timestamp     string   `yaml:"timestamp,omitempty"`
	Created       string   `yaml:"created,omitempty"`
	LastUpdatedBy string   `yaml:"last_updated_by,omitempty"`
	URI           string   `yaml:"uri,omitempty"`
	AncestorNames []string `yaml:"ancestor_names,omitempty"`
	AncestorIDs   []string `yaml:"ancestor_ids,omitempty"`
}

// LocalMarkdown is an exported file read back from disk.
type LocalMarkdown struct {
	// Nil when the file has no front matter.
	Header *MarkdownHeader

	// Markdown after the front matter.
	Body string

	Path string
}
