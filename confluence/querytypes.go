package confluence

// The v1 content endpoints return ancestors and history, which the v2 page API does not.  All the
// list queries share the same pagination knobs.
const (
	listExpand    = "ancestors,version,space,history,history.lastUpdated"
	contentExpand = "body.storage,ancestors,version,space,history,history.lastUpdated"
)

// Pagination holds the offset/cursor parameters lifted from a response's _links.next.
type Pagination struct {
	Start  int    `url:"start,omitempty"`
	Cursor string `url:"cursor,omitempty"`
	Limit  int    `url:"limit,omitempty"` // page limit; server caps this, commonly at 100
}

// SpaceContentQuery defines the query parameters for:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content/#api-wiki-rest-api-content-get
type SpaceContentQuery struct {
	SpaceKey string `url:"spaceKey"`
	Type     string `url:"type"` // page or blogpost
	Status   string `url:"status,omitempty"`
	Expand   string `url:"expand,omitempty"`
	Pagination
}

// DescendantsQuery defines the query parameters for:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content---children-and-descendants/#api-wiki-rest-api-content-id-descendant-type-get
type DescendantsQuery struct {
	ID     string `url:"-"` // ID of the parent page; required
	Expand string `url:"expand,omitempty"`
	Pagination
}

// SearchQuery defines the query parameters for:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content/#api-wiki-rest-api-content-search-get
type SearchQuery struct {
	CQL    string `url:"cql"`
	Expand string `url:"expand,omitempty"`
	Pagination
}

// ContentByIDQuery defines the query parameters for:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content/#api-wiki-rest-api-content-id-get
type ContentByIDQuery struct {
	ID      string `url:"-"` // ID of the page; required
	Expand  string `url:"expand,omitempty"`
	Version int    `url:"version,omitempty"` // Retrieve a previously published version.
}

// SpacesQuery defines the query parameters for:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-space/#api-wiki-rest-api-space-get
type SpacesQuery struct {
	Keys   []string `url:"spaceKey,omitempty"`
	Type   string   `url:"type,omitempty"`   // their types. Valid values: "global" or "personal"
	Status string   `url:"status,omitempty"` // their status: current, archived.
	Pagination
}
