package confluence

// links is the pagination envelope shared by v1 list responses.
type links struct {
	// Contains the relative URL for the next set of results.  This property will not be present if
	// there is no additional data available.
	Next string `json:"next"`
}

// ContentList response type
type ContentList struct {
	Results []Content `json:"results"`
	Start   int       `json:"start"`
	Limit   int       `json:"limit"`
	Size    int       `json:"size"`
	Links   links     `json:"_links"`
}

// SpaceList response type
type SpaceList struct {
	Results []Space `json:"results"`
	Start   int     `json:"start"`
	Limit   int     `json:"limit"`
	Size    int     `json:"size"`
	Links   links   `json:"_links"`
}
