package confluence

import (
	"strings"
	"time"
)

// See https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-users/#api-wiki-rest-api-user-get
type User struct {
	Type        string `json:"type"`
	Username    string `json:"username"`
	UserKey     string `json:"userKey"`
	AccountID   string `json:"accountId"`
	AccountType string `json:"accountType"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// See https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-space/#api-wiki-rest-api-space-get.
type Space struct {
	ID     int64  `json:"id,omitempty"`
	Key    string `json:"key,omitempty"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

// Content is a v1 content object, as returned with the expansions in listExpand/contentExpand.
type Content struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"` // current, archived, deleted, trashed
	Title  string `json:"title"`

	Space     *Space     `json:"space,omitempty"`
	Ancestors []Ancestor `json:"ancestors,omitempty"`
	Version   *Version   `json:"version,omitempty"`
	History   *History   `json:"history,omitempty"`

	Body Body `json:"body"`

	Links struct {
		WebUI  string `json:"webui"`
		TinyUI string `json:"tinyui"`
	} `json:"_links"`
}

// Ancestor is the trimmed-down content object Confluence returns in the ancestors expansion.
type Ancestor struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Version defines the content version number
type Version struct {
	When      string `json:"when"`
	Message   string `json:"message,omitempty"`
	Number    int    `json:"number"`
	MinorEdit bool   `json:"minorEdit"`
	By        *User  `json:"by,omitempty"`
}

// History carries creation and view metadata.  lastViewed only shows up on some instances.
type History struct {
	CreatedDate string   `json:"createdDate"`
	CreatedBy   *User    `json:"createdBy,omitempty"`
	LastUpdated *Version `json:"lastUpdated,omitempty"`
	LastViewed  *struct {
		When string `json:"when"`
	} `json:"lastViewed,omitempty"`
}

// Body holds the storage information
type Body struct {
	Storage Storage `json:"storage"`
}

// Storage defines the storage information
type Storage struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

// PageRef is the metadata of one remote page: enough to place it on disk and report on it, without
// its body.
type PageRef struct {
	ID       string
	Title    string
	SpaceKey string

	// Root first, immediate parent last.
	AncestorTitles []string
	AncestorIDs    []string

	Version       int
	CreatedDate   time.Time
	LastUpdated   time.Time
	LastUpdatedBy string
	LastViewed    time.Time

	WebUI string
}

// PageContent is a PageRef plus its storage-format body.
type PageContent struct {
	PageRef
	Storage string
}

// Ref projects the wire representation onto a PageRef.
func (c Content) Ref() PageRef {
	ref := PageRef{
		ID:    c.ID,
		Title: c.Title,
		WebUI: c.Links.WebUI,
	}

	if c.Space != nil {
		ref.SpaceKey = c.Space.Key
	}

	for _, a := range c.Ancestors {
		ref.AncestorTitles = append(ref.AncestorTitles, a.Title)
		ref.AncestorIDs = append(ref.AncestorIDs, a.ID)
	}

	if c.Version != nil {
		ref.Version = c.Version.Number
		ref.LastUpdated = parseTime(c.Version.When)
		if c.Version.By != nil {
			ref.LastUpdatedBy = c.Version.By.DisplayName
		}
	}

	if h := c.History; h != nil {
		ref.CreatedDate = parseTime(h.CreatedDate)
		if h.LastUpdated != nil {
			if ref.LastUpdated.IsZero() {
				ref.LastUpdated = parseTime(h.LastUpdated.When)
			}
			if ref.LastUpdatedBy == "" && h.LastUpdated.By != nil {
				ref.LastUpdatedBy = h.LastUpdated.By.DisplayName
			}
		}
		if h.LastViewed != nil {
			ref.LastViewed = parseTime(h.LastViewed.When)
		}
	}
	if ref.CreatedDate.IsZero() {
		ref.CreatedDate = ref.LastUpdated
	}

	return ref
}

// Confluence mostly sends RFC 3339 with milliseconds, but older instances omit the zone colon.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
