package confluence

import (
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
)

// spaceContentEndpoint returns the (v1) API endpoint to list content in a space:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content/#api-wiki-rest-api-content-get
func (a *API) spaceContentEndpoint(opts SpaceContentQuery) (*url.URL, error) {
	if opts.SpaceKey == "" {
		return nil, fmt.Errorf("confluence: please provide a space key to list pages")
	}
	return a.endpointWithQuery("rest/api/content", opts)
}

// descendantsEndpoint returns the (v1) API endpoint listing every page below a page:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content---children-and-descendants/#api-wiki-rest-api-content-id-descendant-type-get
func (a *API) descendantsEndpoint(opts DescendantsQuery) (*url.URL, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("confluence: please provide ID to list descendants")
	}
	return a.endpointWithQuery(fmt.Sprintf("rest/api/content/%s/descendant/page", url.PathEscape(opts.ID)), opts)
}

// searchEndpoint returns the (v1) CQL search endpoint:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content/#api-wiki-rest-api-content-search-get
func (a *API) searchEndpoint(opts SearchQuery) (*url.URL, error) {
	if opts.CQL == "" {
		return nil, fmt.Errorf("confluence: please provide a CQL query")
	}
	return a.endpointWithQuery("rest/api/content/search", opts)
}

// contentByIDEndpoint returns the (v1) API endpoint to download one page:
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-content/#api-wiki-rest-api-content-id-get
func (a *API) contentByIDEndpoint(opts ContentByIDQuery) (*url.URL, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("confluence: please provide ID to get page by ID")
	}
	return a.endpointWithQuery(fmt.Sprintf("rest/api/content/%s", url.PathEscape(opts.ID)), opts)
}

// spacesEndpoint returns the (v1) API endpoint to list spaces
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-space/#api-wiki-rest-api-space-get
func (a *API) spacesEndpoint(opts SpacesQuery) (*url.URL, error) {
	return a.endpointWithQuery("rest/api/space", opts)
}

// currentUserEndpoint returns the (v1) API endpoint to query current user
// https://developer.atlassian.com/cloud/confluence/rest/v1/api-group-users/#api-wiki-rest-api-user-current-get
//
// This API is supported.
func (a *API) currentUserEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("rest/api/user/current")
}

func (a *API) endpointWithQuery(endpoint string, opts interface{}) (*url.URL, error) {
	ep, err := a.resolveEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// Do a bit of error checking on endpoint format, and return it relative to the base URI.  Endpoints
// are relative so that a base URI with a path (like /wiki/) is kept.
func (a *API) resolveEndpoint(endpoint string) (*url.URL, error) {
	if a.BaseURI == nil {
		return nil, fmt.Errorf("confluence: no base URI configured")
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("confluence: failed to parse endpoint ref: %w", err)
	}

	return a.BaseURI.ResolveReference(ref), nil
}
