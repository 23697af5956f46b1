package confluence

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const pageLimit = 50

// ListSpacePages returns every page in a space, following pagination until Confluence stops
// offering a next link.
func (api *API) ListSpacePages(ctx context.Context, spaceKey string) ([]PageRef, error) {
	q := SpaceContentQuery{
		SpaceKey:   spaceKey,
		Type:       "page",
		Status:     "current",
		Expand:     listExpand,
		Pagination: Pagination{Limit: pageLimit},
	}

	refs, err := api.collect(ctx, &q.Pagination, func() (*url.URL, error) {
		return api.spaceContentEndpoint(q)
	})
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't list pages in space %s: %w", spaceKey, err)
	}
	return refs, nil
}

// ListDescendants returns the page itself followed by every page below it.
func (api *API) ListDescendants(ctx context.Context, pageID string) ([]PageRef, error) {
	var parent Content
	ep, err := api.contentByIDEndpoint(ContentByIDQuery{ID: pageID, Expand: listExpand})
	if err != nil {
		return nil, err
	}
	if err := api.getJSON(ctx, ep, &parent); err != nil {
		return nil, fmt.Errorf("confluence: couldn't fetch parent page %s: %w", pageID, err)
	}

	q := DescendantsQuery{
		ID:         pageID,
		Expand:     listExpand,
		Pagination: Pagination{Limit: pageLimit},
	}

	refs, err := api.collect(ctx, &q.Pagination, func() (*url.URL, error) {
		return api.descendantsEndpoint(q)
	})
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't list descendants of %s: %w", pageID, err)
	}

	return append([]PageRef{parent.Ref()}, refs...), nil
}

// SearchByTitle runs a fuzzy CQL title search restricted to pages.  Bodies are not fetched.
func (api *API) SearchByTitle(ctx context.Context, title string) ([]PageRef, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("confluence: search title is empty")
	}

	q := SearchQuery{
		CQL:        TitleCQL(title),
		Expand:     listExpand,
		Pagination: Pagination{Limit: pageLimit},
	}

	refs, err := api.collect(ctx, &q.Pagination, func() (*url.URL, error) {
		return api.searchEndpoint(q)
	})
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't search for %q: %w", title, err)
	}
	return refs, nil
}

// TitleCQL builds the CQL expression used by SearchByTitle.
func TitleCQL(title string) string {
	esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(title)
	return fmt.Sprintf(`title~"%s" and type=page`, esc)
}

// FetchContent downloads one page with its storage body and ancestor metadata.
func (api *API) FetchContent(ctx context.Context, pageID string) (*PageContent, error) {
	ep, err := api.contentByIDEndpoint(ContentByIDQuery{ID: pageID, Expand: contentExpand})
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't get single page endpoint: %w", err)
	}

	var c Content
	if err := api.getJSON(ctx, ep, &c); err != nil {
		return nil, fmt.Errorf("confluence: couldn't fetch page %s: %w", pageID, err)
	}

	return &PageContent{PageRef: c.Ref(), Storage: c.Body.Storage.Value}, nil
}

func (api *API) ListAllSpaces(ctx context.Context, includePersonal bool) (map[string]Space, error) {
	spaces := map[string]Space{}

	query := SpacesQuery{
		Status:     "current",
		Pagination: Pagination{Limit: pageLimit},
	}

	if !includePersonal {
		// Logic here is a bit confusing.  The `type` parameter may be "global", "personal", or
		// nothing at all for both.  "global" will return spaces like DRE, CORE, etc., while
		// "personal" returns each user's space.  Leaving it empty gives us everything, so we only
		// set this if we _do not_ intend to include personal spaces in our query.
		query.Type = "global"
	}

	for {
		ep, err := api.spacesEndpoint(query)
		if err != nil {
			return nil, fmt.Errorf("confluence: couldn't get spaces endpoint: %w", err)
		}

		var list SpaceList
		if err := api.getJSON(ctx, ep, &list); err != nil {
			return nil, fmt.Errorf("confluence: couldn't list spaces: %w", err)
		}

		for _, space := range list.Results {
			spaces[space.Key] = space
		}

		more, err := advance(&query.Pagination, list.Links.Next, len(list.Results))
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	return spaces, nil
}

// CurrentUser return current user information
func (api *API) CurrentUser(ctx context.Context) (*User, error) {
	ep, err := api.currentUserEndpoint()
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't get current user endpoint: %w", err)
	}

	var user User
	if err := api.getJSON(ctx, ep, &user); err != nil {
		return nil, fmt.Errorf("confluence: couldn't fetch current user: %w", err)
	}

	return &user, nil
}

// collect drains a paginated content listing.  endpoint is re-evaluated after p is advanced.
func (api *API) collect(ctx context.Context, p *Pagination, endpoint func() (*url.URL, error)) ([]PageRef, error) {
	var refs []PageRef
	seen := map[string]bool{}

	for {
		ep, err := endpoint()
		if err != nil {
			return nil, err
		}

		var list ContentList
		if err := api.getJSON(ctx, ep, &list); err != nil {
			return nil, err
		}

		for _, c := range list.Results {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			refs = append(refs, c.Ref())
		}

		more, err := advance(p, list.Links.Next, len(list.Results))
		if err != nil {
			return nil, err
		}
		if !more {
			return refs, nil
		}
	}
}

// advance moves p to the page referenced by next.  It reports false once there is no next page.
func advance(p *Pagination, next string, got int) (bool, error) {
	if next == "" {
		return false, nil
	}

	q, err := url.Parse(next)
	if err != nil {
		return false, fmt.Errorf("confluence: couldn't parse _links.next: %w", err)
	}
	params := q.Query()

	if cursor := params.Get("cursor"); cursor != "" {
		if cursor == p.Cursor {
			return false, fmt.Errorf("confluence: pagination cursor did not advance")
		}
		p.Cursor = cursor
		return true, nil
	}

	if start := params.Get("start"); start != "" {
		n, err := strconv.Atoi(start)
		if err != nil {
			return false, fmt.Errorf("confluence: bad 'start' in _links.next: %w", err)
		}
		if n <= p.Start {
			return false, fmt.Errorf("confluence: pagination start did not advance")
		}
		p.Start = n
		return true, nil
	}

	if got == 0 {
		return false, fmt.Errorf("confluence: expected parameter 'start' or 'cursor' was empty")
	}
	p.Start += got
	return true, nil
}
