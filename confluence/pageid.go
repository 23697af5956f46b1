package confluence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrShortLink is returned for /x/ tiny links, which the REST API cannot resolve.
var ErrShortLink = errors.New("confluence: short links (/x/...) can't be resolved, open it in a browser and copy the full URL")

var (
	numericID     = regexp.MustCompile(`^\d+$`)
	pageIDParam   = regexp.MustCompile(`pageId=(\d+)`)
	pagesPathPart = regexp.MustCompile(`/pages/(\d+)`)
	shortLink     = regexp.MustCompile(`/x/[\w-]+`)
	spacesPart    = regexp.MustCompile(`/spaces/([^/?#]+)`)
)

// ParsePageID extracts a page ID from a bare ID or any of the usual page URL shapes.
func ParsePageID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", fmt.Errorf("confluence: empty page reference")
	case numericID.MatchString(ref):
		return ref, nil
	}

	if m := pageIDParam.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if m := pagesPathPart.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if shortLink.MatchString(ref) {
		return "", ErrShortLink
	}
	return "", fmt.Errorf("confluence: couldn't find a page ID in %q", ref)
}

// SpaceKeyFromURL returns the space key of a /spaces/KEY/... URL, or the input when it already
// looks like a key.
func SpaceKeyFromURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if m := spacesPart.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	return ref
}
