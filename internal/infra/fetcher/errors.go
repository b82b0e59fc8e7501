package fetcher

import "errors"

// Sentinel errors for content fetching operations. Callers match with
// errors.Is to decide between retrying, falling back to feed summary
// text, or surfacing the failure.
var (
	// ErrInvalidURL indicates the URL could not be parsed or uses a
	// scheme other than http/https.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrBlockedURL indicates the URL targets a blocked host or a
	// private, loopback, link-local or otherwise reserved address.
	ErrBlockedURL = errors.New("blocked URL")

	// ErrTimeout indicates the fetch exceeded its deadline.
	ErrTimeout = errors.New("fetch timeout")

	// ErrBodyTooLarge indicates the response exceeded the byte cap.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTooManyRedirects indicates the redirect chain exceeded the limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrNoReadableContent indicates extraction produced no usable text.
	ErrNoReadableContent = errors.New("no readable content")
)
