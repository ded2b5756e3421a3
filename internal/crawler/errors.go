package crawler

import "errors"

var (
	// ErrSeedUnreachable is returned when the seed URL cannot be fetched or
	// is disallowed by robots.txt. It is the only fatal crawl error.
	ErrSeedUnreachable = errors.New("seed URL is unreachable")

	// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed URL")
)
