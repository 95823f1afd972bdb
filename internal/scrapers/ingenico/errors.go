package ingenico

import "errors"

var (
	// ErrTokenExtraction means the search form lacked one of the postback tokens.
	ErrTokenExtraction = errors.New("search form tokens not found")
	// ErrSearchFailed means the search post did not redirect to the results page.
	ErrSearchFailed = errors.New("search did not redirect to results")
	// ErrSessionExpired means the results page came back without the jobs table,
	// the portal serves its login page instead once the cookies expire.
	ErrSessionExpired = errors.New("ingenico session expired")
	// ErrMalformedTable means the jobs table has no header row.
	ErrMalformedTable = errors.New("jobs table has no header row")
)

// Error codes of a failed SearchResult.
const (
	CodeSessionExpired = "SESSION_EXPIRED"
	CodeUnknown        = "UNKNOWN_ERROR"
)
