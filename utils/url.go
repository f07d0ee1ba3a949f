package utils

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"splitget/internal"
)

// unsafeFilenameChars matches characters that are not allowed in a local file name
var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// URLValidator handles URL validation and file name derivation for download links
type URLValidator struct {
	allowedSchemes []string
}

// NewURLValidator creates a new URL validator accepting http and https links
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
	}
}

// ValidateURL checks that rawURL is an absolute http(s) URL with a host
func (v *URLValidator) ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return internal.NewValidationError("url", "URL cannot be empty").
			WithSuggestion("Provide the address of the file to download")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return internal.NewInvalidURLError(rawURL, fmt.Sprintf("invalid URL format: %v", err))
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	allowed := false
	for _, s := range v.allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return internal.NewInvalidURLError(rawURL, "URL must use http or https protocol")
	}

	if parsedURL.Hostname() == "" {
		return internal.NewInvalidURLError(rawURL, "URL has no host")
	}

	return nil
}

// FilenameFromURL returns the decoded last non-empty path segment of rawURL,
// or "" when the path has no usable segment.
func FilenameFromURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return SanitizeFilename(path.Base(strings.TrimRight(parsedURL.Path, "/")))
}

// ResolveFilename picks the name of the local file: the final URL after
// redirects first, then the requested URL.
func ResolveFilename(finalURL, requestURL string) string {
	if name := FilenameFromURL(finalURL); name != "" {
		return name
	}
	return FilenameFromURL(requestURL)
}

// SanitizeFilename strips characters that cannot appear in a local file name.
// Empty names and names that would refer to a directory come back empty.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
