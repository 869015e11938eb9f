package internal

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Epoch values above this are milliseconds
const millisecondsThreshold = 1e12

const displayTimeLayout = "2006-01-02 15:04:05"

// FormatDisplayTimestamp formats an epoch value (seconds or milliseconds) as
// a UTC "YYYY-MM-DD HH:MM:SS" string. Non-numeric values are returned as is
// and an empty value is "Unknown".
func FormatDisplayTimestamp(value string) string {
	if value == "" {
		return "Unknown"
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value
	}
	if n > millisecondsThreshold {
		n /= 1000
	}
	sec := int64(n)
	nsec := int64((n - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC().Format(displayTimeLayout)
}

var (
	creatingLink = regexp.MustCompile(`\*Creating \[\]\(file://[^)]+/([^/)]+)\)\*`)
	readingLink  = regexp.MustCompile(`\*Reading \[\]\(file://[^)]+/([^/)]+)\)\*`)
	editedCode   = regexp.MustCompile("\\*Edited `([^`]+)`\\*")
)

// normalizeRenderedContent shortens the tool progress lines the editor emits:
// file links become leaf names and backticks inside italics are dropped.
func normalizeRenderedContent(content string) string {
	content = creatingLink.ReplaceAllString(content, "*Creating $1*")
	content = readingLink.ReplaceAllString(content, "*Reading $1*")
	content = editedCode.ReplaceAllString(content, "*Edited $1*")
	return content
}

// decodeWorkspacePath undoes percent-encoding such as c%3A
func decodeWorkspacePath(path string) string {
	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}
