package internal

import (
	"regexp"
	"strings"
)

var (
	fieldFilter = regexp.MustCompile(`(?i)\b(role|workspace|title|edition):(?:"([^"]*)"|(\S+))`)
	queryToken  = regexp.MustCompile(`"[^"]*"|[^\s"]+`)
)

// ParseSearchQuery splits field filters (role:, workspace:, title:, edition:)
// out of a search string. Quoted phrases survive in FTSQuery; the last value
// of a repeated field wins; role and edition are lowercased.
func ParseSearchQuery(query string) ParsedQuery {
	var parsed ParsedQuery
	for _, m := range fieldFilter.FindAllStringSubmatch(query, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		switch strings.ToLower(m[1]) {
		case "role":
			parsed.Role = strings.ToLower(value)
		case "workspace":
			parsed.Workspace = value
		case "title":
			parsed.Title = value
		case "edition":
			parsed.Edition = strings.ToLower(value)
		}
	}

	rest := fieldFilter.ReplaceAllString(query, "")
	var tokens []string
	for _, tok := range queryToken.FindAllString(rest, -1) {
		if tok == `""` {
			continue
		}
		tokens = append(tokens, tok)
	}
	parsed.FTSQuery = strings.Join(tokens, " ")
	return parsed
}

// HasFilters reports whether any field filter is set
func (q ParsedQuery) HasFilters() bool {
	return q.Role != "" || q.Workspace != "" || q.Title != "" || q.Edition != ""
}
