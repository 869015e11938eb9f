package internal

import "strings"

type toolDisplayFormat struct {
	template string
	args     []string
}

// toolDisplayFormats maps CLI tool names to a one-line summary template.
// {short_path} is derived from the path argument, {query_short} and
// {url_short} are truncated to 80 characters.
var toolDisplayFormats = map[string]toolDisplayFormat{
	"view":          {"Viewing `{short_path}`", []string{"path"}},
	"edit":          {"Edited `{short_path}`", []string{"path"}},
	"create":        {"Created `{short_path}`", []string{"path"}},
	"grep":          {"Searching for `{pattern}` in `{short_path}`", []string{"pattern", "path"}},
	"glob":          {"Finding `{pattern}` in `{short_path}`", []string{"pattern", "path"}},
	"web_search":    {"\U0001f50d Web search: `{query_short}`", []string{"query"}},
	"web_fetch":     {"\U0001f310 Fetching `{url_short}`", []string{"url"}},
	"task":          {"\U0001f916 Agent ({agent_type}): {description}", []string{"agent_type", "description"}},
	"update_todo":   {"Updated TODO list", nil},
	"store_memory":  {"\U0001f4be Stored memory: {subject}", []string{"subject"}},
	"task_complete": {"✅ Task complete: {summary}", []string{"summary"}},
	"sql":           {"\U0001f5c4️ SQL: {description}", []string{"description"}},
}

const displayTruncate = 80

// FormatToolDisplay renders a short human description of a tool call
func FormatToolDisplay(toolName string, args map[string]interface{}, description string) string {
	if f, ok := toolDisplayFormats[toolName]; ok {
		subs := make(map[string]string, len(f.args)+2)
		for _, key := range f.args {
			subs[key] = getText(args, key)
		}
		if _, ok := args["path"]; ok {
			subs["short_path"] = baseName(getText(args, "path"))
		}
		for _, key := range []string{"query", "url"} {
			if val, ok := subs[key]; ok {
				subs[key+"_short"] = truncate(val, displayTruncate)
			}
		}
		if s, ok := expandTemplate(f.template, subs); ok {
			return s
		}
	}

	if toolName == "str_replace_editor" {
		path := baseName(getText(args, "path"))
		switch getText(args, "command") {
		case "create":
			return "Created `" + path + "`"
		case "str_replace":
			return "Edited `" + path + "`"
		}
		return "Viewing `" + path + "`"
	}

	if description != "" {
		return description
	}
	return toolName
}

// expandTemplate substitutes {name} placeholders; ok is false if any name has no value
func expandTemplate(template string, subs map[string]string) (string, bool) {
	var b strings.Builder
	for {
		start := strings.IndexByte(template, '{')
		if start < 0 {
			b.WriteString(template)
			return b.String(), true
		}
		end := strings.IndexByte(template[start:], '}')
		if end < 0 {
			b.WriteString(template)
			return b.String(), true
		}
		name := template[start+1 : start+end]
		val, ok := subs[name]
		if !ok {
			return "", false
		}
		b.WriteString(template[:start])
		b.WriteString(val)
		template = template[start+end+1:]
	}
}

// truncate shortens s to n characters followed by "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
