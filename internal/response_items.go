package internal

import (
	"strings"
)

// responseItem is one element of a VS Code response array, classified by shape.
// Each variant renders itself without side effects; see classifyResponseItem.
type responseItem interface {
	render(cache readFileCache) itemOutput
}

// itemOutput is what a single response item contributes to the assistant message
type itemOutput struct {
	content string
	block   *ContentBlock
	tool    *ToolInvocation
	file    *FileChange
}

type (
	toolInvocationItem struct {
		tool    ToolInvocation
		message string
	}
	textItem struct {
		kind        string
		value       string
		description string
	}
	inlineReferenceItem struct {
		name string
	}
	// uriEditItem covers notebookEditGroup and codeblockUri markers
	uriEditItem struct {
		label string
	}
	textEditGroupItem struct {
		label  string
		change *FileChange
		uri    map[string]interface{}
		edits  []TextEdit
	}
	progressTaskItem struct {
		text string
	}
	ignoredItem struct{}
)

// classifyResponseItem picks the variant for a raw response item. Order matters:
// any item carrying a truthy value is text, whatever its kind.
func classifyResponseItem(m map[string]interface{}) responseItem {
	kind := getString(m, "kind")

	switch {
	case kind == "toolInvocationSerialized":
		item := toolInvocationItem{tool: parseToolInvocationSerialized(m)}
		if v, ok := m["invocationMessage"]; ok && truthy(v) {
			item.message = valueText(v)
		}
		return item
	case truthy(m["value"]):
		value := m["value"]
		if inner, ok := asMap(value); ok {
			if v, ok := inner["value"]; ok {
				value = v
			}
		}
		if kind == "" {
			kind = BlockText
		}
		item := textItem{kind: kind, value: stringify(value)}
		if kind == BlockThinking {
			item.description = getText(m, "generatedTitle")
		}
		return item
	case kind == "inlineReference":
		return inlineReferenceItem{name: inlineReferenceName(m)}
	case kind == "textEditGroup":
		item := textEditGroupItem{label: editLabel(m["uri"], "Edited"), edits: parseTextEdits(m["edits"])}
		item.uri, _ = asMap(m["uri"])
		return item
	case kind == "notebookEditGroup":
		return uriEditItem{label: editLabel(m["uri"], "Edited notebook")}
	case kind == "codeblockUri":
		return uriEditItem{label: editLabel(m["uri"], "Editing")}
	case kind == "progressTaskSerialized":
		var text string
		if c, ok := asMap(m["content"]); ok {
			text = getText(c, "value")
		} else {
			text = stringify(m["content"])
		}
		return progressTaskItem{text: text}
	}
	return ignoredItem{}
}

func (i toolInvocationItem) render(readFileCache) itemOutput {
	tool := i.tool
	out := itemOutput{tool: &tool}
	if i.message != "" {
		out.content = i.message
		out.block = &ContentBlock{Kind: BlockToolInvocation, Content: i.message}
	}
	return out
}

func (i textItem) render(readFileCache) itemOutput {
	return itemOutput{
		content: i.value,
		block:   &ContentBlock{Kind: i.kind, Content: i.value, Description: i.description},
	}
}

func (i inlineReferenceItem) render(readFileCache) itemOutput {
	if i.name == "" {
		return itemOutput{}
	}
	ref := "`" + i.name + "`"
	return itemOutput{content: ref, block: &ContentBlock{Kind: BlockText, Content: ref}}
}

func (i uriEditItem) render(readFileCache) itemOutput {
	if i.label == "" {
		return itemOutput{}
	}
	return itemOutput{content: i.label, block: &ContentBlock{Kind: BlockToolInvocation, Content: i.label}}
}

func (i textEditGroupItem) render(cache readFileCache) itemOutput {
	var out itemOutput
	if i.label != "" {
		out.content = i.label
		out.block = &ContentBlock{Kind: BlockToolInvocation, Content: i.label}
	}
	if i.uri == nil {
		return out
	}
	path := uriPath(i.uri)
	if path == "" {
		return out
	}
	filename := uriFilename(i.uri)
	if filename == "" {
		filename = "file"
	}
	original := cache.lookup(path, filename)
	out.file = &FileChange{Path: path, Diff: ReconstructDiff(i.edits, original, filename)}
	return out
}

func (i progressTaskItem) render(readFileCache) itemOutput {
	text := strings.TrimSpace(i.text)
	if text == "" {
		return itemOutput{}
	}
	return itemOutput{
		content: i.text,
		block:   &ContentBlock{Kind: BlockStatus, Content: text, Description: "progress"},
	}
}

func (ignoredItem) render(readFileCache) itemOutput {
	return itemOutput{}
}

// responseResult is the assistant-side content of one request
type responseResult struct {
	content []string
	blocks  []ContentBlock
	tools   []ToolInvocation
	files   []FileChange
	cmds    []CommandRun
}

func (r *responseResult) empty() bool {
	return len(r.content) == 0 && len(r.tools) == 0 && len(r.files) == 0 && len(r.cmds) == 0
}

// processResponseItems renders a response array in order. Read-file tool
// results anywhere in the response are collected first so later edits to the
// same file can be shown as real diffs.
func processResponseItems(items []interface{}) *responseResult {
	cache := buildReadFileCache(items)
	res := &responseResult{}

	for _, raw := range items {
		m, ok := asMap(raw)
		if !ok {
			continue
		}

		out := classifyResponseItem(m).render(cache)
		if out.content != "" {
			res.content = append(res.content, out.content)
		}
		if out.block != nil {
			res.blocks = append(res.blocks, *out.block)
		}
		if out.tool != nil {
			res.tools = append(res.tools, *out.tool)
		}
		if out.file != nil {
			res.files = append(res.files, *out.file)
		}

		res.tools = append(res.tools, parseLegacyToolInvocations(getSlice(m, "toolInvocations"))...)
		for _, key := range []string{"fileChanges", "fileEdits", "files"} {
			res.files = append(res.files, parseFileChanges(getSlice(m, key))...)
		}
		res.cmds = append(res.cmds, parseCommandRuns(getSlice(m, "commandRuns"))...)
	}

	return res
}

func buildReadFileCache(items []interface{}) readFileCache {
	cache := readFileCache{}
	for _, raw := range items {
		m, ok := asMap(raw)
		if !ok || getString(m, "kind") != "toolInvocationSerialized" {
			continue
		}
		if path, content := readFileToolContent(m); path != "" && content != "" {
			cache[path] = content
		}
	}
	return cache
}

// readFileToolContent extracts (path, content) from a read-file tool result
func readFileToolContent(m map[string]interface{}) (string, string) {
	toolID := getString(m, "toolId")
	if !strings.Contains(toolID, "readFile") && !strings.Contains(strings.ToLower(toolID), "read_file") {
		return "", ""
	}
	uri := getMap(getMap(getMap(m, "toolSpecificData"), "file"), "uri")
	path := firstText(uri, "fsPath", "path")
	if path == "" {
		return "", ""
	}
	for _, out := range getSlice(getMap(m, "resultDetails"), "output") {
		if om, ok := asMap(out); ok {
			if v := getText(om, "value"); v != "" {
				return path, v
			}
		}
	}
	return "", ""
}

// parseToolInvocationSerialized reads the current VS Code tool call shape
func parseToolInvocationSerialized(m map[string]interface{}) ToolInvocation {
	tool := ToolInvocation{Name: getText(m, "toolId"), Status: "pending"}
	if tool.Name == "" {
		tool.Name = "unknown"
	}
	if getBool(m, "isComplete") {
		tool.Status = "completed"
	}

	switch msg := m["invocationMessage"].(type) {
	case string:
		tool.InvocationMessage = msg
	case map[string]interface{}:
		if s, ok := msg["value"].(string); ok {
			tool.InvocationMessage = s
		}
	}

	data := getMap(m, "toolSpecificData")
	if data != nil {
		if cmdLine, ok := data["commandLine"]; ok {
			if cm, ok := asMap(cmdLine); ok {
				tool.Input = firstText(cm, "toolEdited", "original")
			} else if truthy(cmdLine) {
				tool.Input = stringify(cmdLine)
			}
		} else if file := getMap(data, "file"); file != nil {
			switch uri := file["uri"].(type) {
			case map[string]interface{}:
				tool.Input = firstText(uri, "fsPath", "path")
			case string:
				tool.Input = uri
			}
		} else if input, ok := data["input"]; ok && input != nil {
			tool.Input = stringify(input)
		}
	}

	if details := getMap(m, "resultDetails"); details != nil {
		if tool.Input == "" {
			tool.Input = getText(details, "input")
		}
		var parts []string
		for _, out := range getSlice(details, "output") {
			if om, ok := asMap(out); ok {
				if v := getText(om, "value"); v != "" {
					parts = append(parts, v)
				}
			}
		}
		tool.Result = strings.Join(parts, "\n")
	}

	if source := getMap(m, "source"); source != nil {
		tool.SourceType = getText(source, "type")
	}

	if data != nil && getString(data, "kind") == "terminal" && tool.Result == "" {
		tool.Result = getText(getMap(data, "terminalCommandOutput"), "text")
	}

	return tool
}

// parseLegacyToolInvocations reads the older nested toolInvocations arrays
func parseLegacyToolInvocations(raw []interface{}) []ToolInvocation {
	var tools []ToolInvocation
	for _, r := range raw {
		m, ok := asMap(r)
		if !ok {
			continue
		}
		name := firstText(m, "name", "toolName")
		if name == "" {
			name = "unknown"
		}
		tools = append(tools, ToolInvocation{
			Name:      name,
			Input:     firstText(m, "input", "arguments"),
			Result:    firstText(m, "result", "output"),
			Status:    getText(m, "status"),
			StartTime: getInt64(m, "startTime"),
			EndTime:   getInt64(m, "endTime"),
		})
	}
	return tools
}

func parseFileChanges(raw []interface{}) []FileChange {
	var changes []FileChange
	for _, r := range raw {
		m, ok := asMap(r)
		if !ok {
			continue
		}
		path := firstText(m, "path", "uri")
		changes = append(changes, FileChange{
			Path:        strings.TrimPrefix(path, "file://"),
			Diff:        getText(m, "diff"),
			Content:     getText(m, "content"),
			Explanation: getText(m, "explanation"),
			LanguageID:  getText(m, "languageId"),
		})
	}
	return changes
}

func parseCommandRuns(raw []interface{}) []CommandRun {
	var cmds []CommandRun
	for _, r := range raw {
		m, ok := asMap(r)
		if !ok {
			continue
		}
		command := getText(m, "command")
		if command == "" {
			command = "unknown"
		}
		var result string
		if v, ok := m["result"]; ok && v != nil {
			result = stringify(v)
		}
		cmds = append(cmds, CommandRun{
			Command:   command,
			Title:     getText(m, "title"),
			Result:    result,
			Status:    getText(m, "status"),
			Output:    getText(m, "output"),
			Timestamp: getInt64(m, "timestamp"),
		})
	}
	return cmds
}

// inlineReferenceName finds the display name of an inline file reference
func inlineReferenceName(m map[string]interface{}) string {
	if name := getText(m, "name"); name != "" {
		return name
	}
	ref := getMap(m, "inlineReference")
	if ref == nil {
		return ""
	}
	if name := getText(ref, "name"); name != "" {
		return name
	}
	return baseName(firstText(ref, "path", "fsPath", "external"))
}

// editLabel renders "<verb> `file`" for an edit marker's uri (object or string)
func editLabel(uri interface{}, verb string) string {
	var filename string
	switch u := uri.(type) {
	case map[string]interface{}:
		filename = uriFilename(u)
	case string:
		filename = baseName(strings.TrimPrefix(u, "file://"))
	}
	if filename == "" {
		return ""
	}
	return verb + " `" + filename + "`"
}

func uriFilename(uri map[string]interface{}) string {
	return baseName(firstText(uri, "fsPath", "path", "external"))
}

func uriPath(uri map[string]interface{}) string {
	return strings.TrimPrefix(firstText(uri, "fsPath", "path", "external"), "file://")
}
