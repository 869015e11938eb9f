package internal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// cliEvent is one line of a CLI session event stream
type cliEvent struct {
	Type      string
	Timestamp string
	Data      map[string]interface{}
}

// toolExecution collects the lifecycle events of one tool call
type toolExecution struct {
	start         *cliEvent
	complete      *cliEvent
	userRequested bool
}

// shellTools run a command line and are recorded as CommandRuns
var shellTools = map[string]bool{
	"powershell":  true,
	"bash":        true,
	"shell":       true,
	"run_command": true,
}

// internalTools have no user-visible output
var internalTools = map[string]bool{
	"read_powershell": true,
	"read_bash":       true,
}

const (
	maxChoices       = 5
	maxOverviewChars = 200
)

// cliWorkspace is the companion workspace.yaml of a CLI session
type cliWorkspace struct {
	ID        string `yaml:"id"`
	Cwd       string `yaml:"cwd"`
	Summary   string `yaml:"summary"`
	CreatedAt string `yaml:"created_at"`
}

// readCLIWorkspace loads workspace.yaml from dir. Files that are not strict
// YAML (unquoted colons in the summary) fall back to key: value lines.
func readCLIWorkspace(dir string) cliWorkspace {
	data, err := os.ReadFile(filepath.Join(dir, "workspace.yaml"))
	if err != nil {
		return cliWorkspace{}
	}

	var ws cliWorkspace
	if err := yaml.Unmarshal(data, &ws); err == nil {
		return ws
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "id":
			ws.ID = value
		case "cwd":
			ws.Cwd = value
		case "summary":
			ws.Summary = value
		case "created_at":
			ws.CreatedAt = value
		}
	}
	return ws
}

func decodeCLIEvents(data []byte) []cliEvent {
	var events []cliEvent
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		obj, err := decodeJSONObject(line)
		if err != nil {
			continue
		}
		events = append(events, cliEvent{
			Type:      getString(obj, "type"),
			Timestamp: getText(obj, "timestamp"),
			Data:      getMap(obj, "data"),
		})
	}
	return events
}

// ParseCLIEvents builds a session from a CLI event stream. summary is the
// workspace.yaml title, if any.
func ParseCLIEvents(data []byte, meta sessionMeta, summary string) (*ChatSession, error) {
	events := decodeCLIEvents(data)
	if len(events) == 0 {
		return nil, &ParseError{Source: "cli", Key: meta.SourceFile, Err: ErrUnsupportedShape}
	}

	session := &ChatSession{
		SessionID: meta.FallbackID,
		Type:      SessionTypeCLI,
		Edition:   EditionCLI,
		FileType:  FileTypeJSONL,
	}
	session.SourceFile = meta.SourceFile
	session.SourceFileMtime = meta.Mtime
	session.SourceFileSize = meta.Size

	var startCtx map[string]interface{}
	for _, ev := range events {
		if ev.Type != "session.start" {
			continue
		}
		if id := getText(ev.Data, "sessionId"); id != "" {
			session.SessionID = id
		}
		session.CreatedAt = getText(ev.Data, "startTime")
		if session.CreatedAt == "" {
			session.CreatedAt = ev.Timestamp
		}
		startCtx = getMap(ev.Data, "context")
		break
	}

	session.WorkspacePath = firstText(startCtx, "cwd", "gitRoot")
	if session.WorkspacePath != "" {
		session.WorkspaceName = baseName(session.WorkspacePath)
	}
	repository := getText(startCtx, "repository")

	for _, ev := range events {
		if ev.Type != "session.info" {
			continue
		}
		message := getString(ev.Data, "message")
		switch getString(ev.Data, "infoType") {
		case "folder_trust":
			if session.WorkspacePath != "" {
				continue
			}
			if strings.HasPrefix(message, "Folder ") {
				if end := strings.Index(message, " has been added"); end >= 0 {
					session.WorkspacePath = message[len("Folder "):end]
					session.WorkspaceName = baseName(session.WorkspacePath)
				}
			}
		case "authentication":
			if session.RequesterUsername != "" {
				continue
			}
			if i := strings.LastIndex(message, "as user: "); i >= 0 {
				session.RequesterUsername = strings.TrimSpace(message[i+len("as user: "):])
			}
		}
	}

	b := newCLISessionBuilder(collectToolExecutions(events))
	for i := range events {
		b.handle(&events[i])
	}
	b.flush()

	if len(b.messages) == 0 {
		return nil, &ParseError{Source: "cli", Key: meta.SourceFile, Err: ErrUnsupportedShape}
	}
	session.Messages = b.messages
	session.UpdatedAt = events[len(events)-1].Timestamp

	session.CustomTitle = summary
	if session.CustomTitle == "" {
		session.CustomTitle = firstIntent(b.messages)
	}

	if repository != "" {
		session.RepositoryURL = NormalizeGitURL("https://github.com/" + repository)
	}

	return session, nil
}

func firstIntent(messages []ChatMessage) string {
	for _, msg := range messages {
		for _, block := range msg.ContentBlocks {
			if block.Kind == BlockIntent && block.Content != "" {
				return block.Content
			}
		}
	}
	return ""
}

func collectToolExecutions(events []cliEvent) map[string]*toolExecution {
	execs := make(map[string]*toolExecution)
	get := func(id string) *toolExecution {
		e, ok := execs[id]
		if !ok {
			e = &toolExecution{}
			execs[id] = e
		}
		return e
	}

	for i := range events {
		ev := &events[i]
		id := getText(ev.Data, "toolCallId")
		if id == "" {
			continue
		}
		switch ev.Type {
		case "tool.execution_start":
			get(id).start = ev
		case "tool.execution_complete":
			get(id).complete = ev
		case "tool.user_requested":
			get(id).userRequested = true
		}
	}
	return execs
}

// cliSessionBuilder accumulates assistant output across turns and emits one
// assistant message per run, flushed by user or system messages and at the end.
type cliSessionBuilder struct {
	executions map[string]*toolExecution
	messages   []ChatMessage

	blocks    []ContentBlock
	tools     []ToolInvocation
	commands  []CommandRun
	timestamp string

	pendingRequests map[string]map[string]interface{}
}

func newCLISessionBuilder(executions map[string]*toolExecution) *cliSessionBuilder {
	return &cliSessionBuilder{
		executions:      executions,
		pendingRequests: make(map[string]map[string]interface{}),
	}
}

// flush emits the accumulated assistant output as one message
func (b *cliSessionBuilder) flush() {
	if len(b.blocks) == 0 && len(b.tools) == 0 && len(b.commands) == 0 {
		return
	}

	var text []string
	for _, block := range b.blocks {
		if block.Kind == BlockText && strings.TrimSpace(block.Content) != "" {
			text = append(text, block.Content)
		}
	}

	b.messages = append(b.messages, ChatMessage{
		Role:            "assistant",
		Content:         strings.Join(text, "\n\n"),
		Timestamp:       b.timestamp,
		ToolInvocations: b.tools,
		CommandRuns:     b.commands,
		ContentBlocks:   b.blocks,
	})

	b.blocks = nil
	b.tools = nil
	b.commands = nil
	b.timestamp = ""
}

func (b *cliSessionBuilder) addBlock(kind, content, description string) {
	b.blocks = append(b.blocks, ContentBlock{Kind: kind, Content: content, Description: description})
}

func (b *cliSessionBuilder) handle(ev *cliEvent) {
	data := ev.Data

	switch ev.Type {
	case "user.message":
		b.flush()
		clear(b.pendingRequests)
		b.messages = append(b.messages, ChatMessage{
			Role:      "user",
			Content:   getText(data, "content"),
			Timestamp: ev.Timestamp,
		})

	case "system.message":
		b.flush()
		clear(b.pendingRequests)
		if content := getText(data, "content"); content != "" {
			b.messages = append(b.messages, ChatMessage{Role: "system", Content: content, Timestamp: ev.Timestamp})
		}

	case "assistant.turn_start", "assistant.turn_end":
		// turns never split an assistant message

	case "assistant.message":
		if b.timestamp == "" {
			b.timestamp = ev.Timestamp
		}
		if content := strings.TrimSpace(getText(data, "content")); content != "" {
			b.addBlock(BlockText, content, "")
		}
		for _, r := range getSlice(data, "toolRequests") {
			req, ok := asMap(r)
			if !ok {
				continue
			}
			if id := getText(req, "toolCallId"); id != "" {
				b.pendingRequests[id] = req
			}
		}

	case "tool.execution_start":
		id := getText(data, "toolCallId")
		name := getText(data, "toolName")
		if name == "" {
			name = "unknown"
		}
		args := getMap(data, "arguments")
		if req, ok := b.pendingRequests[id]; ok && len(req) > 0 {
			if len(args) == 0 {
				args = getMap(req, "arguments")
			}
			if name == "unknown" {
				if n := getText(req, "name"); n != "" {
					name = n
				}
			}
		}
		b.addToolInline(id, name, args)

	case "abort":
		reason := getText(data, "reason")
		if reason == "" {
			reason = "unknown"
		}
		b.addBlock(BlockStatus, "Aborted: "+reason, "abort")

	case "session.error":
		content := "Error: " + getText(data, "message")
		if getText(data, "message") == "" {
			errorType := getText(data, "errorType")
			if errorType == "" {
				errorType = "unknown"
			}
			content = "Error: " + errorType
		}
		b.addBlock(BlockStatus, content, "error")

	case "session.model_change":
		model := getText(data, "newModel")
		if model == "" {
			model = "unknown"
		}
		b.addBlock(BlockStatus, "Switched to "+model, "model-change")

	case "assistant.reasoning":
		if content := strings.TrimSpace(getText(data, "content")); content != "" {
			b.addBlock(BlockThinking, content, "reasoning")
		}

	case "skill.invoked":
		name := getText(data, "name")
		if name == "" {
			name = "unknown"
		}
		b.addBlock(BlockSkill, "Loaded skill: "+name, skillDescription(getText(data, "content")))

	case "session.compaction_complete":
		b.addBlock(BlockStatus, compactionOverview(data), "compaction")
	}
}

// addToolInline renders a tool call at the point its execution starts
func (b *cliSessionBuilder) addToolInline(id, name string, args map[string]interface{}) {
	switch {
	case name == "report_intent":
		if intent := firstText(args, "intent", "description"); intent != "" {
			b.addBlock(BlockIntent, intent, "")
		}
		return
	case name == "skill":
		if skill := firstText(args, "name", "skill"); skill != "" {
			b.addBlock(BlockSkill, skill, "")
		}
		return
	case name == "ask_user":
		if content := b.askUserContent(id, args); content != "" {
			b.addBlock(BlockAskUser, content, "user-input")
		}
		return
	case internalTools[name]:
		return
	}

	exec := b.executions[id]
	var result, status string
	if exec != nil && exec.complete != nil {
		result, status = completionResult(exec.complete.Data)
	}

	var description string
	if exec != nil && exec.start != nil {
		description = getText(getMap(exec.start.Data, "arguments"), "description")
	}
	if description == "" {
		description = getText(args, "description")
	}

	if shellTools[name] {
		cmd := CommandRun{
			Command: getText(args, "command"),
			Title:   description,
			Result:  result,
			Status:  status,
			Output:  result,
		}
		display := "$ " + cmd.Command
		if cmd.Command == "" {
			display = cmd.Title
			if len([]rune(display)) > 60 {
				display = string([]rune(display)[:57]) + "..."
			}
		}
		b.addBlock(BlockToolInvocation, display, cmd.Title)
		b.commands = append(b.commands, cmd)
		return
	}

	tool := ToolInvocation{
		Name:              name,
		Result:            result,
		Status:            status,
		InvocationMessage: FormatToolDisplay(name, args, description),
	}
	if len(args) > 0 {
		if data, err := json.Marshal(args); err == nil {
			tool.Input = string(data)
		} else {
			tool.Input = fmt.Sprint(args)
		}
	}
	display := tool.InvocationMessage
	if display == "" {
		display = tool.Name
	}
	b.addBlock(BlockToolInvocation, display, tool.Name)
	b.tools = append(b.tools, tool)
}

func (b *cliSessionBuilder) askUserContent(id string, args map[string]interface{}) string {
	question := getText(args, "question")
	if question == "" {
		return ""
	}
	content := "❓ " + question

	if choices := getSlice(args, "choices"); len(choices) > 0 {
		shown := choices
		if len(shown) > maxChoices {
			shown = shown[:maxChoices]
		}
		parts := make([]string, len(shown))
		for i, c := range shown {
			parts[i] = stringify(c)
		}
		text := strings.Join(parts, ", ")
		if len(choices) > maxChoices {
			text += fmt.Sprintf(", ... (+%d more)", len(choices)-maxChoices)
		}
		content += "\n   Options: " + text
	}

	if exec := b.executions[id]; exec != nil && exec.complete != nil {
		data := exec.complete.Data
		if getBool(data, "success") {
			var answer string
			if rm, ok := asMap(data["result"]); ok {
				answer = getText(rm, "content")
			} else {
				answer = stringify(data["result"])
			}
			answer = strings.TrimPrefix(answer, "User responded: ")
			if answer != "" {
				content += "\n   ✅ **Answer:** " + answer
			}
		} else {
			content += "\n   ⏭️ *Skipped*"
		}
	}
	return content
}

// completionResult reads the result text and status of a tool.execution_complete event
func completionResult(data map[string]interface{}) (string, string) {
	status := "error"
	if getBool(data, "success") {
		status = "success"
	}
	if rm, ok := asMap(data["result"]); ok {
		return getText(rm, "content"), status
	}
	if data["result"] == nil {
		return "", status
	}
	return getText(data, "result"), status
}

// skillDescription pulls the description: line out of a skill's frontmatter
func skillDescription(content string) string {
	if !strings.Contains(content, "description:") {
		return ""
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "description:") {
			_, desc, _ := strings.Cut(line, "description:")
			return strings.TrimSpace(desc)
		}
	}
	return ""
}

// compactionOverview summarizes a compaction event by its <overview> section
func compactionOverview(data map[string]interface{}) string {
	summary := getText(data, "summaryContent")
	var overview string
	if strings.Contains(summary, "<overview>") && strings.Contains(summary, "</overview>") {
		_, after, _ := strings.Cut(summary, "<overview>")
		before, _, _ := strings.Cut(after, "</overview>")
		overview = strings.TrimSpace(before)
		if r := []rune(overview); len(r) > maxOverviewChars {
			overview = string(r[:maxOverviewChars-3]) + "..."
		}
	}
	if overview == "" {
		checkpoint := getText(data, "checkpointNumber")
		if checkpoint == "" {
			checkpoint = "0"
		}
		overview = "Session compacted to checkpoint " + checkpoint
	}
	return overview
}
