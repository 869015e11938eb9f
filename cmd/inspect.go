package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

var (
	inspectEdition string
	inspectCLI     bool
	inspectJSON    bool
	inspectKeys    bool
	inspectSchema  bool
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Parse one session file without storing it",
	Long: `Parse a single session file (chat session JSON, append log, state.vscdb
or CLI events.jsonl) and print what would be imported.

For state.vscdb files, --keys lists the chat-related ItemTable rows and
--schema prints the tables and columns of the database.

Examples:
  copilot-session inspect ~/.config/Code/User/workspaceStorage/<hash>/chatSessions/<id>.json
  copilot-session inspect state.vscdb --keys
  copilot-session inspect events.jsonl --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		out := cmd.OutOrStdout()

		if inspectKeys || inspectSchema {
			db, err := internal.OpenDatabase(path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = db.Close() }()
			if inspectSchema {
				return printSchema(out, db, path)
			}
			return printChatKeys(out, db)
		}

		info, err := internal.DescribeFile(path, inspectEdition, inspectCLI)
		if err != nil {
			return err
		}
		sessions, err := internal.ParseSessionFile(info)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		// a state database can hold the same session under several keys
		sessions = internal.NewDeduplicator().Deduplicate(sessions)

		if inspectJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		}
		displayInspection(out, info, sessions)
		return nil
	},
}

func displayInspection(out io.Writer, info internal.SessionFileInfo, sessions []*internal.ChatSession) {
	fmt.Fprintf(out, "📄 %s\n", info.Path)
	fmt.Fprintf(out, "   type: %s/%s • edition: %s • size: %d bytes\n", info.SessionType, info.FileType, info.Edition, info.Size)
	if info.WorkspaceName != "" {
		fmt.Fprintf(out, "   workspace: %s (%s)\n", info.WorkspaceName, info.WorkspacePath)
	}
	fmt.Fprintln(out)

	if len(sessions) == 0 {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No sessions found in file"))
		return
	}
	for _, s := range sessions {
		var tools, files, commands int
		for _, msg := range s.Messages {
			tools += len(msg.ToolInvocations)
			files += len(msg.FileChanges)
			commands += len(msg.CommandRuns)
		}
		title := s.Title()
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render(title), idStyle.Render(s.SessionID))
		fmt.Fprintf(out, "   messages: %d • tools: %d • file changes: %d • commands: %d\n",
			len(s.Messages), tools, files, commands)
		if prompt := s.FirstUserPrompt(); prompt != "" {
			fmt.Fprintf(out, "   first prompt: %s\n", truncateLine(prompt, 80))
		}
	}
}

func printChatKeys(out io.Writer, db *sql.DB) error {
	pairs, err := internal.QueryChatItems(db)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No chat keys found"))
		return nil
	}
	for _, pair := range pairs {
		valid := successStyle.Render("json")
		if !json.Valid(pair.Value) {
			valid = errorStyle.Render("not json")
		}
		fmt.Fprintf(out, "  • %s (%d bytes, %s)\n", pair.Key, len(pair.Value), valid)
	}
	return nil
}

func printSchema(out io.Writer, db *sql.DB, path string) error {
	tables, err := getTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}
	if len(tables) == 0 {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No tables found in database"))
		return nil
	}

	fmt.Fprintf(out, "📋 Database: %s\n", path)
	fmt.Fprintf(out, "📊 Found %d table(s)\n\n", len(tables))
	for _, table := range tables {
		var rowCount int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&rowCount); err != nil {
			fmt.Fprintf(out, "⚠️  Error inspecting table %s: %v\n", table, err)
			continue
		}
		columns, err := getTableSchema(db, table)
		if err != nil {
			fmt.Fprintf(out, "⚠️  Error inspecting table %s: %v\n", table, err)
			continue
		}

		fmt.Fprintf(out, "📦 %s (%d rows)\n", sectionStyle.Render(table), rowCount)
		for _, col := range columns {
			var attrs []string
			if col.NotNull {
				attrs = append(attrs, "NOT NULL")
			}
			if col.PrimaryKey {
				attrs = append(attrs, "PRIMARY KEY")
			}
			fmt.Fprintf(out, "  • %s: %s %s\n", col.Name, col.Type, strings.Join(attrs, " "))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func getTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// ColumnInfo is one row of PRAGMA table_info
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

func getTableSchema(db *sql.DB, tableName string) ([]ColumnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var cid int
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk == 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectEdition, "edition", "e", internal.EditionStable, "Edition to attribute the file to (stable, insider)")
	inspectCmd.Flags().BoolVar(&inspectCLI, "cli", false, "Treat the file as a Copilot CLI event log")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the parsed sessions as JSON")
	inspectCmd.Flags().BoolVar(&inspectKeys, "keys", false, "List chat-related ItemTable keys of a state.vscdb")
	inspectCmd.Flags().BoolVar(&inspectSchema, "schema", false, "Print the tables and columns of a database")
}
