package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so tests do not leak state
// through the package-level flag variables
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args and returns its stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

// testEnv returns a database path and a config path inside a temp dir. The
// config file does not exist unless written by the test.
func testEnv(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "sessions.db"), filepath.Join(dir, "config.yaml")
}

// seedStore stores two sessions: "session-one" (plain) and "session-two" (rich)
func seedStore(t *testing.T, dbPath string) {
	t.Helper()
	store, err := internal.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	two := internal.CreateTestSessionWithMessages("session-two", []internal.ChatMessage{
		{Role: "user", Content: "Rename the handler", Timestamp: "1700000100000"},
		internal.CreateRichTestMessage(1),
	})
	two.WorkspaceName = "backend"
	two.CustomTitle = "Handler rename"
	two.CreatedAt = "1700000100000"

	for _, s := range []*internal.ChatSession{internal.CreateTestSession("session-one"), two} {
		if _, err := store.AddSession(s); err != nil {
			t.Fatalf("AddSession() error = %v", err)
		}
	}
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{name: "version flag", args: []string{"--version"}, want: "dev"},
		{name: "help flag", args: []string{"--help"}, want: "copilot-session"},
		{name: "nonexistent command", args: []string{"nonexistent-command"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output should contain %q, got:\n%s", tt.want, out)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"scan", "search", "list", "show", "export", "rebuild", "stats", "workspaces", "inspect", "healthcheck", "config"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("%s command not registered", name)
		}
	}
}

func TestRootCommand_ConfigAndFlags(t *testing.T) {
	dbPath, cfgPath := testEnv(t)
	otherDB := filepath.Join(filepath.Dir(dbPath), "from-config.db")
	data := "database: " + otherDB + "\nlog_level: warn\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCommand(t, "stats", "--config", cfgPath); err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if cfg.Database != otherDB {
		t.Errorf("cfg.Database = %q, want %q from config", cfg.Database, otherDB)
	}

	if _, err := executeCommand(t, "stats", "--config", cfgPath, "--db", dbPath); err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if cfg.Database != dbPath {
		t.Errorf("cfg.Database = %q, want --db %q", cfg.Database, dbPath)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	dbPath, cfgPath := testEnv(t)
	if err := os.WriteFile(cfgPath, []byte("editions: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand(t, "stats", "--config", cfgPath, "--db", dbPath)
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("expected config error, got %v", err)
	}
}
