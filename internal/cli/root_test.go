package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackload/pkg/assembler"
	"github.com/matzehuels/stackload/pkg/descriptor"
	"github.com/matzehuels/stackload/pkg/errors"
)

type result struct {
	stdout, stderr string
	err            error
}

// execute runs the root command with an isolated config and cache dir.
func execute(t *testing.T, cacheDir string, args ...string) result {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c := New(&bytes.Buffer{}, log.ErrorLevel)
	root := c.RootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--cache-dir", cacheDir}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return result{stdout.String(), stderr.String(), err}
}

func writePackage(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, descriptor.PackageFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersion(t *testing.T) {
	r := execute(t, t.TempDir(), "--version")
	if r.err != nil {
		t.Fatal(r.err)
	}
	if !strings.HasPrefix(r.stdout, "stackload version ") {
		t.Errorf("version output = %q", r.stdout)
	}
}

func TestAssembleCommand(t *testing.T) {
	proj := t.TempDir()
	writePackage(t, proj, `{"name": "app", "mappings": {"lib": {"location": "lib"}}}`)
	writePackage(t, filepath.Join(proj, "lib"), `{"name": "lib"}`)

	r := execute(t, t.TempDir(), "assemble", proj)
	if r.err != nil {
		t.Fatalf("assemble: %v", r.err)
	}
	if !strings.Contains(r.stdout, "2 packages") || !strings.Contains(r.stdout, "app") {
		t.Errorf("stdout = %q", r.stdout)
	}
}

func TestAssembleCommandJSON(t *testing.T) {
	proj := t.TempDir()
	writePackage(t, proj, `{}`)
	extra := t.TempDir()
	writePackage(t, extra, `{"name": "extra"}`)

	r := execute(t, t.TempDir(), "assemble", proj, "--json",
		"--add", extra,
		"--add", `{"available": false}`)
	if r.err != nil {
		t.Fatalf("assemble: %v", r.err)
	}

	var s assembler.Summary
	if err := json.Unmarshal([]byte(r.stdout), &s); err != nil {
		t.Fatalf("decode %q: %v", r.stdout, err)
	}
	if s.Boot != proj || len(s.Packages) != 2 {
		t.Errorf("summary = %+v", s)
	}
	if !strings.Contains(r.stderr, "skipped unavailable package") {
		t.Errorf("stderr = %q", r.stderr)
	}
}

func TestAssembleCommandErrors(t *testing.T) {
	r := execute(t, t.TempDir(), "assemble", filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(r.err, errors.ErrCodeLocationNotFound) {
		t.Errorf("missing program: err = %v", r.err)
	}

	r = execute(t, t.TempDir(), "assemble")
	if r.err == nil {
		t.Error("assemble without args should fail")
	}

	r = execute(t, t.TempDir(), "assemble", t.TempDir(), "--add", "{not json")
	if !errors.Is(r.err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad locator: err = %v", r.err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STACKLOAD_WORKERS", "0")
	r := execute(t, t.TempDir(), "cache", "path")
	if !errors.Is(r.err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", r.err)
	}
}

func TestFlagOverridesEnv(t *testing.T) {
	t.Setenv("STACKLOAD_WORKERS", "0")
	r := execute(t, t.TempDir(), "--workers", "4", "cache", "info")
	if r.err != nil {
		t.Fatal(r.err)
	}
	var workers string
	for _, line := range strings.Split(r.stdout, "\n") {
		if strings.HasPrefix(line, "workers") {
			workers = strings.TrimSpace(strings.TrimPrefix(line, "workers"))
		}
	}
	if workers != "4" {
		t.Errorf("workers = %q, want 4; stdout = %q", workers, r.stdout)
	}
}

func TestGraphCommand(t *testing.T) {
	proj := t.TempDir()
	writePackage(t, proj, `{"mappings": {"lib": {"location": "lib"}}}`)
	writePackage(t, filepath.Join(proj, "lib"), `{}`)
	out := filepath.Join(t.TempDir(), "graph.dot")

	r := execute(t, t.TempDir(), "graph", proj, "-o", out)
	if r.err != nil {
		t.Fatalf("graph: %v", r.err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("graph.dot = %q", data)
	}

	r = execute(t, t.TempDir(), "graph", proj, "--format", "png")
	if r.err == nil {
		t.Error("png format should be rejected")
	}
}

func TestGraphCommandStdout(t *testing.T) {
	proj := t.TempDir()
	writePackage(t, proj, `{}`)

	r := execute(t, t.TempDir(), "graph", proj)
	if r.err != nil {
		t.Fatalf("graph: %v", r.err)
	}
	if !strings.Contains(r.stdout, "digraph") {
		t.Errorf("stdout = %q", r.stdout)
	}
}

func TestCompletionCommand(t *testing.T) {
	r := execute(t, t.TempDir(), "completion", "bash")
	if r.err != nil {
		t.Fatal(r.err)
	}
	if !strings.Contains(r.stdout, "stackload") {
		t.Error("bash completion does not mention stackload")
	}

	if r := execute(t, t.TempDir(), "completion", "tcsh"); r.err == nil {
		t.Error("unknown shell should fail")
	}
}

func TestFlagCompletions(t *testing.T) {
	root := New(&bytes.Buffer{}, log.ErrorLevel).RootCommand()
	graph, _, err := root.Find([]string{"graph"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		cmd  *cobra.Command
		flag string
		want []string
	}{
		{root, "index", []string{"file", "redis", "none"}},
		{graph, "format", []string{"dot", "svg"}},
	}
	for _, tt := range tests {
		fn, ok := tt.cmd.GetFlagCompletionFunc(tt.flag)
		if !ok {
			t.Errorf("no completion registered for --%s", tt.flag)
			continue
		}
		got, directive := fn(tt.cmd, nil, "")
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("--%s completions = %v, want %v", tt.flag, got, tt.want)
		}
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("--%s directive = %v", tt.flag, directive)
		}
	}
}

func TestParseLocator(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in       string
		location string
		archive  string
		provider string
		wantErr  bool
	}{
		{in: "lib", location: filepath.Join(cwd, "lib")},
		{in: "/abs/lib", location: "/abs/lib"},
		{in: "https://example.com/a.zip", archive: "https://example.com/a.zip"},
		{in: `{"provider": "github", "name": "org/repo"}`, provider: "github"},
		{in: `{"location": "rel"}`, location: filepath.Join(cwd, "rel")},
		{in: `{"bogus": 1}`, wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := parseLocator(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLocator(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if loc.Location != tt.location || loc.Archive != tt.archive || loc.Provider != tt.provider {
				t.Errorf("parseLocator(%q) = %+v", tt.in, loc)
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct{ path, want string }{
		{"graph.svg", "svg"},
		{"graph.SVG", "svg"},
		{"graph.dot", "dot"},
		{"graph.gv", "dot"},
		{"", "dot"},
		{"graph.txt", "dot"},
	}
	for _, tt := range tests {
		if got := outputFormat(tt.path, "dot"); got != tt.want {
			t.Errorf("outputFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
