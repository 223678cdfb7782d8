package shellcache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line  string
		kind  lineKind
		value string
	}{
		{"# CMD: echo hello", lineCommand, "echo hello"},
		{"   # CMD: echo hello", lineCommand, "echo hello"},
		{"# CMD_SILENT: echo hello", lineCommandSilent, "echo hello"},
		{"\t# CMD_SILENT: echo hello", lineCommandSilent, "echo hello"},
		{"# FETCH: http://example.com", lineFetch, "http://example.com"},
		{"    # FETCH: http://example.com", lineFetch, "http://example.com"},
		{"This is a regular line", lineOther, "This is a regular line"},
		{"      indented regular line", lineOther, "      indented regular line"},
		{"# CMDX: not a marker", lineOther, "# CMDX: not a marker"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := parseLine(tt.line)
			if got.kind != tt.kind || got.value != tt.value {
				t.Errorf("parseLine(%q) = {%v %q}, want {%v %q}",
					tt.line, got.kind, got.value, tt.kind, tt.value)
			}
		})
	}
}

func TestProcessFileExpandsCommand(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "test.zsh")
	dest := filepath.Join(dir, "output.zsh")

	mustWrite(t, source, "# CMD: echo 'hello world'\n")

	if err := processFile(source, dest); err != nil {
		t.Fatalf("processFile: %v", err)
	}

	want := "# CMD: echo 'hello world'\n# OUTPUT START: echo 'hello world'\nhello world\n\n# OUTPUT END: echo 'hello world'\n"
	if got := mustRead(t, dest); got != want {
		t.Errorf("dest = %q, want %q", got, want)
	}
	// source never changes
	if got := mustRead(t, source); got != "# CMD: echo 'hello world'\n" {
		t.Errorf("source modified: %q", got)
	}
}

func TestProcessFileSilentCommand(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "test.zsh")
	dest := filepath.Join(dir, "output.zsh")

	mustWrite(t, source, "# CMD_SILENT: echo 'hello world'\n")

	if err := processFile(source, dest); err != nil {
		t.Fatalf("processFile: %v", err)
	}
	if got, want := mustRead(t, dest), "hello world\n\n"; got != want {
		t.Errorf("dest = %q, want %q", got, want)
	}
}

func TestProcessFileReplacesStaleOutput(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "test.zsh")
	dest := filepath.Join(dir, "output.zsh")

	mustWrite(t, source, "# CMD: echo 'hello world'\n")
	mustWrite(t, dest, "# CMD: echo 'hello world'\n# OUTPUT START: echo 'hello world'\nold output\n# OUTPUT END: echo 'hello world'\n")

	if err := processFile(source, dest); err != nil {
		t.Fatalf("processFile: %v", err)
	}
	want := "# CMD: echo 'hello world'\n# OUTPUT START: echo 'hello world'\nhello world\n\n# OUTPUT END: echo 'hello world'\n"
	if got := mustRead(t, dest); got != want {
		t.Errorf("dest = %q, want %q", got, want)
	}
}

func TestProcessFileCommandFailure(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "test.zsh")
	dest := filepath.Join(dir, "output.zsh")

	mustWrite(t, source, "# CMD: zomg-wtf-bbq\n")

	err := processFile(source, dest)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed to run command (`zomg-wtf-bbq`)") {
		t.Errorf("error = %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("dest should not have been written")
	}
}

func TestProcessFileFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# some content returned here!!"))
	}))
	defer server.Close()

	dir := t.TempDir()
	source := filepath.Join(dir, "test.zsh")
	dest := filepath.Join(dir, "output.zsh")

	url := server.URL + "/test"
	mustWrite(t, source, "# FETCH: "+url+"\n")

	if err := processFile(source, dest); err != nil {
		t.Fatalf("processFile: %v", err)
	}

	want := "# FETCH: " + url + "\n" +
		"# FETCHED CONTENT START: " + url + "\n" +
		"# some content returned here!!\n" +
		"# FETCHED CONTENT END: " + url + "\n"
	if got := mustRead(t, dest); got != want {
		t.Errorf("dest = %q, want %q", got, want)
	}
}

func TestProcessFileFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("ZOMG ERROR"))
	}))
	defer server.Close()

	dir := t.TempDir()
	source := filepath.Join(dir, "test.zsh")
	dest := filepath.Join(dir, "output.zsh")

	mustWrite(t, source, "# FETCH: "+server.URL+"/test\n")

	err := processFile(source, dest)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status code: 500") || !strings.Contains(err.Error(), "ZOMG ERROR") {
		t.Errorf("error = %v", err)
	}
}

func TestProcessDirectorySkipsDestination(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "zsh", "zshrc"), "# CMD: echo 'hello world'\n")
	mustWrite(t, filepath.Join(dir, "zsh", "plugins", "thing.zsh"), "# CMD: echo 'goodbye world'\n")

	destDir := filepath.Join(dir, "zsh", "dist")
	if err := processDirectory(filepath.Join(dir, "zsh"), destDir, destDir); err != nil {
		t.Fatalf("processDirectory: %v", err)
	}

	want := "# CMD: echo 'hello world'\n# OUTPUT START: echo 'hello world'\nhello world\n\n# OUTPUT END: echo 'hello world'\n"
	if got := mustRead(t, filepath.Join(destDir, "zshrc")); got != want {
		t.Errorf("zshrc = %q, want %q", got, want)
	}
	wantPlugin := "# CMD: echo 'goodbye world'\n# OUTPUT START: echo 'goodbye world'\ngoodbye world\n\n# OUTPUT END: echo 'goodbye world'\n"
	if got := mustRead(t, filepath.Join(destDir, "plugins", "thing.zsh")); got != wantPlugin {
		t.Errorf("plugin = %q, want %q", got, wantPlugin)
	}
	// nothing under dist/dist
	if _, err := os.Stat(filepath.Join(destDir, "dist")); !os.IsNotExist(err) {
		t.Error("destination fed back into itself")
	}
}

func TestRunClearRemovesStaleFiles(t *testing.T) {
	home := t.TempDir()
	source := filepath.Join(home, "zsh")
	dest := filepath.Join(source, "dist")

	mustWrite(t, filepath.Join(source, "zshrc"), "# CMD: echo 'hello world'\n")
	mustWrite(t, filepath.Join(dest, "stale.zsh"), "# OLD OUTPUT SHOULD BE DELETED\n")

	err := Run(Options{Source: source, Destination: dest, Strategy: StrategyClear})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(dest, "stale.zsh")); !os.IsNotExist(statErr) {
		t.Error("stale file survived clear strategy")
	}
	want := "# CMD: echo 'hello world'\n# OUTPUT START: echo 'hello world'\nhello world\n\n# OUTPUT END: echo 'hello world'\n"
	if got := mustRead(t, filepath.Join(dest, "zshrc")); got != want {
		t.Errorf("zshrc = %q, want %q", got, want)
	}
}

func TestRunMergeKeepsUnrelatedFiles(t *testing.T) {
	home := t.TempDir()
	source := filepath.Join(home, "zsh")
	dest := filepath.Join(source, "dist")

	mustWrite(t, filepath.Join(source, "zshrc"), "# CMD: echo 'hello world'\n")
	mustWrite(t, filepath.Join(dest, "weird-other-thing.zsh"), "# unrelated\n")

	err := Run(Options{Source: source, Destination: dest, Strategy: StrategyMerge})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := mustRead(t, filepath.Join(dest, "weird-other-thing.zsh")); got != "# unrelated\n" {
		t.Errorf("unrelated file changed: %q", got)
	}
	want := "# CMD: echo 'hello world'\n# OUTPUT START: echo 'hello world'\nhello world\n\n# OUTPUT END: echo 'hello world'\n"
	if got := mustRead(t, filepath.Join(dest, "zshrc")); got != want {
		t.Errorf("zshrc = %q, want %q", got, want)
	}
}

func TestRunFailureLeavesDestinationUntouched(t *testing.T) {
	home := t.TempDir()
	source := filepath.Join(home, "zsh")
	dest := filepath.Join(source, "dist")

	mustWrite(t, filepath.Join(source, "zshrc"), "# CMD: zomg-wtf-bbq\n")
	mustWrite(t, filepath.Join(dest, "zshrc"), "# original contents\n")

	err := Run(Options{Source: source, Destination: dest, Strategy: StrategyClear})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := mustRead(t, filepath.Join(dest, "zshrc")); got != "# original contents\n" {
		t.Errorf("destination changed on failure: %q", got)
	}
}

func TestRunCreatesMissingDestination(t *testing.T) {
	home := t.TempDir()
	source := filepath.Join(home, "zsh")
	dest := filepath.Join(home, "nonexistent", "dist")

	mustWrite(t, filepath.Join(source, "zshrc"), "# CMD: echo 'hello world'\n")

	if err := Run(Options{Source: source, Destination: dest}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "# CMD: echo 'hello world'\n# OUTPUT START: echo 'hello world'\nhello world\n\n# OUTPUT END: echo 'hello world'\n"
	if got := mustRead(t, filepath.Join(dest, "zshrc")); got != want {
		t.Errorf("zshrc = %q, want %q", got, want)
	}
}

func TestRunTildeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	mustWrite(t, filepath.Join(home, "zsh", "zshrc"), "plain line\n")

	err := Run(Options{Source: "~/zsh", Destination: "~/zsh/dist"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustRead(t, filepath.Join(home, "zsh", "dist", "zshrc")); got != "plain line\n" {
		t.Errorf("zshrc = %q", got)
	}
}

func TestRunRequiresSourceAndDestination(t *testing.T) {
	if err := Run(Options{Destination: "/tmp/x"}); err == nil {
		t.Error("expected error for missing source")
	}
	if err := Run(Options{Source: "/tmp/x"}); err == nil {
		t.Error("expected error for missing destination")
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy("clear"); err != nil || s != StrategyClear {
		t.Errorf("ParseStrategy(clear) = %v, %v", s, err)
	}
	if s, err := ParseStrategy("merge"); err != nil || s != StrategyMerge {
		t.Errorf("ParseStrategy(merge) = %v, %v", s, err)
	}
	if _, err := ParseStrategy("bogus"); err == nil {
		t.Error("expected error for bogus strategy")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
