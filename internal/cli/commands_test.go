// pattern: Imperative Shell
package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"venvkiller/internal/config"
	"venvkiller/internal/instance"
)

type testEnv struct {
	Env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T, stdin string) testEnv {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cfg := config.DefaultConfig()
	return testEnv{
		Env: Env{
			Config:    cfg,
			ConfigDir: t.TempDir(),
			Stdin:     strings.NewReader(stdin),
			Stdout:    stdout,
			Stderr:    stderr,
		},
		stdout: stdout,
		stderr: stderr,
	}
}

func makeVenv(t *testing.T, dir string, payload int) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("version = 3.11.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bin", "blob"), bytes.Repeat([]byte("x"), payload), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestResolveDataDir(t *testing.T) {
	if got := ResolveDataDir("/custom"); got != "/custom" {
		t.Errorf("ResolveDataDir(/custom) = %q", got)
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ResolveDataDir(""); got != filepath.Join("/xdg", "venvkiller") {
		t.Errorf("ResolveDataDir(\"\") = %q", got)
	}
}

func TestScanCommand_Table(t *testing.T) {
	root := t.TempDir()
	makeVenv(t, filepath.Join(root, "small", "venv"), 10)
	makeVenv(t, filepath.Join(root, "big", ".venv"), 5000)
	if err := os.WriteFile(filepath.Join(root, "big", "pyproject.toml"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	env := newTestEnv(t, "")
	if err := runScanCommand(env.Env, []string{root}); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	out := env.stdout.String()
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "SIZE") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(lines[1], filepath.Join("big", ".venv")) || !strings.Contains(lines[1], "yes") {
		t.Errorf("largest environment should come first with a manifest:\n%s", out)
	}
	if !strings.Contains(lines[2], filepath.Join("small", "venv")) {
		t.Errorf("second row should be the small venv:\n%s", out)
	}
	if !strings.Contains(out, "2 environment(s)") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestScanCommand_JSON(t *testing.T) {
	root := t.TempDir()
	makeVenv(t, filepath.Join(root, "proj", "venv"), 100)

	env := newTestEnv(t, "")
	if err := runScanCommand(env.Env, []string{"--json", root}); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	var got []jsonEnvironment
	if err := json.Unmarshal(env.stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, env.stdout.String())
	}
	if len(got) != 1 {
		t.Fatalf("got %d environments, want 1", len(got))
	}
	if got[0].Python != "3.11.2" {
		t.Errorf("Python = %q", got[0].Python)
	}
	if got[0].AgeClass != "recent" {
		t.Errorf("AgeClass = %q, want recent", got[0].AgeClass)
	}
	if got[0].ManifestPaths == nil {
		t.Error("ManifestPaths should be an empty list, not null")
	}
}

func TestScanCommand_MissingRoot(t *testing.T) {
	env := newTestEnv(t, "")
	if err := runScanCommand(env.Env, []string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestDeleteCommand_WithYes(t *testing.T) {
	root := t.TempDir()
	a := makeVenv(t, filepath.Join(root, "a", "venv"), 100)
	b := makeVenv(t, filepath.Join(root, "b", "venv"), 200)

	env := newTestEnv(t, "")
	if err := runDeleteCommand(env.Env, []string{"--yes", a, b}); err != nil {
		t.Fatalf("delete failed: %v\n%s", err, env.stderr.String())
	}

	for _, p := range []string{a, b} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists", p)
		}
	}
	if !strings.Contains(env.stdout.String(), "Deleted 2 environment(s)") {
		t.Errorf("stdout = %q", env.stdout.String())
	}
	if !strings.Contains(env.stderr.String(), "[1/2]") {
		t.Errorf("expected progress lines, stderr = %q", env.stderr.String())
	}
	if _, ok := instance.Holder(env.ConfigDir); ok {
		t.Error("lock should be released after delete")
	}
}

func TestDeleteCommand_RefusesNonEnvironment(t *testing.T) {
	plain := filepath.Join(t.TempDir(), "src")
	if err := os.MkdirAll(plain, 0o755); err != nil {
		t.Fatal(err)
	}

	env := newTestEnv(t, "")
	err := runDeleteCommand(env.Env, []string{"-y", plain})
	if err == nil {
		t.Fatal("expected refusal")
	}
	if _, statErr := os.Stat(plain); statErr != nil {
		t.Error("non-environment directory must not be deleted")
	}
	if !strings.Contains(env.stderr.String(), "not a virtual environment") {
		t.Errorf("stderr = %q", env.stderr.String())
	}

	env = newTestEnv(t, "")
	if err := runDeleteCommand(env.Env, []string{"-y", "--force", plain}); err != nil {
		t.Fatalf("forced delete failed: %v", err)
	}
	if _, statErr := os.Stat(plain); !os.IsNotExist(statErr) {
		t.Error("--force should delete the directory")
	}
}

func TestDeleteCommand_PromptDeclined(t *testing.T) {
	venv := makeVenv(t, filepath.Join(t.TempDir(), "venv"), 10)

	env := newTestEnv(t, "n\n")
	if err := runDeleteCommand(env.Env, []string{venv}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(venv); err != nil {
		t.Error("declined prompt must not delete")
	}
	if !strings.Contains(env.stdout.String(), "Aborted.") {
		t.Errorf("stdout = %q", env.stdout.String())
	}
}

func TestDeleteCommand_PromptAccepted(t *testing.T) {
	venv := makeVenv(t, filepath.Join(t.TempDir(), "venv"), 10)

	env := newTestEnv(t, "yes\n")
	if err := runDeleteCommand(env.Env, []string{venv}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(venv); !os.IsNotExist(err) {
		t.Error("accepted prompt should delete")
	}
}

func TestDeleteCommand_LockHeld(t *testing.T) {
	venv := makeVenv(t, filepath.Join(t.TempDir(), "venv"), 10)
	env := newTestEnv(t, "")

	fl, err := instance.Lock(env.ConfigDir)
	if err != nil {
		t.Fatal(err)
	}
	defer instance.Cleanup(env.ConfigDir, fl)

	err = runDeleteCommand(env.Env, []string{"-y", venv})
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("err = %v, want lock error", err)
	}
	if _, statErr := os.Stat(venv); statErr != nil {
		t.Error("nothing should be deleted while another session holds the lock")
	}
}

func TestCleanupCommand(t *testing.T) {
	env := newTestEnv(t, "")
	if err := runCleanupCommand(env.Env); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Cleaned up") {
		t.Errorf("stdout = %q", env.stdout.String())
	}
}

func TestBuildApp_Version(t *testing.T) {
	env := newTestEnv(t, "")
	app := BuildApp("1.2.3", env.Env)
	if app.Execute([]string{"version"}) {
		t.Fatal("version should not launch the TUI")
	}
	if strings.TrimSpace(env.stdout.String()) != "1.2.3" {
		t.Errorf("stdout = %q", env.stdout.String())
	}
}

func TestProgressPrinter_NonTTY(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newProgressPrinter(buf)
	p.update(0, 2, "/a (0%)")
	p.update(0, 2, "/a (50%)")
	p.update(1, 2, "/b (0%)")
	p.update(2, 2, "done")
	p.finish()

	want := "[1/2] /a (0%)\n[2/2] /b (0%)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
