//go:build blackbox

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var tradebookBin string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "tradebook-blackbox-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	tradebookBin = filepath.Join(tmp, "tradebook")

	// Build the binary once for all tests.
	cmd := exec.Command("go", "build", "-o", tradebookBin, ".")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func run(t *testing.T, root string, args ...string) string {
	t.Helper()

	cmd := exec.Command(tradebookBin, append([]string{"--root", root}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("command failed: %v\nargs: %v\noutput:\n%s", err, args, string(out))
	}
	return string(out)
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateLegacyTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "trades", "AAPL_2024-01-15", "entry.md"), "# entry\n")
	writeFile(t, filepath.Join(root, "trades", "MSFT", "idea.md"),
		"---\nticker: MSFT\ndate: 2023-06-01\nstatus: open\n---\n# idea\n")

	out := run(t, root, "migrate", "--dry-run")
	if !strings.Contains(out, "Migration (dry run): 2 migrated, 0 skipped") {
		t.Fatalf("unexpected dry run output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, "trades", "2024")); !os.IsNotExist(err) {
		t.Fatalf("dry run created folders")
	}

	out = run(t, root, "migrate")
	for _, want := range []string{
		"Migration: 2 migrated, 0 skipped",
		"trades/AAPL_2024-01-15 -> trades/2024/AAPL_01-15_001 [folder-name",
		"trades/MSFT -> trades/2023/MSFT_06-01_001 [note-frontmatter",
		"Backup: backups/backup-",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "trades", "2023", "MSFT_06-01_001", "idea.md")); err != nil {
		t.Fatalf("note not migrated: %v", err)
	}
}

func TestAddValidateExport(t *testing.T) {
	root := t.TempDir()

	out := run(t, root, "trade", "add", "--ticker", "TSLA", "--buy-date", "2024-02-01",
		"--buy-price", "200", "--qty", "5")
	if !strings.Contains(out, "Folder: trades/2024/TSLA_02-01_001") {
		t.Fatalf("unexpected add output:\n%s", out)
	}

	out = run(t, root, "validate")
	if !strings.Contains(out, "valid: 1 records") {
		t.Fatalf("unexpected validate output:\n%s", out)
	}

	out = run(t, root, "export", "sqlite", "--from", "2024-02-01")
	if !strings.Contains(out, "Exported 1 trade(s)") || !strings.Contains(out, "Trade: TSLA 2024-02-01") {
		t.Fatalf("unexpected export output:\n%s", out)
	}
}
