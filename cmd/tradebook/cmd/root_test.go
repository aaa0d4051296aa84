package cmd

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default. Cobra keeps parsed values
// on the package level commands between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

var addedID = regexp.MustCompile(`Added trade (\S+)`)

// TestCLIWorkflow drives one data root through add, notes, validation,
// repair and export. Flag variables are package globals, so the steps run
// in order within a single test.
func TestCLIWorkflow(t *testing.T) {
	root := t.TempDir()
	folder := "trades/2024/AAPL_01-15_001"
	exitNote := folder + "/exit-2024-01-25.md"

	out, err := run(t, "--root", root, "trade", "add",
		"--ticker", "aapl", "--buy-date", "2024-01-15", "--buy-price", "100", "--qty", "10",
		"--commission", "5", "--sell-date", "2024-01-25", "--sell-price", "150")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Folder: "+folder)
	assert.Contains(t, out, "P/L: 495.00")
	assert.Contains(t, out, "Held: 10 days")
	m := addedID.FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	out, err = run(t, "--root", root, "note", "new", id, "--type", "exit")
	require.NoError(t, err, out)
	assert.Contains(t, out, exitNote)

	out, err = run(t, "--root", root, "note", "check", exitNote)
	require.NoError(t, err, out)

	out, err = run(t, "--root", root, "trade", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "495.00")

	out, err = run(t, "--root", root, "validate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "valid: 1 records")

	require.NoError(t, os.RemoveAll(filepath.Join(root, folder)))
	out, err = run(t, "--root", root, "validate")
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "missing folder: "+folder)

	out, err = run(t, "--root", root, "repair")
	require.NoError(t, err, out)
	assert.Contains(t, out, "create missing folder "+folder)
	assert.DirExists(t, filepath.Join(root, folder, "images"))

	_, err = run(t, "--root", root, "validate")
	require.NoError(t, err)

	out, err = run(t, "--root", root, "export", "sqlite")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Exported 1 trade(s)")
	assert.FileExists(t, filepath.Join(root, "tradebook.db"))

	out, err = run(t, "--root", root, "backup", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "backup-")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tradebook version "+version)
}

// tree maps every path below root to its content; directories map to "/".
func tree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		if d.IsDir() {
			out[rel] = "/"
			return nil
		}
		data, err := os.ReadFile(p)
		out[rel] = string(data)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestReadOnlyCommandsLeaveRootUntouched(t *testing.T) {
	root := t.TempDir()
	note := filepath.Join(root, "trades", "AAPL", "n.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(note), 0o755))
	require.NoError(t, os.WriteFile(note, []byte("# idea\n"), 0o644))
	before := tree(t, root)

	for _, args := range [][]string{
		{"migrate", "--dry-run"},
		{"repair", "--dry-run"},
		{"validate"},
		{"trade", "list"},
		{"backup", "list"},
	} {
		out, err := run(t, append([]string{"--root", root}, args...)...)
		require.NoError(t, err, out)
		assert.Equal(t, before, tree(t, root), "after %v", args)
	}
	assert.NoFileExists(t, filepath.Join(root, "ledger.csv"))

	out, err := run(t, "--root", root, "migrate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Migration: 1 migrated, 0 skipped")
	assert.FileExists(t, filepath.Join(root, "ledger.csv"))
	assert.NoDirExists(t, filepath.Join(root, "trades", "AAPL"))
}
