package dbcli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yarin78/morphy-sub004/database"
	"github.com/Yarin78/morphy-sub004/snapshot"
)

func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := run(t, dataDir, args...)
	require.NoError(t, err, "morphy %s", strings.Join(args, " "))
	return out
}

func TestCreateAndListDatabases(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "create-db", "wch")
	assert.Contains(t, out, "Created database wch")
	out = mustRun(t, dir, "create-db")
	assert.Regexp(t, regexp.MustCompile(`Created database db_[0-9a-f]{8} `), out)

	_, err := run(t, dir, "create-db", "wch")
	assert.ErrorIs(t, err, database.ErrExists)

	out = mustRun(t, dir, "list-dbs", "--json")
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	require.Len(t, names, 2)
	assert.Contains(t, names, "wch")
}

func TestEntityCommands(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create-db", "games")

	assert.Equal(t, "0\tCarlsen, Magnus\n", mustRun(t, dir, "add", "games", "players", "Carlsen, Magnus"))
	assert.Equal(t, "1\tAnand, Viswanathan\n", mustRun(t, dir, "add", "games", "players", "Anand, Viswanathan"))
	assert.Equal(t, "2\tCarlsen, Henrik\n", mustRun(t, dir, "add", "games", "players", "Carlsen, Henrik"))

	assert.Equal(t, "0\tCarlsen, Magnus\n", mustRun(t, dir, "get", "games", "players", "0"))
	assert.Equal(t, "1\tAnand, Viswanathan\n2\tCarlsen, Henrik\n0\tCarlsen, Magnus\n",
		mustRun(t, dir, "list", "games", "players"))
	assert.Equal(t, "0\tCarlsen, Magnus\n2\tCarlsen, Henrik\n",
		mustRun(t, dir, "list", "games", "players", "--desc", "--limit", "2"))
	assert.Equal(t, "2\tCarlsen, Henrik\n0\tCarlsen, Magnus\n",
		mustRun(t, dir, "list", "games", "players", "--from", "Carlsen"))

	out := mustRun(t, dir, "find", "games", "players", "anand, viswanathan", "--json")
	var recs []database.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, int32(1), recs[0].ID)

	assert.Equal(t, "1\tAnand, Vishy\n", mustRun(t, dir, "rename", "games", "players", "1", "Anand, Vishy"))
	assert.Equal(t, "Deleted players 2\n", mustRun(t, dir, "delete", "games", "players", "2"))
	assert.Equal(t, "1\tAnand, Vishy\n0\tCarlsen, Magnus\n", mustRun(t, dir, "list", "games", "players"))

	mustRun(t, dir, "add", "games", "tournaments", "Tata Steel | Wijk aan Zee | 2024.01.13")
	assert.Equal(t, "0\tTata Steel | Wijk aan Zee | 2024.01.13\n", mustRun(t, dir, "list", "games", "tournaments"))

	assert.Contains(t, mustRun(t, dir, "validate", "games"), "all 6 indexes are valid")
}

func TestEntityErrors(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create-db", "games")
	mustRun(t, dir, "add", "games", "tags", "WhiteClock")

	_, err := run(t, dir, "add", "missing", "tags", "x")
	assert.ErrorIs(t, err, database.ErrNoDatabase)

	_, err = run(t, dir, "add", "games", "openings", "x")
	assert.ErrorIs(t, err, database.ErrUnknownKind)

	_, err = run(t, dir, "add", "games", "players", "")
	assert.ErrorIs(t, err, database.ErrInvalidText)

	_, err = run(t, dir, "get", "games", "tags", "7")
	assert.EqualError(t, err, "tags 7 not found")

	_, err = run(t, dir, "get", "games", "tags", "abc")
	assert.EqualError(t, err, `invalid id "abc"`)

	_, err = run(t, dir, "delete", "games", "tags", "3")
	assert.EqualError(t, err, "tags 3 not found")

	_, err = run(t, dir, "get", "games", "tags")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create-db", "games")
	mustRun(t, dir, "add", "games", "teams", "Norway | 1")

	out := mustRun(t, dir, "stats", "games")
	assert.Contains(t, out, "teams")
	assert.Contains(t, out, "total")

	out = mustRun(t, dir, "stats", "games", "--json")
	var stats []database.KindStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, len(database.Kinds))
	for _, st := range stats {
		if st.Kind == database.Teams {
			assert.Equal(t, int32(1), st.Live)
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create-db", "games")
	mustRun(t, dir, "add", "games", "annotators", "Kasparov")

	out := mustRun(t, dir, "snapshot", "games", "-m", "one annotator")
	assert.Contains(t, out, "Snapshot ")

	mustRun(t, dir, "add", "games", "annotators", "Dvoretsky")
	assert.Equal(t, "1\tDvoretsky\n0\tKasparov\n", mustRun(t, dir, "list", "games", "annotators"))

	out = mustRun(t, dir, "snapshots", "games", "--json")
	var snaps []snapshot.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "one annotator", snaps[0].Message)

	out = mustRun(t, dir, "restore", "games", snaps[0].ID[:8])
	assert.Contains(t, out, "Restored games")
	assert.Equal(t, "0\tKasparov\n", mustRun(t, dir, "list", "games", "annotators"))

	_, err := run(t, dir, "restore", "games", "zzzz")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	_, err = os.Stat(filepath.Join(dir, "games", snapshot.Dir))
	assert.NoError(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "morphy.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data_dir: "+dir+"\nlog_level: warn\n"), 0o644))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "create-db", "fromcfg"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "fromcfg"))
	assert.NoError(t, err)
}
