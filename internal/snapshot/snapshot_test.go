package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRendered(t *testing.T, root string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, "rendered")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestCreate(t *testing.T) {
	root := t.TempDir()
	seedRendered(t, root, map[string]string{"docker-compose.yml": "version: \"3.8\"\n"})

	name, err := Create(root)
	require.NoError(t, err)
	assert.True(t, len(name) > len(Prefix))

	data, err := os.ReadFile(filepath.Join(root, ".stevedore", "snapshots", name, "docker-compose.yml"))
	require.NoError(t, err)
	assert.Equal(t, "version: \"3.8\"\n", string(data))
}

func TestCreate_NothingToSnapshot(t *testing.T) {
	root := t.TempDir()

	name, err := Create(root)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestCreate_UniqueNames(t *testing.T) {
	root := t.TempDir()
	seedRendered(t, root, map[string]string{"docker-compose.yml": "a\n"})

	first, err := Create(root)
	require.NoError(t, err)
	second, err := Create(root)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestList(t *testing.T) {
	root := t.TempDir()
	seedRendered(t, root, map[string]string{"docker-compose.yml": "a\n", "extra.yml": "b\n"})

	name, err := Create(root)
	require.NoError(t, err)

	snapshots, err := List(root)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, name, snapshots[0].Name)
	assert.Equal(t, 2, snapshots[0].FileCount)
	assert.WithinDuration(t, time.Now(), snapshots[0].Created, time.Minute)
}

func TestList_NewestFirst(t *testing.T) {
	root := t.TempDir()
	seedRendered(t, root, map[string]string{"docker-compose.yml": "a\n"})

	_, err := Create(root)
	require.NoError(t, err)
	newest, err := Create(root)
	require.NoError(t, err)

	snapshots, err := List(root)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, newest, snapshots[0].Name)
}

func TestList_NoSnapshotsDir(t *testing.T) {
	snapshots, err := List(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestRestore(t *testing.T) {
	root := t.TempDir()
	seedRendered(t, root, map[string]string{"docker-compose.yml": "original\n"})

	name, err := Create(root)
	require.NoError(t, err)

	// Simulate a bad render over the top.
	require.NoError(t, os.WriteFile(filepath.Join(root, "rendered", "docker-compose.yml"), []byte("broken\n"), 0644))

	require.NoError(t, Restore(root, name))

	data, err := os.ReadFile(filepath.Join(root, "rendered", "docker-compose.yml"))
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data))

	// The broken state was backed up before restore.
	snapshots, err := List(root)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
	entries, err := os.ReadDir(filepath.Join(root, ".stevedore", "snapshots"))
	require.NoError(t, err)
	foundBackup := false
	for _, e := range entries {
		if len(e.Name()) > len("pre-restore-") && e.Name()[:len("pre-restore-")] == "pre-restore-" {
			foundBackup = true
		}
	}
	assert.True(t, foundBackup)
}

func TestRestore_NotFound(t *testing.T) {
	err := Restore(t.TempDir(), "snapshot-bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot not found")
}

func TestRestore_NoTempDirsLeftBehind(t *testing.T) {
	root := t.TempDir()
	seedRendered(t, root, map[string]string{"docker-compose.yml": "a\n"})

	name, err := Create(root)
	require.NoError(t, err)
	require.NoError(t, Restore(root, name))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".restore-")
	}
}

func TestCleanup_Retention(t *testing.T) {
	root := t.TempDir()
	snapDir := filepath.Join(root, ".stevedore", "snapshots")
	require.NoError(t, os.MkdirAll(snapDir, 0755))

	// Fabricate more snapshots than the retention limit.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < MaxSnapshots+5; i++ {
		name := Prefix + base.Add(time.Duration(i)*time.Second).Format(DateFormat)
		require.NoError(t, os.MkdirAll(filepath.Join(snapDir, name), 0755))
	}

	require.NoError(t, Cleanup(root))

	snapshots, err := List(root)
	require.NoError(t, err)
	assert.Len(t, snapshots, MaxSnapshots)

	// The oldest were the ones removed.
	oldest := Prefix + base.Format(DateFormat)
	for _, snap := range snapshots {
		assert.NotEqual(t, oldest, snap.Name)
	}
}

func TestCleanup_UnderLimit(t *testing.T) {
	root := t.TempDir()
	seedRendered(t, root, map[string]string{"docker-compose.yml": "a\n"})
	for i := 0; i < 3; i++ {
		_, err := Create(root)
		require.NoError(t, err)
	}

	require.NoError(t, Cleanup(root))

	snapshots, err := List(root)
	require.NoError(t, err)
	assert.Len(t, snapshots, 3)
}
