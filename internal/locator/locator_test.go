package locator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/exrun/internal/config"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
}

func TestResolveFor(t *testing.T) {
	tests := []struct {
		goos       string
		wantDir    string
		wantSuffix string
	}{
		{"linux", filepath.Join("out", "bin"), ""},
		{"darwin", filepath.Join("out", "bin"), ""},
		{"windows", filepath.Join("out", "bin", "RelWithDebInfo"), ".exe"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			loc := ResolveFor(tt.goos, filepath.Join("out", "bin"))
			assert.Equal(t, tt.wantDir, loc.Dir)
			assert.Equal(t, tt.wantSuffix, loc.Suffix)
		})
	}
}

func TestPath(t *testing.T) {
	loc := Location{Dir: filepath.Join("bin", "RelWithDebInfo"), Suffix: ".exe"}
	assert.Equal(t, filepath.Join("bin", "RelWithDebInfo", "02_timers.exe"), loc.Path("02_timers"))
}

func TestMissing(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "A"))

	loc := Location{Dir: dir}
	catalog := []config.Example{{Name: "A", Timeout: time.Second}, {Name: "B", Timeout: time.Second}}

	assert.Equal(t, []string{"B"}, Missing(catalog, loc))

	touch(t, filepath.Join(dir, "B"))
	assert.Empty(t, Missing(catalog, loc))
	assert.NoError(t, CheckCatalog(catalog, loc))
}

func TestMissing_DirectoryIsNotABinary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "A"), 0o755))

	missing := Missing([]config.Example{{Name: "A", Timeout: time.Second}}, Location{Dir: dir})
	assert.Equal(t, []string{"A"}, missing)
}

func TestCheckCatalog_MissingDir(t *testing.T) {
	loc := Location{Dir: filepath.Join(t.TempDir(), "nope")}
	err := CheckCatalog(config.DefaultCatalog, loc)
	require.Error(t, err)

	var me *MissingError
	require.True(t, errors.As(err, &me))
	assert.Len(t, me.Names, len(config.DefaultCatalog))
	assert.Equal(t, "01_basic_concepts", me.Names[0])
	assert.Contains(t, err.Error(), "05_strand_thread_safety")
}
