package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencies(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "chair.obj")
	require.NoError(t, os.WriteFile(model, []byte("v 0 0 0\n"), 0o644))

	assert.Equal(t, []string{model}, Dependencies(model))

	mtl := filepath.Join(dir, "chair.mtl")
	require.NoError(t, os.WriteFile(mtl, []byte("newmtl a\n"), 0o644))
	assert.Equal(t, []string{model, mtl}, Dependencies(model))

	glb := filepath.Join(dir, "chair.glb")
	assert.Equal(t, []string{glb}, Dependencies(glb))

	scad := filepath.Join(dir, "bracket.scad")
	lib := filepath.Join(dir, "lib.scad")
	require.NoError(t, os.WriteFile(scad, []byte("use <lib.scad>\ncube(1);\n"), 0o644))
	require.NoError(t, os.WriteFile(lib, []byte("module m() {}\n"), 0o644))
	assert.Equal(t, []string{scad, lib}, Dependencies(scad))
}

func TestWatchMaterialLibraryChange(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "chair.obj")
	mtl := filepath.Join(dir, "chair.mtl")
	require.NoError(t, os.WriteFile(model, []byte("v 0 0 0\n"), 0o644))
	require.NoError(t, os.WriteFile(mtl, []byte("newmtl a\n"), 0o644))

	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	changed := make(chan string, 4)
	require.NoError(t, fw.Watch(model, func(path string) { changed <- path }))
	fw.Start()

	require.NoError(t, os.WriteFile(mtl, []byte("newmtl b\n"), 0o644))

	select {
	case path := <-changed:
		assert.Equal(t, model, path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}
