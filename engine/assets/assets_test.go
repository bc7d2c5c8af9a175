package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSPIRV(t *testing.T, path string) {
	t.Helper()
	words := []uint32{loaders.SPIRVMagic, 0x00010000, 0, 1, 0}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]loaders.ResourceType{
		"shaders/default.vert.spv": loaders.ResourceTypeShader,
		"textures/crate.png":       loaders.ResourceTypeImage,
		"textures/crate.jpg":       loaders.ResourceTypeImage,
		"models/monkey.obj":        loaders.ResourceTypeModel,
		"fonts/hud.fnt":            loaders.ResourceTypeBitmapFont,
		"shaders/default.vert":     loaders.ResourceTypeNone,
		"README":                   loaders.ResourceTypeNone,
	}
	for path, want := range tests {
		assert.Equal(t, want, determineAssetType(path), path)
	}
}

func TestLoadShaderRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	writeSPIRV(t, filepath.Join(root, "shaders", "default.vert.spv"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	am, err := NewAssetManager(root, false)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	defer am.Shutdown()

	info, ok := am.Asset("shaders/default.vert.spv")
	require.True(t, ok)
	assert.Equal(t, loaders.ResourceTypeShader, info.Type)
	_, ok = am.Asset("notes.txt")
	assert.False(t, ok)

	res, err := am.LoadAsset("shaders/default.vert.spv", loaders.ResourceTypeNone, nil)
	require.NoError(t, err)
	code := res.Data.([]uint32)
	assert.Len(t, code, 5)
	assert.Equal(t, loaders.SPIRVMagic, code[0])

	info, _ = am.Asset("shaders/default.vert.spv")
	assert.False(t, info.LastLoaded.IsZero())
}

func TestLoadAssetErrors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.spv"), []byte{1, 2, 3, 4}, 0o644))

	am, err := NewAssetManager(root, false)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	defer am.Shutdown()

	_, err = am.LoadAsset("bad.spv", loaders.ResourceTypeShader, nil)
	assert.Error(t, err)
	_, err = am.LoadAsset("missing.spv", loaders.ResourceTypeShader, nil)
	assert.Error(t, err)
	_, err = am.LoadAsset("notes.txt", loaders.ResourceTypeNone, nil)
	assert.Error(t, err)
}

func TestNotifyDropsWhenBacklogFull(t *testing.T) {
	am, err := NewAssetManager(t.TempDir(), false)
	require.NoError(t, err)

	for i := 0; i < changedBacklog+10; i++ {
		am.notify("a/../shaders/x.spv")
	}
	assert.Len(t, am.changed, changedBacklog)
	assert.Equal(t, filepath.Join("shaders", "x.spv"), <-am.Changed())

	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
}

func TestResolve(t *testing.T) {
	am, err := NewAssetManager("assets", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("assets", "shaders", "ui.frag.spv"), am.Resolve("shaders/ui.frag.spv"))
	assert.Equal(t, "/tmp/x.png", am.Resolve("/tmp/../tmp/x.png"))
}
