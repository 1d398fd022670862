package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerAllocatesStablePaths(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	defer m.Close()

	info, err := os.Stat(m.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	p1 := m.PathsFor("shift")
	p2 := m.PathsFor("shift")
	assert.Equal(t, p1, p2)

	assert.Equal(t, filepath.Join(m.Dir(), "shift.cpp"), p1.Src)
	assert.Equal(t, filepath.Join(m.Dir(), "shift.lib.so"), p1.Lib)
	assert.Equal(t, filepath.Join(m.Dir(), "shift.copy.so"), p1.Copy)
	assert.Equal(t, filepath.Join(m.Dir(), "shift.lock"), p1.Lock)

	other := m.PathsFor("scale")
	assert.NotEqual(t, p1.Lib, other.Lib)
}

func TestManagerMainPaths(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, filepath.Join(m.Dir(), "main.cpp"), m.MainSource())
	assert.Equal(t, filepath.Join(m.Dir(), "main.exe"), m.Executable())
}

func TestManagerRunDirsAreFresh(t *testing.T) {
	m1, err := NewManager()
	require.NoError(t, err)
	defer m1.Close()
	m2, err := NewManager()
	require.NoError(t, err)
	defer m2.Close()

	assert.NotEqual(t, m1.Dir(), m2.Dir())
}

func TestManagerClose(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	p := m.PathsFor("f")
	require.NoError(t, os.WriteFile(p.Src, []byte("int f;"), 0644))

	require.NoError(t, m.Close())
	_, err = os.Stat(m.Dir())
	assert.True(t, os.IsNotExist(err))
}
