package checksum

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Known vector: SHA-256("abc").
const abcDigest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func TestSum(t *testing.T) {
	assert.Equal(t, abcDigest, Sum([]byte("abc")))

	// Empty input has a well-known digest too.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Sum(nil))
}

func TestReader(t *testing.T) {
	got, err := Reader(bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, abcDigest, got)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vector.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, abcDigest, got)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "absent.bin"))
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileMatchesSum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	payload := bytes.Repeat([]byte{0xA5, 0x5A}, 32*1024)
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	fromFile, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Sum(payload), fromFile)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(abcDigest, abcDigest))
	assert.True(t, Equal(abcDigest, "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD"))
	assert.False(t, Equal(abcDigest, Sum([]byte("abd"))))
}
