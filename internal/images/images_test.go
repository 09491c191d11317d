package images

import (
	"bytes"
	"encoding/hex"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))
	require.NoError(t, err)
	return &buf
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img
}

func TestSaveDownscalesLargeImage(t *testing.T) {
	dir := t.TempDir()

	filename, err := Save(pngImage(t, 800, 400), "big.png", dir, NoteBox)
	require.NoError(t, err)

	img := decodeFile(t, filepath.Join(dir, filename))
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestSaveKeepsSmallImage(t *testing.T) {
	dir := t.TempDir()

	filename, err := Save(pngImage(t, 60, 40), "small.png", dir, ProfileBox)
	require.NoError(t, err)

	img := decodeFile(t, filepath.Join(dir, filename))
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestSaveTallImagePreservesAspect(t *testing.T) {
	dir := t.TempDir()

	filename, err := Save(pngImage(t, 125, 500), "tall.png", dir, ProfileBox)
	require.NoError(t, err)

	img := decodeFile(t, filepath.Join(dir, filename))
	assert.Equal(t, 31, img.Bounds().Dx())
	assert.Equal(t, 125, img.Bounds().Dy())
}

func TestSaveFilenameIsRandomHex(t *testing.T) {
	dir := t.TempDir()

	filename, err := Save(pngImage(t, 10, 10), "photo.PNG", dir, NoteBox)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(filename, ".png"))
	stem := strings.TrimSuffix(filename, ".png")
	assert.Len(t, stem, 16)
	_, err = hex.DecodeString(stem)
	assert.NoError(t, err)
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	_, err := Save(pngImage(t, 10, 10), "notes.txt", t.TempDir(), NoteBox)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
