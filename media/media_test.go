package media

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"

	"city-samadhan/logger"
	"city-samadhan/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR chunk is enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

var wavBytes = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)

func newStager(t *testing.T, max int64) *Stager {
	t.Helper()
	s, err := NewStager(t.TempDir(), max, logger.Discard())
	require.NoError(t, err)
	return s
}

func TestStageImage(t *testing.T) {
	s := newStager(t, 1<<20)

	asset, err := s.Stage(Image, "pothole.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	assert.Equal(t, Image, asset.Kind)
	assert.Equal(t, "image/png", asset.ContentType)
	assert.Equal(t, ".png", asset.Extension)
	assert.Equal(t, int64(len(pngBytes)), asset.Size)

	rc, err := Open(asset)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestStageAudio(t *testing.T) {
	s := newStager(t, 1<<20)

	asset, err := s.Stage(Audio, "note.wav", bytes.NewReader(wavBytes))
	require.NoError(t, err)
	assert.Equal(t, Audio, asset.Kind)
}

func TestStageRejects(t *testing.T) {
	t.Run("wrong kind", func(t *testing.T) {
		s := newStager(t, 1<<20)
		_, err := s.Stage(Audio, "photo.png", bytes.NewReader(pngBytes))
		assert.True(t, errors.Is(err, types.ErrValidation))
	})

	t.Run("oversize", func(t *testing.T) {
		s := newStager(t, 8)
		_, err := s.Stage(Image, "big.png", bytes.NewReader(pngBytes))
		assert.True(t, errors.Is(err, types.ErrValidation))
	})

	t.Run("empty", func(t *testing.T) {
		s := newStager(t, 1<<20)
		_, err := s.Stage(Image, "", bytes.NewReader(nil))
		assert.True(t, errors.Is(err, types.ErrValidation))
	})
}

func TestDiscard(t *testing.T) {
	s := newStager(t, 1<<20)
	asset, err := s.Stage(Image, "a.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	s.Discard(asset)
	_, err = os.Stat(asset.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// second discard is a no-op
	s.Discard(asset)
}
