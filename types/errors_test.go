package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("submit: %w", E(KindUpload, "upload", errors.New("503")))

	assert.True(t, errors.Is(err, ErrUpload))
	assert.False(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, KindUpload, KindOf(err))
}

func TestClassify(t *testing.T) {
	t.Run("keeps classified errors", func(t *testing.T) {
		orig := Errorf(KindAuth, "submit", "no user")
		assert.Same(t, orig, Classify(KindPersistence, "create", orig))
	})

	t.Run("timeout becomes the phase kind", func(t *testing.T) {
		err := Classify(KindUpload, "upload", context.DeadlineExceeded)
		assert.True(t, errors.Is(err, ErrUpload))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Classify(KindUpload, "upload", nil))
	})

	t.Run("unclassified error", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	})
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in    string
		want  Category
		known bool
	}{
		{"", OtherCategory, true},
		{"Others", OtherCategory, true},
		{"road damage", RoadDamage, true},
		{" Street Light ", StreetLight, true},
		{"Potholes", OtherCategory, false},
	}
	for _, tc := range cases {
		got, known := ParseCategory(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.known, known, tc.in)
	}

	assert.Equal(t, OtherCategory, Category("Parks").Display())
	assert.Equal(t, Sanitation, Sanitation.Display())
}
