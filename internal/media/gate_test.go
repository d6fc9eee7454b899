package media

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

func imageGate() *Gate {
	return NewGate(KindImage, Limits{MaxFileBytes: 10 << 20, MaxFiles: 10})
}

func TestGateAcceptsWhitelistedTypes(t *testing.T) {
	g := imageGate()
	for _, mt := range []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"} {
		assert.NoError(t, g.Check(mt, 1024), mt)
	}

	v := NewGate(KindVideo, Limits{MaxFileBytes: 200 << 20, MaxFiles: 5})
	for _, mt := range []string{"video/mp4", "video/webm"} {
		assert.NoError(t, v.Check(mt, 1024), mt)
	}
}

func TestGateRejectsDisallowedType(t *testing.T) {
	g := imageGate()
	for _, mt := range []string{"application/pdf", "video/mp4", "text/html", ""} {
		assert.ErrorIs(t, g.Check(mt, 1024), utils.ErrUnsupportedType, mt)
	}
}

func TestGateRejectsOversizedFile(t *testing.T) {
	g := imageGate()
	assert.NoError(t, g.Check("image/png", 10<<20))
	assert.ErrorIs(t, g.Check("image/png", 10<<20+1), utils.ErrFileTooLarge)
}

func TestGateCheckSize(t *testing.T) {
	g := imageGate()
	assert.NoError(t, g.CheckSize(10<<20))
	assert.ErrorIs(t, g.CheckSize(10<<20+1), utils.ErrFileTooLarge)
}

func TestGateCheckCount(t *testing.T) {
	g := imageGate()
	assert.ErrorIs(t, g.CheckCount(0), utils.ErrNoFiles)
	assert.NoError(t, g.CheckCount(10))
	assert.ErrorIs(t, g.CheckCount(11), utils.ErrTooManyFiles)
}

func TestKindOf(t *testing.T) {
	for name, want := range map[string]Kind{
		"a.jpg": KindImage, "b.JPEG": KindImage, "c.png": KindImage,
		"d.gif": KindImage, "e.webp": KindImage,
		"f.mp4": KindVideo, "g.WEBM": KindVideo,
	} {
		got, ok := KindOf(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"noext", "x.txt", "y.pdf", "z.tmp"} {
		_, ok := KindOf(name)
		assert.False(t, ok, name)
	}
}
