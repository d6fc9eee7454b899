package media

import (
	"fmt"

	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

// Limits are the per-request admission ceilings of one upload endpoint.
type Limits struct {
	MaxFileBytes int64
	MaxFiles     int
}

// Gate decides whether an incoming blob may be stored. It is a pure
// predicate: no bytes are persisted before it accepts.
type Gate struct {
	kind    Kind
	allowed map[string]bool
	limits  Limits
}

func NewGate(kind Kind, limits Limits) *Gate {
	return &Gate{kind: kind, allowed: kind.MimeTypes(), limits: limits}
}

// CheckCount rejects a whole request whose file count exceeds the ceiling.
func (g *Gate) CheckCount(n int) error {
	if n == 0 {
		return utils.ErrNoFiles
	}
	if n > g.limits.MaxFiles {
		return fmt.Errorf("%w: %d submitted, limit %d", utils.ErrTooManyFiles, n, g.limits.MaxFiles)
	}
	return nil
}

// CheckSize rejects a blob by size alone. Callers use it against the
// declared part size before buffering any bytes.
func (g *Gate) CheckSize(size int64) error {
	if size > g.limits.MaxFileBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", utils.ErrFileTooLarge, size, g.limits.MaxFileBytes)
	}
	return nil
}

// Check rejects a single blob by declared MIME type or size. A rejection
// here affects only this blob, not its batch siblings.
func (g *Gate) Check(mimeType string, size int64) error {
	if err := g.CheckSize(size); err != nil {
		return err
	}
	if !g.allowed[mimeType] {
		return fmt.Errorf("%w: %q not allowed for %s uploads", utils.ErrUnsupportedType, mimeType, g.kind)
	}
	return nil
}
