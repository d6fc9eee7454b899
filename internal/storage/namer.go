package storage

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UniqueName derives a collision-resistant stored filename from an uploaded
// file's original name. The random token plus a nanosecond timestamp makes
// clashes negligible across concurrent requests without any allocator or
// lock. The original extension is kept (lower-cased); a name with no
// extension yields a stored name with none.
func UniqueName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.NewString() + "-" + strconv.FormatInt(time.Now().UnixNano(), 10) + ext
}
