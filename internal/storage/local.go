package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/reserveiviagens/rsv360-media-service/internal/media"
	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

const (
	// ThumbPrefix marks derived thumbnails in the thumbnails subdirectory.
	ThumbPrefix = "thumb_"

	thumbsDirName = "thumbnails"
	tmpSuffix     = ".tmp"
)

// Store keeps primary assets flat in an upload root and their thumbnails in
// a sibling "thumbnails" subdirectory. The directory contents are the source
// of truth; nothing is indexed elsewhere.
type Store struct {
	fs           afero.Fs
	root         string
	thumbs       string
	publicPrefix string
}

func NewStore(fsys afero.Fs, root, publicPrefix string) (*Store, error) {
	thumbs := filepath.Join(root, thumbsDirName)
	if err := fsys.MkdirAll(thumbs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dirs: %w", err)
	}
	return &Store{
		fs:           fsys,
		root:         root,
		thumbs:       thumbs,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
	}, nil
}

// ThumbName returns the thumbnail filename paired with a primary filename.
// Image thumbnails keep the original extension; video thumbnails are always
// JPEG stills.
func ThumbName(filename string, kind media.Kind) string {
	if kind == media.KindVideo {
		base := strings.TrimSuffix(filename, filepath.Ext(filename))
		return ThumbPrefix + base + ".jpg"
	}
	return ThumbPrefix + filename
}

// ValidateFilename rejects caller-supplied names that could escape the
// upload root. Nothing touches the filesystem before this passes.
func ValidateFilename(name string) error {
	if name == "" || name == "." {
		return fmt.Errorf("%w: empty", utils.ErrBadFilename)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", utils.ErrBadFilename, name)
	}
	return nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) PrimaryPath(filename string) string {
	return filepath.Join(s.root, filename)
}

func (s *Store) ThumbPath(thumbName string) string {
	return filepath.Join(s.thumbs, thumbName)
}

func (s *Store) PublicURL(filename string) string {
	return s.publicPrefix + "/" + filename
}

func (s *Store) ThumbURL(thumbName string) string {
	return s.publicPrefix + "/" + thumbsDirName + "/" + thumbName
}

// SaveOriginal writes an uploaded blob to its canonical path. A failed copy
// leaves nothing behind.
func (s *Store) SaveOriginal(filename string, r io.Reader) (int64, error) {
	path := s.PrimaryPath(filename)
	f, err := s.fs.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(path)
		return 0, err
	}
	return n, nil
}

func (s *Store) WriteThumbnail(thumbName string, data []byte) error {
	return afero.WriteFile(s.fs, s.ThumbPath(thumbName), data, 0o644)
}

// SwapPrimary installs derived bytes as the asset's permanent content. The
// bytes go to a temporary sibling first and are moved over the canonical
// path in a single rename, so a concurrent reader never finds the path
// missing. The .tmp extension keeps the scratch file out of listings.
func (s *Store) SwapPrimary(filename string, data []byte) error {
	canonical := s.PrimaryPath(filename)
	tmp := canonical + tmpSuffix
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, canonical); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

// Discard removes every trace of a failed ingestion: the primary file, its
// thumbnail and any swap scratch file. Absence of any of them is fine.
func (s *Store) Discard(filename string, kind media.Kind) {
	_ = s.fs.Remove(s.PrimaryPath(filename) + tmpSuffix)
	_ = s.fs.Remove(s.PrimaryPath(filename))
	_ = s.fs.Remove(s.ThumbPath(ThumbName(filename, kind)))
}

// RemoveThumb drops a (possibly partial) thumbnail, tolerating its absence.
func (s *Store) RemoveThumb(thumbName string) {
	_ = s.fs.Remove(s.ThumbPath(thumbName))
}

// List reconstructs the assets of one kind from the upload root, newest
// first. It is a point-in-time snapshot: concurrent uploads or deletes may
// race the scan.
func (s *Store) List(kind media.Kind) ([]media.Asset, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("scan upload dir: %w", err)
	}

	assets := make([]media.Asset, 0, len(entries))
	for _, fi := range entries {
		if fi.IsDir() {
			continue
		}
		name := fi.Name()
		if k, ok := media.KindOf(name); !ok || k != kind {
			continue
		}
		a := media.Asset{
			ID:         uuid.NewString(),
			Filename:   name,
			Size:       fi.Size(),
			MimeType:   media.TypeByExtension(name),
			URL:        s.PublicURL(name),
			UploadedAt: fi.ModTime().UTC(),
		}
		thumbName := ThumbName(name, kind)
		if ok, _ := afero.Exists(s.fs, s.ThumbPath(thumbName)); ok {
			u := s.ThumbURL(thumbName)
			a.ThumbnailURL = &u
		}
		assets = append(assets, a)
	}

	sort.Slice(assets, func(i, j int) bool {
		if !assets[i].UploadedAt.Equal(assets[j].UploadedAt) {
			return assets[i].UploadedAt.After(assets[j].UploadedAt)
		}
		return assets[i].Filename > assets[j].Filename
	})
	return assets, nil
}

// Delete removes a primary asset and, if present, its thumbnail. A missing
// primary is a not-found error and causes no deletion at all; a missing
// thumbnail is not an error.
func (s *Store) Delete(filename string, kind media.Kind) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	path := s.PrimaryPath(filename)
	if err := s.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", utils.ErrFileNotFound, filename)
		}
		return err
	}
	s.RemoveThumb(ThumbName(filename, kind))
	return nil
}
