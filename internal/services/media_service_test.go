package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reserveiviagens/rsv360-media-service/internal/derive"
	"github.com/reserveiviagens/rsv360-media-service/internal/media"
	"github.com/reserveiviagens/rsv360-media-service/internal/storage"
	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

// fakeExtractor stands in for the ffmpeg binary.
type fakeExtractor struct {
	fs   afero.Fs
	fail bool
}

func (f *fakeExtractor) ExtractFrame(_ context.Context, _ string, outputPath string) error {
	if f.fail {
		return errors.New("decoder unavailable")
	}
	return afero.WriteFile(f.fs, outputPath, []byte("still-frame"), 0o644)
}

func newTestService(t *testing.T, extract derive.FrameExtractor) (*MediaService, *storage.Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := storage.NewStore(fs, "/data/uploads", "/uploads")
	require.NoError(t, err)
	if extract == nil {
		extract = &fakeExtractor{fs: fs}
	}
	imgGate := media.NewGate(media.KindImage, media.Limits{MaxFileBytes: 10 << 20, MaxFiles: 10})
	vidGate := media.NewGate(media.KindVideo, media.Limits{MaxFileBytes: 200 << 20, MaxFiles: 5})
	svc := NewMediaService(store, extract, imgGate, vidGate, derive.DefaultImageOptions(), zap.NewNop().Sugar())
	return svc, store, fs
}

func fileHeader(t *testing.T, field, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(64 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func countUploads(t *testing.T, fs afero.Fs) int {
	t.Helper()
	entries, err := afero.ReadDir(fs, "/data/uploads")
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func TestUploadImageRoundTrip(t *testing.T) {
	svc, store, fs := newTestService(t, nil)

	fh := fileHeader(t, "images", "photo.png", "image/png", pngBytes(t, 1600, 900))
	res, err := svc.UploadImages(context.Background(), []*multipart.FileHeader{fh})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)

	a := res.Accepted[0]
	assert.Equal(t, "photo.png", a.OriginalName)
	assert.NotEqual(t, "photo.png", a.Filename)
	require.NotNil(t, a.ThumbnailURL)

	// the installed primary is the bounded display variant
	data, err := afero.ReadFile(fs, store.PrimaryPath(a.Filename))
	require.NoError(t, err)
	img, err := derive.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds().Size()
	assert.LessOrEqual(t, b.X, 800)
	assert.LessOrEqual(t, b.Y, 600)

	// the thumbnail is the fixed square crop
	data, err = afero.ReadFile(fs, store.ThumbPath(storage.ThumbName(a.Filename, media.KindImage)))
	require.NoError(t, err)
	img, err = derive.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	// a subsequent list includes the asset with its thumbnail
	assets, err := svc.List(media.KindImage)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, a.Filename, assets[0].Filename)
	assert.NotNil(t, assets[0].ThumbnailURL)
}

func TestUploadImagesPartialBatch(t *testing.T) {
	svc, _, fs := newTestService(t, nil)

	files := []*multipart.FileHeader{
		fileHeader(t, "images", "one.png", "image/png", pngBytes(t, 100, 100)),
		fileHeader(t, "images", "doc.pdf", "application/pdf", []byte("%PDF-1.4")),
		fileHeader(t, "images", "two.png", "image/png", pngBytes(t, 120, 80)),
	}
	res, err := svc.UploadImages(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Submitted)
	assert.Len(t, res.Accepted, 2)

	assets, err := svc.List(media.KindImage)
	require.NoError(t, err)
	assert.Len(t, assets, 2)
	assert.Equal(t, 2, countUploads(t, fs), "the rejected file must leave no bytes behind")
}

func TestUploadImagesRejectsTooMany(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	files := make([]*multipart.FileHeader, 11)
	for i := range files {
		files[i] = fileHeader(t, "images", fmt.Sprintf("p%d.png", i), "image/png", pngBytes(t, 10, 10))
	}
	_, err := svc.UploadImages(context.Background(), files)
	assert.ErrorIs(t, err, utils.ErrTooManyFiles)
}

func TestUploadImageDeriveFailureLeavesNothing(t *testing.T) {
	svc, _, fs := newTestService(t, nil)

	// passes the type gate, fails decoding
	fh := fileHeader(t, "images", "broken.png", "image/png", []byte("not really a png"))
	res, err := svc.UploadImages(context.Background(), []*multipart.FileHeader{fh})
	require.NoError(t, err)

	assert.Empty(t, res.Accepted)
	assert.Equal(t, 0, countUploads(t, fs))

	thumbs, err := afero.ReadDir(fs, "/data/uploads/thumbnails")
	require.NoError(t, err)
	assert.Empty(t, thumbs)
}

func TestUploadImageRejectsOversizeBeforeReading(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := storage.NewStore(fs, "/data/uploads", "/uploads")
	require.NoError(t, err)
	imgGate := media.NewGate(media.KindImage, media.Limits{MaxFileBytes: 64, MaxFiles: 10})
	vidGate := media.NewGate(media.KindVideo, media.Limits{MaxFileBytes: 64, MaxFiles: 5})
	svc := NewMediaService(store, &fakeExtractor{fs: fs}, imgGate, vidGate,
		derive.DefaultImageOptions(), zap.NewNop().Sugar())

	// a valid png well over the ceiling: rejected on the part size alone
	fh := fileHeader(t, "image", "big.png", "image/png", pngBytes(t, 400, 400))
	require.Greater(t, fh.Size, int64(64))
	_, err = svc.UploadImage(context.Background(), fh)
	assert.ErrorIs(t, err, utils.ErrFileTooLarge)
	assert.Equal(t, 0, countUploads(t, fs))
}

func TestUploadSingleRejectsUnsupportedType(t *testing.T) {
	svc, _, fs := newTestService(t, nil)

	fh := fileHeader(t, "image", "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	_, err := svc.UploadImage(context.Background(), fh)
	assert.ErrorIs(t, err, utils.ErrUnsupportedType)
	assert.Equal(t, 0, countUploads(t, fs))
}

func TestUploadVideoWithThumbnail(t *testing.T) {
	svc, store, fs := newTestService(t, nil)

	fh := fileHeader(t, "videos", "clip.mp4", "video/mp4", []byte("fake-video-bytes"))
	res, err := svc.UploadVideos(context.Background(), []*multipart.FileHeader{fh})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)

	a := res.Accepted[0]
	require.NotNil(t, a.ThumbnailURL)
	assert.Contains(t, *a.ThumbnailURL, "/uploads/thumbnails/thumb_")
	assert.Contains(t, *a.ThumbnailURL, ".jpg")

	// stored exactly as uploaded
	data, err := afero.ReadFile(fs, store.PrimaryPath(a.Filename))
	require.NoError(t, err)
	assert.Equal(t, "fake-video-bytes", string(data))
}

func TestUploadVideoDecoderUnavailable(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeExtractor{fail: true})

	fh := fileHeader(t, "videos", "clip.webm", "video/webm", []byte("bytes"))
	res, err := svc.UploadVideos(context.Background(), []*multipart.FileHeader{fh})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)

	assert.Nil(t, res.Accepted[0].ThumbnailURL, "extraction failure must not fail the upload")

	assets, err := svc.List(media.KindVideo)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Nil(t, assets[0].ThumbnailURL)
}

func TestDeleteCascadeViaService(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	fh := fileHeader(t, "images", "photo.png", "image/png", pngBytes(t, 300, 300))
	res, err := svc.UploadImages(context.Background(), []*multipart.FileHeader{fh})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)

	require.NoError(t, svc.Delete(res.Accepted[0].Filename, media.KindImage))

	assets, err := svc.List(media.KindImage)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestDeleteUnknownFilename(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	assert.ErrorIs(t, svc.Delete("ghost.png", media.KindImage), utils.ErrFileNotFound)
}

func TestSniffWhenNoDeclaredType(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	// no Content-Type on the part: the sniffer identifies the png bytes
	fh := fileHeader(t, "images", "photo.png", "", pngBytes(t, 64, 64))
	res, err := svc.UploadImages(context.Background(), []*multipart.FileHeader{fh})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "image/png", res.Accepted[0].MimeType)
}
