package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reserveiviagens/rsv360-media-service/internal/derive"
	"github.com/reserveiviagens/rsv360-media-service/internal/media"
	"github.com/reserveiviagens/rsv360-media-service/internal/storage"
	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

// Catalog answers listing and deletion without assuming how assets are
// tracked. The default implementation scans the upload directory; an indexed
// implementation could replace it without touching the handlers.
type Catalog interface {
	List(kind media.Kind) ([]media.Asset, error)
	Delete(filename string, kind media.Kind) error
}

// MediaService runs the ingestion pipeline for one upload root:
// gate -> name -> write original -> derive variants -> swap -> respond.
// Files within a batch are processed sequentially and fail independently.
type MediaService struct {
	store   *storage.Store
	catalog Catalog
	extract derive.FrameExtractor
	imgGate *media.Gate
	vidGate *media.Gate
	imgOpts derive.ImageOptions
	log     *zap.SugaredLogger
}

// UploadResult reports a batch outcome: every accepted asset plus how many
// files were submitted, so callers can surface partial success.
type UploadResult struct {
	Submitted int
	Accepted  []media.Asset
}

func NewMediaService(store *storage.Store, extract derive.FrameExtractor, imgGate, vidGate *media.Gate,
	imgOpts derive.ImageOptions, log *zap.SugaredLogger) *MediaService {
	return &MediaService{
		store:   store,
		catalog: store,
		extract: extract,
		imgGate: imgGate,
		vidGate: vidGate,
		imgOpts: imgOpts,
		log:     log,
	}
}

// UploadImages ingests a batch of images. A file that fails the gate or the
// derive step is logged, cleaned up and omitted from the result; it never
// fails the batch. Only the request-wide count ceiling rejects wholesale.
func (s *MediaService) UploadImages(ctx context.Context, files []*multipart.FileHeader) (*UploadResult, error) {
	if err := s.imgGate.CheckCount(len(files)); err != nil {
		return nil, err
	}
	res := &UploadResult{Submitted: len(files), Accepted: make([]media.Asset, 0, len(files))}
	for _, fh := range files {
		if ctx.Err() != nil {
			break
		}
		a, err := s.ingestImage(ctx, fh)
		if err != nil {
			s.log.Warnw("image upload rejected", "name", fh.Filename, "error", err)
			continue
		}
		res.Accepted = append(res.Accepted, *a)
	}
	return res, nil
}

// UploadImage ingests a single image and propagates its failure.
func (s *MediaService) UploadImage(ctx context.Context, fh *multipart.FileHeader) (*media.Asset, error) {
	return s.ingestImage(ctx, fh)
}

// UploadVideos ingests a batch of videos with the same per-file failure
// isolation as UploadImages. A failed thumbnail extraction is not a per-file
// failure: the video is accepted with a null thumbnail URL.
func (s *MediaService) UploadVideos(ctx context.Context, files []*multipart.FileHeader) (*UploadResult, error) {
	if err := s.vidGate.CheckCount(len(files)); err != nil {
		return nil, err
	}
	res := &UploadResult{Submitted: len(files), Accepted: make([]media.Asset, 0, len(files))}
	for _, fh := range files {
		if ctx.Err() != nil {
			break
		}
		a, err := s.ingestVideo(ctx, fh)
		if err != nil {
			s.log.Warnw("video upload rejected", "name", fh.Filename, "error", err)
			continue
		}
		res.Accepted = append(res.Accepted, *a)
	}
	return res, nil
}

func (s *MediaService) List(kind media.Kind) ([]media.Asset, error) {
	return s.catalog.List(kind)
}

func (s *MediaService) Delete(filename string, kind media.Kind) error {
	return s.catalog.Delete(filename, kind)
}

func (s *MediaService) ingestImage(ctx context.Context, fh *multipart.FileHeader) (*media.Asset, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// the declared part size is enough to reject oversize blobs before
	// their bytes are buffered
	if err := s.imgGate.CheckSize(fh.Size); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	if err := s.imgGate.Check(mimeType, int64(len(data))); err != nil {
		return nil, err
	}

	name := storage.UniqueName(fh.Filename)
	if _, err := s.store.SaveOriginal(name, bytes.NewReader(data)); err != nil {
		return nil, err
	}

	// Any derive failure discards the whole upload: an asset must never be
	// left without a matching thumbnail, or a thumbnail without its asset.
	img, err := derive.Decode(bytes.NewReader(data))
	if err != nil {
		s.store.Discard(name, media.KindImage)
		return nil, fmt.Errorf("%w: decode: %v", utils.ErrDeriveFailed, err)
	}
	thumb, err := derive.Thumbnail(img, s.imgOpts)
	if err != nil {
		s.store.Discard(name, media.KindImage)
		return nil, fmt.Errorf("%w: thumbnail: %v", utils.ErrDeriveFailed, err)
	}
	thumbName := storage.ThumbName(name, media.KindImage)
	if err := s.store.WriteThumbnail(thumbName, thumb); err != nil {
		s.store.Discard(name, media.KindImage)
		return nil, fmt.Errorf("%w: thumbnail: %v", utils.ErrDeriveFailed, err)
	}
	resized, err := derive.Resize(img, s.imgOpts)
	if err != nil {
		s.store.Discard(name, media.KindImage)
		return nil, fmt.Errorf("%w: resize: %v", utils.ErrDeriveFailed, err)
	}
	if err := s.store.SwapPrimary(name, resized); err != nil {
		s.store.Discard(name, media.KindImage)
		return nil, fmt.Errorf("%w: swap: %v", utils.ErrDeriveFailed, err)
	}

	thumbURL := s.store.ThumbURL(thumbName)
	return &media.Asset{
		ID:           uuid.NewString(),
		Filename:     name,
		OriginalName: fh.Filename,
		Size:         int64(len(data)),
		MimeType:     mimeType,
		URL:          s.store.PublicURL(name),
		ThumbnailURL: &thumbURL,
		UploadedAt:   time.Now().UTC(),
	}, nil
}

func (s *MediaService) ingestVideo(ctx context.Context, fh *multipart.FileHeader) (*media.Asset, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		// sniff the header bytes, then reopen for the full streaming copy
		mt, err := mimetype.DetectReader(f)
		if err != nil {
			return nil, err
		}
		mimeType = mt.String()
		_ = f.Close()
		if f, err = fh.Open(); err != nil {
			return nil, err
		}
	}
	if err := s.vidGate.Check(mimeType, fh.Size); err != nil {
		return nil, err
	}

	// videos are stored exactly as uploaded, streamed rather than buffered
	name := storage.UniqueName(fh.Filename)
	size, err := s.store.SaveOriginal(name, f)
	if err != nil {
		return nil, err
	}

	thumbName := storage.ThumbName(name, media.KindVideo)
	var thumbURL *string
	err = s.extract.ExtractFrame(ctx, s.store.PrimaryPath(name), s.store.ThumbPath(thumbName))
	if err != nil {
		// a missing or failing extractor never fails the upload
		s.store.RemoveThumb(thumbName)
		s.log.Infow("video accepted without thumbnail", "name", name, "error", err)
	} else {
		u := s.store.ThumbURL(thumbName)
		thumbURL = &u
	}

	return &media.Asset{
		ID:           uuid.NewString(),
		Filename:     name,
		OriginalName: fh.Filename,
		Size:         size,
		MimeType:     mimeType,
		URL:          s.store.PublicURL(name),
		ThumbnailURL: thumbURL,
		UploadedAt:   time.Now().UTC(),
	}, nil
}
