package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/partyphoto/internal/domain"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	DefaultDownloadURLTTL = 600 * time.Second
	DefaultUploadURLTTL   = 60 * time.Second
	DefaultMaxBatchFiles  = 50

	signConcurrency   = 16
	uploadConcurrency = 8
)

type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo domain.PhotoRecord) (domain.PhotoRecord, error)
	ListPhotos(ctx context.Context, partyKey, cursor string, limit int32) (domain.PhotoPage, error)
	SoftDeletePhoto(ctx context.Context, partyKey, photoKey string) error
}

type URLSigner interface {
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type PhotoSettings struct {
	DownloadURLTTL time.Duration
	UploadURLTTL   time.Duration
	MaxBatchFiles  int
}

type PhotoService struct {
	repo     PhotoRepository
	signer   URLSigner
	settings PhotoSettings
	now      func() time.Time
	newID    func() string
}

type PhotoServiceOption func(*PhotoService)

// WithPhotoClock overrides the clock used for upload timestamps and keys.
func WithPhotoClock(now func() time.Time) PhotoServiceOption {
	return func(s *PhotoService) { s.now = now }
}

// WithIDGenerator overrides the random component of photo keys.
func WithIDGenerator(newID func() string) PhotoServiceOption {
	return func(s *PhotoService) { s.newID = newID }
}

// NewPhotoService creates a new PhotoService instance
func NewPhotoService(repo PhotoRepository, signer URLSigner, settings PhotoSettings, opts ...PhotoServiceOption) *PhotoService {
	if settings.DownloadURLTTL <= 0 {
		settings.DownloadURLTTL = DefaultDownloadURLTTL
	}
	if settings.UploadURLTTL <= 0 {
		settings.UploadURLTTL = DefaultUploadURLTTL
	}
	if settings.MaxBatchFiles <= 0 {
		settings.MaxBatchFiles = DefaultMaxBatchFiles
	}

	s := &PhotoService{
		repo:     repo,
		signer:   signer,
		settings: settings,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseLimit turns a raw page-size parameter into an effective limit.
// Absent or non-numeric input gives the default; numbers, including ones
// that overflow int, are clamped to [1, MaxPageSize].
func ParseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil && !perrors.Is(err, strconv.ErrRange) {
		return DefaultPageSize
	}
	// Out-of-range input comes back saturated at the int bounds.
	return clampLimit(n)
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// ListPhotos returns one page of a party's visible photos, newest first,
// each with a fresh download URL. A zero Limit means DefaultPageSize.
//
// Deleted photos are dropped after the store limit is applied, so a page can
// hold fewer than Limit photos, or none, while NextCursor is still set.
// NextCursor is nil only when the store has nothing after this page.
func (s *PhotoService) ListPhotos(ctx context.Context, query domain.ListPhotosQuery) (domain.PhotoList, error) {
	partyKey := strings.TrimSpace(query.PartyKey)
	if partyKey == "" {
		return domain.PhotoList{}, perrors.InvalidInputError("missing partyKey")
	}

	limit := DefaultPageSize
	if query.Limit != 0 {
		limit = clampLimit(query.Limit)
	}

	page, err := s.repo.ListPhotos(ctx, partyKey, query.Cursor, int32(limit))
	if err != nil {
		return domain.PhotoList{}, asInfrastructure("list photos", err)
	}

	visible := make([]domain.PhotoRecord, 0, len(page.Records))
	for _, record := range page.Records {
		if !record.Deleted {
			visible = append(visible, record)
		}
	}

	photos := make([]domain.Photo, len(visible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i, record := range visible {
		g.Go(func() error {
			url, err := s.signer.PresignDownload(gctx, record.PhotoKey, s.settings.DownloadURLTTL)
			if err != nil {
				return err
			}
			photos[i] = domain.Photo{
				PhotoKey:   record.PhotoKey,
				PartyKey:   record.PartyKey,
				UploadedAt: record.UploadedAt,
				URL:        url,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.PhotoList{}, asInfrastructure("sign download urls", err)
	}

	log.Debugf("Listed %d of %d photo(s) for party %q", len(photos), len(page.Records), partyKey)
	return domain.PhotoList{Photos: photos, NextCursor: page.NextCursor}, nil
}

// BatchUpload issues an upload URL and records metadata for every file in
// the request. Files fail independently: each one ends up in exactly one of
// Uploads or Errors, in request order.
//
// The record is written when the URL is issued, before any bytes reach the
// bucket, so an unused URL leaves a record whose download URL never
// resolves.
func (s *PhotoService) BatchUpload(ctx context.Context, req domain.BatchUploadRequest) (domain.BatchUploadResult, error) {
	partyKey := strings.TrimSpace(req.PartyKey)
	if partyKey == "" || len(req.Files) == 0 {
		return domain.BatchUploadResult{}, perrors.InvalidInputError("missing required fields: partyKey and files")
	}
	if len(req.Files) > s.settings.MaxBatchFiles {
		return domain.BatchUploadResult{}, perrors.InvalidInputError("too many files: %d exceeds the limit of %d", len(req.Files), s.settings.MaxBatchFiles)
	}

	type outcome struct {
		grant domain.UploadGrant
		err   error
	}
	outcomes := make([]outcome, len(req.Files))

	var g errgroup.Group
	g.SetLimit(uploadConcurrency)
	for i, file := range req.Files {
		g.Go(func() error {
			grant, err := s.issueUpload(ctx, partyKey, file)
			outcomes[i] = outcome{grant: grant, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.BatchUploadResult{}, perrors.InfrastructureError("batch upload aborted", err)
	}

	result := domain.BatchUploadResult{
		Uploads: make([]domain.UploadGrant, 0, len(req.Files)),
		Errors:  make([]domain.UploadError, 0),
	}
	for i, o := range outcomes {
		if o.err != nil {
			name := req.Files[i].FileName
			if name == "" {
				name = "unknown"
			}
			log.WithError(o.err).WithField("fileName", name).Errorf("Error processing file for party %q", partyKey)
			result.Errors = append(result.Errors, domain.UploadError{FileName: name, Error: o.err.Error()})
			continue
		}
		result.Uploads = append(result.Uploads, o.grant)
	}

	log.Infof("Issued %d upload URL(s) for party %q", len(result.Uploads), partyKey)
	return result, nil
}

func (s *PhotoService) issueUpload(ctx context.Context, partyKey string, file domain.FileDescriptor) (domain.UploadGrant, error) {
	if file.FileName == "" || file.ContentType == "" {
		return domain.UploadGrant{}, fmt.Errorf("missing fileName or contentType")
	}

	now := s.now().UTC()
	photoKey := fmt.Sprintf("%d_%s_%s", now.UnixMilli(), s.newID(), file.FileName)

	url, err := s.signer.PresignUpload(ctx, photoKey, file.ContentType, s.settings.UploadURLTTL)
	if err != nil {
		return domain.UploadGrant{}, err
	}

	record := domain.PhotoRecord{
		PartyKey:    partyKey,
		PhotoKey:    photoKey,
		ContentType: file.ContentType,
		UploadedAt:  now,
	}
	if _, err := s.repo.CreatePhoto(ctx, record); err != nil {
		return domain.UploadGrant{}, err
	}

	return domain.UploadGrant{
		FileName:     file.FileName,
		PhotoKey:     photoKey,
		UploadedAt:   now,
		PresignedURL: url,
	}, nil
}

// SoftDeletePhoto hides a photo from listings. Deleting a photo that is
// already deleted, or that never existed, succeeds.
func (s *PhotoService) SoftDeletePhoto(ctx context.Context, partyKey, photoKey string) error {
	if strings.TrimSpace(partyKey) == "" || strings.TrimSpace(photoKey) == "" {
		return perrors.InvalidInputError("missing partyKey or photoKey")
	}
	if err := s.repo.SoftDeletePhoto(ctx, partyKey, photoKey); err != nil {
		return asInfrastructure("soft delete photo", err)
	}
	log.Infof("Soft-deleted photo %s in party %q", photoKey, partyKey)
	return nil
}

func asInfrastructure(op string, err error) error {
	if perrors.Is(err, perrors.ErrInfrastructure) {
		return err
	}
	return perrors.InfrastructureError(op, err)
}
