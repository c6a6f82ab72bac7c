package service

import (
	"context"
	"fmt"
	"net/http"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/service/s3"
)

// FileDownloader fetches a transport-side file by its opaque reference.
type FileDownloader interface {
	DownloadFile(ctx context.Context, fileRef string) ([]byte, error)
}

// ArchiveService copies published photos into object storage. Keys are
// derived from the confession id only.
type ArchiveService struct {
	storage s3.Storage
	files   FileDownloader
	now     Clock
}

func NewArchiveService(storage s3.Storage, files FileDownloader, now Clock) *ArchiveService {
	return &ArchiveService{storage: storage, files: files, now: now}
}

func (s *ArchiveService) ArchivePhoto(ctx context.Context, p *domain.Publication) (string, error) {
	if p.PhotoRef == "" {
		return "", fmt.Errorf("publication %s has no photo: %w", p.ID, domain.ErrInvalidArgument)
	}

	key := archiveKey(p, s.now)
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return key, nil
	}

	data, err := s.files.DownloadFile(ctx, p.PhotoRef)
	if err != nil {
		return "", fmt.Errorf("failed to download photo: %w", err)
	}
	if err := s.storage.UploadBytes(ctx, key, data, http.DetectContentType(data)); err != nil {
		return "", err
	}
	return key, nil
}

func archiveKey(p *domain.Publication, now Clock) string {
	created := p.CreatedAt
	if created.IsZero() {
		created = now()
	}
	return fmt.Sprintf("confessions/%s/%d.jpg", created.Local().Format(domain.DateLayout), p.ConfessionID)
}
