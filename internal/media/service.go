package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
	"github.com/dvellmar/storeratings-backend/pkg/storage/gcs"
)

const sniffLen = 512

// UploadInput carries one incoming multipart file.
type UploadInput struct {
	StoreID  uuid.UUID
	FileName string
	Size     int64
	Body     io.Reader
}

// Service defines the media behavior needed by the controller.
type Service interface {
	Upload(ctx context.Context, actor pkgauth.Actor, input UploadInput) (*MediaDTO, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, fileType *enums.MediaType) (*StoreMediaResult, error)
	Delete(ctx context.Context, actor pkgauth.Actor, mediaID uuid.UUID) error
}

type mediaRepository interface {
	Create(ctx context.Context, m *models.StoreMedia) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StoreMedia, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, fileType *enums.MediaType) ([]models.StoreMedia, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type service struct {
	repo    mediaRepository
	stores  storeLookup
	objects gcs.ObjectStore
	cfg     config.MediaConfig
	logg    *logger.Logger
}

// ServiceParams bundles the dependencies required to build a media service.
type ServiceParams struct {
	MediaRepo   mediaRepository
	StoreRepo   storeLookup
	ObjectStore gcs.ObjectStore
	MediaConfig config.MediaConfig
	Logger      *logger.Logger
}

// NewService constructs a media service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.MediaRepo == nil {
		return nil, fmt.Errorf("media repository is required")
	}
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.ObjectStore == nil {
		return nil, fmt.Errorf("object store is required")
	}
	return &service{
		repo:    params.MediaRepo,
		stores:  params.StoreRepo,
		objects: params.ObjectStore,
		cfg:     params.MediaConfig,
		logg:    params.Logger,
	}, nil
}

// Upload sniffs the file's real content type, checks it against the
// configured whitelist, stores the object externally, then persists the row.
func (s *service) Upload(ctx context.Context, actor pkgauth.Actor, input UploadInput) (*MediaDTO, error) {
	store, err := s.findStore(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, store); err != nil {
		return nil, err
	}

	if input.Size > s.cfg.MaxUploadBytes() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds the %dMB upload limit", s.cfg.MaxUploadMB))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read upload")
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	mediaType, err := s.classify(contentType)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("stores/%s/%s%s", input.StoreID, uuid.NewString(), path.Ext(input.FileName))
	body := io.MultiReader(bytes.NewReader(head), input.Body)

	fileURL, err := s.objects.UploadObject(ctx, objectKey, contentType, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store object")
	}

	row := &models.StoreMedia{
		StoreID:   input.StoreID,
		FileURL:   fileURL,
		FileName:  input.FileName,
		FileType:  mediaType,
		ObjectKey: objectKey,
		SizeBytes: input.Size,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if delErr := s.objects.DeleteObject(ctx, objectKey); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, "orphaned media object left on host")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist media")
	}

	dto := fromModel(row)
	return &dto, nil
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID, fileType *enums.MediaType) (*StoreMediaResult, error) {
	if _, err := s.findStore(ctx, storeID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByStore(ctx, storeID, fileType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list media")
	}

	result := &StoreMediaResult{Images: []MediaDTO{}, Videos: []MediaDTO{}, Total: len(rows)}
	for i := range rows {
		dto := fromModel(&rows[i])
		switch rows[i].FileType {
		case enums.MediaTypeVideo:
			result.Videos = append(result.Videos, dto)
		default:
			result.Images = append(result.Images, dto)
		}
	}
	return result, nil
}

// Delete removes the row first, then best-effort removes the object. The host
// is an external collaborator; its failure does not resurrect the row.
func (s *service) Delete(ctx context.Context, actor pkgauth.Actor, mediaID uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
	}

	store, err := s.findStore(ctx, row.StoreID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, store); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, mediaID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete media")
	}

	if err := s.objects.DeleteObject(ctx, row.ObjectKey); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "media object deletion failed on host")
	}
	return nil
}

func (s *service) authorize(actor pkgauth.Actor, store *models.Store) error {
	if actor.IsAdmin() || store.OwnerID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not the store owner")
}

func (s *service) findStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	return store, nil
}

func (s *service) classify(contentType string) (enums.MediaType, error) {
	base := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, allowed := range s.cfg.AllowedImageTypes {
		if base == strings.ToLower(strings.TrimSpace(allowed)) {
			return enums.MediaTypeImage, nil
		}
	}
	for _, allowed := range s.cfg.AllowedVideoTypes {
		if base == strings.ToLower(strings.TrimSpace(allowed)) {
			return enums.MediaTypeVideo, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("unsupported file type %q", base))
}
