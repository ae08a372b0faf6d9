package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dvellmar/storeratings-backend/api/middleware"
	"github.com/dvellmar/storeratings-backend/api/responses"
	"github.com/dvellmar/storeratings-backend/api/validators"
	"github.com/dvellmar/storeratings-backend/internal/media"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
)

const uploadFormField = "file"

// MediaUpload accepts a multipart upload for a store and pushes the binary to
// the external object host.
func MediaUpload(svc media.Service, mediaCfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		storeID, err := validators.ParseUUID(chi.URLParam(r, "storeID"), "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, mediaCfg.MaxUploadBytes()+1024)
		if err := r.ParseMultipartForm(mediaCfg.MaxUploadBytes()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "upload exceeds size limit"))
			return
		}

		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field missing"))
			return
		}
		defer file.Close()

		dto, err := svc.Upload(r.Context(), actor, media.UploadInput{
			StoreID:  storeID,
			FileName: header.Filename,
			Size:     header.Size,
			Body:     file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// MediaList returns a store's media grouped by kind, optionally filtered via
// the file_type query parameter.
func MediaList(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		storeID, err := validators.ParseUUID(chi.URLParam(r, "storeID"), "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var fileType *enums.MediaType
		if raw := strings.TrimSpace(r.URL.Query().Get("file_type")); raw != "" {
			parsed, err := enums.ParseMediaType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid file_type"))
				return
			}
			fileType = &parsed
		}

		result, err := svc.ListForStore(r.Context(), storeID, fileType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// MediaDelete removes a media row and the hosted object.
func MediaDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		mediaID, err := validators.ParseUUID(chi.URLParam(r, "mediaID"), "mediaID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, mediaID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
