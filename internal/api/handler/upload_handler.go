package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"github.com/vitalog/vitalog-api/internal/api/metrics"
	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

const genericMimeType = "application/octet-stream"

// UploadLimits bounds what the multipart endpoints read from a request.
type UploadLimits struct {
	MaxFileSize int64
	MaxFiles    int
}

// UploadHandler handles HTTP requests for the upload pipeline.
type UploadHandler struct {
	service ports.UploadService
	limits  UploadLimits
}

func NewUploadHandler(service ports.UploadService, limits UploadLimits) *UploadHandler {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 10
	}
	return &UploadHandler{service: service, limits: limits}
}

// Upload handles POST /upload.
//
// @Summary      Upload a file
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file    formData  file    true   "File to upload"
// @Param        folder  formData  string  false  "Key prefix"
// @Success      201     {object}  domain.File
// @Failure      400     {object}  ErrorResponse
// @Router       /upload [post]
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return domain.NewError(domain.ErrValidation, "file is required")
	}

	input, err := h.readPart(fh)
	if err != nil {
		return err
	}

	file, err := h.service.UploadFile(c.Request().Context(), input, h.uploadOptions(c))
	if err != nil {
		countUploadError(err)
		return err
	}
	countUploaded("direct", file)

	return c.JSON(http.StatusCreated, file)
}

// UploadMultiple handles POST /upload/multiple.
//
// @Summary      Upload several files
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        files   formData  file    true   "Files to upload"
// @Param        folder  formData  string  false  "Key prefix"
// @Success      201     {array}   domain.File
// @Failure      400     {object}  ErrorResponse
// @Router       /upload/multiple [post]
func (h *UploadHandler) UploadMultiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return domain.NewError(domain.ErrValidation, "invalid multipart form")
	}

	parts := append(form.File["files"], form.File["files[]"]...)
	if len(parts) == 0 {
		return domain.NewError(domain.ErrValidation, "at least one file is required")
	}
	if len(parts) > h.limits.MaxFiles {
		return domain.NewError(domain.ErrValidation, "too many files; maximum is %d", h.limits.MaxFiles)
	}

	inputs := make([]ports.UploadInput, 0, len(parts))
	for _, fh := range parts {
		input, err := h.readPart(fh)
		if err != nil {
			return err
		}
		inputs = append(inputs, input)
	}

	files, err := h.service.UploadFiles(c.Request().Context(), inputs, h.uploadOptions(c))
	for _, f := range files {
		countUploaded("direct", f)
	}
	if err != nil {
		countUploadError(err)
		return err
	}

	return c.JSON(http.StatusCreated, files)
}

// Presign handles POST /upload/presigned.
//
// @Summary      Get a presigned upload URL
// @Tags         upload
// @Accept       json
// @Produce      json
// @Param        body  body      presignRequest  true  "File description"
// @Success      200   {object}  ports.PresignedUpload
// @Failure      400   {object}  ErrorResponse
// @Router       /upload/presigned [post]
func (h *UploadHandler) Presign(c echo.Context) error {
	var req presignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.PresignUpload(c.Request().Context(), req.Filename, req.MimeType, req.Folder)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, res)
}

// Confirm handles POST /upload/confirm.
//
// @Summary      Confirm a presigned upload
// @Tags         upload
// @Accept       json
// @Produce      json
// @Param        body  body      confirmRequest  true  "Uploaded object"
// @Success      201   {object}  domain.File
// @Failure      400   {object}  ErrorResponse
// @Router       /upload/confirm [post]
func (h *UploadHandler) Confirm(c echo.Context) error {
	var req confirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	uploadedBy := req.UploadedBy
	if uploadedBy == "" {
		uploadedBy = ctxUserID(c)
	}

	file, err := h.service.ConfirmUpload(c.Request().Context(), ports.ConfirmInput{
		Key:          req.Key,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		Size:         req.Size,
		UploadedBy:   uploadedBy,
	})
	if err != nil {
		countUploadError(err)
		return err
	}
	countUploaded("presigned", file)

	return c.JSON(http.StatusCreated, file)
}

// List handles GET /upload.
//
// @Summary      List files
// @Tags         upload
// @Produce      json
// @Param        page        query     int     false  "Page (1-based)"
// @Param        limit       query     int     false  "Page size (max 100)"
// @Param        uploadedBy  query     string  false  "Uploader id"
// @Success      200         {object}  ports.FileList
// @Failure      400         {object}  ErrorResponse
// @Router       /upload [get]
func (h *UploadHandler) List(c echo.Context) error {
	var q listFilesQuery
	if err := c.Bind(&q); err != nil {
		return domain.NewError(domain.ErrValidation, "page and limit must be integers")
	}

	list, err := h.service.ListFiles(c.Request().Context(), q.Page, q.Limit, q.UploadedBy)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}

// Get handles GET /upload/:id.
//
// @Summary      Get file metadata
// @Tags         upload
// @Produce      json
// @Param        id   path      string  true  "File id"
// @Success      200  {object}  domain.File
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /upload/{id} [get]
func (h *UploadHandler) Get(c echo.Context) error {
	id, err := fileID(c)
	if err != nil {
		return err
	}

	file, err := h.service.GetFile(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, file)
}

// Download handles GET /upload/:id/download.
//
// @Summary      Get a presigned download URL
// @Tags         upload
// @Produce      json
// @Param        id   path      string  true  "File id"
// @Success      200  {object}  ports.DownloadLink
// @Failure      404  {object}  ErrorResponse
// @Router       /upload/{id}/download [get]
func (h *UploadHandler) Download(c echo.Context) error {
	id, err := fileID(c)
	if err != nil {
		return err
	}

	link, err := h.service.DownloadURL(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, link)
}

// Delete handles DELETE /upload/:id.
//
// @Summary      Delete a file
// @Tags         upload
// @Param        id   path  string  true  "File id"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /upload/{id} [delete]
func (h *UploadHandler) Delete(c echo.Context) error {
	id, err := fileID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteFile(c.Request().Context(), id); err != nil {
		return err
	}
	metrics.FilesDeletedTotal.Inc()

	return c.NoContent(http.StatusNoContent)
}

func (h *UploadHandler) uploadOptions(c echo.Context) ports.UploadOptions {
	return ports.UploadOptions{
		Folder:     c.FormValue("folder"),
		UploadedBy: ctxUserID(c),
	}
}

// readPart reads at most MaxFileSize+1 bytes so the service can still report
// an oversized file without the handler buffering all of it.
func (h *UploadHandler) readPart(fh *multipart.FileHeader) (ports.UploadInput, error) {
	f, err := fh.Open()
	if err != nil {
		return ports.UploadInput{}, fmt.Errorf("open multipart file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.limits.MaxFileSize > 0 {
		r = io.LimitReader(f, h.limits.MaxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ports.UploadInput{}, fmt.Errorf("read multipart file: %w", err)
	}

	return ports.UploadInput{
		Filename: fh.Filename,
		MimeType: detectMimeType(fh.Header.Get(echo.HeaderContentType), data),
		Data:     data,
	}, nil
}

// detectMimeType trusts the declared part type unless it is missing or
// generic, in which case the content is sniffed.
func detectMimeType(declared string, data []byte) string {
	mt, _, _ := strings.Cut(declared, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	if mt != "" && mt != genericMimeType {
		return mt
	}
	if len(data) == 0 {
		return genericMimeType
	}
	sniffed, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return sniffed
}

func fileID(c echo.Context) (string, error) {
	p := fileIDParam{ID: c.Param("id")}
	if err := c.Validate(&p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func countUploaded(flow string, f *domain.File) {
	metrics.FilesUploadedTotal.WithLabelValues(flow).Inc()
	metrics.UploadSizeBytes.Observe(float64(f.Size))
}

func countUploadError(err error) {
	reason := "internal"
	if errors.Is(err, domain.ErrValidation) {
		reason = "validation"
	}
	metrics.UploadErrorsTotal.WithLabelValues(reason).Inc()
}
