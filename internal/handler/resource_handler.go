package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/response"
)

type resourceService interface {
	MaxFileSize() int64
	List(ctx context.Context, subject string) ([]models.Resource, error)
	CreateLink(ctx context.Context, req models.CreateLinkResourceRequest, authorID string) (*models.Resource, error)
	Upload(ctx context.Context, req models.UploadResourceRequest, authorID string) (*models.Resource, error)
	DownloadURL(ctx context.Context, id, baseURL string) (*models.ResourceDownload, error)
	Open(ctx context.Context, token string) (*os.File, *models.Resource, error)
	Delete(ctx context.Context, id string) error
}

// ResourceHandler shares study materials.
type ResourceHandler struct {
	service      resourceService
	downloadBase string
}

// NewResourceHandler constructs the handler. downloadBase is the public prefix
// of the token download route, e.g. https://host/api/v1/downloads.
func NewResourceHandler(svc resourceService, downloadBase string) *ResourceHandler {
	return &ResourceHandler{service: svc, downloadBase: downloadBase}
}

// List godoc
// @Summary List resources
// @Tags Resources
// @Produce json
// @Param subject query string false "Subject filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /resources [get]
func (h *ResourceHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateLink godoc
// @Summary Share a link
// @Tags Resources
// @Accept json
// @Produce json
// @Param payload body models.CreateLinkResourceRequest true "Link"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/links [post]
func (h *ResourceHandler) CreateLink(c *gin.Context) {
	var req models.CreateLinkResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid link payload"))
		return
	}
	item, err := h.service.CreateLink(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Upload godoc
// @Summary Upload a file
// @Tags Resources
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param subject formData string false "Subject"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/files [post]
func (h *ResourceHandler) Upload(c *gin.Context) {
	limit := h.service.MaxFileSize()
	// Leave headroom for the multipart envelope around the file part.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", limit)))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	if header.Size > limit {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", limit)))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	req := models.UploadResourceRequest{
		Title:    c.PostForm("title"),
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     int64(len(content)),
		Content:  content,
	}
	if subject := c.PostForm("subject"); subject != "" {
		req.Subject = &subject
	}
	item, err := h.service.Upload(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// DownloadURL godoc
// @Summary Get a download link
// @Description Links return their URL, files return a short-lived signed URL
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/{id}/download-url [get]
func (h *ResourceHandler) DownloadURL(c *gin.Context) {
	link, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"), h.downloadBase)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a stored file by signed token
// @Tags Resources
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *ResourceHandler) Download(c *gin.Context) {
	file, resource, err := h.service.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read stored file"))
		return
	}
	name := "download"
	if resource.FileName != nil {
		name = *resource.FileName
	}
	if resource.MimeType != nil && *resource.MimeType != "" {
		c.Header("Content-Type", *resource.MimeType)
	}
	response.Attachment(c, name)
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

// Delete godoc
// @Summary Delete a resource
// @Tags Resources
// @Param id path string true "Resource ID"
// @Success 204
// @Security BearerAuth
// @Router /resources/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
