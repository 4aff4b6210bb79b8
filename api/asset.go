package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stemyke/node-backend-sub000/asset"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/net/resp"
	"github.com/stemyke/node-backend-sub000/validator"
)

type uploadQuery struct {
	Filename string `form:"filename" binding:"omitempty,max=255"`
}

type imageQuery struct {
	Crop     string  `form:"crop"`
	Scale    float64 `form:"scale" binding:"gte=0"`
	Rotation float64 `form:"rotation"`
}

func (q imageQuery) params() (asset.ImageParams, error) {
	crop, err := asset.ParseRect(q.Crop)
	if err != nil {
		return asset.ImageParams{}, err
	}
	return asset.ImageParams{Crop: crop, Scale: q.Scale, Rotation: q.Rotation}, nil
}

// badQuery answers 400 with per-field messages when binding failed validation.
func badQuery(c *gin.Context, err error, q any) {
	if fields := validator.Fields(err, q); len(fields) > 0 {
		resp.Fail(c.Writer, resp.BadRequest("invalid query", fields))
		return
	}
	resp.Fail(c.Writer, resp.BadRequest(err.Error()))
}

// uploadAsset stores a multipart "file" field or the raw request body.
func (h *handler) uploadAsset(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.MaxUploadSize)

	var q uploadQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badQuery(c, err, &q)
		return
	}

	var (
		body        io.Reader
		filename    = q.Filename
		contentType = c.ContentType()
	)
	if strings.HasPrefix(contentType, "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			resp.Fail(c.Writer, resp.BadRequest(ecode.FieldIsRequired("file")))
			return
		}
		f, err := fh.Open()
		if err != nil {
			resp.Error(c.Writer, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("open upload")))
			return
		}
		defer f.Close()
		body = f
		if filename == "" {
			filename = fh.Filename
		}
		contentType = fh.Header.Get("Content-Type")
	} else {
		body = c.Request.Body
	}

	buf, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			resp.Fail(c.Writer, &resp.Exception{Status: http.StatusRequestEntityTooLarge, Code: ecode.RequestErr, Message: "upload too large"})
			return
		}
		resp.Fail(c.Writer, resp.BadRequest("failed to read upload"))
		return
	}
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	a, err := h.svc.Assets.WriteBuffer(ctx, buf, &asset.Meta{Filename: filename}, contentType)
	if err != nil {
		logger.Warn(ctx, "asset upload failed", "error", err)
		resp.Error(c.Writer, err)
		return
	}
	resp.WithStatusCode(c.Writer, http.StatusCreated, a)
}

func (h *handler) getAsset(c *gin.Context) {
	a, err := h.resolver.Resolve(c.Request.Context(), c.Param("id"), false)
	h.serve(c, a, err)
}

func (h *handler) getAssetMeta(c *gin.Context) {
	a, err := h.svc.Assets.Read(c.Request.Context(), c.Param("id"))
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	if a == nil {
		resp.Fail(c.Writer, resp.NotFound(ecode.NotExist("asset")))
		return
	}
	resp.Success(c.Writer, a)
}

func (h *handler) getImage(c *gin.Context) {
	ctx := c.Request.Context()
	var q imageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badQuery(c, err, &q)
		return
	}
	params, err := q.params()
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	t, err := h.svc.Assets.ReadImage(ctx, c.Param("id"), params)
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	if t == nil {
		resp.Fail(c.Writer, resp.NotFound(ecode.NotExist("asset")))
		return
	}
	stream(c, t)
}

func (h *handler) deleteAsset(c *gin.Context) {
	id, err := h.svc.Assets.Unlink(c.Request.Context(), c.Param("id"))
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	resp.Success(c.Writer, map[string]string{"id": id})
}

// serve streams a resolved asset, counting the download.
func (h *handler) serve(c *gin.Context, a *asset.Asset, err error) {
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	if a == nil {
		resp.Fail(c.Writer, resp.NotFound(ecode.NotExist("asset")))
		return
	}
	stream(c, a)
}

func stream(c *gin.Context, f asset.File) {
	ctx := c.Request.Context()
	rc, err := f.Download(ctx)
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	defer rc.Close()

	length := f.Meta().Length
	if length <= 0 {
		length = -1
	}
	headers := map[string]string{}
	if name := f.Filename(); name != "" {
		headers["Content-Disposition"] = mime.FormatMediaType("inline", map[string]string{"filename": name})
	}
	headers["X-Asset-Id"] = f.ID()
	c.DataFromReader(http.StatusOK, length, contentTypeOf(f), rc, headers)
}

func contentTypeOf(f asset.File) string {
	if ct := f.ContentType(); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
