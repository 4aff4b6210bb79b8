package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/lazyasset"
	"github.com/stemyke/node-backend-sub000/net/resp"
	"github.com/stemyke/node-backend-sub000/queue"
	"github.com/stemyke/node-backend-sub000/validator"
)

type createLazyRequest struct {
	JobName string         `json:"jobName" binding:"required,max=128"`
	Params  map[string]any `json:"params"`
	Queue   string         `json:"queue" binding:"omitempty,max=128"`
}

// createLazyAsset registers a lazy asset for a known job. Identical job
// descriptors yield the same record. Generation starts on first read.
func (h *handler) createLazyAsset(c *gin.Context) {
	var req createLazyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := validator.Fields(err, &req); len(fields) > 0 {
			resp.Fail(c.Writer, resp.BadRequest("invalid request", fields))
			return
		}
		resp.Fail(c.Writer, resp.BadRequest(err.Error()))
		return
	}
	if h.svc.Jobs != nil && !h.svc.Jobs.Has(req.JobName) {
		resp.Fail(c.Writer, resp.BadRequest(ecode.FieldIsInvalid("jobName")))
		return
	}
	l, err := h.svc.Lazy.Create(c.Request.Context(), req.JobName, queue.Params(req.Params), req.Queue)
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	resp.WithStatusCode(c.Writer, http.StatusCreated, l)
}

// getLazyAsset streams the generated asset, waiting for generation.
func (h *handler) getLazyAsset(c *gin.Context) {
	a, err := h.resolver.Resolve(c.Request.Context(), c.Param("id"), true)
	h.serve(c, a, err)
}

func (h *handler) getLazyAssetMeta(c *gin.Context) {
	l, ok := h.lazyAsset(c)
	if !ok {
		return
	}
	resp.Success(c.Writer, l)
}

func (h *handler) restartLazyAsset(c *gin.Context) {
	l, ok := h.lazyAsset(c)
	if !ok {
		return
	}
	l.StartWorking(c.Request.Context())
	resp.WithStatusCode(c.Writer, http.StatusAccepted, map[string]string{"id": l.ID()})
}

func (h *handler) deleteLazyAsset(c *gin.Context) {
	l, ok := h.lazyAsset(c)
	if !ok {
		return
	}
	resp.Success(c.Writer, map[string]string{"id": l.Unlink(c.Request.Context())})
}

func (h *handler) lazyAsset(c *gin.Context) (*lazyasset.LazyAsset, bool) {
	l, err := h.svc.Lazy.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		resp.Error(c.Writer, err)
		return nil, false
	}
	if l == nil {
		resp.Fail(c.Writer, resp.NotFound(ecode.NotExist("lazy asset")))
		return nil, false
	}
	return l, true
}
