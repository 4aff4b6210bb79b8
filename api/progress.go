package api

import (
	"github.com/gin-gonic/gin"

	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/net/resp"
)

type progressView struct {
	ID        string  `json:"id"`
	Current   float64 `json:"current"`
	Max       float64 `json:"max"`
	Message   string  `json:"message"`
	Error     string  `json:"error"`
	Percent   int     `json:"percent"`
	Remaining float64 `json:"remaining"`
}

func (h *handler) getProgress(c *gin.Context) {
	p, err := h.svc.Progresses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		resp.Error(c.Writer, err)
		return
	}
	if p == nil {
		resp.Fail(c.Writer, resp.NotFound(ecode.NotExist("progress")))
		return
	}
	rec := p.Record()
	resp.Success(c.Writer, progressView{
		ID:        rec.ID,
		Current:   rec.Current,
		Max:       rec.Max,
		Message:   rec.Message,
		Error:     rec.Error,
		Percent:   rec.Percent(),
		Remaining: rec.Remaining(),
	})
}
