package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"magento-importer/pkg/job"
	"magento-importer/pkg/util"
)

// CreateImport 新建一次导入任务
// @Summary      触发导入
// @Tags         imports
// @Produce      json
// @Success      200  {object}  util.Response
// @Router       /api/v1/imports [post]
func (h *Handler) CreateImport(c *gin.Context) {
	j, err := h.jobs.Enqueue(c.Request.Context(), job.TriggerAPI)
	if err != nil {
		if errors.Is(err, job.ErrQueueFull) {
			util.ErrWithCode(c, http.StatusTooManyRequests, err)
			return
		}
		util.Err(c, err)
		return
	}
	util.Ok(c, j)
}

// GetImport 查询导入任务的状态和进度
// @Param        id  path  string  true  "任务ID"
// @Router       /api/v1/imports/{id} [get]
func (h *Handler) GetImport(c *gin.Context) {
	j, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			util.ErrWithCode(c, http.StatusNotFound, err)
			return
		}
		util.Err(c, err)
		return
	}
	util.Ok(c, j)
}

// ListImports 最近的导入任务
// @Param        limit  query  int  false  "数量，默认20，最大100"
// @Router       /api/v1/imports [get]
func (h *Handler) ListImports(c *gin.Context) {
	limitStr := util.GetParam(c, "limit")
	if limitStr == "" {
		limitStr = "20"
	}
	limit, _ := strconv.Atoi(limitStr)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	jobs, err := h.jobs.List(limit)
	if err != nil {
		util.Err(c, err)
		return
	}
	if jobs == nil {
		jobs = []job.Job{}
	}
	util.Ok(c, ListImportsResponse{Found: len(jobs) > 0, Items: jobs, Limit: limit})
}
