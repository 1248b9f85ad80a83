package server

import (
	"context"

	"magento-importer/pkg/job"
)

// JobService 导入任务的入队和查询
type JobService interface {
	Enqueue(ctx context.Context, trigger string) (*job.Job, error)
	Get(id string) (*job.Job, error)
	List(limit int) ([]job.Job, error)
}

// Handler v1版本API处理器
type Handler struct {
	jobs JobService
}

func NewHandler(jobs JobService) *Handler {
	return &Handler{jobs: jobs}
}

// ListImportsResponse 任务列表响应
type ListImportsResponse struct {
	Found bool      `json:"found"` // 是否找到数据
	Items []job.Job `json:"items"` // 任务列表，按创建时间倒序
	Limit int       `json:"limit"`
}

// TriggerMessage nats 上的导入触发消息
type TriggerMessage struct {
	Operate string `json:"operate"`
}

const OperateImport = "import"
