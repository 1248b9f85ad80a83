package job

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"magento-importer/pkg/importer"
)

const TypeImportMagento = "import-magento"

type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// 触发来源
const (
	TriggerAPI     = "api"
	TriggerNATS    = "nats"
	TriggerCron    = "cron"
	TriggerStartup = "startup"
)

var (
	ErrNotFound  = errors.New("导入任务不存在")
	ErrQueueFull = errors.New("导入任务队列已满")
)

// Job 一次导入任务的记录，保存在 badger 里
type Job struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Status     Status              `json:"status"`
	Progress   int                 `json:"progress"`
	Trigger    string              `json:"trigger"`
	Attempts   int                 `json:"attempts"`
	Error      string              `json:"error,omitempty"`
	Result     *importer.RunResult `json:"result,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	StartedAt  time.Time           `json:"startedAt,omitempty"`
	FinishedAt time.Time           `json:"finishedAt,omitempty"`
}

func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Runner 执行一次导入
type Runner interface {
	Run(ctx context.Context, progress importer.ProgressFunc) (*importer.RunResult, error)
}
