// Package job 管理导入任务：入队、串行执行、记录进度，失败后按配置重试
package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"

	"magento-importer/pkg/store"
)

type Manager struct {
	cfg    *Config
	store  *store.BadgerStore
	runner Runner
	queue  chan string
	mu     sync.Mutex
	now    func() time.Time
}

func NewManager(cfg *Config, st *store.BadgerStore, runner Runner) *Manager {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	size := cfg.QueueSize
	if size < 1 {
		size = 1
	}
	return &Manager{
		cfg:    cfg,
		store:  st,
		runner: runner,
		queue:  make(chan string, size),
		now:    time.Now,
	}
}

func (m *Manager) save(job *Job) error {
	if err := m.store.Upsert(job.ID, job); err != nil {
		return errors.Wrapf(err, "保存导入任务 %s 失败", job.ID)
	}
	return nil
}

// Enqueue 新建任务并放入队列，队列满时返回 ErrQueueFull，任务不会被保存
func (m *Manager) Enqueue(_ context.Context, trigger string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      TypeImportMagento,
		Status:    StatusCreated,
		Trigger:   trigger,
		CreatedAt: m.now(),
	}
	if len(m.queue) == cap(m.queue) {
		return nil, ErrQueueFull
	}
	if err := m.save(job); err != nil {
		return nil, err
	}
	m.queue <- job.ID
	zap.S().Infof("导入任务 %s 已入队 (触发: %s)", job.ID, trigger)
	return job, nil
}

func (m *Manager) Get(id string) (*Job, error) {
	var job Job
	if err := m.store.Get(id, &job); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// List 按创建时间倒序返回任务，limit<=0 时返回全部
func (m *Manager) List(limit int) ([]Job, error) {
	query := (&badgerhold.Query{}).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	var jobs []Job
	if err := m.store.Find(&jobs, query); err != nil {
		return nil, errors.Wrap(err, "查询导入任务失败")
	}
	return jobs, nil
}

// Serve 串行处理队列中的任务，直到 ctx 结束
func (m *Manager) Serve(ctx context.Context) error {
	m.recoverInterrupted()
	m.prune()
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

// recoverInterrupted 上次退出时还在执行的任务标记为失败
func (m *Manager) recoverInterrupted() {
	var jobs []Job
	if err := m.store.Find(&jobs, badgerhold.Where("Status").Eq(StatusProcessing)); err != nil {
		zap.S().Warnf("查询中断的导入任务失败: %v", err)
		return
	}
	for i := range jobs {
		job := &jobs[i]
		job.Status = StatusFailed
		job.Error = "服务重启，任务中断"
		job.FinishedAt = m.now()
		if err := m.save(job); err != nil {
			zap.S().Warn(err)
		}
	}
}

func (m *Manager) prune() {
	if m.cfg.RetentionDays <= 0 {
		return
	}
	before := m.now().AddDate(0, 0, -m.cfg.RetentionDays)
	if err := m.store.DeleteMatching(&Job{}, badgerhold.Where("CreatedAt").Lt(before)); err != nil {
		zap.S().Warnf("清理过期导入任务失败: %v", err)
	}
}

func (m *Manager) process(ctx context.Context, id string) {
	job, err := m.Get(id)
	if err != nil {
		zap.S().Errorf("读取导入任务 %s 失败: %v", id, err)
		return
	}
	job.Status = StatusProcessing
	job.Attempts++
	job.Progress = 0
	job.Error = ""
	job.StartedAt = m.now()
	if err = m.save(job); err != nil {
		zap.S().Error(err)
		return
	}
	zap.S().Infof("开始执行导入任务 %s (第 %d 次)", job.ID, job.Attempts)

	result, err := m.runner.Run(ctx, func(percent int) {
		job.Progress = percent
		if err := m.save(job); err != nil {
			zap.S().Warn(err)
		}
	})
	job.FinishedAt = m.now()
	if err == nil {
		job.Status = StatusCompleted
		job.Progress = 100
		job.Result = result
		if err = m.save(job); err != nil {
			zap.S().Error(err)
		}
		zap.S().Infof("导入任务 %s 完成", job.ID)
		return
	}

	job.Error = err.Error()
	zap.S().Errorf("导入任务 %s 失败: %v", job.ID, err)
	if ctx.Err() == nil && job.Attempts < m.cfg.MaxAttempts {
		job.Status = StatusCreated
		if err = m.save(job); err != nil {
			zap.S().Error(err)
			return
		}
		select {
		case m.queue <- job.ID:
			zap.S().Infof("导入任务 %s 重新入队", job.ID)
			return
		default:
			job.Error += "; 队列已满，不再重试"
		}
	}
	job.Status = StatusFailed
	if err = m.save(job); err != nil {
		zap.S().Error(err)
	}
}
