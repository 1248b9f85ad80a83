package importer

import (
	"context"
	"fmt"
	"sync"

	"magento-importer/pkg/magento"
	"magento-importer/pkg/reconcile"
)

const (
	ProgressCategories   = 33
	ProgressConfigurable = 66
	ProgressSimple       = 100
)

// Source 导入用到的 magento 接口
type Source interface {
	FetchCategories(ctx context.Context, since string) ([]magento.Category, error)
	FetchProducts(ctx context.Context, typ magento.ProductType, since string, extra ...magento.FilterGroup) ([]magento.Product, error)
	reconcile.VariantSource
}

// ProgressFunc 接收 0-100 的整体进度
type ProgressFunc func(percent int)

// PhaseResult 单个阶段的处理结果统计
type PhaseResult struct {
	Total     int `json:"total"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

func (r PhaseResult) String() string {
	return fmt.Sprintf("共 %d 条, 新建 %d, 更新 %d, 未变化 %d, 失败 %d",
		r.Total, r.Created, r.Updated, r.Unchanged, r.Failed)
}

// RunResult 一次导入的结果
type RunResult struct {
	Skipped      bool        `json:"skipped"` // 目标目录没有店铺记录
	Since        string      `json:"since"`
	Categories   PhaseResult `json:"categories"`
	Configurable PhaseResult `json:"configurable"`
	Simple       PhaseResult `json:"simple"`
	Watermark    string      `json:"watermark"`
}

// Failed 所有阶段失败条目数之和
func (r *RunResult) Failed() int {
	return r.Categories.Failed + r.Configurable.Failed + r.Simple.Failed
}

// phaseTracker 并发处理时汇总各条目的结果
type phaseTracker struct {
	mu     sync.RWMutex
	result PhaseResult
}

func newPhaseTracker(total int) *phaseTracker {
	return &phaseTracker{result: PhaseResult{Total: total}}
}

func (pt *phaseTracker) add(outcome reconcile.Outcome) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	switch outcome {
	case reconcile.OutcomeCreated:
		pt.result.Created++
	case reconcile.OutcomeUpdated:
		pt.result.Updated++
	default:
		pt.result.Unchanged++
	}
}

func (pt *phaseTracker) fail() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.result.Failed++
}

func (pt *phaseTracker) snapshot() PhaseResult {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.result
}
