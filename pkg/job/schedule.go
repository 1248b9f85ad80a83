package job

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// StartCronSchedule 按 cron 表达式定时调用 fn，ctx 结束时停止调度器
func StartCronSchedule(ctx context.Context, expr string, fn func()) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return errors.New("cron 表达式不能为空")
	}
	c, err := parseCron(expr)
	if err != nil {
		return err
	}
	entryID, err := c.AddFunc(expr, func() {
		zap.S().Info("CRON 触发导入任务...")
		fn()
	})
	if err != nil {
		return errors.Wrap(err, "注册 CRON 任务失败")
	}
	zap.S().Infof("CRON 任务已注册 (EntryID: %d, 表达式: %s)", entryID, expr)

	c.Start()
	zap.S().Info("CRON 调度器已启动")

	go func() {
		<-ctx.Done()
		zap.S().Info("接收到停止信号，正在停止 CRON 调度器...")
		stopCtx := c.Stop()
		<-stopCtx.Done()
		zap.S().Info("CRON 调度器已停止")
	}()
	return nil
}
