// Package signals 把 SIGINT/SIGTERM 转成 context 取消
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var onlyOneSignalHandler = make(chan struct{})

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler 第一次收到信号时取消 context，第二次直接退出进程；只能调用一次
func SetupSignalHandler() context.Context {
	close(onlyOneSignalHandler) // 重复调用会 panic

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, shutdownSignals...)
	go func() {
		sig := <-c
		zap.S().Infof("收到信号 %s，开始退出...", sig)
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
