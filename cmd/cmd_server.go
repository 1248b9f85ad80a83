package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"magento-importer/pkg/job"
	"magento-importer/pkg/nsc"
	"magento-importer/pkg/server"
	"magento-importer/pkg/signals"
	"magento-importer/pkg/store"
	"magento-importer/pkg/util"
)

func NewServerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "启动导入服务（http 触发、nats 触发、定时导入）",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(signals.SetupSignalHandler(), cfg)
		},
	}
}

func startServer(ctx context.Context, cfg *server.Config) error {
	zap.S().Infof("***  %s %s ***", util.AppName, util.GetVersion().Version)
	zap.S().Infof("*** 客户ID:%s ***", cfg.ClientName)

	imp, err := newImporter(cfg)
	if err != nil {
		return err
	}
	st, err := store.Init(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.CloseBadgerStore()
	jobs := job.NewManager(cfg.Job, st, imp)
	webServer := server.NewServer(cfg, server.NewHandler(jobs))

	// 先建立 nats 连接和定时任务，再启动后台协程
	g, c := errgroup.WithContext(ctx)
	var listener *server.Listener
	if cfg.Nats != nil && cfg.Nats.Enabled {
		if err := nsc.InitNats(cfg.ClientName, cfg.Nats); err != nil {
			return err
		}
		listener = server.NewListener(cfg.Nats, jobs)
	}

	enqueue := func(trigger string) {
		if _, err := jobs.Enqueue(c, trigger); err != nil {
			zap.S().Warnf("导入任务入队失败 (触发: %s): %v", trigger, err)
		}
	}
	if cfg.Schedule != nil && cfg.Schedule.Cron != "" {
		if err := job.StartCronSchedule(c, cfg.Schedule.Cron, func() { enqueue(job.TriggerCron) }); err != nil {
			if nc := nsc.GetNatsClient(); nc != nil {
				nc.Close()
			}
			return err
		}
	}
	if cfg.Schedule != nil && cfg.Schedule.RunOnStart {
		enqueue(job.TriggerStartup)
	}

	g.Go(webServer.Run)
	g.Go(func() error { return jobs.Serve(c) })
	//启动nats监听
	if listener != nil {
		g.Go(func() error { return listener.Serve(c, nsc.GetNatsClient().GetNatsConn()) })
	}

	g.Go(func() error {
		<-c.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = webServer.GracefulShutdown(shutdownCtx)
		if nc := nsc.GetNatsClient(); nc != nil {
			nc.Close()
		}
		return nil
	})
	return g.Wait()
}
