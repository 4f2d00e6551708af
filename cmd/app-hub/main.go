package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kweaver-ai/ai-store/internal/adapter/agentfactory"
	"github.com/kweaver-ai/ai-store/internal/adapter/deployinstaller"
	httpadapter "github.com/kweaver-ai/ai-store/internal/adapter/http"
	"github.com/kweaver-ai/ai-store/internal/adapter/kubernetes"
	"github.com/kweaver-ai/ai-store/internal/adapter/lock"
	"github.com/kweaver-ai/ai-store/internal/adapter/ontology"
	"github.com/kweaver-ai/ai-store/internal/adapter/repository"
	"github.com/kweaver-ai/ai-store/internal/config"
	"github.com/kweaver-ai/ai-store/internal/metrics"
	"github.com/kweaver-ai/ai-store/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// 数据库
	db, err := repository.OpenDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open db", "error", err)
		os.Exit(1)
	}
	appRepo := repository.NewApplicationRepo(db)

	// 下游服务
	installer := deployinstaller.NewClient(cfg.DeployInstallerURL, cfg.DeployInstallerTimeout)
	ontologies := ontology.NewClient(cfg.OntologyManagerURL, cfg.OntologyManagerTimeout)
	agents := agentfactory.NewClient(cfg.AgentFactoryURL, cfg.AgentFactoryTimeout)

	prom := metrics.NewProm(cfg.MetricsNamespace, prometheus.DefaultRegisterer)

	installSvc := service.NewInstallService(appRepo, installer, ontologies, agents, service.InstallConfig{
		TempDir:          cfg.TempDir,
		MaxUnpackedBytes: cfg.MaxUnpackedBytes,
		BusinessDomain:   cfg.DefaultBusinessDomain,
	}).WithMetrics(prom)
	appSvc := service.NewApplicationService(appRepo, ontologies, agents)

	// K8s 客户端（可选，无集群时不预建命名空间）
	cs, k8sErr := kubernetes.NewClientset(cfg.KubeconfigPath)
	if k8sErr != nil {
		slog.Warn("k8s client unavailable, namespaces are left to deploy-installer", "error", k8sErr)
	} else {
		installSvc.WithNamespaceEnsurer(kubernetes.NewNamespaceEnsurer(cs))
	}

	// 安装锁（可选）
	if cfg.InstallLockRedisURL != "" {
		locker, err := lock.NewRedisLocker(cfg.InstallLockRedisURL, cfg.InstallLockTTL)
		if err != nil {
			slog.Error("failed to connect install lock store", "error", err)
			os.Exit(1)
		}
		defer locker.Close()
		installSvc.WithLocker(locker)
	}

	// HTTP 路由
	handler := httpadapter.NewRouter(
		httpadapter.NewApplicationHandler(installSvc, appSvc),
		httpadapter.RouterOptions{
			APIPrefix:      cfg.APIPrefix,
			APIToken:       cfg.APIToken,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Metrics:        prom,
			MetricsHandler: metrics.Handler(prometheus.DefaultGatherer),
		},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
