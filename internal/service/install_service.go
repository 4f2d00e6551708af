package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kweaver-ai/ai-store/internal/bundle"
	"github.com/kweaver-ai/ai-store/internal/domain"
	"github.com/kweaver-ai/ai-store/internal/port"
)

// InstallConfig 是安装流程的本地资源配置。
type InstallConfig struct {
	TempDir          string
	MaxUnpackedBytes int64
	// manifest 未声明 business-domain 时使用
	BusinessDomain   string
}

// InstallService 编排安装包的安装和卸载。
// 各阶段严格串行；失败时只清理临时目录，不回滚已完成的远程操作。
type InstallService struct {
	repo       port.ApplicationRepository
	installer  port.DeployInstaller
	ontologies port.OntologyManager
	agents     port.AgentFactory
	namespaces port.NamespaceEnsurer
	locker     port.InstallLocker
	metrics    port.InstallMetrics
	cfg        InstallConfig
	now        func() time.Time
}

func NewInstallService(
	repo port.ApplicationRepository,
	installer port.DeployInstaller,
	ontologies port.OntologyManager,
	agents port.AgentFactory,
	cfg InstallConfig,
) *InstallService {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.BusinessDomain == "" {
		cfg.BusinessDomain = domain.DefaultBusinessDomain
	}
	return &InstallService{
		repo:       repo,
		installer:  installer,
		ontologies: ontologies,
		agents:     agents,
		metrics:    noopMetrics{},
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithNamespaceEnsurer 在安装 Release 前先确保命名空间存在，nil 表示跳过。
func (s *InstallService) WithNamespaceEnsurer(n port.NamespaceEnsurer) *InstallService {
	s.namespaces = n
	return s
}

// WithLocker 为同一个包 Key 的并发安装加锁，nil 表示不加锁。
func (s *InstallService) WithLocker(l port.InstallLocker) *InstallService {
	s.locker = l
	return s
}

func (s *InstallService) WithMetrics(m port.InstallMetrics) *InstallService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// installRun 保存一次安装调用的中间状态。
type installRun struct {
	stage    domain.InstallStage
	key      string
	started  time.Time
	pkg      *bundle.Package
	manifest *domain.Manifest
	images   []string
	charts   []domain.ChartSpec
	existing *domain.Application
}

func (r *installRun) enter(stage domain.InstallStage) {
	r.stage = stage
	slog.Info("install stage", "stage", stage, "key", r.key)
}

// Install 安装或升级一个应用包，返回写入后的应用记录。
func (s *InstallService) Install(ctx context.Context, archive io.Reader, op domain.Operator, token string) (*domain.Application, error) {
	run := &installRun{started: s.now()}
	app, err := s.install(ctx, run, archive, op, token)
	if err != nil {
		s.metrics.ObserveInstall(string(run.stage), "failed", s.now().Sub(run.started))
		slog.Error("install failed", "stage", run.stage, "key", run.key, "error", err)
		return nil, &domain.InstallError{Stage: run.stage, Err: err}
	}
	s.metrics.ObserveInstall(string(domain.StageDone), "succeeded", s.now().Sub(run.started))
	return app, nil
}

func (s *InstallService) install(ctx context.Context, run *installRun, archive io.Reader, op domain.Operator, token string) (*domain.Application, error) {
	run.enter(domain.StageExtracting)
	ws, err := bundle.Extract(ctx, archive, s.cfg.TempDir, s.cfg.MaxUnpackedBytes)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	run.enter(domain.StageLocating)
	if run.pkg, err = bundle.Locate(ws.Root); err != nil {
		return nil, err
	}
	run.key = run.pkg.Key

	run.enter(domain.StageValidating)
	if err := s.validate(run); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, run.key)
		if err != nil {
			return nil, fmt.Errorf("acquire install lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrInstallInProgress, run.key)
		}
		defer release()
	}

	run.enter(domain.StageVersionChecking)
	if run.existing, err = s.repo.FindByKey(ctx, run.key); err != nil {
		return nil, err
	}
	installed := ""
	if run.existing != nil {
		installed = run.existing.Version
	}
	if err := domain.CheckUpgrade(run.manifest.Version, installed); err != nil {
		return nil, err
	}

	run.enter(domain.StageProvisioningImages)
	for _, path := range run.images {
		if err := s.provisionImage(ctx, run, path, token); err != nil {
			return nil, err
		}
	}

	run.enter(domain.StageProvisioningCharts)
	releases := make([]domain.ReleaseConfigItem, 0, len(run.charts))
	for _, c := range run.charts {
		item, err := s.provisionChart(ctx, run, c, token)
		if err != nil {
			return nil, err
		}
		releases = append(releases, *item)
	}

	run.enter(domain.StageProvisioningOntologies)
	ontologies, err := s.importOntologies(ctx, run, token)
	if err != nil {
		return nil, err
	}

	run.enter(domain.StageProvisioningAgents)
	agents, err := s.importAgents(ctx, run, token)
	if err != nil {
		return nil, err
	}

	run.enter(domain.StagePersisting)
	icon, err := run.pkg.Icon(run.manifest)
	if err != nil {
		slog.Warn("failed to read icon", "key", run.key, "error", err)
	}
	app := s.assemble(run, icon, releases, ontologies, agents, op)
	if run.existing != nil {
		err = s.repo.Update(ctx, app)
	} else {
		err = s.repo.Create(ctx, app)
	}
	if err != nil {
		return nil, err
	}

	run.enter(domain.StageDone)
	slog.Info("application installed",
		"key", app.Key,
		"id", app.ID,
		"version", app.Version,
		"releases", len(releases),
		"ontologies", len(ontologies),
		"agents", len(agents),
	)
	return app, nil
}

// validate 解析 manifest 并确定要安装的镜像和 Chart，在任何远程调用之前完成所有校验。
func (s *InstallService) validate(run *installRun) error {
	m, err := run.pkg.LoadManifest()
	if err != nil {
		return err
	}
	if m.BusinessDomain == "" {
		m.BusinessDomain = s.cfg.BusinessDomain
	}
	run.manifest = m
	if run.images, err = run.pkg.ImageArchives(m); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPackageFormat, err)
	}
	if run.charts, err = run.pkg.Charts(m); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPackageFormat, err)
	}
	for _, path := range run.images {
		if err := requireFile(path); err != nil {
			return fmt.Errorf("%w: image %s: %v", domain.ErrPackageFormat, run.relPath(path), err)
		}
	}
	for _, c := range run.charts {
		if m.ChartNamespace(c) == "" {
			return fmt.Errorf("%w: chart %s has no namespace and release.namespace is not set", domain.ErrValidation, c.Path)
		}
		if err := requireFile(run.pkg.Path(c.Path)); err != nil {
			return fmt.Errorf("%w: chart %s: %v", domain.ErrPackageFormat, c.Path, err)
		}
	}
	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("is a directory")
	}
	return nil
}

func (s *InstallService) provisionImage(ctx context.Context, run *installRun, path, token string) error {
	rel := run.relPath(path)
	if info, err := bundle.InspectImage(path); err != nil {
		slog.Debug("image archive not inspectable", "image", rel, "error", err)
	} else {
		slog.Info("uploading image", "image", rel, "tags", info.RepoTags, "layers", info.Layers)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: image %s: %v", domain.ErrPackageFormat, rel, err)
	}
	defer f.Close()

	mappings, err := s.installer.UploadImage(ctx, f, token)
	if err != nil {
		return fmt.Errorf("%w: upload image %s: %w", domain.ErrProvisioning, rel, err)
	}
	for _, m := range mappings {
		slog.Info("image pushed", "image", rel, "from", m.From, "to", m.To)
	}
	return nil
}

func (s *InstallService) provisionChart(ctx context.Context, run *installRun, c domain.ChartSpec, token string) (*domain.ReleaseConfigItem, error) {
	f, err := os.Open(run.pkg.Path(c.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: chart %s: %v", domain.ErrPackageFormat, c.Path, err)
	}
	uploaded, err := s.installer.UploadChart(ctx, f, token)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: upload chart %s: %w", domain.ErrProvisioning, c.Path, err)
	}

	name := c.ReleaseName
	if name == "" {
		name = uploaded.Name
	}
	namespace := run.manifest.ChartNamespace(c)

	if s.namespaces != nil {
		labels := map[string]string{managedByLabel: managedByValue, appKeyLabel: run.key}
		if err := s.namespaces.EnsureNamespace(ctx, namespace, labels); err != nil {
			return nil, fmt.Errorf("%w: chart %s: ensure namespace %s: %w", domain.ErrProvisioning, c.Path, namespace, err)
		}
	}

	var releaseValues map[string]any
	if run.manifest.Release != nil {
		releaseValues = run.manifest.Release.Values
	}
	_, err = s.installer.InstallRelease(ctx, port.InstallReleaseRequest{
		Name:         name,
		Namespace:    namespace,
		ChartName:    uploaded.Name,
		ChartVersion: uploaded.Version,
		Values:       mergeValues(uploaded.Values, releaseValues, c.Values),
		SetRegistry:  run.manifest.SetRegistry(),
	}, token)
	if err != nil {
		return nil, fmt.Errorf("%w: install release %s for chart %s: %w", domain.ErrProvisioning, name, c.Path, err)
	}
	slog.Info("release installed", "key", run.key, "release", name, "namespace", namespace,
		"chart", uploaded.Name, "chart_version", uploaded.Version)
	return &domain.ReleaseConfigItem{Name: name, Namespace: namespace}, nil
}

func (s *InstallService) importOntologies(ctx context.Context, run *installRun, token string) ([]domain.OntologyConfigItem, error) {
	items := []domain.OntologyConfigItem{}
	err := s.eachDefinition(ctx, run, bundle.OntologiesDir, "ontology", func(def any) error {
		id, err := s.ontologies.CreateKnowledgeNetwork(ctx, def, token, run.manifest.BusinessDomain)
		if err != nil {
			return err
		}
		items = append(items, domain.OntologyConfigItem{ID: id})
		return nil
	})
	return items, err
}

func (s *InstallService) importAgents(ctx context.Context, run *installRun, token string) ([]domain.AgentConfigItem, error) {
	items := []domain.AgentConfigItem{}
	err := s.eachDefinition(ctx, run, bundle.AgentsDir, "agent", func(def any) error {
		created, err := s.agents.CreateAgent(ctx, def, token, run.manifest.BusinessDomain)
		if err != nil {
			return err
		}
		items = append(items, domain.AgentConfigItem{ID: created.ID})
		return nil
	})
	return items, err
}

// eachDefinition 逐个导入 sub 目录下的定义文件。单个文件失败只记录日志，
// 只有请求被取消时才中止整个安装。
func (s *InstallService) eachDefinition(ctx context.Context, run *installRun, sub, kind string, create func(def any) error) error {
	files, err := run.pkg.Definitions(sub)
	if err != nil {
		slog.Warn("failed to list definitions", "kind", kind, "key", run.key, "error", err)
		return nil
	}
	for _, f := range files {
		def, err := f.Load()
		if err == nil {
			err = create(def)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.metrics.IncDefinitionSkipped(kind)
			slog.Warn("skipping definition", "kind", kind, "key", run.key, "file", f.Name, "format", f.Format, "error", err)
		}
	}
	return nil
}

func (s *InstallService) assemble(
	run *installRun,
	icon []byte,
	releases []domain.ReleaseConfigItem,
	ontologies []domain.OntologyConfigItem,
	agents []domain.AgentConfigItem,
	op domain.Operator,
) *domain.Application {
	m := run.manifest
	app := &domain.Application{}
	if run.existing != nil {
		app.ID = run.existing.ID
		app.Pinned = run.existing.Pinned
	}
	app.Key = m.Key
	app.Name = m.Name
	app.Description = m.Description
	app.Icon = icon
	app.Version = m.Version
	app.Category = m.Category
	app.BusinessDomain = m.BusinessDomain
	app.MicroApp = m.MicroApp
	app.ReleaseConfig = releases
	app.OntologyConfig = ontologies
	app.AgentConfig = agents
	app.IsConfig = false
	app.Touch(op, s.now())
	return app
}

func (r *installRun) relPath(path string) string {
	if rel, err := filepath.Rel(r.pkg.Dir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// Uninstall 逐个删除应用的 Release（失败只记录日志），然后删除应用记录。
// 只有记录不存在或删除记录失败时返回错误。
func (s *InstallService) Uninstall(ctx context.Context, id int64, token string) (bool, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}

	failed := 0
	for _, r := range app.ReleaseConfig {
		if _, err := s.installer.DeleteRelease(ctx, r.Name, r.Namespace, token); err != nil {
			failed++
			slog.Warn("failed to delete release, continuing",
				"key", app.Key, "release", r.Name, "namespace", r.Namespace, "error", err)
			continue
		}
		slog.Info("release deleted", "key", app.Key, "release", r.Name, "namespace", r.Namespace)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.metrics.ObserveUninstall("failed", failed)
		return false, err
	}
	s.metrics.ObserveUninstall("succeeded", failed)
	slog.Info("application uninstalled", "key", app.Key, "id", id, "failed_releases", failed)
	return true, nil
}

const (
	managedByLabel = "app.kubernetes.io/managed-by"
	managedByValue = "dip-hub"
	appKeyLabel    = "dip-hub/application-key"
)

// IsRetryable 判断安装错误是否由下游服务暂时不可用引起。
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, domain.ErrServiceTimeout)
}

type noopMetrics struct{}

func (noopMetrics) ObserveInstall(string, string, time.Duration) {}
func (noopMetrics) ObserveUninstall(string, int)                 {}
func (noopMetrics) IncDefinitionSkipped(string)                  {}
