package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kweaver-ai/ai-store/internal/domain"
	"github.com/kweaver-ai/ai-store/internal/port"
)

// ApplicationService 提供已安装应用的查询、配置和置顶。
type ApplicationService struct {
	repo       port.ApplicationRepository
	ontologies port.OntologyManager
	agents     port.AgentFactory
	now        func() time.Time
}

func NewApplicationService(repo port.ApplicationRepository, ontologies port.OntologyManager, agents port.AgentFactory) *ApplicationService {
	return &ApplicationService{repo: repo, ontologies: ontologies, agents: agents, now: time.Now}
}

func (s *ApplicationService) Get(ctx context.Context, id int64) (*domain.Application, error) {
	return s.repo.FindByID(ctx, id)
}

// List 按更新时间倒序返回所有应用。
func (s *ApplicationService) List(ctx context.Context) ([]*domain.Application, error) {
	return s.repo.FindAll(ctx)
}

// Configure 把应用下所有知识网络和智能体标记为已配置。
// 只修改本地记录，不调用远程服务；重复调用结果相同。
func (s *ApplicationService) Configure(ctx context.Context, id int64, op domain.Operator) (*domain.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	app.MarkConfigured()
	app.Touch(op, s.now())
	if err := s.repo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Pin 设置应用是否置顶。
func (s *ApplicationService) Pin(ctx context.Context, id int64, pinned bool) (*domain.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Pinned == pinned {
		return app, nil
	}
	app.Pinned = pinned
	if err := s.repo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// ListPinned 返回所有置顶应用的 ID。
func (s *ApplicationService) ListPinned(ctx context.Context) ([]int64, error) {
	apps, err := s.repo.FindPinned(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// Ontologies 返回应用导入的知识网络详情。单个查询失败时该项只返回 id。
func (s *ApplicationService) Ontologies(ctx context.Context, id int64, token string) ([]map[string]any, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details := make([]map[string]any, 0, len(app.OntologyConfig))
	for _, item := range app.OntologyConfig {
		detail, err := s.ontologies.GetKnowledgeNetwork(ctx, item.ID, token, app.BusinessDomain)
		if err != nil || detail == nil {
			slog.Warn("failed to fetch knowledge network", "key", app.Key, "id", item.ID, "error", err)
			detail = map[string]any{"id": item.ID}
		}
		details = append(details, detail)
	}
	return details, nil
}

// Agents 返回应用导入的智能体详情。单个查询失败时该项只返回 id。
func (s *ApplicationService) Agents(ctx context.Context, id int64, token string) ([]map[string]any, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details := make([]map[string]any, 0, len(app.AgentConfig))
	for _, item := range app.AgentConfig {
		detail, err := s.agents.GetAgent(ctx, item.ID, token, app.BusinessDomain)
		if err != nil || detail == nil {
			slog.Warn("failed to fetch agent", "key", app.Key, "id", item.ID, "error", err)
			detail = map[string]any{"id": item.ID}
		}
		details = append(details, detail)
	}
	return details, nil
}
