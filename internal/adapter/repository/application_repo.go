package repository

import (
	"context"
	"errors"

	"github.com/kweaver-ai/ai-store/internal/domain"
	"github.com/kweaver-ai/ai-store/internal/port"
	"gorm.io/gorm"
)

var _ port.ApplicationRepository = (*ApplicationRepo)(nil)

type ApplicationRepo struct {
	db *gorm.DB
}

func NewApplicationRepo(db *gorm.DB) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

func (r *ApplicationRepo) FindByKey(ctx context.Context, key string) (*domain.Application, error) {
	var m ApplicationModel
	result := r.db.WithContext(ctx).Where("key = ?", key).Take(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return modelToApplication(&m)
}

func (r *ApplicationRepo) FindByID(ctx context.Context, id int64) (*domain.Application, error) {
	var m ApplicationModel
	result := r.db.WithContext(ctx).Where("id = ?", id).Take(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, result.Error
	}
	return modelToApplication(&m)
}

func (r *ApplicationRepo) FindAll(ctx context.Context) ([]*domain.Application, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *ApplicationRepo) FindPinned(ctx context.Context) ([]*domain.Application, error) {
	return r.find(r.db.WithContext(ctx).Where("pinned = ?", true))
}

func (r *ApplicationRepo) find(q *gorm.DB) ([]*domain.Application, error) {
	var models []ApplicationModel
	if err := q.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	apps := make([]*domain.Application, 0, len(models))
	for i := range models {
		a, err := modelToApplication(&models[i])
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, nil
}

func (r *ApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	m, err := applicationToModel(app)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Create(m)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return domain.ErrAlreadyExists
		}
		return result.Error
	}
	app.ID = m.ID
	return nil
}

func (r *ApplicationRepo) Update(ctx context.Context, app *domain.Application) error {
	m, err := applicationToModel(app)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&ApplicationModel{}).Where("id = ?", app.ID).
		Select("*").Omit("id").Updates(m)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return domain.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrApplicationNotFound
	}
	return nil
}

func (r *ApplicationRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ApplicationModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrApplicationNotFound
	}
	return nil
}

func applicationToModel(a *domain.Application) (*ApplicationModel, error) {
	var microApp string
	if a.MicroApp != nil {
		s, err := marshalJSON(a.MicroApp)
		if err != nil {
			return nil, err
		}
		microApp = s
	}
	releases, err := marshalJSON(nonNil(a.ReleaseConfig))
	if err != nil {
		return nil, err
	}
	ontologies, err := marshalJSON(nonNil(a.OntologyConfig))
	if err != nil {
		return nil, err
	}
	agents, err := marshalJSON(nonNil(a.AgentConfig))
	if err != nil {
		return nil, err
	}
	businessDomain := a.BusinessDomain
	if businessDomain == "" {
		businessDomain = domain.DefaultBusinessDomain
	}
	return &ApplicationModel{
		ID:             a.ID,
		Key:            a.Key,
		Name:           a.Name,
		Description:    a.Description,
		Icon:           a.Icon,
		Version:        a.Version,
		Category:       a.Category,
		BusinessDomain: businessDomain,
		MicroApp:       microApp,
		ReleaseConfig:  releases,
		OntologyIDs:    ontologies,
		AgentIDs:       agents,
		IsConfig:       a.IsConfig,
		Pinned:         a.Pinned,
		UpdatedBy:      a.UpdatedBy,
		UpdatedByID:    a.UpdatedByID,
		UpdatedAt:      a.UpdatedAt,
	}, nil
}

func modelToApplication(m *ApplicationModel) (*domain.Application, error) {
	a := &domain.Application{
		ID:             m.ID,
		Key:            m.Key,
		Name:           m.Name,
		Description:    m.Description,
		Icon:           m.Icon,
		Version:        m.Version,
		Category:       m.Category,
		BusinessDomain: m.BusinessDomain,
		ReleaseConfig:  []domain.ReleaseConfigItem{},
		OntologyConfig: []domain.OntologyConfigItem{},
		AgentConfig:    []domain.AgentConfigItem{},
		IsConfig:       m.IsConfig,
		Pinned:         m.Pinned,
		UpdatedBy:      m.UpdatedBy,
		UpdatedByID:    m.UpdatedByID,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.MicroApp != "" {
		a.MicroApp = &domain.MicroApp{}
		if err := unmarshalJSON(m.MicroApp, a.MicroApp); err != nil {
			return nil, err
		}
	}
	if err := unmarshalJSON(m.ReleaseConfig, &a.ReleaseConfig); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(m.OntologyIDs, &a.OntologyConfig); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(m.AgentIDs, &a.AgentConfig); err != nil {
		return nil, err
	}
	return a, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
