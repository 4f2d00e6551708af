package port

import (
	"context"

	"github.com/kweaver-ai/ai-store/internal/domain"
)

// ApplicationRepository 持久化已安装应用，Key 唯一性由存储层保证。
type ApplicationRepository interface {
	// FindByKey 在记录不存在时返回 (nil, nil)。
	FindByKey(ctx context.Context, key string) (*domain.Application, error)
	// FindByID 在记录不存在时返回 domain.ErrApplicationNotFound。
	FindByID(ctx context.Context, id int64) (*domain.Application, error)
	FindAll(ctx context.Context) ([]*domain.Application, error)
	FindPinned(ctx context.Context) ([]*domain.Application, error)
	// Create 写入新记录并回填 ID，Key 冲突时返回 domain.ErrAlreadyExists。
	Create(ctx context.Context, app *domain.Application) error
	Update(ctx context.Context, app *domain.Application) error
	Delete(ctx context.Context, id int64) error
}
