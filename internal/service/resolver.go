package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// IdentityResolver 把对外标识解析为内部实体
// 未找到一律返回 (nil, nil)；error 仅表示存储故障
type IdentityResolver interface {
	StudentByID(ctx context.Context, id uint) (*model.Student, error)
	StudentByEmail(ctx context.Context, email string) (*model.Student, error)
	EducatorByID(ctx context.Context, id uint) (*model.Educator, error)
	EducatorByEmail(ctx context.Context, email string) (*model.Educator, error)
	ClassByID(ctx context.Context, id uint) (*model.Class, error)
	ClassByCode(ctx context.Context, code string) (*model.Class, error)
	Galaxy(ctx context.Context, ref dto.GalaxyRef) (*model.Galaxy, error)
}

type identityResolver struct {
	repo *repository.Repository
}

// NewIdentityResolver 创建 IdentityResolver 实例
func NewIdentityResolver(repo *repository.Repository) IdentityResolver {
	return &identityResolver{repo: repo}
}

func (r *identityResolver) StudentByID(ctx context.Context, id uint) (*model.Student, error) {
	if id == 0 {
		return nil, nil
	}
	return found(r.repo.Student.GetByID(ctx, id))
}

func (r *identityResolver) StudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	return found(r.repo.Student.GetByEmail(ctx, email))
}

func (r *identityResolver) EducatorByID(ctx context.Context, id uint) (*model.Educator, error) {
	if id == 0 {
		return nil, nil
	}
	return found(r.repo.Educator.GetByID(ctx, id))
}

func (r *identityResolver) EducatorByEmail(ctx context.Context, email string) (*model.Educator, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	return found(r.repo.Educator.GetByEmail(ctx, email))
}

func (r *identityResolver) ClassByID(ctx context.Context, id uint) (*model.Class, error) {
	if id == 0 {
		return nil, nil
	}
	return found(r.repo.Class.GetByID(ctx, id))
}

func (r *identityResolver) ClassByCode(ctx context.Context, code string) (*model.Class, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	return found(r.repo.Class.GetByCode(ctx, code))
}

// Galaxy 按名称引用时名称已在 dto.GalaxyByName 中补齐后缀
func (r *identityResolver) Galaxy(ctx context.Context, ref dto.GalaxyRef) (*model.Galaxy, error) {
	if ref.Empty() {
		return nil, nil
	}
	if ref.ByName() {
		return found(r.repo.Galaxy.GetByName(ctx, ref.Name()))
	}
	return found(r.repo.Galaxy.GetByID(ctx, ref.ID()))
}

// found 将 gorm.ErrRecordNotFound 转换为 (nil, nil)
func found[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
