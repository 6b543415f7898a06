package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// GalaxyService 星系读取与问题上报
type GalaxyService interface {
	// ListGalaxies types 为空时返回全部可用星系
	ListGalaxies(ctx context.Context, types []string) ([]model.Galaxy, error)
	// GetSampleGalaxy 不存在时返回 (nil, nil)
	GetSampleGalaxy(ctx context.Context) (*model.Galaxy, error)
	GetGalaxy(ctx context.Context, id uint) (*model.Galaxy, error)

	// 上报类操作只做原子自增，不返回计数值
	MarkBad(ctx context.Context, sel dto.GalaxySelector) (*dto.MarkGalaxyResponse, error)
	MarkSpectrumBad(ctx context.Context, sel dto.GalaxySelector) (*dto.MarkGalaxyResponse, error)
	MarkTileloadBad(ctx context.Context, sel dto.GalaxySelector) (*dto.MarkGalaxyResponse, error)

	// SetSpectrumStatus 先校验星系存在，再校验 good 为布尔值
	SetSpectrumStatus(ctx context.Context, req *dto.SetSpectrumStatusRequest) (*dto.SetSpectrumStatusResponse, error)
}

type galaxyService struct {
	repo     *repository.Repository
	resolver IdentityResolver
	logger   *zap.Logger
}

// NewGalaxyService 创建 GalaxyService 实例
func NewGalaxyService(repo *repository.Repository, resolver IdentityResolver, logger *zap.Logger) GalaxyService {
	return &galaxyService{repo: repo, resolver: resolver, logger: logger}
}

func (s *galaxyService) ListGalaxies(ctx context.Context, types []string) ([]model.Galaxy, error) {
	return s.repo.Galaxy.ListGood(ctx, types)
}

func (s *galaxyService) GetSampleGalaxy(ctx context.Context) (*model.Galaxy, error) {
	return found(s.repo.Galaxy.GetSample(ctx))
}

func (s *galaxyService) GetGalaxy(ctx context.Context, id uint) (*model.Galaxy, error) {
	return s.resolver.Galaxy(ctx, dto.GalaxyByID(id))
}

func (s *galaxyService) MarkBad(ctx context.Context, sel dto.GalaxySelector) (*dto.MarkGalaxyResponse, error) {
	return s.mark(ctx, sel, model.CounterMarkedBad, dto.GalaxyMarkedBad)
}

func (s *galaxyService) MarkSpectrumBad(ctx context.Context, sel dto.GalaxySelector) (*dto.MarkGalaxyResponse, error) {
	return s.mark(ctx, sel, model.CounterSpecMarkedBad, dto.GalaxySpectrumMarkedBad)
}

func (s *galaxyService) MarkTileloadBad(ctx context.Context, sel dto.GalaxySelector) (*dto.MarkGalaxyResponse, error) {
	return s.mark(ctx, sel, model.CounterTileloadMarkedBad, dto.GalaxyTileloadMarkedBad)
}

func (s *galaxyService) mark(
	ctx context.Context,
	sel dto.GalaxySelector,
	counter model.GalaxyCounter,
	success dto.MarkGalaxyResult,
) (*dto.MarkGalaxyResponse, error) {
	// 1. 解析引用
	ref, ok := sel.Ref()
	if !ok {
		return &dto.MarkGalaxyResponse{Status: dto.GalaxyMissingRef}, nil
	}
	galaxy, err := s.resolver.Galaxy(ctx, ref)
	if err != nil {
		s.logger.Error("上报时解析星系失败", zap.Error(err))
		return nil, err
	}
	if galaxy == nil {
		return &dto.MarkGalaxyResponse{Status: dto.GalaxyNotFound}, nil
	}

	// 2. 原子自增
	n, err := s.repo.Galaxy.IncrementCounter(ctx, galaxy.ID, counter)
	if err != nil {
		s.logger.Error("星系计数自增失败",
			zap.Uint("galaxy_id", galaxy.ID),
			zap.String("counter", string(counter)),
			zap.Error(err),
		)
		return nil, err
	}
	if n == 0 {
		return &dto.MarkGalaxyResponse{Status: dto.GalaxyNotFound}, nil
	}
	return &dto.MarkGalaxyResponse{Status: success}, nil
}

func (s *galaxyService) SetSpectrumStatus(ctx context.Context, req *dto.SetSpectrumStatusRequest) (*dto.SetSpectrumStatusResponse, error) {
	ref := dto.GalaxyByName(req.GalaxyName)
	resp := &dto.SetSpectrumStatusResponse{Galaxy: ref.Name()}

	// 1. 星系必须存在
	var galaxy *model.Galaxy
	if !ref.Empty() {
		g, err := s.resolver.Galaxy(ctx, ref)
		if err != nil {
			s.logger.Error("审核光谱时解析星系失败", zap.String("galaxy", ref.Name()), zap.Error(err))
			return nil, err
		}
		galaxy = g
	}
	if galaxy == nil {
		resp.Status = dto.SpectrumNoSuchGalaxy
		return resp, nil
	}

	// 2. good 必须为布尔值
	good, ok := req.GoodValue()
	if !ok {
		resp.Status = dto.SpectrumInvalidStatus
		return resp, nil
	}

	// 3. 写入
	n, err := s.repo.Galaxy.SetSpectrumStatus(ctx, galaxy.ID, good)
	if err != nil {
		s.logger.Error("写入光谱审核结论失败", zap.Uint("galaxy_id", galaxy.ID), zap.Error(err))
		return nil, err
	}
	if n == 0 {
		resp.Status = dto.SpectrumNoSuchGalaxy
		return resp, nil
	}

	bad := !good
	resp.Status = dto.SpectrumStatusUpdated
	resp.MarkedGood = &good
	resp.MarkedBad = &bad
	return resp, nil
}
