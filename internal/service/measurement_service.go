package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// ErrInvalidMeasurementNumber 测量序号只能是 first / second
var ErrInvalidMeasurementNumber = errors.New("measurement_number 只能是 first 或 second")

// MeasurementService 测量对账：按复合键 upsert、部分合并、删除
type MeasurementService interface {
	SubmitMeasurement(ctx context.Context, req *dto.SubmitMeasurementRequest) (*dto.SubmitMeasurementResponse, error)
	SubmitSampleMeasurement(ctx context.Context, req *dto.SubmitSampleMeasurementRequest) (*dto.SubmitSampleMeasurementResponse, error)
	RemoveMeasurement(ctx context.Context, studentID uint, ref dto.GalaxyRef) (*dto.RemoveMeasurementResponse, error)
	RemoveSampleMeasurement(ctx context.Context, studentID uint, number string) (*dto.RemoveMeasurementResponse, error)

	// 读取：不存在时返回 (nil, nil)
	GetMeasurement(ctx context.Context, studentID, galaxyID uint) (*model.HubbleMeasurement, error)
	ListStudentMeasurements(ctx context.Context, studentID uint) ([]model.HubbleMeasurement, error)
	GetSampleMeasurement(ctx context.Context, studentID uint, number string) (*model.SampleHubbleMeasurement, error)
	ListStudentSampleMeasurements(ctx context.Context, studentID uint) ([]model.SampleHubbleMeasurement, error)
	ListAllSampleMeasurements(ctx context.Context, filterNull bool) ([]model.SampleHubbleMeasurement, error)
	ListNthSampleMeasurements(ctx context.Context, number string) ([]model.SampleHubbleMeasurement, error)
}

type measurementService struct {
	repo     *repository.Repository
	resolver IdentityResolver
	logger   *zap.Logger
}

// NewMeasurementService 创建 MeasurementService 实例
func NewMeasurementService(repo *repository.Repository, resolver IdentityResolver, logger *zap.Logger) MeasurementService {
	return &measurementService{repo: repo, resolver: resolver, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Submit
// ═══════════════════════════════════════════════════════════

func (s *measurementService) SubmitMeasurement(ctx context.Context, req *dto.SubmitMeasurementRequest) (*dto.SubmitMeasurementResponse, error) {
	// 1. 学生必须存在
	student, err := s.resolver.StudentByID(ctx, req.StudentID)
	if err != nil {
		s.logger.Error("提交测量时查询学生失败", zap.Error(err))
		return nil, err
	}
	if student == nil {
		return submitResponse(dto.MeasurementNoStudent, nil), nil
	}

	// 2. 解析星系引用
	galaxy, status, err := s.resolveGalaxy(ctx, req.GalaxySelector)
	if err != nil || galaxy == nil {
		return submitResponse(status, nil), err
	}

	// 3. 按 (student_id, galaxy_id) upsert
	created, err := s.repo.Measurement.Upsert(ctx, student.ID, galaxy.ID, req.MeasurementFields)
	if err != nil {
		s.logger.Error("写入测量失败",
			zap.Uint("student_id", student.ID),
			zap.Uint("galaxy_id", galaxy.ID),
			zap.Error(err),
		)
		return nil, err
	}

	// 4. 回读合并后的记录
	record, err := found(s.repo.Measurement.Get(ctx, student.ID, galaxy.ID))
	if err != nil {
		s.logger.Error("回读测量失败", zap.Error(err))
		return nil, err
	}

	status = dto.MeasurementUpdated
	if created {
		status = dto.MeasurementCreated
	}
	return submitResponse(status, record), nil
}

func (s *measurementService) SubmitSampleMeasurement(ctx context.Context, req *dto.SubmitSampleMeasurementRequest) (*dto.SubmitSampleMeasurementResponse, error) {
	number := req.Number()
	if !number.Valid() {
		return sampleSubmitResponse(dto.MeasurementBadRequest, nil), nil
	}

	student, err := s.resolver.StudentByID(ctx, req.StudentID)
	if err != nil {
		s.logger.Error("提交样本测量时查询学生失败", zap.Error(err))
		return nil, err
	}
	if student == nil {
		return sampleSubmitResponse(dto.MeasurementNoStudent, nil), nil
	}

	galaxy, status, err := s.resolveGalaxy(ctx, req.GalaxySelector)
	if err != nil || galaxy == nil {
		return sampleSubmitResponse(status, nil), err
	}

	created, err := s.repo.SampleMeasurement.Upsert(ctx, student.ID, number, galaxy.ID, req.MeasurementFields)
	if err != nil {
		s.logger.Error("写入样本测量失败",
			zap.Uint("student_id", student.ID),
			zap.String("measurement_number", string(number)),
			zap.Error(err),
		)
		return nil, err
	}

	record, err := found(s.repo.SampleMeasurement.Get(ctx, student.ID, number))
	if err != nil {
		s.logger.Error("回读样本测量失败", zap.Error(err))
		return nil, err
	}

	status = dto.MeasurementUpdated
	if created {
		status = dto.MeasurementCreated
	}
	return sampleSubmitResponse(status, record), nil
}

// resolveGalaxy 缺少引用或星系不存在都属于 bad_request
func (s *measurementService) resolveGalaxy(ctx context.Context, sel dto.GalaxySelector) (*model.Galaxy, dto.SubmitMeasurementResult, error) {
	ref, ok := sel.Ref()
	if !ok {
		return nil, dto.MeasurementBadRequest, nil
	}
	galaxy, err := s.resolver.Galaxy(ctx, ref)
	if err != nil {
		s.logger.Error("解析星系失败", zap.Error(err))
		return nil, "", err
	}
	if galaxy == nil {
		return nil, dto.MeasurementBadRequest, nil
	}
	return galaxy, "", nil
}

func submitResponse(status dto.SubmitMeasurementResult, m *model.HubbleMeasurement) *dto.SubmitMeasurementResponse {
	return &dto.SubmitMeasurementResponse{Status: status, Success: status.Success(), Measurement: m}
}

func sampleSubmitResponse(status dto.SubmitMeasurementResult, m *model.SampleHubbleMeasurement) *dto.SubmitSampleMeasurementResponse {
	return &dto.SubmitSampleMeasurementResponse{Status: status, Success: status.Success(), Measurement: m}
}

// ═══════════════════════════════════════════════════════════
// Remove
// ═══════════════════════════════════════════════════════════

func (s *measurementService) RemoveMeasurement(ctx context.Context, studentID uint, ref dto.GalaxyRef) (*dto.RemoveMeasurementResponse, error) {
	if studentID == 0 || ref.Empty() {
		return removeResponse(dto.RemoveMeasurementBadRequest), nil
	}

	galaxyID := ref.ID()
	if ref.ByName() {
		galaxy, err := s.resolver.Galaxy(ctx, ref)
		if err != nil {
			s.logger.Error("删除测量时解析星系失败", zap.Error(err))
			return nil, err
		}
		// 名称无法解析视为请求无效，与提交路径一致
		if galaxy == nil {
			return removeResponse(dto.RemoveMeasurementBadRequest), nil
		}
		galaxyID = galaxy.ID
	}

	n, err := s.repo.Measurement.Delete(ctx, studentID, galaxyID)
	if err != nil {
		s.logger.Error("删除测量失败", zap.Uint("student_id", studentID), zap.Uint("galaxy_id", galaxyID), zap.Error(err))
		return nil, err
	}
	if n == 0 {
		return removeResponse(dto.MeasurementNotFound), nil
	}
	return removeResponse(dto.MeasurementRemoved), nil
}

func (s *measurementService) RemoveSampleMeasurement(ctx context.Context, studentID uint, number string) (*dto.RemoveMeasurementResponse, error) {
	n := model.MeasurementNumber(number)
	if studentID == 0 || !n.Valid() {
		return removeResponse(dto.RemoveMeasurementBadRequest), nil
	}

	affected, err := s.repo.SampleMeasurement.Delete(ctx, studentID, n)
	if err != nil {
		s.logger.Error("删除样本测量失败", zap.Uint("student_id", studentID), zap.String("measurement_number", number), zap.Error(err))
		return nil, err
	}
	if affected == 0 {
		return removeResponse(dto.MeasurementNotFound), nil
	}
	return removeResponse(dto.MeasurementRemoved), nil
}

func removeResponse(status dto.RemoveMeasurementResult) *dto.RemoveMeasurementResponse {
	return &dto.RemoveMeasurementResponse{Status: status, Success: status == dto.MeasurementRemoved}
}

// ═══════════════════════════════════════════════════════════
// Read
// ═══════════════════════════════════════════════════════════

func (s *measurementService) GetMeasurement(ctx context.Context, studentID, galaxyID uint) (*model.HubbleMeasurement, error) {
	return found(s.repo.Measurement.Get(ctx, studentID, galaxyID))
}

func (s *measurementService) ListStudentMeasurements(ctx context.Context, studentID uint) ([]model.HubbleMeasurement, error) {
	return s.repo.Measurement.ListByStudent(ctx, studentID)
}

func (s *measurementService) GetSampleMeasurement(ctx context.Context, studentID uint, number string) (*model.SampleHubbleMeasurement, error) {
	n := model.MeasurementNumber(number)
	if !n.Valid() {
		return nil, ErrInvalidMeasurementNumber
	}
	return found(s.repo.SampleMeasurement.Get(ctx, studentID, n))
}

func (s *measurementService) ListStudentSampleMeasurements(ctx context.Context, studentID uint) ([]model.SampleHubbleMeasurement, error) {
	return s.repo.SampleMeasurement.ListByStudent(ctx, studentID)
}

func (s *measurementService) ListAllSampleMeasurements(ctx context.Context, filterNull bool) ([]model.SampleHubbleMeasurement, error) {
	return s.repo.SampleMeasurement.ListAll(ctx, filterNull)
}

func (s *measurementService) ListNthSampleMeasurements(ctx context.Context, number string) ([]model.SampleHubbleMeasurement, error) {
	n := model.MeasurementNumber(number)
	if !n.Valid() {
		return nil, ErrInvalidMeasurementNumber
	}
	return s.repo.SampleMeasurement.ListByNumber(ctx, n)
}
