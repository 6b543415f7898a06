package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
	pkgerrors "github.com/nmearl/cds-api/pkg/errors"
)

// ── 班级模块业务错误 ──

var (
	ErrClassNotFound   = errors.New("班级不存在")
	ErrStudentNotFound = errors.New("学生不存在")
)

// ClassService 班级业务接口
type ClassService interface {
	CreateClass(ctx context.Context, req *dto.CreateClassRequest) (*dto.CreateClassResponse, error)
	// DeleteClass 返回班级是否存在并被删除
	DeleteClass(ctx context.Context, classID uint) (bool, error)
	ValidateClassroomCode(ctx context.Context, code string) (bool, error)
	// AddStudentToClass 已是成员时静默成功
	AddStudentToClass(ctx context.Context, classID, studentID uint) error
	GetClassesForEducator(ctx context.Context, educatorID uint) ([]model.Class, error)
	GetClassesForStudent(ctx context.Context, studentID uint) ([]model.Class, error)
	GetStudentsForClass(ctx context.Context, classID uint) ([]model.Student, error)
}

type classService struct {
	repo     *repository.Repository
	resolver IdentityResolver
	codes    *CodeGenerator
	logger   *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, resolver IdentityResolver, codes *CodeGenerator, logger *zap.Logger) ClassService {
	return &classService{repo: repo, resolver: resolver, codes: codes, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// CreateClass
// ═══════════════════════════════════════════════════════════
//
// 班级码由 (educator_id, name) 确定性派生：
//   - 同一教师已有同名班级 → already_exists
//   - 与其它班级撞码 → 以递增盐重新派生，至多 MaxAttempts 次
// 默认故事挂载失败不回滚班级，记录错误并在响应中 story_attached=false

func (s *classService) CreateClass(ctx context.Context, req *dto.CreateClassRequest) (*dto.CreateClassResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.EducatorID == 0 {
		return &dto.CreateClassResponse{Status: dto.CreateClassBadRequest}, nil
	}

	// 1. 教师必须存在
	educator, err := s.resolver.EducatorByID(ctx, req.EducatorID)
	if err != nil {
		s.logger.Error("创建班级时查询教师失败", zap.Error(err))
		return &dto.CreateClassResponse{Status: dto.CreateClassError}, err
	}
	if educator == nil {
		return &dto.CreateClassResponse{Status: dto.CreateClassBadRequest}, nil
	}

	// 2. 同名班级预检
	exists, err := s.classExists(ctx, req.EducatorID, name)
	if err != nil {
		return &dto.CreateClassResponse{Status: dto.CreateClassError}, err
	}
	if exists {
		return &dto.CreateClassResponse{Status: dto.CreateClassAlreadyExists}, nil
	}

	// 3. 生成班级码并插入
	class, err := s.insertClass(ctx, req.EducatorID, name)
	if err != nil {
		if errors.Is(err, errClassNameTaken) {
			return &dto.CreateClassResponse{Status: dto.CreateClassAlreadyExists}, nil
		}
		return &dto.CreateClassResponse{Status: dto.CreateClassError}, err
	}

	// 4. 挂载默认故事
	attached := true
	if err := s.repo.ClassStory.Create(ctx, &model.ClassStory{ClassID: class.ID, StoryName: model.DefaultStoryName}); err != nil {
		attached = false
		s.logger.Error("班级已创建但挂载默认故事失败",
			zap.Uint("class_id", class.ID),
			zap.String("story_name", model.DefaultStoryName),
			zap.Error(err),
		)
	}

	s.logger.Info("班级创建成功",
		zap.Uint("class_id", class.ID),
		zap.Uint("educator_id", class.EducatorID),
		zap.String("code", class.Code),
	)
	return &dto.CreateClassResponse{
		Status:        dto.CreateClassOk,
		Class:         class,
		StoryAttached: attached,
	}, nil
}

var errClassNameTaken = errors.New("class name already used by educator")

func (s *classService) insertClass(ctx context.Context, educatorID uint, name string) (*model.Class, error) {
	for attempt := 0; attempt < s.codes.MaxAttempts(); attempt++ {
		code, err := s.codes.GenerateUniqueCode(ctx, CodeKindClassroom, &ClassCodeSeed{
			EducatorID: educatorID,
			Name:       name,
			Salt:       attempt,
		})
		if err != nil {
			s.logger.Error("生成班级码失败", zap.Uint("educator_id", educatorID), zap.Error(err))
			return nil, err
		}

		class := &model.Class{EducatorID: educatorID, Name: name, Code: code}
		err = s.repo.Class.Create(ctx, class)
		if err == nil {
			return class, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Error("写入班级失败", zap.Error(err))
			return nil, err
		}

		// 冲突来源：并发创建了同名班级，或班级码被抢占
		exists, lookupErr := s.classExists(ctx, educatorID, name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if exists {
			return nil, errClassNameTaken
		}
	}
	s.logger.Error("班级码重试次数耗尽", zap.Uint("educator_id", educatorID))
	return nil, pkgerrors.ErrCodeSpaceExhausted
}

func (s *classService) classExists(ctx context.Context, educatorID uint, name string) (bool, error) {
	class, err := found(s.repo.Class.GetByEducatorAndName(ctx, educatorID, name))
	if err != nil {
		s.logger.Error("查询同名班级失败", zap.Error(err))
		return false, err
	}
	return class != nil, nil
}

// ═══════════════════════════════════════════════════════════
// Delete / Validate / Membership
// ═══════════════════════════════════════════════════════════

func (s *classService) DeleteClass(ctx context.Context, classID uint) (bool, error) {
	n, err := s.repo.Class.Delete(ctx, classID)
	if err != nil {
		s.logger.Error("删除班级失败", zap.Uint("class_id", classID), zap.Error(err))
		return false, err
	}
	if n > 0 {
		s.logger.Info("班级已删除", zap.Uint("class_id", classID))
	}
	return n > 0, nil
}

func (s *classService) ValidateClassroomCode(ctx context.Context, code string) (bool, error) {
	class, err := s.resolver.ClassByCode(ctx, code)
	if err != nil {
		s.logger.Error("校验班级码失败", zap.Error(err))
		return false, err
	}
	return class != nil, nil
}

func (s *classService) AddStudentToClass(ctx context.Context, classID, studentID uint) error {
	class, err := s.resolver.ClassByID(ctx, classID)
	if err != nil {
		return err
	}
	if class == nil {
		return ErrClassNotFound
	}
	student, err := s.resolver.StudentByID(ctx, studentID)
	if err != nil {
		return err
	}
	if student == nil {
		return ErrStudentNotFound
	}
	if err := s.repo.StudentClass.Create(ctx, &model.StudentClass{StudentID: studentID, ClassID: classID}); err != nil {
		s.logger.Error("加入班级失败", zap.Uint("class_id", classID), zap.Uint("student_id", studentID), zap.Error(err))
		return err
	}
	return nil
}

// ── 多对多读取：先取关联 id 集合，再一次 IN 查询 ──

func (s *classService) GetClassesForEducator(ctx context.Context, educatorID uint) ([]model.Class, error) {
	classes, err := s.repo.Class.ListByEducator(ctx, educatorID)
	if err != nil {
		s.logger.Error("查询教师班级失败", zap.Uint("educator_id", educatorID), zap.Error(err))
		return nil, err
	}
	return classes, nil
}

func (s *classService) GetClassesForStudent(ctx context.Context, studentID uint) ([]model.Class, error) {
	ids, err := s.repo.StudentClass.ListClassIDs(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学生所属班级失败", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return s.repo.Class.ListByIDs(ctx, ids)
}

func (s *classService) GetStudentsForClass(ctx context.Context, classID uint) ([]model.Student, error) {
	ids, err := s.repo.StudentClass.ListStudentIDs(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, err
	}
	return s.repo.Student.ListByIDs(ctx, ids)
}
