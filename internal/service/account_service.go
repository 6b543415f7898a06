package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
	pkgerrors "github.com/nmearl/cds-api/pkg/errors"
)

// errVerificationCodeTaken 共享注册表中验证码冲突，重新生成后重试
var errVerificationCodeTaken = errors.New("verification code already registered")

// AccountService 账号生命周期：注册、登录、验证
// error 非空时一律表示存储故障，业务结果通过 Status 表达
type AccountService interface {
	SignUpStudent(ctx context.Context, req *dto.StudentSignUpRequest) (*dto.SignUpResponse, error)
	SignUpEducator(ctx context.Context, req *dto.EducatorSignUpRequest) (*dto.SignUpResponse, error)
	LoginStudent(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	LoginEducator(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	VerifyStudent(ctx context.Context, code string) (*dto.VerificationResponse, error)
	VerifyEducator(ctx context.Context, code string) (*dto.VerificationResponse, error)
	ListStudents(ctx context.Context, p *dto.PaginationRequest) (*dto.ListResponse[model.Student], error)
	ListEducators(ctx context.Context, p *dto.PaginationRequest) (*dto.ListResponse[model.Educator], error)
}

type accountService struct {
	repo     *repository.Repository
	resolver IdentityResolver
	codes    *CodeGenerator
	hasher   PasswordHasher
	now      func() time.Time
	logger   *zap.Logger
}

// NewAccountService 创建 AccountService 实例
func NewAccountService(
	repo *repository.Repository,
	resolver IdentityResolver,
	codes *CodeGenerator,
	hasher PasswordHasher,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		repo:     repo,
		resolver: resolver,
		codes:    codes,
		hasher:   hasher,
		now:      time.Now,
		logger:   logger,
	}
}

// account 学生与教师共有的账号视图
type account interface {
	GetID() uint
	GetAccount() *model.Account
}

// ═══════════════════════════════════════════════════════════
// SignUp
// ═══════════════════════════════════════════════════════════

func (s *accountService) SignUpStudent(ctx context.Context, req *dto.StudentSignUpRequest) (*dto.SignUpResponse, error) {
	if strings.TrimSpace(req.Username) == "" {
		return signUpResponse(dto.SignUpBadRequest, 0), nil
	}

	resp, err := signUpFlow(ctx, s, model.AccountKindStudent, req.Email, req.Password,
		func(tx *repository.Repository, email, hash, code string) (uint, error) {
			student := &model.Student{
				Username: strings.TrimSpace(req.Username),
				Account:  newAccount(email, hash, code, req.Institution, req.Age, req.Gender),
			}
			if err := tx.Student.Create(ctx, student); err != nil {
				return 0, err
			}
			return student.ID, nil
		},
		s.repo.Student.GetByEmail,
	)
	if err != nil || resp.Status != dto.SignUpOk {
		return resp, err
	}

	// 附带班级码时加入班级；无效码静默忽略
	if req.ClassroomCode != nil && strings.TrimSpace(*req.ClassroomCode) != "" {
		s.joinClassByCode(ctx, resp.ID, *req.ClassroomCode)
	}
	return resp, nil
}

func (s *accountService) SignUpEducator(ctx context.Context, req *dto.EducatorSignUpRequest) (*dto.SignUpResponse, error) {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return signUpResponse(dto.SignUpBadRequest, 0), nil
	}

	return signUpFlow(ctx, s, model.AccountKindEducator, req.Email, req.Password,
		func(tx *repository.Repository, email, hash, code string) (uint, error) {
			educator := &model.Educator{
				FirstName: strings.TrimSpace(req.FirstName),
				LastName:  strings.TrimSpace(req.LastName),
				Account:   newAccount(email, hash, code, req.Institution, req.Age, req.Gender),
			}
			if err := tx.Educator.Create(ctx, educator); err != nil {
				return 0, err
			}
			return educator.ID, nil
		},
		s.repo.Educator.GetByEmail,
	)
}

// signUpFlow 注册公共流程
//
// 验证码与账号行在同一事务内写入：注册表主键冲突说明验证码撞车，换码重试；
// 账号表唯一约束冲突时回查邮箱，存在则为 EmailExists，否则同样视为撞码。
func signUpFlow[T any](
	ctx context.Context,
	s *accountService,
	kind model.AccountKind,
	rawEmail, password string,
	insert func(tx *repository.Repository, email, hash, code string) (uint, error),
	lookup func(ctx context.Context, email string) (*T, error),
) (*dto.SignUpResponse, error) {
	// 按原样保存大小写，查重与登录查找由仓储层忽略大小写
	email := strings.TrimSpace(rawEmail)
	if email == "" || password == "" {
		return signUpResponse(dto.SignUpBadRequest, 0), nil
	}

	// 1. 邮箱预检（快速路径，最终以唯一约束为准）
	exists, err := emailTaken(ctx, lookup, email)
	if err != nil {
		s.logger.Error("注册时查询邮箱失败", zap.String("kind", string(kind)), zap.Error(err))
		return signUpResponse(dto.SignUpError, 0), err
	}
	if exists {
		return signUpResponse(dto.SignUpEmailExists, 0), nil
	}

	// 2. 密码哈希
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return signUpResponse(dto.SignUpError, 0), err
	}

	// 3. 生成验证码并写入，冲突时有限次重试
	for attempt := 0; attempt < s.codes.MaxAttempts(); attempt++ {
		code, err := s.codes.GenerateUniqueCode(ctx, CodeKindVerification, nil)
		if err != nil {
			s.logger.Error("生成验证码失败", zap.String("kind", string(kind)), zap.Error(err))
			return signUpResponse(dto.SignUpError, 0), err
		}

		var id uint
		err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.VerificationCode.Create(ctx, &model.VerificationCode{Code: code, OwnerKind: kind}); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errVerificationCodeTaken
				}
				return err
			}
			var err error
			id, err = insert(tx, email, hash, code)
			return err
		})

		switch {
		case err == nil:
			s.logger.Info("账号注册成功", zap.String("kind", string(kind)), zap.Uint("id", id))
			return signUpResponse(dto.SignUpOk, id), nil
		case errors.Is(err, errVerificationCodeTaken):
			continue
		case errors.Is(err, gorm.ErrDuplicatedKey):
			exists, lookupErr := emailTaken(ctx, lookup, email)
			if lookupErr != nil {
				s.logger.Error("注册冲突后回查邮箱失败", zap.Error(lookupErr))
				return signUpResponse(dto.SignUpError, 0), lookupErr
			}
			if exists {
				return signUpResponse(dto.SignUpEmailExists, 0), nil
			}
			continue
		default:
			s.logger.Error("写入账号失败", zap.String("kind", string(kind)), zap.Error(err))
			return signUpResponse(dto.SignUpError, 0), err
		}
	}

	s.logger.Error("验证码重试次数耗尽", zap.String("kind", string(kind)))
	return signUpResponse(dto.SignUpError, 0), pkgerrors.ErrCodeSpaceExhausted
}

func (s *accountService) joinClassByCode(ctx context.Context, studentID uint, code string) {
	class, err := s.resolver.ClassByCode(ctx, code)
	if err != nil {
		s.logger.Error("注册时解析班级码失败", zap.Uint("student_id", studentID), zap.Error(err))
		return
	}
	if class == nil {
		s.logger.Debug("注册时班级码无效，已忽略", zap.Uint("student_id", studentID))
		return
	}
	if err := s.repo.StudentClass.Create(ctx, &model.StudentClass{StudentID: studentID, ClassID: class.ID}); err != nil {
		s.logger.Error("注册时加入班级失败",
			zap.Uint("student_id", studentID),
			zap.Uint("class_id", class.ID),
			zap.Error(err),
		)
	}
}

func emailTaken[T any](ctx context.Context, lookup func(context.Context, string) (*T, error), email string) (bool, error) {
	v, err := found(lookup(ctx, email))
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func newAccount(email, hash, code string, institution *string, age *int, gender *string) model.Account {
	return model.Account{
		Email:            email,
		PasswordHash:     hash,
		Verified:         false,
		VerificationCode: code,
		Institution:      institution,
		Age:              age,
		Gender:           gender,
	}
}

func signUpResponse(status dto.SignUpResult, id uint) *dto.SignUpResponse {
	return &dto.SignUpResponse{Status: status, Success: status.Success(), ID: id}
}

// ═══════════════════════════════════════════════════════════
// Login
// ═══════════════════════════════════════════════════════════

func (s *accountService) LoginStudent(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return loginResponse(dto.LoginBadRequest, 0), nil
	}
	student, err := s.resolver.StudentByEmail(ctx, req.Email)
	if err != nil {
		s.logger.Error("登录时查询学生失败", zap.Error(err))
		return loginResponse(dto.LoginError, 0), err
	}
	if student == nil {
		return loginResponse(dto.LoginEmailNotExist, 0), nil
	}
	return s.checkLogin(ctx, student, req.Password, s.repo.Student.RecordVisit)
}

func (s *accountService) LoginEducator(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return loginResponse(dto.LoginBadRequest, 0), nil
	}
	educator, err := s.resolver.EducatorByEmail(ctx, req.Email)
	if err != nil {
		s.logger.Error("登录时查询教师失败", zap.Error(err))
		return loginResponse(dto.LoginError, 0), err
	}
	if educator == nil {
		return loginResponse(dto.LoginEmailNotExist, 0), nil
	}
	return s.checkLogin(ctx, educator, req.Password, s.repo.Educator.RecordVisit)
}

// checkLogin 依次校验密码与验证状态；仅在全部通过后记录访问
func (s *accountService) checkLogin(
	ctx context.Context,
	acct account,
	password string,
	recordVisit func(ctx context.Context, id uint, at time.Time) error,
) (*dto.LoginResponse, error) {
	a := acct.GetAccount()
	if !s.hasher.Compare(a.PasswordHash, password) {
		return loginResponse(dto.LoginIncorrectPassword, 0), nil
	}
	if !a.Verified {
		return loginResponse(dto.LoginNotVerified, 0), nil
	}
	if err := recordVisit(ctx, acct.GetID(), s.now()); err != nil {
		s.logger.Error("记录登录访问失败", zap.Uint("id", acct.GetID()), zap.Error(err))
		return loginResponse(dto.LoginError, 0), err
	}
	return loginResponse(dto.LoginOk, acct.GetID()), nil
}

func loginResponse(status dto.LoginResult, id uint) *dto.LoginResponse {
	resp := &dto.LoginResponse{Status: status, Success: status.Success()}
	if status == dto.LoginOk {
		resp.ID = &id
	}
	return resp
}

// ═══════════════════════════════════════════════════════════
// Verify
// ═══════════════════════════════════════════════════════════

func (s *accountService) VerifyStudent(ctx context.Context, code string) (*dto.VerificationResponse, error) {
	return s.verify(ctx, model.AccountKindStudent, code,
		func(ctx context.Context, code string) ([]account, error) {
			students, err := s.repo.Student.ListByVerificationCode(ctx, code)
			if err != nil {
				return nil, err
			}
			out := make([]account, 0, len(students))
			for i := range students {
				out = append(out, &students[i])
			}
			return out, nil
		},
		s.repo.Student.MarkVerified,
	)
}

func (s *accountService) VerifyEducator(ctx context.Context, code string) (*dto.VerificationResponse, error) {
	return s.verify(ctx, model.AccountKindEducator, code,
		func(ctx context.Context, code string) ([]account, error) {
			educators, err := s.repo.Educator.ListByVerificationCode(ctx, code)
			if err != nil {
				return nil, err
			}
			out := make([]account, 0, len(educators))
			for i := range educators {
				out = append(out, &educators[i])
			}
			return out, nil
		},
		s.repo.Educator.MarkVerified,
	)
}

// verify 一次性状态迁移 unverified → verified
// 多行匹配同一验证码属于不变量被破坏：记录全部 id，不做任何修改
func (s *accountService) verify(
	ctx context.Context,
	kind model.AccountKind,
	code string,
	list func(ctx context.Context, code string) ([]account, error),
	mark func(ctx context.Context, id uint) (bool, error),
) (*dto.VerificationResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return verificationResponse(dto.VerificationBadRequest), nil
	}

	// 1. 查找匹配的账号
	matches, err := list(ctx, code)
	if err != nil {
		s.logger.Error("验证时查询账号失败", zap.String("kind", string(kind)), zap.Error(err))
		return verificationResponse(dto.VerificationError), err
	}

	switch len(matches) {
	case 0:
		return verificationResponse(dto.VerificationInvalidCode), nil
	case 1:
	default:
		ids := make([]uint, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.GetID())
		}
		s.logger.Error("多个账号共享同一验证码",
			zap.String("kind", string(kind)),
			zap.Uints("ids", ids),
		)
		return verificationResponse(dto.VerificationError), pkgerrors.ErrInvariantViolation
	}

	// 2. 已验证则为幂等空操作
	acct := matches[0]
	if acct.GetAccount().Verified {
		return verificationResponse(dto.VerificationAlreadyVerified), nil
	}

	// 3. 条件更新，并发下后到者得到 AlreadyVerified
	changed, err := mark(ctx, acct.GetID())
	if err != nil {
		s.logger.Error("更新验证状态失败", zap.Uint("id", acct.GetID()), zap.Error(err))
		return verificationResponse(dto.VerificationError), err
	}
	if !changed {
		return verificationResponse(dto.VerificationAlreadyVerified), nil
	}

	s.logger.Info("账号验证成功", zap.String("kind", string(kind)), zap.Uint("id", acct.GetID()))
	return verificationResponse(dto.VerificationOk), nil
}

func verificationResponse(status dto.VerificationResult) *dto.VerificationResponse {
	return &dto.VerificationResponse{Status: status, Success: status.Success()}
}

// ═══════════════════════════════════════════════════════════
// List
// ═══════════════════════════════════════════════════════════

func (s *accountService) ListStudents(ctx context.Context, p *dto.PaginationRequest) (*dto.ListResponse[model.Student], error) {
	students, total, err := s.repo.Student.List(ctx, p.GetOffset(), p.GetPageSize())
	if err != nil {
		s.logger.Error("查询学生列表失败", zap.Error(err))
		return nil, err
	}
	return dto.NewListResponse(students, total, p), nil
}

func (s *accountService) ListEducators(ctx context.Context, p *dto.PaginationRequest) (*dto.ListResponse[model.Educator], error) {
	educators, total, err := s.repo.Educator.List(ctx, p.GetOffset(), p.GetPageSize())
	if err != nil {
		s.logger.Error("查询教师列表失败", zap.Error(err))
		return nil, err
	}
	return dto.NewListResponse(educators, total, p), nil
}
