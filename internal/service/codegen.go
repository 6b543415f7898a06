package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nmearl/cds-api/config"
	"github.com/nmearl/cds-api/internal/repository"
	pkgerrors "github.com/nmearl/cds-api/pkg/errors"
)

// classCodeNamespace 班级码派生使用的固定 UUID 命名空间
var classCodeNamespace = uuid.MustParse("6f1c3b5e-2d0a-4c8e-9b7a-5e4d3c2b1a09")

// CodeKind 唯一码类型
type CodeKind string

const (
	CodeKindVerification CodeKind = "verification"
	CodeKindClassroom    CodeKind = "classroom"
)

// CodeGenerator 生成验证码与班级码
//
// 生成是乐观的：预检只是快速路径，真正的唯一性由存储层唯一约束保证，
// 调用方在插入冲突时重新生成。所有循环都以 MaxAttempts 为上限，
// 超出后返回 ErrCodeSpaceExhausted。
type CodeGenerator struct {
	repo            *repository.Repository
	random          io.Reader
	maxAttempts     int
	classCodeLength int
	logger          *zap.Logger
}

// NewCodeGenerator 创建 CodeGenerator，随机源为 crypto/rand
func NewCodeGenerator(cfg *config.CodeGenConfig, repo *repository.Repository, logger *zap.Logger) *CodeGenerator {
	return NewCodeGeneratorWithSource(cfg, repo, rand.Reader, logger)
}

// NewCodeGeneratorWithSource 指定随机源（测试中用于构造确定性冲突）
func NewCodeGeneratorWithSource(cfg *config.CodeGenConfig, repo *repository.Repository, random io.Reader, logger *zap.Logger) *CodeGenerator {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	length := cfg.ClassCodeLength
	if length <= 0 || length > 32 {
		length = 32
	}
	return &CodeGenerator{
		repo:            repo,
		random:          random,
		maxAttempts:     maxAttempts,
		classCodeLength: length,
		logger:          logger,
	}
}

// MaxAttempts 插入冲突时调用方的重试上限
func (g *CodeGenerator) MaxAttempts() int { return g.maxAttempts }

// GenerateUniqueCode 生成在 kind 对应命名空间中尚未出现的码
// classroom 码由 (educatorID, name) 派生，seed 必须提供
func (g *CodeGenerator) GenerateUniqueCode(ctx context.Context, kind CodeKind, seed *ClassCodeSeed) (string, error) {
	switch kind {
	case CodeKindVerification:
		return g.unique(ctx, kind, func(int) (string, error) {
			return g.randomCode()
		}, g.verificationCodeTaken)
	case CodeKindClassroom:
		if seed == nil {
			return "", fmt.Errorf("classroom code requires a seed")
		}
		return g.unique(ctx, kind, func(attempt int) (string, error) {
			return g.ClassCode(seed.EducatorID, seed.Name, seed.Salt+attempt), nil
		}, g.repo.Class.CodeExists)
	}
	return "", fmt.Errorf("unknown code kind %q", kind)
}

// ClassCodeSeed 班级码派生输入；Salt 为首个尝试使用的盐
type ClassCodeSeed struct {
	EducatorID uint
	Name       string
	Salt       int
}

// ClassCode 由 (educatorID, name, salt) 确定性派生班级码，salt=0 时不带盐
func (g *CodeGenerator) ClassCode(educatorID uint, name string, salt int) string {
	seed := fmt.Sprintf("%d:%s", educatorID, name)
	if salt > 0 {
		seed = fmt.Sprintf("%s:%d", seed, salt)
	}
	id := uuid.NewSHA1(classCodeNamespace, []byte(seed))
	code := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return code[:g.classCodeLength]
}

func (g *CodeGenerator) unique(
	ctx context.Context,
	kind CodeKind,
	next func(attempt int) (string, error),
	taken func(ctx context.Context, code string) (bool, error),
) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := next(attempt)
		if err != nil {
			return "", err
		}
		exists, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		g.logger.Debug("候选码已存在，重新生成", zap.String("kind", string(kind)), zap.Int("attempt", attempt+1))
	}
	g.logger.Error("唯一码生成失败", zap.String("kind", string(kind)), zap.Int("max_attempts", g.maxAttempts))
	return "", pkgerrors.ErrCodeSpaceExhausted
}

// randomCode 32 位十六进制随机码
func (g *CodeGenerator) randomCode() (string, error) {
	id, err := uuid.NewRandomFromReader(g.random)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// verificationCodeTaken 学生、教师与共享注册表任一处存在即视为占用
func (g *CodeGenerator) verificationCodeTaken(ctx context.Context, code string) (bool, error) {
	checks := []func(context.Context, string) (bool, error){
		g.repo.VerificationCode.Exists,
		g.repo.Student.VerificationCodeExists,
		g.repo.Educator.VerificationCodeExists,
	}
	for _, check := range checks {
		exists, err := check(ctx, code)
		if err != nil || exists {
			return exists, err
		}
	}
	return false, nil
}
