package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nmearl/cds-api/config"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// ── 测试辅助 ──

type testEnv struct {
	store    *mockStore
	repo     *repository.Repository
	resolver IdentityResolver
	codes    *CodeGenerator
	hasher   PasswordHasher
	logger   *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithSource(t, nil, 5)
}

// newTestEnvWithSource random 为 nil 时使用 crypto/rand
func newTestEnvWithSource(t *testing.T, random io.Reader, maxAttempts int) *testEnv {
	t.Helper()
	store := newMockStore()
	repo := newMockRepository(store)
	logger := zap.NewNop()
	cfg := &config.CodeGenConfig{MaxAttempts: maxAttempts, ClassCodeLength: 8}

	var codes *CodeGenerator
	if random == nil {
		codes = NewCodeGenerator(cfg, repo, logger)
	} else {
		codes = NewCodeGeneratorWithSource(cfg, repo, random, logger)
	}

	return &testEnv{
		store:    store,
		repo:     repo,
		resolver: NewIdentityResolver(repo),
		codes:    codes,
		hasher:   NewBcryptHasher(bcrypt.MinCost),
		logger:   logger,
	}
}

func (e *testEnv) accountService() AccountService {
	return NewAccountService(e.repo, e.resolver, e.codes, e.hasher, e.logger)
}

func (e *testEnv) classService() ClassService {
	return NewClassService(e.repo, e.resolver, e.codes, e.logger)
}

func (e *testEnv) measurementService() MeasurementService {
	return NewMeasurementService(e.repo, e.resolver, e.logger)
}

func (e *testEnv) galaxyService() GalaxyService {
	return NewGalaxyService(e.repo, e.resolver, e.logger)
}

func (e *testEnv) rosterService() RosterService {
	return NewRosterService(e.repo, e.logger)
}

func (e *testEnv) storyService() StoryService {
	return NewStoryService(e.repo, e.resolver, e.logger)
}

// seedStudent 直接写入一个学生（绕过注册流程）
func (e *testEnv) seedStudent(t *testing.T, username, email, password string, verified bool) *model.Student {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	if err != nil {
		t.Fatalf("哈希密码失败: %v", err)
	}
	s := &model.Student{
		Username: username,
		Account: model.Account{
			Email:            email,
			PasswordHash:     hash,
			Verified:         verified,
			VerificationCode: "seed-" + username,
		},
	}
	if err := e.repo.Student.Create(context.Background(), s); err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}
	return s
}

func (e *testEnv) seedEducator(t *testing.T, email string) *model.Educator {
	t.Helper()
	ed := &model.Educator{
		FirstName: "Edwin",
		LastName:  "Hubble",
		Account: model.Account{
			Email:            email,
			PasswordHash:     "x",
			VerificationCode: "seed-" + email,
		},
	}
	if err := e.repo.Educator.Create(context.Background(), ed); err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}
	return ed
}

func (e *testEnv) seedGalaxy(t *testing.T, name string) *model.Galaxy {
	t.Helper()
	g := &model.Galaxy{Name: name}
	if err := e.repo.Galaxy.Create(context.Background(), g); err != nil {
		t.Fatalf("创建星系失败: %v", err)
	}
	return g
}

// repeatReader 循环输出固定字节，用于构造必然冲突的随机源
type repeatReader struct {
	chunk []byte
	pos   int
}

func (r *repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.chunk[r.pos%len(r.chunk)]
		r.pos++
	}
	return len(p), nil
}

// sequenceReader 依次输出给定的 16 字节块，耗尽后循环最后一块
func sequenceReader(chunks ...[]byte) io.Reader {
	var buf bytes.Buffer
	for _, c := range chunks {
		buf.Write(c)
	}
	return io.MultiReader(&buf, &repeatReader{chunk: chunks[len(chunks)-1]})
}

func block(b byte) []byte {
	return bytes.Repeat([]byte{b}, 16)
}

func f64(v float64) *float64 { return &v }
func strp(v string) *string { return &v }
func uintp(v uint) *uint { return &v }
func boolp(v bool) *bool { return &v }
