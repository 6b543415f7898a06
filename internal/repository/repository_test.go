package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

// newTestRepo 为每个测试创建独立的内存 sqlite 库
func newTestRepo(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Student{},
		&model.Educator{},
		&model.VerificationCode{},
		&model.Class{},
		&model.StudentClass{},
		&model.Story{},
		&model.ClassStory{},
		&model.Galaxy{},
		&model.HubbleMeasurement{},
		&model.SampleHubbleMeasurement{},
		&model.StoryState{},
		&model.StudentOptions{},
	))
	return repository.NewRepository(db), db
}

func createStudent(t *testing.T, repo *repository.Repository, username, email string) *model.Student {
	t.Helper()
	s := &model.Student{
		Username: username,
		Account: model.Account{
			Email:            email,
			PasswordHash:     "hash",
			VerificationCode: "vc-" + username,
		},
	}
	require.NoError(t, repo.Student.Create(context.Background(), s))
	return s
}

func f64(v float64) *float64 { return &v }
func str(v string) *string { return &v }

// ═══════════════════════════════════════════════════════════
// Account
// ═══════════════════════════════════════════════════════════

func TestStudentRepo_EmailLookupIgnoresCase(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	s := createStudent(t, repo, "alice", "alice@example.com")

	got, err := repo.Student.GetByEmail(ctx, "  ALICE@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = repo.Student.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	mixed := createStudent(t, repo, "bob", "Bob@Example.com")
	got, err = repo.Student.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, mixed.ID, got.ID)
	assert.Equal(t, "Bob@Example.com", got.Email)
}

func TestStudentRepo_DuplicateEmail(t *testing.T) {
	repo, _ := newTestRepo(t)
	createStudent(t, repo, "alice", "alice@example.com")

	dup := &model.Student{
		Username: "alice2",
		Account:  model.Account{Email: "alice@example.com", PasswordHash: "h", VerificationCode: "other"},
	}
	err := repo.Student.Create(context.Background(), dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestStudentRepo_MarkVerifiedOnlyOnce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	s := createStudent(t, repo, "bob", "bob@example.com")

	changed, err := repo.Student.MarkVerified(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Student.MarkVerified(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, changed, "已验证账号不应再次被更新")
}

func TestStudentRepo_RecordVisitIncrements(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	s := createStudent(t, repo, "carol", "carol@example.com")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Student.RecordVisit(ctx, s.ID, s.CreatedAt))
	}
	got, err := repo.Student.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Visits)
	assert.NotNil(t, got.LastVisit)
}

func TestVerificationCodeRepo_DuplicateRejected(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.VerificationCode.Create(ctx, &model.VerificationCode{Code: "abc", OwnerKind: model.AccountKindStudent}))
	err := repo.VerificationCode.Create(ctx, &model.VerificationCode{Code: "abc", OwnerKind: model.AccountKindEducator})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	ok, err := repo.VerificationCode.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_TransactionRollsBack(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.VerificationCode.Create(ctx, &model.VerificationCode{Code: "rollback", OwnerKind: model.AccountKindStudent}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	ok, err := repo.VerificationCode.Exists(ctx, "rollback")
	require.NoError(t, err)
	assert.False(t, ok, "事务失败后验证码不应残留")
}

// ═══════════════════════════════════════════════════════════
// Class
// ═══════════════════════════════════════════════════════════

func TestClassRepo_UniqueConstraints(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Class.Create(ctx, &model.Class{EducatorID: 1, Name: "Astro 101", Code: "AAAA1111"}))

	err := repo.Class.Create(ctx, &model.Class{EducatorID: 1, Name: "Astro 101", Code: "BBBB2222"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey, "同一教师同名班级应冲突")

	err = repo.Class.Create(ctx, &model.Class{EducatorID: 2, Name: "Other", Code: "AAAA1111"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey, "班级码应全局唯一")

	require.NoError(t, repo.Class.Create(ctx, &model.Class{EducatorID: 2, Name: "Astro 101", Code: "CCCC3333"}))
}

func TestClassRepo_DeleteCascades(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	class := &model.Class{EducatorID: 1, Name: "C", Code: "DEL00001"}
	require.NoError(t, repo.Class.Create(ctx, class))
	require.NoError(t, repo.StudentClass.Create(ctx, &model.StudentClass{StudentID: 7, ClassID: class.ID}))
	require.NoError(t, repo.ClassStory.Create(ctx, &model.ClassStory{ClassID: class.ID, StoryName: model.DefaultStoryName}))

	n, err := repo.Class.Delete(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ids, err := repo.StudentClass.ListStudentIDs(ctx, class.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	names, err := repo.ClassStory.ListStoryNames(ctx, class.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	n, err = repo.Class.Delete(ctx, class.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStudentClassRepo_CreateIsIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.StudentClass.Create(ctx, &model.StudentClass{StudentID: 1, ClassID: 9}))
	require.NoError(t, repo.StudentClass.Create(ctx, &model.StudentClass{StudentID: 1, ClassID: 9}))
	require.NoError(t, repo.StudentClass.Create(ctx, &model.StudentClass{StudentID: 2, ClassID: 9}))

	ids, err := repo.StudentClass.ListStudentIDs(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids)

	classIDs, err := repo.StudentClass.ListClassIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{9}, classIDs)
}

// ═══════════════════════════════════════════════════════════
// Galaxy
// ═══════════════════════════════════════════════════════════

func TestGalaxyRepo_IncrementCounterConcurrent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	g := &model.Galaxy{Name: "NGC 1234.fits"}
	require.NoError(t, repo.Galaxy.Create(ctx, g))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Galaxy.IncrementCounter(ctx, g.ID, model.CounterMarkedBad)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.Galaxy.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.MarkedBad, "并发自增不应丢失更新")
	assert.Zero(t, got.SpecMarkedBad)
}

func TestGalaxyRepo_IncrementCounterMissingAndInvalid(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.Galaxy.IncrementCounter(ctx, 404, model.CounterSpecMarkedBad)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.Galaxy.IncrementCounter(ctx, 1, model.GalaxyCounter("is_bad"))
	assert.Error(t, err)
}

func TestGalaxyRepo_ListGoodAndSample(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{Name: "good.fits"}))
	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{Name: "bad.fits", IsBad: true}))
	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{Name: "sample.fits", IsSample: true}))

	good, err := repo.Galaxy.ListGood(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, good, 2)

	sample, err := repo.Galaxy.GetSample(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sample.fits", sample.Name)
}

func TestGalaxyRepo_ListGoodByTypes(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{Name: "sp.fits", Type: str("Sp")}))
	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{Name: "e.fits", Type: str("E")}))
	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{Name: "ir.fits", Type: str("Ir")}))
	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{Name: "bad_sp.fits", Type: str("Sp"), IsBad: true}))

	list, err := repo.Galaxy.ListGood(ctx, []string{"Sp", "E"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "sp.fits", list[0].Name)
	assert.Equal(t, "e.fits", list[1].Name)

	list, err = repo.Galaxy.ListGood(ctx, []string{"S0"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGalaxyRepo_SetSpectrumStatus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	g := &model.Galaxy{Name: "spec.fits"}
	require.NoError(t, repo.Galaxy.Create(ctx, g))

	fresh, err := repo.Galaxy.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.SpecIsGood, "新星系尚未审核")

	n, err := repo.Galaxy.SetSpectrumStatus(ctx, g.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.Galaxy.GetByID(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SpecIsGood)
	assert.False(t, *got.SpecIsGood)

	_, err = repo.Galaxy.SetSpectrumStatus(ctx, g.ID, true)
	require.NoError(t, err)
	got, err = repo.Galaxy.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, *got.SpecIsGood)

	n, err = repo.Galaxy.SetSpectrumStatus(ctx, g.ID+100, true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ═══════════════════════════════════════════════════════════
// Measurement
// ═══════════════════════════════════════════════════════════

func TestMeasurementRepo_UpsertMergesPartialFields(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Galaxy.Create(ctx, &model.Galaxy{ID: 5, Name: "g5.fits"}))

	created, err := repo.Measurement.Upsert(ctx, 1, 5, model.MeasurementFields{
		RestWaveValue: f64(6562.8), RestWaveUnit: str("angstrom"),
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Measurement.Upsert(ctx, 1, 5, model.MeasurementFields{VelocityValue: f64(1200)})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.Measurement.Get(ctx, 1, 5)
	require.NoError(t, err)
	require.NotNil(t, got.RestWaveValue)
	assert.InDelta(t, 6562.8, *got.RestWaveValue, 1e-9, "未提交的字段应保留原值")
	require.NotNil(t, got.VelocityValue)
	assert.InDelta(t, 1200.0, *got.VelocityValue, 1e-9)
	require.NotNil(t, got.Galaxy)
	assert.Equal(t, "g5.fits", got.Galaxy.Name)

	list, err := repo.Measurement.ListByStudent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1, "同一键只能存在一行")
}

func TestMeasurementRepo_Delete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Measurement.Upsert(ctx, 1, 2, model.MeasurementFields{})
	require.NoError(t, err)

	n, err := repo.Measurement.Delete(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Measurement.Delete(ctx, 1, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSampleMeasurementRepo_VariantsAreIndependent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.SampleMeasurement.Upsert(ctx, 1, model.MeasurementFirst, 3, model.MeasurementFields{
		RestWaveValue: f64(1), ObsWaveValue: f64(2), VelocityValue: f64(3), AngSizeValue: f64(4), EstDistValue: f64(5),
	})
	require.NoError(t, err)
	_, err = repo.SampleMeasurement.Upsert(ctx, 1, model.MeasurementSecond, 3, model.MeasurementFields{VelocityValue: f64(9)})
	require.NoError(t, err)

	created, err := repo.SampleMeasurement.Upsert(ctx, 1, model.MeasurementSecond, 4, model.MeasurementFields{})
	require.NoError(t, err)
	assert.False(t, created)

	second, err := repo.SampleMeasurement.Get(ctx, 1, model.MeasurementSecond)
	require.NoError(t, err)
	assert.Equal(t, uint(4), second.GalaxyID, "galaxy_id 随提交覆盖")
	require.NotNil(t, second.VelocityValue)

	all, err := repo.SampleMeasurement.ListAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := repo.SampleMeasurement.ListAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, model.MeasurementFirst, complete[0].MeasurementNumber)

	firsts, err := repo.SampleMeasurement.ListByNumber(ctx, model.MeasurementFirst)
	require.NoError(t, err)
	assert.Len(t, firsts, 1)

	n, err := repo.SampleMeasurement.Delete(ctx, 1, model.MeasurementFirst)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// ═══════════════════════════════════════════════════════════
// StoryState / Options
// ═══════════════════════════════════════════════════════════

func TestStoryStateRepo_UpsertAndListForStudents(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	alice := createStudent(t, repo, "alice", "alice@example.com")
	bob := createStudent(t, repo, "bob", "bob@example.com")

	require.NoError(t, repo.StoryState.Upsert(ctx, &model.StoryState{
		StudentID: alice.ID, StoryName: "hubbles_law", State: datatypes.JSON(`{"stage":1}`),
	}))
	require.NoError(t, repo.StoryState.Upsert(ctx, &model.StoryState{
		StudentID: alice.ID, StoryName: "hubbles_law", State: datatypes.JSON(`{"stage":2}`),
	}))
	require.NoError(t, repo.StoryState.Upsert(ctx, &model.StoryState{
		StudentID: bob.ID, StoryName: "other", State: datatypes.JSON(`{}`),
	}))

	got, err := repo.StoryState.Get(ctx, alice.ID, "hubbles_law")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":2}`, string(got.State))

	states, err := repo.StoryState.ListForStudents(ctx, "hubbles_law", []uint{alice.ID, bob.ID, alice.ID})
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.NotNil(t, states[0].Student)
	assert.Equal(t, "alice", states[0].Student.Username)
	assert.Equal(t, "alice@example.com", states[0].Student.Email)

	empty, err := repo.StoryState.ListForStudents(ctx, "hubbles_law", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStudentOptionsRepo_PartialUpsert(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.StudentOptions.Upsert(ctx, 3, map[string]interface{}{"speech_rate": 1.5}))
	got, err := repo.StudentOptions.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, got.SpeechAutoread)
	assert.InDelta(t, 1.5, got.SpeechRate, 1e-9)
	assert.InDelta(t, 1.0, got.SpeechPitch, 1e-9)

	require.NoError(t, repo.StudentOptions.Upsert(ctx, 3, map[string]interface{}{"speech_autoread": true}))
	got, err = repo.StudentOptions.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, got.SpeechAutoread)
	assert.InDelta(t, 1.5, got.SpeechRate, 1e-9, "未提交的偏好应保留")
}
