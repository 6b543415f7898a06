package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// mockStore 所有 mock 仓储共享的内存数据，唯一约束与数据库保持一致
type mockStore struct {
	mu sync.Mutex

	nextID uint

	students      map[uint]*model.Student
	educators     map[uint]*model.Educator
	codes         map[string]*model.VerificationCode
	classes       map[uint]*model.Class
	memberships   map[[2]uint]bool // {student_id, class_id}
	classStories  map[uint]map[string]bool
	galaxies      map[uint]*model.Galaxy
	measurements  map[[2]uint]*model.HubbleMeasurement // {student_id, galaxy_id}
	samples       map[sampleKey]*model.SampleHubbleMeasurement
	storyStates   map[stateKey]*model.StoryState
	options       map[uint]*model.StudentOptions
	classStoryErr error // 注入 ClassStory.Create 失败
}

type sampleKey struct {
	studentID uint
	number    model.MeasurementNumber
}

type stateKey struct {
	studentID uint
	story     string
}

func newMockStore() *mockStore {
	return &mockStore{
		students:     make(map[uint]*model.Student),
		educators:    make(map[uint]*model.Educator),
		codes:        make(map[string]*model.VerificationCode),
		classes:      make(map[uint]*model.Class),
		memberships:  make(map[[2]uint]bool),
		classStories: make(map[uint]map[string]bool),
		galaxies:     make(map[uint]*model.Galaxy),
		measurements: make(map[[2]uint]*model.HubbleMeasurement),
		samples:      make(map[sampleKey]*model.SampleHubbleMeasurement),
		storyStates:  make(map[stateKey]*model.StoryState),
		options:      make(map[uint]*model.StudentOptions),
	}
}

func (s *mockStore) id() uint {
	s.nextID++
	return s.nextID
}

// newMockRepository 组装不带数据库的 Repository，Transaction 直接调用回调
func newMockRepository(store *mockStore) *repository.Repository {
	return &repository.Repository{
		Student:           &mockStudentRepo{s: store},
		Educator:          &mockEducatorRepo{s: store},
		VerificationCode:  &mockVerificationCodeRepo{s: store},
		Class:             &mockClassRepo{s: store},
		StudentClass:      &mockStudentClassRepo{s: store},
		ClassStory:        &mockClassStoryRepo{s: store},
		Galaxy:            &mockGalaxyRepo{s: store},
		Measurement:       &mockMeasurementRepo{s: store},
		SampleMeasurement: &mockSampleMeasurementRepo{s: store},
		StoryState:        &mockStoryStateRepo{s: store},
		StudentOptions:    &mockStudentOptionsRepo{s: store},
	}
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ s *mockStore }

func (m *mockStudentRepo) Create(_ context.Context, st *model.Student) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.students {
		if strings.EqualFold(other.Email, st.Email) || other.VerificationCode == st.VerificationCode {
			return gorm.ErrDuplicatedKey
		}
	}
	st.ID = m.s.id()
	st.CreatedAt = time.Now()
	cp := *st
	m.s.students[st.ID] = &cp
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id uint) (*model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st, ok := m.s.students[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByEmail(_ context.Context, email string) (*model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, st := range m.s.students {
		if strings.EqualFold(st.Email, strings.TrimSpace(email)) {
			cp := *st
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListByVerificationCode(_ context.Context, code string) ([]model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Student
	for _, st := range m.s.students {
		if st.VerificationCode == code {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	list, _ := m.ListByVerificationCode(ctx, code)
	return len(list) > 0, nil
}

func (m *mockStudentRepo) MarkVerified(_ context.Context, id uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st, ok := m.s.students[id]
	if !ok || st.Verified {
		return false, nil
	}
	st.Verified = true
	return true, nil
}

func (m *mockStudentRepo) RecordVisit(_ context.Context, id uint, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st, ok := m.s.students[id]; ok {
		st.Visits++
		st.LastVisit = &at
	}
	return nil
}

func (m *mockStudentRepo) ListByIDs(_ context.Context, ids []uint) ([]model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.Student{}
	for _, id := range ids {
		if st, ok := m.s.students[id]; ok {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) List(_ context.Context, offset, limit int) ([]model.Student, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	all := make([]model.Student, 0, len(m.s.students))
	for _, st := range m.s.students {
		all = append(all, *st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), int64(len(all)), nil
}

// ── Mock EducatorRepository ──

type mockEducatorRepo struct{ s *mockStore }

func (m *mockEducatorRepo) Create(_ context.Context, e *model.Educator) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.educators {
		if strings.EqualFold(other.Email, e.Email) || other.VerificationCode == e.VerificationCode {
			return gorm.ErrDuplicatedKey
		}
	}
	e.ID = m.s.id()
	cp := *e
	m.s.educators[e.ID] = &cp
	return nil
}

func (m *mockEducatorRepo) GetByID(_ context.Context, id uint) (*model.Educator, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e, ok := m.s.educators[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEducatorRepo) GetByEmail(_ context.Context, email string) (*model.Educator, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.educators {
		if strings.EqualFold(e.Email, strings.TrimSpace(email)) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEducatorRepo) ListByVerificationCode(_ context.Context, code string) ([]model.Educator, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Educator
	for _, e := range m.s.educators {
		if e.VerificationCode == code {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEducatorRepo) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	list, _ := m.ListByVerificationCode(ctx, code)
	return len(list) > 0, nil
}

func (m *mockEducatorRepo) MarkVerified(_ context.Context, id uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.educators[id]
	if !ok || e.Verified {
		return false, nil
	}
	e.Verified = true
	return true, nil
}

func (m *mockEducatorRepo) RecordVisit(_ context.Context, id uint, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e, ok := m.s.educators[id]; ok {
		e.Visits++
		e.LastVisit = &at
	}
	return nil
}

func (m *mockEducatorRepo) List(_ context.Context, offset, limit int) ([]model.Educator, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	all := make([]model.Educator, 0, len(m.s.educators))
	for _, e := range m.s.educators {
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), int64(len(all)), nil
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// ── Mock VerificationCodeRepository ──

type mockVerificationCodeRepo struct{ s *mockStore }

func (m *mockVerificationCodeRepo) Create(_ context.Context, code *model.VerificationCode) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.codes[code.Code]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *code
	m.s.codes[code.Code] = &cp
	return nil
}

func (m *mockVerificationCodeRepo) Exists(_ context.Context, code string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	_, ok := m.s.codes[code]
	return ok, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct{ s *mockStore }

func (m *mockClassRepo) Create(_ context.Context, c *model.Class) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.classes {
		if other.Code == c.Code || (other.EducatorID == c.EducatorID && other.Name == c.Name) {
			return gorm.ErrDuplicatedKey
		}
	}
	c.ID = m.s.id()
	cp := *c
	m.s.classes[c.ID] = &cp
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id uint) (*model.Class, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c, ok := m.s.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) GetByCode(_ context.Context, code string) (*model.Class, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.classes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) GetByEducatorAndName(_ context.Context, educatorID uint, name string) (*model.Class, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.classes {
		if c.EducatorID == educatorID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := m.GetByCode(ctx, code)
	return err == nil, nil
}

func (m *mockClassRepo) ListByEducator(_ context.Context, educatorID uint) ([]model.Class, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.Class{}
	for _, c := range m.s.classes {
		if c.EducatorID == educatorID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockClassRepo) ListByIDs(_ context.Context, ids []uint) ([]model.Class, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.Class{}
	for _, id := range ids {
		if c, ok := m.s.classes[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClassRepo) Delete(_ context.Context, id uint) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.classes[id]; !ok {
		return 0, nil
	}
	delete(m.s.classes, id)
	delete(m.s.classStories, id)
	for k := range m.s.memberships {
		if k[1] == id {
			delete(m.s.memberships, k)
		}
	}
	return 1, nil
}

// ── Mock StudentClassRepository ──

type mockStudentClassRepo struct{ s *mockStore }

func (m *mockStudentClassRepo) Create(_ context.Context, sc *model.StudentClass) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.memberships[[2]uint{sc.StudentID, sc.ClassID}] = true
	return nil
}

func (m *mockStudentClassRepo) ListStudentIDs(_ context.Context, classID uint) ([]uint, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var ids []uint
	for k := range m.s.memberships {
		if k[1] == classID {
			ids = append(ids, k[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockStudentClassRepo) ListClassIDs(_ context.Context, studentID uint) ([]uint, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var ids []uint
	for k := range m.s.memberships {
		if k[0] == studentID {
			ids = append(ids, k[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ── Mock ClassStoryRepository ──

type mockClassStoryRepo struct{ s *mockStore }

func (m *mockClassStoryRepo) Create(_ context.Context, cs *model.ClassStory) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.classStoryErr != nil {
		return m.s.classStoryErr
	}
	if m.s.classStories[cs.ClassID] == nil {
		m.s.classStories[cs.ClassID] = make(map[string]bool)
	}
	m.s.classStories[cs.ClassID][cs.StoryName] = true
	return nil
}

func (m *mockClassStoryRepo) ListStoryNames(_ context.Context, classID uint) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var names []string
	for name := range m.s.classStories[classID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ── Mock GalaxyRepository ──

type mockGalaxyRepo struct{ s *mockStore }

func (m *mockGalaxyRepo) Create(_ context.Context, g *model.Galaxy) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.galaxies {
		if other.Name == g.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if g.ID == 0 {
		g.ID = m.s.id()
	}
	cp := *g
	m.s.galaxies[g.ID] = &cp
	return nil
}

func (m *mockGalaxyRepo) GetByID(_ context.Context, id uint) (*model.Galaxy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if g, ok := m.s.galaxies[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGalaxyRepo) GetByName(_ context.Context, name string) (*model.Galaxy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, g := range m.s.galaxies {
		if g.Name == name {
			cp := *g
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGalaxyRepo) ListGood(_ context.Context, types []string) ([]model.Galaxy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.Galaxy{}
	for _, g := range m.s.galaxies {
		if g.IsBad {
			continue
		}
		if len(types) > 0 && (g.Type == nil || !slices.Contains(types, *g.Type)) {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockGalaxyRepo) GetSample(_ context.Context) (*model.Galaxy, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var best *model.Galaxy
	for _, g := range m.s.galaxies {
		if g.IsSample && (best == nil || g.ID < best.ID) {
			best = g
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *mockGalaxyRepo) IncrementCounter(_ context.Context, id uint, counter model.GalaxyCounter) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	g, ok := m.s.galaxies[id]
	if !ok {
		return 0, nil
	}
	switch counter {
	case model.CounterMarkedBad:
		g.MarkedBad++
	case model.CounterSpecMarkedBad:
		g.SpecMarkedBad++
	case model.CounterTileloadMarkedBad:
		g.TileloadMarkedBad++
	}
	return 1, nil
}

func (m *mockGalaxyRepo) SetSpectrumStatus(_ context.Context, id uint, good bool) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	g, ok := m.s.galaxies[id]
	if !ok {
		return 0, nil
	}
	g.SpecIsGood = &good
	return 1, nil
}

// ── Mock MeasurementRepository ──

type mockMeasurementRepo struct{ s *mockStore }

// mergeFields 仅覆盖 patch 中非空字段
func mergeFields(dst *model.MeasurementFields, patch model.MeasurementFields) {
	if patch.RestWaveValue != nil {
		dst.RestWaveValue = patch.RestWaveValue
	}
	if patch.RestWaveUnit != nil {
		dst.RestWaveUnit = patch.RestWaveUnit
	}
	if patch.ObsWaveValue != nil {
		dst.ObsWaveValue = patch.ObsWaveValue
	}
	if patch.ObsWaveUnit != nil {
		dst.ObsWaveUnit = patch.ObsWaveUnit
	}
	if patch.VelocityValue != nil {
		dst.VelocityValue = patch.VelocityValue
	}
	if patch.VelocityUnit != nil {
		dst.VelocityUnit = patch.VelocityUnit
	}
	if patch.AngSizeValue != nil {
		dst.AngSizeValue = patch.AngSizeValue
	}
	if patch.AngSizeUnit != nil {
		dst.AngSizeUnit = patch.AngSizeUnit
	}
	if patch.EstDistValue != nil {
		dst.EstDistValue = patch.EstDistValue
	}
	if patch.EstDistUnit != nil {
		dst.EstDistUnit = patch.EstDistUnit
	}
	if patch.Brightness != nil {
		dst.Brightness = patch.Brightness
	}
}

func (m *mockMeasurementRepo) Get(_ context.Context, studentID, galaxyID uint) (*model.HubbleMeasurement, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if hm, ok := m.s.measurements[[2]uint{studentID, galaxyID}]; ok {
		cp := *hm
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMeasurementRepo) ListByStudent(_ context.Context, studentID uint) ([]model.HubbleMeasurement, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.HubbleMeasurement{}
	for k, hm := range m.s.measurements {
		if k[0] == studentID {
			out = append(out, *hm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GalaxyID < out[j].GalaxyID })
	return out, nil
}

func (m *mockMeasurementRepo) Upsert(_ context.Context, studentID, galaxyID uint, patch model.MeasurementFields) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := [2]uint{studentID, galaxyID}
	if hm, ok := m.s.measurements[key]; ok {
		mergeFields(&hm.MeasurementFields, patch)
		hm.LastModified = time.Now()
		return false, nil
	}
	m.s.measurements[key] = &model.HubbleMeasurement{
		StudentID:         studentID,
		GalaxyID:          galaxyID,
		MeasurementFields: patch,
		LastModified:      time.Now(),
	}
	return true, nil
}

func (m *mockMeasurementRepo) Delete(_ context.Context, studentID, galaxyID uint) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := [2]uint{studentID, galaxyID}
	if _, ok := m.s.measurements[key]; !ok {
		return 0, nil
	}
	delete(m.s.measurements, key)
	return 1, nil
}

// ── Mock SampleMeasurementRepository ──

type mockSampleMeasurementRepo struct{ s *mockStore }

func (m *mockSampleMeasurementRepo) Get(_ context.Context, studentID uint, number model.MeasurementNumber) (*model.SampleHubbleMeasurement, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sm, ok := m.s.samples[sampleKey{studentID, number}]; ok {
		cp := *sm
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSampleMeasurementRepo) filter(keep func(*model.SampleHubbleMeasurement) bool) []model.SampleHubbleMeasurement {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.SampleHubbleMeasurement{}
	for _, sm := range m.s.samples {
		if keep(sm) {
			out = append(out, *sm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].MeasurementNumber < out[j].MeasurementNumber
	})
	return out
}

func (m *mockSampleMeasurementRepo) ListByStudent(_ context.Context, studentID uint) ([]model.SampleHubbleMeasurement, error) {
	return m.filter(func(sm *model.SampleHubbleMeasurement) bool { return sm.StudentID == studentID }), nil
}

func (m *mockSampleMeasurementRepo) ListAll(_ context.Context, completeOnly bool) ([]model.SampleHubbleMeasurement, error) {
	return m.filter(func(sm *model.SampleHubbleMeasurement) bool {
		return !completeOnly || sm.Complete()
	}), nil
}

func (m *mockSampleMeasurementRepo) ListByNumber(_ context.Context, number model.MeasurementNumber) ([]model.SampleHubbleMeasurement, error) {
	return m.filter(func(sm *model.SampleHubbleMeasurement) bool { return sm.MeasurementNumber == number }), nil
}

func (m *mockSampleMeasurementRepo) Upsert(_ context.Context, studentID uint, number model.MeasurementNumber, galaxyID uint, patch model.MeasurementFields) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := sampleKey{studentID, number}
	if sm, ok := m.s.samples[key]; ok {
		mergeFields(&sm.MeasurementFields, patch)
		sm.GalaxyID = galaxyID
		sm.LastModified = time.Now()
		return false, nil
	}
	m.s.samples[key] = &model.SampleHubbleMeasurement{
		StudentID:         studentID,
		MeasurementNumber: number,
		GalaxyID:          galaxyID,
		MeasurementFields: patch,
		LastModified:      time.Now(),
	}
	return true, nil
}

func (m *mockSampleMeasurementRepo) Delete(_ context.Context, studentID uint, number model.MeasurementNumber) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := sampleKey{studentID, number}
	if _, ok := m.s.samples[key]; !ok {
		return 0, nil
	}
	delete(m.s.samples, key)
	return 1, nil
}

// ── Mock StoryStateRepository ──

type mockStoryStateRepo struct{ s *mockStore }

func (m *mockStoryStateRepo) Get(_ context.Context, studentID uint, storyName string) (*model.StoryState, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st, ok := m.s.storyStates[stateKey{studentID, storyName}]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStoryStateRepo) Upsert(_ context.Context, state *model.StoryState) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *state
	cp.Student = nil
	cp.UpdatedAt = time.Now()
	m.s.storyStates[stateKey{state.StudentID, state.StoryName}] = &cp
	return nil
}

func (m *mockStoryStateRepo) ListForStudents(_ context.Context, storyName string, studentIDs []uint) ([]model.StoryState, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.StoryState{}
	seen := make(map[uint]bool)
	for _, id := range studentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		st, ok := m.s.storyStates[stateKey{id, storyName}]
		if !ok {
			continue
		}
		cp := *st
		if student, ok := m.s.students[id]; ok {
			cp.Student = &model.StudentIdentity{ID: id, Username: student.Username, Email: student.Email}
		}
		out = append(out, cp)
	}
	return out, nil
}

// ── Mock StudentOptionsRepository ──

type mockStudentOptionsRepo struct{ s *mockStore }

func (m *mockStudentOptionsRepo) Get(_ context.Context, studentID uint) (*model.StudentOptions, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if o, ok := m.s.options[studentID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentOptionsRepo) Upsert(_ context.Context, studentID uint, cols map[string]interface{}) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.options[studentID]
	if !ok {
		defaults := model.DefaultStudentOptions(studentID)
		o = &defaults
		m.s.options[studentID] = o
	}
	if v, ok := cols["speech_autoread"].(bool); ok {
		o.SpeechAutoread = v
	}
	if v, ok := cols["speech_rate"].(float64); ok {
		o.SpeechRate = v
	}
	if v, ok := cols["speech_pitch"].(float64); ok {
		o.SpeechPitch = v
	}
	return nil
}
