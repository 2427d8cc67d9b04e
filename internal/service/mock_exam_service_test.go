package service

import (
	"context"
	"encoding/json"
	"examina_backend/internal/config"
	"examina_backend/internal/model"
	"examina_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeExamStore 内存版考试实例存储
type fakeExamStore struct {
	exams   map[uint]*model.MockExam
	configs []*model.MockExamConfiguration
	nextID  uint
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{exams: map[uint]*model.MockExam{}, nextID: 1}
}

func (s *fakeExamStore) Create(exam *model.MockExam) error {
	exam.ID = s.nextID
	exam.CreatedAt = time.Now()
	s.nextID++
	copied := *exam
	s.exams[exam.ID] = &copied
	return nil
}

func (s *fakeExamStore) Save(exam *model.MockExam) error {
	copied := *exam
	s.exams[exam.ID] = &copied
	return nil
}

func (s *fakeExamStore) FindByID(id uint) (*model.MockExam, error) {
	exam, ok := s.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *exam
	return &copied, nil
}

func (s *fakeExamStore) FindByIDForStudent(id, studentID uint) (*model.MockExam, error) {
	exam, ok := s.exams[id]
	if !ok || exam.StudentID != studentID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *exam
	return &copied, nil
}

func (s *fakeExamStore) ListByStudent(studentID uint, page, limit int) ([]model.MockExam, int64, error) {
	var all []model.MockExam
	for _, exam := range s.exams {
		if exam.StudentID == studentID {
			all = append(all, *exam)
		}
	}
	return all, int64(len(all)), nil
}

func (s *fakeExamStore) Delete(id, studentID uint) error {
	exam, ok := s.exams[id]
	if !ok || exam.StudentID != studentID {
		return gorm.ErrRecordNotFound
	}
	delete(s.exams, id)
	return nil
}

func (s *fakeExamStore) CountByStudent(studentID uint) (int64, error) {
	count := int64(0)
	for _, exam := range s.exams {
		if exam.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (s *fakeExamStore) CountCompletedByStudent(studentID uint) (int64, error) {
	count := int64(0)
	for _, exam := range s.exams {
		if exam.StudentID == studentID && exam.Status == model.MockExamStatusCompleted {
			count++
		}
	}
	return count, nil
}

func (s *fakeExamStore) FindOrCreateConfiguration(cfg *model.MockExamConfiguration, rules interface{}) (*model.MockExamConfiguration, error) {
	for _, existing := range s.configs {
		if existing.Name == cfg.Name &&
			existing.DurationMinutes == cfg.DurationMinutes &&
			existing.TotalScore == cfg.TotalScore &&
			existing.PassingScore == cfg.PassingScore &&
			existing.RandomizeQuestions == cfg.RandomizeQuestions {
			return existing, nil
		}
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	cfg.ExtractionRules = rulesJSON
	cfg.IsEnabled = true
	cfg.ID = uint(len(s.configs) + 1)
	s.configs = append(s.configs, cfg)
	return cfg, nil
}

type fakeBankMetadata struct {
	modules  []model.QuestionBankModule
	subjects []model.QuestionBankSubject
}

func (b *fakeBankMetadata) ListModules() ([]model.QuestionBankModule, error) {
	return b.modules, nil
}

func (b *fakeBankMetadata) ListSubjects() ([]model.QuestionBankSubject, error) {
	return b.subjects, nil
}

func testMockExamConfig() config.MockExamConfig {
	return config.MockExamConfig{
		FallbackScore:          10,
		ExpiryDays:             7,
		QuickStartBufferHours:  1,
		DefaultDurationMinutes: 120,
		DefaultTotalScore:      100,
		DefaultPassingScore:    60,
		SubmitRetryCount:       3,
	}
}

func newTestExamService(store *fakeExamStore, pool *fakeQuestionPool) *MockExamService {
	extractor := NewExtractionService(pool, 10)
	return NewMockExamService(store, &fakeBankMetadata{}, extractor, nil, testMockExamConfig())
}

func poolWith(counts map[string]int) *fakeQuestionPool {
	pool := &fakeQuestionPool{}
	id := uint(1)
	for questionType, n := range counts {
		for i := 0; i < n; i++ {
			pool.questions = append(pool.questions, bankQuestion(id, questionType, 2))
			id++
		}
	}
	return pool
}

func TestCreateRejectsRuleScoreMismatch(t *testing.T) {
	svc := newTestExamService(newFakeExamStore(), poolWith(map[string]int{"编程题": 10}))

	_, err := svc.Create(1, CreateMockExamRequest{
		Name:            "错误配置",
		DurationMinutes: 60,
		TotalScore:      100,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 3, ScorePerQuestion: 15},
		},
	})
	assert.ErrorIs(t, err, util.ErrRuleScoreMismatch)
}

func TestCreateRejectsEmptyBank(t *testing.T) {
	svc := newTestExamService(newFakeExamStore(), &fakeQuestionPool{})

	_, err := svc.Create(1, CreateMockExamRequest{
		Name:            "空题库",
		DurationMinutes: 60,
		TotalScore:      30,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 2, ScorePerQuestion: 15},
		},
	})
	assert.ErrorIs(t, err, util.ErrInsufficientQuestions)
}

func TestCreatePersistsCreatedInstanceWithExpiry(t *testing.T) {
	store := newFakeExamStore()
	svc := newTestExamService(store, poolWith(map[string]int{"编程题": 10}))

	before := time.Now()
	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "期末模拟",
		DurationMinutes: 90,
		TotalScore:      60,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 4, ScorePerQuestion: 15},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.MockExamStatusCreated, exam.Status)
	assert.Nil(t, exam.StartedAt)
	require.NotNil(t, exam.ExpiresAt)
	wantExpiry := before.AddDate(0, 0, 7)
	assert.WithinDuration(t, wantExpiry, *exam.ExpiresAt, time.Minute)

	questions, err := decodeSnapshot(exam.ExtractedQuestions)
	require.NoError(t, err)
	require.Len(t, questions, 4)
	for i, q := range questions {
		assert.Equal(t, i+1, q.SortOrder)
	}
}

// 规则命中不足时走备用抽取补齐：编程题只有3道、操作题只有2道，
// 缺口5道由不限类型的备用策略补足并采用固定分值。
func TestCreateFallsBackToCoverShortfall(t *testing.T) {
	pool := poolWith(map[string]int{"编程题": 3, "操作题": 2, "选择题": 20})
	svc := newTestExamService(newFakeExamStore(), pool)

	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "混合组卷",
		DurationMinutes: 120,
		TotalScore:      100,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 5, ScorePerQuestion: 15},
			{QuestionType: "操作题", Count: 5, ScorePerQuestion: 5},
		},
	})
	require.NoError(t, err)

	questions, err := decodeSnapshot(exam.ExtractedQuestions)
	require.NoError(t, err)
	require.Len(t, questions, 10)

	ruleDrawn, fallbackDrawn := 0, 0
	for _, q := range questions {
		if q.FromFallback {
			fallbackDrawn++
			assert.Equal(t, 10.0, q.Score)
		} else {
			ruleDrawn++
		}
	}
	assert.Equal(t, 5, ruleDrawn)
	assert.Equal(t, 5, fallbackDrawn)
}

func TestCreateReusesMatchingConfiguration(t *testing.T) {
	store := newFakeExamStore()
	svc := newTestExamService(store, poolWith(map[string]int{"编程题": 10}))

	req := CreateMockExamRequest{
		Name:            "同一配置",
		DurationMinutes: 60,
		TotalScore:      30,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 2, ScorePerQuestion: 15},
		},
	}

	first, err := svc.Create(1, req)
	require.NoError(t, err)
	second, err := svc.Create(1, req)
	require.NoError(t, err)

	assert.Equal(t, first.ConfigurationID, second.ConfigurationID)
	assert.Len(t, store.configs, 1)
}

func TestQuickStartBeginsImmediately(t *testing.T) {
	pool := poolWith(map[string]int{"编程题": 10, "操作题": 10})
	svc := newTestExamService(newFakeExamStore(), pool)

	before := time.Now()
	exam, err := svc.QuickStart(42)
	require.NoError(t, err)

	assert.Equal(t, model.MockExamStatusInProgress, exam.Status)
	require.NotNil(t, exam.StartedAt)
	require.NotNil(t, exam.ExpiresAt)

	// 有效期 = 考试时长 + 1小时缓冲
	wantExpiry := before.Add(120*time.Minute + time.Hour)
	assert.WithinDuration(t, wantExpiry, *exam.ExpiresAt, time.Minute)

	questions, err := decodeSnapshot(exam.ExtractedQuestions)
	require.NoError(t, err)
	assert.Len(t, questions, 10)

	total := 0.0
	for _, q := range questions {
		total += q.Score
	}
	assert.Equal(t, 100.0, total)
}

func TestStartTransitionsCreatedToInProgress(t *testing.T) {
	store := newFakeExamStore()
	svc := newTestExamService(store, poolWith(map[string]int{"编程题": 10}))

	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "待开始",
		DurationMinutes: 60,
		TotalScore:      30,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 2, ScorePerQuestion: 15},
		},
	})
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), 1, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MockExamStatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)

	// 已经开始的实例不能再次开始
	_, err = svc.Start(context.Background(), 1, exam.ID)
	assert.ErrorIs(t, err, util.ErrMockExamWrongState)
}

func TestStartRejectsForeignExam(t *testing.T) {
	store := newFakeExamStore()
	svc := newTestExamService(store, poolWith(map[string]int{"编程题": 10}))

	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "他人考试",
		DurationMinutes: 60,
		TotalScore:      30,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 2, ScorePerQuestion: 15},
		},
	})
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), 2, exam.ID)
	assert.ErrorIs(t, err, util.ErrMockExamNotFound)
}

func TestStartExpiredInstance(t *testing.T) {
	store := newFakeExamStore()
	svc := newTestExamService(store, poolWith(map[string]int{"编程题": 10}))

	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "已过期",
		DurationMinutes: 60,
		TotalScore:      30,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 2, ScorePerQuestion: 15},
		},
	})
	require.NoError(t, err)

	// 把有效期改到过去，触发读取路径上的惰性过期
	stored := store.exams[exam.ID]
	past := time.Now().Add(-time.Hour)
	stored.ExpiresAt = &past

	_, err = svc.Start(context.Background(), 1, exam.ID)
	assert.ErrorIs(t, err, util.ErrMockExamExpired)
	assert.Equal(t, model.MockExamStatusExpired, store.exams[exam.ID].Status)
}

func TestGetAssemblesTree(t *testing.T) {
	store := newFakeExamStore()
	pool := poolWith(map[string]int{"编程题": 4})
	moduleID := uint(4)
	for i := range pool.questions {
		pool.questions[i].ModuleID = &moduleID
	}
	svc := newTestExamService(store, pool)

	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "详情",
		DurationMinutes: 60,
		TotalScore:      60,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 4, ScorePerQuestion: 15},
		},
	})
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), 1, exam.ID)
	require.NoError(t, err)

	assert.Equal(t, exam.ID, detail.ID)
	assert.Equal(t, 4, detail.QuestionCount)
	require.Len(t, detail.Tree.Modules, 1)
	assert.Equal(t, "csharp", detail.Tree.Modules[0].Type)
	assert.Equal(t, 60.0, detail.Tree.Modules[0].Score)
}

func TestListAppliesLazyExpiry(t *testing.T) {
	store := newFakeExamStore()
	svc := newTestExamService(store, poolWith(map[string]int{"编程题": 10}))

	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "列表过期",
		DurationMinutes: 60,
		TotalScore:      30,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 2, ScorePerQuestion: 15},
		},
	})
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	store.exams[exam.ID].ExpiresAt = &past

	summaries, total, err := svc.List(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, model.MockExamStatusExpired, summaries[0].Status)
	assert.Equal(t, model.MockExamStatusExpired, store.exams[exam.ID].Status)
}

func TestDeleteAndStats(t *testing.T) {
	store := newFakeExamStore()
	svc := newTestExamService(store, poolWith(map[string]int{"编程题": 10}))

	exam, err := svc.Create(1, CreateMockExamRequest{
		Name:            "删除",
		DurationMinutes: 60,
		TotalScore:      30,
		ExtractionRules: []ExtractionRule{
			{QuestionType: "编程题", Count: 2, ScorePerQuestion: 15},
		},
	})
	require.NoError(t, err)

	stats, err := svc.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(0), stats.Completed)

	require.NoError(t, svc.Delete(context.Background(), 1, exam.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1, exam.ID), util.ErrMockExamNotFound)
}
