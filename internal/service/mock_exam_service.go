package service

import (
	"context"
	"encoding/json"
	"errors"
	"examina_backend/internal/config"
	"examina_backend/internal/model"
	"examina_backend/internal/util"
	"examina_backend/pkg/logger"
	"examina_backend/pkg/monitoring"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExamStore 考试实例存取面，由 repository.MockExamRepository 实现
type ExamStore interface {
	Create(exam *model.MockExam) error
	Save(exam *model.MockExam) error
	FindByIDForStudent(id, studentID uint) (*model.MockExam, error)
	ListByStudent(studentID uint, page, limit int) ([]model.MockExam, int64, error)
	Delete(id, studentID uint) error
	CountByStudent(studentID uint) (int64, error)
	CountCompletedByStudent(studentID uint) (int64, error)
	FindOrCreateConfiguration(cfg *model.MockExamConfiguration, rules interface{}) (*model.MockExamConfiguration, error)
}

// BankMetadata 模块/科目元数据查询面，由 repository.QuestionRepository 实现
type BankMetadata interface {
	ListModules() ([]model.QuestionBankModule, error)
	ListSubjects() ([]model.QuestionBankSubject, error)
}

// MockExamService 考试实例生命周期：创建、快速开始、开始、查询、删除。
// 详情投影走 redis 缓存，状态变更时失效。
type MockExamService struct {
	Exams     ExamStore
	Bank      BankMetadata
	Extractor *ExtractionService
	Cache     *redis.Client
	Cfg       config.MockExamConfig
}

func NewMockExamService(exams ExamStore, bank BankMetadata, extractor *ExtractionService, cache *redis.Client, cfg config.MockExamConfig) *MockExamService {
	return &MockExamService{Exams: exams, Bank: bank, Extractor: extractor, Cache: cache, Cfg: cfg}
}

type CreateMockExamRequest struct {
	Name               string           `json:"name" binding:"required,max=200"`
	Description        string           `json:"description" binding:"max=1000"`
	DurationMinutes    int              `json:"durationMinutes" binding:"required,gt=0"`
	TotalScore         float64          `json:"totalScore" binding:"required,gt=0"`
	PassingScore       float64          `json:"passingScore" binding:"gte=0"`
	RandomizeQuestions bool             `json:"randomizeQuestions"`
	ExtractionRules    []ExtractionRule `json:"extractionRules" binding:"required,min=1,dive"`
}

// MockExamSummary 列表项投影，不含题目内容
type MockExamSummary struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"durationMinutes"`
	TotalScore      float64    `json:"totalScore"`
	PassingScore    float64    `json:"passingScore"`
	Status          string     `json:"status"`
	QuestionCount   int        `json:"questionCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	ExpiresAt       *time.Time `json:"expiresAt"`
}

// MockExamDetail 详情投影：摘要 + 层次化题目树
type MockExamDetail struct {
	MockExamSummary
	Tree ExamTree `json:"tree"`
}

// StudentExamStats 学生维度统计
type StudentExamStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
}

// Create 按请求规则组卷并持久化 Created 状态实例
func (s *MockExamService) Create(studentID uint, req CreateMockExamRequest) (*model.MockExam, error) {
	if err := ValidateRuleTotal(req.ExtractionRules, req.TotalScore); err != nil {
		return nil, err
	}

	questions, err := s.composeQuestions(req.ExtractionRules, req.RandomizeQuestions)
	if err != nil {
		return nil, err
	}

	passingScore := req.PassingScore
	if passingScore <= 0 {
		passingScore = s.Cfg.DefaultPassingScore
	}

	conf, err := s.Exams.FindOrCreateConfiguration(&model.MockExamConfiguration{
		Name:               req.Name,
		Description:        req.Description,
		DurationMinutes:    req.DurationMinutes,
		TotalScore:         req.TotalScore,
		PassingScore:       passingScore,
		RandomizeQuestions: req.RandomizeQuestions,
		CreatedBy:          studentID,
	}, req.ExtractionRules)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().AddDate(0, 0, s.Cfg.ExpiryDays)
	exam, err := s.persistExam(conf, studentID, questions, model.MockExamStatusCreated, nil, &expiresAt)
	if err != nil {
		return nil, err
	}

	monitoring.MockExamCreated.WithLabelValues("create").Inc()
	logger.Log.Info("模拟考试创建成功",
		zap.Uint("examId", exam.ID),
		zap.Uint("studentId", studentID),
		zap.Int("questionCount", len(questions)))
	return exam, nil
}

// QuickStart 使用内置预设规则组卷，实例直接进入 InProgress
func (s *MockExamService) QuickStart(studentID uint) (*model.MockExam, error) {
	rules := []ExtractionRule{
		{QuestionType: "编程题", Count: 5, ScorePerQuestion: 15, IsRequired: true},
		{QuestionType: "操作题", Count: 5, ScorePerQuestion: 5, IsRequired: true},
	}

	questions, err := s.composeQuestions(rules, true)
	if err != nil {
		return nil, err
	}

	conf, err := s.Exams.FindOrCreateConfiguration(&model.MockExamConfiguration{
		Name:               "快速模拟考试",
		Description:        "系统预设规则自动组卷",
		DurationMinutes:    s.Cfg.DefaultDurationMinutes,
		TotalScore:         s.Cfg.DefaultTotalScore,
		PassingScore:       s.Cfg.DefaultPassingScore,
		RandomizeQuestions: true,
		CreatedBy:          studentID,
	}, rules)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	buffer := time.Duration(s.Cfg.QuickStartBufferHours * float64(time.Hour))
	expiresAt := now.Add(time.Duration(conf.DurationMinutes)*time.Minute + buffer)

	exam, err := s.persistExam(conf, studentID, questions, model.MockExamStatusInProgress, &now, &expiresAt)
	if err != nil {
		return nil, err
	}

	monitoring.MockExamCreated.WithLabelValues("quick_start").Inc()
	logger.Log.Info("快速模拟考试已开始",
		zap.Uint("examId", exam.ID),
		zap.Uint("studentId", studentID),
		zap.Int("questionCount", len(questions)))
	return exam, nil
}

// Start 把 Created 实例转入 InProgress，其余状态拒绝
func (s *MockExamService) Start(ctx context.Context, studentID, examID uint) (*model.MockExam, error) {
	exam, err := s.loadExam(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	switch exam.Status {
	case model.MockExamStatusCreated:
	case model.MockExamStatusExpired:
		return nil, util.ErrMockExamExpired
	default:
		return nil, util.ErrMockExamWrongState
	}

	now := time.Now()
	exam.Status = model.MockExamStatusInProgress
	exam.StartedAt = &now
	if err := s.Exams.Save(exam); err != nil {
		return nil, err
	}
	s.invalidateDetail(ctx, examID)

	logger.Log.Info("模拟考试已开始", zap.Uint("examId", examID), zap.Uint("studentId", studentID))
	return exam, nil
}

// Get 详情投影，命中缓存直接返回，未命中则组树并回填
func (s *MockExamService) Get(ctx context.Context, studentID, examID uint) (*MockExamDetail, error) {
	if cached := s.cachedDetail(ctx, studentID, examID); cached != nil {
		return cached, nil
	}

	exam, err := s.loadExam(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	questions, err := decodeSnapshot(exam.ExtractedQuestions)
	if err != nil {
		return nil, err
	}

	modules, err := s.Bank.ListModules()
	if err != nil {
		return nil, err
	}
	subjects, err := s.Bank.ListSubjects()
	if err != nil {
		return nil, err
	}

	detail := &MockExamDetail{
		MockExamSummary: summarize(exam, len(questions)),
		Tree:            AssembleExamTree(questions, modules, subjects),
	}

	s.storeDetail(ctx, examID, detail)
	return detail, nil
}

// List 分页列出学生的实例摘要，读取时惰性过期
func (s *MockExamService) List(ctx context.Context, studentID uint, page, limit int) ([]MockExamSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	exams, total, err := s.Exams.ListByStudent(studentID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]MockExamSummary, 0, len(exams))
	for i := range exams {
		exam := &exams[i]
		if s.expireIfDue(ctx, exam) {
			logger.Log.Info("模拟考试已过期", zap.Uint("examId", exam.ID))
		}
		summaries = append(summaries, summarize(exam, countSnapshot(exam.ExtractedQuestions)))
	}
	return summaries, total, nil
}

// Delete 删除学生自己的实例
func (s *MockExamService) Delete(ctx context.Context, studentID, examID uint) error {
	err := s.Exams.Delete(examID, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrMockExamNotFound
	}
	if err != nil {
		return err
	}
	s.invalidateDetail(ctx, examID)
	return nil
}

// Stats 学生维度的实例总数与完成数
func (s *MockExamService) Stats(studentID uint) (*StudentExamStats, error) {
	total, err := s.Exams.CountByStudent(studentID)
	if err != nil {
		return nil, err
	}
	completed, err := s.Exams.CountCompletedByStudent(studentID)
	if err != nil {
		return nil, err
	}
	return &StudentExamStats{Total: total, Completed: completed}, nil
}

// GetRaw 带归属校验取原始实例，供导出等需要完整快照的调用方使用
func (s *MockExamService) GetRaw(ctx context.Context, studentID, examID uint) (*model.MockExam, error) {
	return s.loadExam(ctx, studentID, examID)
}

// loadExam 带归属校验取实例，并在读取路径上惰性过期
func (s *MockExamService) loadExam(ctx context.Context, studentID, examID uint) (*model.MockExam, error) {
	exam, err := s.Exams.FindByIDForStudent(examID, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrMockExamNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.expireIfDue(ctx, exam) {
		logger.Log.Info("模拟考试已过期", zap.Uint("examId", exam.ID), zap.Uint("studentId", studentID))
	}
	return exam, nil
}

// expireIfDue Created/InProgress 实例过了 ExpiresAt 即转入 Expired 并落库
func (s *MockExamService) expireIfDue(ctx context.Context, exam *model.MockExam) bool {
	if exam.Status != model.MockExamStatusCreated && exam.Status != model.MockExamStatusInProgress {
		return false
	}
	if exam.ExpiresAt == nil || time.Now().Before(*exam.ExpiresAt) {
		return false
	}

	exam.Status = model.MockExamStatusExpired
	if err := s.Exams.Save(exam); err != nil {
		logger.Log.Error("过期状态落库失败", zap.Uint("examId", exam.ID), zap.Error(err))
	}
	s.invalidateDetail(ctx, exam.ID)
	return true
}

// composeQuestions 规则抽取 + 备用补齐 + 可选整体洗牌，并赋 SortOrder
func (s *MockExamService) composeQuestions(rules []ExtractionRule, randomize bool) ([]model.ExtractedQuestion, error) {
	questions, err := s.Extractor.Extract(rules)
	if err != nil {
		return nil, err
	}

	if remaining := RequestedCount(rules) - len(questions); remaining > 0 {
		logger.Log.Warn("规则命中不足，启用备用抽取", zap.Int("remaining", remaining))
		fallback, err := s.Extractor.ExtractFallback(remaining)
		if err != nil {
			return nil, err
		}
		monitoring.FallbackQuestions.Add(float64(len(fallback)))
		questions = append(questions, fallback...)
	}

	if len(questions) == 0 {
		return nil, util.ErrInsufficientQuestions
	}

	if randomize {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	for i := range questions {
		questions[i].SortOrder = i + 1
	}
	return questions, nil
}

func (s *MockExamService) persistExam(conf *model.MockExamConfiguration, studentID uint, questions []model.ExtractedQuestion, status string, startedAt, expiresAt *time.Time) (*model.MockExam, error) {
	snapshot, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	exam := &model.MockExam{
		ConfigurationID:    conf.ID,
		StudentID:          studentID,
		Name:               conf.Name,
		Description:        conf.Description,
		DurationMinutes:    conf.DurationMinutes,
		TotalScore:         conf.TotalScore,
		PassingScore:       conf.PassingScore,
		RandomizeQuestions: conf.RandomizeQuestions,
		ExtractedQuestions: snapshot,
		Status:             status,
		StartedAt:          startedAt,
		ExpiresAt:          expiresAt,
	}
	if err := s.Exams.Create(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

func summarize(exam *model.MockExam, questionCount int) MockExamSummary {
	return MockExamSummary{
		ID:              exam.ID,
		Name:            exam.Name,
		Description:     exam.Description,
		DurationMinutes: exam.DurationMinutes,
		TotalScore:      exam.TotalScore,
		PassingScore:    exam.PassingScore,
		Status:          exam.Status,
		QuestionCount:   questionCount,
		CreatedAt:       exam.CreatedAt,
		StartedAt:       exam.StartedAt,
		CompletedAt:     exam.CompletedAt,
		ExpiresAt:       exam.ExpiresAt,
	}
}

func decodeSnapshot(raw json.RawMessage) ([]model.ExtractedQuestion, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var questions []model.ExtractedQuestion
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func countSnapshot(raw json.RawMessage) int {
	questions, err := decodeSnapshot(raw)
	if err != nil {
		return 0
	}
	return len(questions)
}

func detailCacheKey(examID uint) string {
	return fmt.Sprintf("mock_exam:detail:%d", examID)
}

func (s *MockExamService) cachedDetail(ctx context.Context, studentID, examID uint) *MockExamDetail {
	if s.Cache == nil || s.Cfg.DetailCacheMinutes <= 0 {
		return nil
	}
	// 缓存命中也要校验归属和惰性过期，不能越过实例本身
	exam, err := s.Exams.FindByIDForStudent(examID, studentID)
	if err != nil {
		return nil
	}
	if s.expireIfDue(ctx, exam) {
		return nil
	}

	raw, err := s.Cache.Get(ctx, detailCacheKey(examID)).Bytes()
	if err != nil {
		return nil
	}
	var detail MockExamDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil
	}
	if detail.Status != exam.Status {
		return nil
	}
	return &detail
}

func (s *MockExamService) storeDetail(ctx context.Context, examID uint, detail *MockExamDetail) {
	if s.Cache == nil || s.Cfg.DetailCacheMinutes <= 0 {
		return
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return
	}
	ttl := time.Duration(s.Cfg.DetailCacheMinutes) * time.Minute
	if err := s.Cache.Set(ctx, detailCacheKey(examID), raw, ttl).Err(); err != nil {
		logger.Log.Warn("详情缓存写入失败", zap.Uint("examId", examID), zap.Error(err))
	}
}

func (s *MockExamService) invalidateDetail(ctx context.Context, examID uint) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, detailCacheKey(examID)).Err(); err != nil {
		logger.Log.Warn("详情缓存失效失败", zap.Uint("examId", examID), zap.Error(err))
	}
}
