package service

import (
	"examina_backend/internal/model"
	"examina_backend/internal/repository"
	"examina_backend/internal/util"
	"examina_backend/pkg/logger"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// QuestionPool 题库只读访问面，由 repository.QuestionRepository 实现
type QuestionPool interface {
	FindEnabled(filter repository.QuestionFilter) ([]model.Question, error)
}

// ExtractionRule 抽取规则：过滤条件 + 数量 + 每题分值
type ExtractionRule struct {
	SubjectType      string  `json:"subjectType"`
	QuestionType     string  `json:"questionType"`
	DifficultyLevel  string  `json:"difficultyLevel"`
	Count            int     `json:"count" binding:"required,gt=0"`
	ScorePerQuestion float64 `json:"scorePerQuestion" binding:"required,gt=0"`
	IsRequired       bool    `json:"isRequired"`
}

// ExtractionService 规则驱动的随机抽题。纯读操作，对题库无副作用。
type ExtractionService struct {
	Pool          QuestionPool
	FallbackScore float64
}

func NewExtractionService(pool QuestionPool, fallbackScore float64) *ExtractionService {
	return &ExtractionService{Pool: pool, FallbackScore: fallbackScore}
}

// ValidateRuleTotal 校验各规则 count×score 之和等于声明总分，抽题前执行
func ValidateRuleTotal(rules []ExtractionRule, totalScore float64) error {
	var sum float64
	for _, r := range rules {
		sum += float64(r.Count) * r.ScorePerQuestion
	}
	if math.Abs(sum-totalScore) > 1e-6 {
		logger.Log.Warn("抽取规则总分值与考试总分不匹配",
			zap.Float64("rulesTotal", sum),
			zap.Float64("declaredTotal", totalScore))
		return util.ErrRuleScoreMismatch
	}
	return nil
}

// RequestedCount 规则声明的总题数
func RequestedCount(rules []ExtractionRule) int {
	total := 0
	for _, r := range rules {
		total += r.Count
	}
	return total
}

// Extract 逐条规则抽题。每条规则在命中集合上做均匀洗牌后取前
// min(count, 可用数)，同一规则内不重复。命中不足不算错误，
// 缺口由调用方通过 ExtractFallback 补齐。
func (s *ExtractionService) Extract(rules []ExtractionRule) ([]model.ExtractedQuestion, error) {
	var extracted []model.ExtractedQuestion

	for _, rule := range rules {
		filter := repository.QuestionFilter{
			SubjectType:  rule.SubjectType,
			QuestionType: rule.QuestionType,
		}
		if rule.DifficultyLevel != "" {
			filter.DifficultyLevel = model.ConvertDifficultyLevelToInt(rule.DifficultyLevel)
		}

		available, err := s.Pool.FindEnabled(filter)
		if err != nil {
			return nil, err
		}

		rand.Shuffle(len(available), func(i, j int) {
			available[i], available[j] = available[j], available[i]
		})

		take := rule.Count
		if take > len(available) {
			take = len(available)
		}

		for _, q := range available[:take] {
			extracted = append(extracted, snapshotQuestion(q, rule.ScorePerQuestion, false))
		}

		logger.Log.Info("抽取规则执行完成",
			zap.String("questionType", rule.QuestionType),
			zap.String("difficultyLevel", rule.DifficultyLevel),
			zap.Int("available", len(available)),
			zap.Int("selected", take),
			zap.Int("requested", rule.Count))
	}

	return extracted, nil
}

// ExtractFallback 备用抽取策略：不限类型和难度，从全部启用题目中补齐缺口。
// 抽到的题目没有规则分值可用，统一采用配置的固定分值，并省略得分点明细。
func (s *ExtractionService) ExtractFallback(remaining int) ([]model.ExtractedQuestion, error) {
	if remaining <= 0 {
		return nil, nil
	}

	available, err := s.Pool.FindEnabled(repository.QuestionFilter{})
	if err != nil {
		return nil, err
	}

	if len(available) == 0 {
		logger.Log.Warn("备用策略：题库中没有可用的题目")
		return nil, nil
	}

	rand.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	take := remaining
	if take > len(available) {
		take = len(available)
	}

	extracted := make([]model.ExtractedQuestion, 0, take)
	for _, q := range available[:take] {
		snap := snapshotQuestion(q, s.FallbackScore, true)
		snap.OperationPoints = nil
		extracted = append(extracted, snap)
	}

	logger.Log.Info("备用策略抽取完成",
		zap.Int("requested", remaining),
		zap.Int("selected", len(extracted)))

	return extracted, nil
}

// snapshotQuestion 把题库题目复制为自包含快照。只拷标量，不留活引用，
// 实例持久化后不再受题库编辑影响。
func snapshotQuestion(q model.Question, score float64, fromFallback bool) model.ExtractedQuestion {
	snap := model.ExtractedQuestion{
		OriginalQuestionID:   q.ID,
		SubjectID:            copyIDPtr(q.SubjectID),
		ModuleID:             copyIDPtr(q.ModuleID),
		Title:                q.Title,
		Content:              q.Content,
		QuestionType:         q.QuestionType,
		Score:                score,
		DifficultyLevel:      model.ConvertDifficultyLevelToString(q.DifficultyLevel),
		EstimatedMinutes:     q.EstimatedMinutes,
		QuestionConfig:       q.QuestionConfig,
		AnswerValidationRule: q.AnswerValidationRule,
		Tags:                 q.Tags,
		Remarks:              q.Remarks,
		ProgramInput:         q.ProgramInput,
		ExpectedOutput:       q.ExpectedOutput,
		FromFallback:         fromFallback,
	}

	for _, op := range q.OperationPoints {
		point := model.ExtractedOperationPoint{
			ID:          op.ID,
			Name:        op.Name,
			Description: op.Description,
			ModuleType:  op.ModuleType,
			Score:       op.Score,
			Order:       op.Order,
		}
		for _, p := range op.Parameters {
			point.Parameters = append(point.Parameters, model.ExtractedParameter{
				ID:            p.ID,
				Name:          p.Name,
				Description:   p.Description,
				ParameterType: p.ParameterType,
				DefaultValue:  p.DefaultValue,
				MinValue:      p.MinValue,
				MaxValue:      p.MaxValue,
			})
		}
		snap.OperationPoints = append(snap.OperationPoints, point)
	}

	return snap
}

func copyIDPtr(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
