package service

import (
	"context"
	"encoding/json"
	"errors"
	"examina_backend/internal/model"
	"examina_backend/internal/repository"
	"examina_backend/internal/util"
	"examina_backend/pkg/logger"
	"examina_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionTx 可重试的提交事务入口，由 repository.CompletionRepository 实现
type CompletionTx interface {
	InTransaction(fn func(store repository.CompletionTxStore) error) error
}

// SubmissionExamStore 提交路径需要的实例读写面
type SubmissionExamStore interface {
	FindByID(id uint) (*model.MockExam, error)
	Save(exam *model.MockExam) error
}

// 提交被拒绝的原因码
const (
	SubmitReasonNotFound     = "NotFound"
	SubmitReasonUnauthorized = "Unauthorized"
	SubmitReasonWrongState   = "WrongState"
)

// Outcome 提交处理结果。Accepted 为真时成绩已按保留最好原则合并落库，
// 重复提交较差成绩同样视为接受（幂等）。
type Outcome struct {
	Accepted bool    `json:"accepted"`
	Reason   string  `json:"reason,omitempty"`
	Score    float64 `json:"score"`
}

type SubmitScoreRequest struct {
	Score           float64         `json:"score" binding:"gte=0"`
	MaxScore        float64         `json:"maxScore" binding:"gte=0"`
	DurationSeconds *int            `json:"durationSeconds"`
	Notes           string          `json:"notes" binding:"max=2000"`
	ScoringResult   json.RawMessage `json:"scoringResult"`
}

// SubmissionService 成绩提交对账。并发或重复提交在单条活跃记录上
// 收敛为最好成绩，考试实例随首次接受转入 Completed。
type SubmissionService struct {
	Exams SubmissionExamStore
	Tx    CompletionTx
}

func NewSubmissionService(exams SubmissionExamStore, tx CompletionTx) *SubmissionService {
	return &SubmissionService{Exams: exams, Tx: tx}
}

// Submit 校验实例状态后在单个可重试事务内合并成绩。
// 事务体整体重跑是安全的，所有写入都是幂等覆盖。
func (s *SubmissionService) Submit(ctx context.Context, studentID, examID uint, req SubmitScoreRequest) (Outcome, error) {
	exam, err := s.Exams.FindByID(examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		monitoring.MockExamSubmissions.WithLabelValues("not_found").Inc()
		return Outcome{Reason: SubmitReasonNotFound}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	if exam.StudentID != studentID {
		monitoring.MockExamSubmissions.WithLabelValues("unauthorized").Inc()
		logger.Log.Warn("提交归属校验失败",
			zap.Uint("examId", examID),
			zap.Uint("studentId", studentID),
			zap.Uint("ownerId", exam.StudentID))
		return Outcome{Reason: SubmitReasonUnauthorized}, nil
	}

	// 与其他读取路径一致：Created/InProgress 过了 ExpiresAt 都要先落库为过期
	if (exam.Status == model.MockExamStatusCreated || exam.Status == model.MockExamStatusInProgress) &&
		exam.ExpiresAt != nil && !time.Now().Before(*exam.ExpiresAt) {
		exam.Status = model.MockExamStatusExpired
		if err := s.Exams.Save(exam); err != nil {
			logger.Log.Error("过期状态落库失败", zap.Uint("examId", examID), zap.Error(err))
		}
	}
	if exam.Status != model.MockExamStatusInProgress {
		monitoring.MockExamSubmissions.WithLabelValues("wrong_state").Inc()
		return Outcome{Reason: SubmitReasonWrongState}, nil
	}

	incoming := s.buildCompletion(exam, studentID, req)
	var finalScore float64

	err = s.Tx.InTransaction(func(store repository.CompletionTxStore) error {
		existing, err := store.FindActiveForUpdate(studentID, examID)
		if err != nil {
			return err
		}

		switch {
		case existing == nil:
			if err := store.Create(incoming); err != nil {
				return err
			}
			finalScore = incoming.Score

		case existing.Status != model.CompletionStatusCompleted:
			overwriteCompletion(existing, incoming)
			if err := store.Save(existing); err != nil {
				return err
			}
			finalScore = existing.Score

		case supersedes(existing, incoming):
			overwriteCompletion(existing, incoming)
			if err := store.Save(existing); err != nil {
				return err
			}
			finalScore = existing.Score

		default:
			// 不如已有成绩，静默接受，保留原记录
			finalScore = existing.Score
		}

		return store.MarkExamCompleted(examID, *incoming.CompletedAt)
	})
	if err != nil {
		monitoring.MockExamSubmissions.WithLabelValues("error").Inc()
		logger.Log.Error("成绩提交事务失败",
			zap.Uint("examId", examID),
			zap.Uint("studentId", studentID),
			zap.Error(err))
		return Outcome{}, util.ErrSubmitFailed
	}

	monitoring.MockExamSubmissions.WithLabelValues("accepted").Inc()
	logger.Log.Info("成绩提交已接受",
		zap.Uint("examId", examID),
		zap.Uint("studentId", studentID),
		zap.Float64("submittedScore", req.Score),
		zap.Float64("recordedScore", finalScore))
	return Outcome{Accepted: true, Score: finalScore}, nil
}

func (s *SubmissionService) buildCompletion(exam *model.MockExam, studentID uint, req SubmitScoreRequest) *model.MockExamCompletion {
	now := time.Now()
	maxScore := req.MaxScore
	if maxScore <= 0 {
		maxScore = exam.TotalScore
	}
	percentage := 0.0
	if maxScore > 0 {
		percentage = req.Score / maxScore * 100
	}
	startedAt := exam.StartedAt
	if startedAt == nil {
		startedAt = &now
	}

	return &model.MockExamCompletion{
		StudentID:            studentID,
		MockExamID:           exam.ID,
		Status:               model.CompletionStatusCompleted,
		StartedAt:            startedAt,
		CompletedAt:          &now,
		Score:                req.Score,
		MaxScore:             maxScore,
		CompletionPercentage: percentage,
		DurationSeconds:      req.DurationSeconds,
		Notes:                req.Notes,
		ScoringResult:        req.ScoringResult,
		IsActive:             true,
	}
}

// supersedes 判定新成绩是否优于已完成的旧成绩。全序比较：
// 先比分数，再比用时（缺失用时视为最差），最后比评分明细是否非空。
func supersedes(existing, incoming *model.MockExamCompletion) bool {
	if incoming.Score != existing.Score {
		return incoming.Score > existing.Score
	}

	switch {
	case incoming.DurationSeconds == nil && existing.DurationSeconds == nil:
		// 双方都缺用时，视为用时相等，继续比评分明细
	case incoming.DurationSeconds == nil:
		return false
	case existing.DurationSeconds == nil:
		return true
	case *incoming.DurationSeconds != *existing.DurationSeconds:
		return *incoming.DurationSeconds < *existing.DurationSeconds
	}

	return len(incoming.ScoringResult) > 0 && len(existing.ScoringResult) == 0
}

// overwriteCompletion 用新成绩覆盖已有活跃记录，保持主键和活跃标记不变
func overwriteCompletion(existing, incoming *model.MockExamCompletion) {
	existing.Status = incoming.Status
	existing.StartedAt = incoming.StartedAt
	existing.CompletedAt = incoming.CompletedAt
	existing.Score = incoming.Score
	existing.MaxScore = incoming.MaxScore
	existing.CompletionPercentage = incoming.CompletionPercentage
	existing.DurationSeconds = incoming.DurationSeconds
	existing.Notes = incoming.Notes
	existing.ScoringResult = incoming.ScoringResult
	existing.IsActive = true
}
