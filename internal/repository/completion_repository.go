package repository

import (
	"errors"
	"examina_backend/internal/model"
	"examina_backend/pkg/database"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionRepository 成绩记录存取。提交合并走 InTransaction，
// 事务体在瞬时失败时由 RunInTxWithRetry 整体重跑。
type CompletionRepository struct {
	DB       *gorm.DB
	Attempts int
}

func NewCompletionRepository(db *gorm.DB, attempts int) *CompletionRepository {
	return &CompletionRepository{DB: db, Attempts: attempts}
}

// InTransaction 在单个可重试事务中执行 fn，fn 里的读写都走事务句柄
func (r *CompletionRepository) InTransaction(fn func(store CompletionTxStore) error) error {
	return database.RunInTxWithRetry(r.DB, r.Attempts, func(tx *gorm.DB) error {
		return fn(&gormCompletionTxStore{tx: tx})
	})
}

func (r *CompletionRepository) FindActive(studentID, examID uint) (*model.MockExamCompletion, error) {
	var rec model.MockExamCompletion
	err := r.DB.Where("student_id = ? AND mock_exam_id = ? AND is_active = ?", studentID, examID, true).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *CompletionRepository) ListByStudent(studentID uint, page, limit int) ([]model.MockExamCompletion, int64, error) {
	var total int64
	query := r.DB.Model(&model.MockExamCompletion{}).Where("student_id = ? AND is_active = ?", studentID, true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []model.MockExamCompletion
	offset := (page - 1) * limit
	err := query.Order("updated_at desc").Offset(offset).Limit(limit).Find(&recs).Error
	return recs, total, err
}

// CompletionTxStore 提交事务内可见的读写面
type CompletionTxStore interface {
	// FindActiveForUpdate 对活跃记录加行锁读，没有记录时返回 (nil, nil)
	FindActiveForUpdate(studentID, examID uint) (*model.MockExamCompletion, error)
	Create(rec *model.MockExamCompletion) error
	Save(rec *model.MockExamCompletion) error
	MarkExamCompleted(examID uint, completedAt time.Time) error
}

type gormCompletionTxStore struct {
	tx *gorm.DB
}

func (s *gormCompletionTxStore) FindActiveForUpdate(studentID, examID uint) (*model.MockExamCompletion, error) {
	var rec model.MockExamCompletion
	err := s.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND mock_exam_id = ? AND is_active = ?", studentID, examID, true).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormCompletionTxStore) Create(rec *model.MockExamCompletion) error {
	return s.tx.Create(rec).Error
}

func (s *gormCompletionTxStore) Save(rec *model.MockExamCompletion) error {
	return s.tx.Save(rec).Error
}

func (s *gormCompletionTxStore) MarkExamCompleted(examID uint, completedAt time.Time) error {
	return s.tx.Model(&model.MockExam{}).Where("id = ?", examID).
		Updates(map[string]interface{}{
			"status":       model.MockExamStatusCompleted,
			"completed_at": completedAt,
		}).Error
}
