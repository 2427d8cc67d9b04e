package repository

import (
	"encoding/json"
	"examina_backend/internal/model"

	"gorm.io/gorm"
)

type MockExamRepository struct {
	DB *gorm.DB
}

func NewMockExamRepository(db *gorm.DB) *MockExamRepository {
	return &MockExamRepository{DB: db}
}

func (r *MockExamRepository) Create(exam *model.MockExam) error {
	return r.DB.Create(exam).Error
}

func (r *MockExamRepository) Save(exam *model.MockExam) error {
	return r.DB.Save(exam).Error
}

func (r *MockExamRepository) FindByID(id uint) (*model.MockExam, error) {
	var exam model.MockExam
	err := r.DB.First(&exam, id).Error
	return &exam, err
}

// FindByIDForStudent 按实例ID和学生ID查找，归属校验下沉到查询本身
func (r *MockExamRepository) FindByIDForStudent(id, studentID uint) (*model.MockExam, error) {
	var exam model.MockExam
	err := r.DB.Where("id = ? AND student_id = ?", id, studentID).First(&exam).Error
	return &exam, err
}

func (r *MockExamRepository) ListByStudent(studentID uint, page, limit int) ([]model.MockExam, int64, error) {
	var total int64
	query := r.DB.Model(&model.MockExam{}).Where("student_id = ?", studentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var exams []model.MockExam
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&exams).Error
	return exams, total, err
}

func (r *MockExamRepository) Delete(id, studentID uint) error {
	result := r.DB.Where("id = ? AND student_id = ?", id, studentID).Delete(&model.MockExam{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MockExamRepository) CountByStudent(studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.MockExam{}).Where("student_id = ?", studentID).Count(&count).Error
	return count, err
}

func (r *MockExamRepository) CountCompletedByStudent(studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.MockExam{}).
		Where("student_id = ? AND status = ?", studentID, model.MockExamStatusCompleted).
		Count(&count).Error
	return count, err
}

// FindOrCreateConfiguration 按内容复用已有配置，避免同一预设反复落库
func (r *MockExamRepository) FindOrCreateConfiguration(cfg *model.MockExamConfiguration, rules interface{}) (*model.MockExamConfiguration, error) {
	var existing model.MockExamConfiguration
	err := r.DB.Where(
		"name = ? AND duration_minutes = ? AND total_score = ? AND passing_score = ? AND randomize_questions = ? AND is_enabled = ?",
		cfg.Name, cfg.DurationMinutes, cfg.TotalScore, cfg.PassingScore, cfg.RandomizeQuestions, true,
	).First(&existing).Error

	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	cfg.ExtractionRules = rulesJSON
	cfg.IsEnabled = true

	if err := r.DB.Create(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}
