package repository

import (
	"examina_backend/internal/model"

	"gorm.io/gorm"
)

// QuestionFilter 题库查询条件，零值字段不参与过滤
type QuestionFilter struct {
	SubjectType     string
	QuestionType    string
	DifficultyLevel int
}

// QuestionRepository 题库只读访问。本子系统从不写题库。
type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// FindEnabled 按条件查询启用的题目，带得分点和参数
func (r *QuestionRepository) FindEnabled(filter QuestionFilter) ([]model.Question, error) {
	query := r.DB.Model(&model.Question{}).
		Preload("OperationPoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("operation_points.sort_order asc")
		}).
		Preload("OperationPoints.Parameters", func(db *gorm.DB) *gorm.DB {
			return db.Order("operation_parameters.sort_order asc")
		}).
		Where("questions.is_enabled = ?", true)

	if filter.SubjectType != "" {
		query = query.
			Joins("JOIN question_bank_subjects s ON s.id = questions.subject_id").
			Where("s.subject_type = ?", filter.SubjectType)
	}

	if filter.QuestionType != "" {
		query = query.Where("questions.question_type = ?", filter.QuestionType)
	}

	if filter.DifficultyLevel > 0 {
		query = query.Where("questions.difficulty_level = ?", filter.DifficultyLevel)
	}

	var questions []model.Question
	err := query.Find(&questions).Error
	return questions, err
}

// ListModules 模块元数据表，供组卷后重组层次结构使用
func (r *QuestionRepository) ListModules() ([]model.QuestionBankModule, error) {
	var modules []model.QuestionBankModule
	err := r.DB.Where("is_enabled = ?", true).Order("sort_order asc").Find(&modules).Error
	return modules, err
}

// ListSubjects 科目元数据表
func (r *QuestionRepository) ListSubjects() ([]model.QuestionBankSubject, error) {
	var subjects []model.QuestionBankSubject
	err := r.DB.Where("is_enabled = ?", true).Order("sort_order asc").Find(&subjects).Error
	return subjects, err
}
