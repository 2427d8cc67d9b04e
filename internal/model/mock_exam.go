package model

import (
	"encoding/json"
	"time"
)

// 模拟考试实例状态
const (
	MockExamStatusCreated    = "Created"
	MockExamStatusInProgress = "InProgress"
	MockExamStatusCompleted  = "Completed"
	MockExamStatusExpired    = "Expired"
)

// MockExamConfiguration 模拟考试配置（按内容去重复用）
type MockExamConfiguration struct {
	BaseModel
	Name               string          `gorm:"size:200;not null" json:"name"`
	Description        string          `gorm:"size:1000" json:"description"`
	DurationMinutes    int             `gorm:"default:120" json:"durationMinutes"`
	TotalScore         float64         `gorm:"default:100" json:"totalScore"`
	PassingScore       float64         `gorm:"default:60" json:"passingScore"`
	RandomizeQuestions bool            `gorm:"default:true" json:"randomizeQuestions"`
	ExtractionRules    json.RawMessage `gorm:"type:json" json:"extractionRules"`
	CreatedBy          uint            `gorm:"index;not null" json:"createdBy"`
	IsEnabled          bool            `gorm:"default:true" json:"isEnabled"`
}

func (MockExamConfiguration) TableName() string {
	return "mock_exam_configurations"
}

// MockExam 模拟考试实例。ExtractedQuestions 存抽取时的题目快照，
// 实例一经创建即自包含，不跟踪题库后续修改。
type MockExam struct {
	BaseModel
	ConfigurationID    uint            `gorm:"index;not null" json:"configurationId"`
	StudentID          uint            `gorm:"index;not null" json:"studentId"`
	Name               string          `gorm:"size:200;not null" json:"name"`
	Description        string          `gorm:"size:1000" json:"description"`
	DurationMinutes    int             `gorm:"default:120" json:"durationMinutes"`
	TotalScore         float64         `gorm:"default:100" json:"totalScore"`
	PassingScore       float64         `gorm:"default:60" json:"passingScore"`
	RandomizeQuestions bool            `gorm:"default:true" json:"randomizeQuestions"`
	ExtractedQuestions json.RawMessage `gorm:"type:json" json:"-"`
	Status             string          `gorm:"size:20;index;default:'Created'" json:"status"`
	StartedAt          *time.Time      `json:"startedAt"`
	CompletedAt        *time.Time      `json:"completedAt"`
	ExpiresAt          *time.Time      `json:"expiresAt"`
}

func (MockExam) TableName() string {
	return "mock_exams"
}
