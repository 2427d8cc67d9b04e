package model

import (
	"encoding/json"
	"time"
)

// 完成记录状态
const (
	CompletionStatusInProgress = "InProgress"
	CompletionStatusCompleted  = "Completed"
)

// MockExamCompletion 学生对一次模拟考试的成绩记录。
// 同一 (student, exam) 对至多存在一条活跃记录，重复提交按"保留最好成绩"合并。
type MockExamCompletion struct {
	BaseModel
	StudentID            uint            `gorm:"uniqueIndex:idx_student_exam_active;not null" json:"studentId"`
	MockExamID           uint            `gorm:"uniqueIndex:idx_student_exam_active;not null" json:"mockExamId"`
	Status               string          `gorm:"size:20;default:'InProgress'" json:"status"`
	StartedAt            *time.Time      `json:"startedAt"`
	CompletedAt          *time.Time      `json:"completedAt"`
	Score                float64         `gorm:"default:0" json:"score"`
	MaxScore             float64         `gorm:"default:0" json:"maxScore"`
	CompletionPercentage float64         `gorm:"default:0" json:"completionPercentage"`
	DurationSeconds      *int            `json:"durationSeconds"`
	Notes                string          `gorm:"type:text" json:"notes"`
	ScoringResult        json.RawMessage `gorm:"type:json" json:"scoringResult"` // 客户端评分明细，后端不解析
	IsActive             bool            `gorm:"uniqueIndex:idx_student_exam_active;default:true" json:"isActive"`
}

func (MockExamCompletion) TableName() string {
	return "mock_exam_completions"
}
