package model

// ExtractedQuestion 抽题时从题库复制出的题目快照。
// 只含标量/切片拷贝，序列化后随 MockExam 持久化，之后不可变。
type ExtractedQuestion struct {
	OriginalQuestionID   uint                      `json:"originalQuestionId"`
	SubjectID            *uint                     `json:"subjectId"`
	ModuleID             *uint                     `json:"moduleId"`
	Title                string                    `json:"title"`
	Content              string                    `json:"content"`
	QuestionType         string                    `json:"questionType"`
	Score                float64                   `json:"score"` // 规则指定的分值，非题库原始分值
	DifficultyLevel      string                    `json:"difficultyLevel"`
	EstimatedMinutes     int                       `json:"estimatedMinutes"`
	SortOrder            int                       `json:"sortOrder"`
	QuestionConfig       string                    `json:"questionConfig"`
	AnswerValidationRule string                    `json:"answerValidationRule"`
	Tags                 string                    `json:"tags"`
	Remarks              string                    `json:"remarks"`
	ProgramInput         string                    `json:"programInput"`
	ExpectedOutput       string                    `json:"expectedOutput"`
	FromFallback         bool                      `json:"fromFallback"`
	OperationPoints      []ExtractedOperationPoint `json:"operationPoints"`
}

// ExtractedOperationPoint 得分点快照
type ExtractedOperationPoint struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	ModuleType  string               `json:"moduleType"`
	Score       float64              `json:"score"`
	Order       int                  `json:"order"`
	Parameters  []ExtractedParameter `json:"parameters"`
}

// ExtractedParameter 得分点参数快照
type ExtractedParameter struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ParameterType string `json:"parameterType"`
	DefaultValue  string `json:"defaultValue"`
	MinValue      string `json:"minValue"`
	MaxValue      string `json:"maxValue"`
}

// ConvertDifficultyLevelToInt 难度标签转等级，未知按最低档处理
func ConvertDifficultyLevelToInt(difficultyLevel string) int {
	switch difficultyLevel {
	case "简单", "easy":
		return 1
	case "中等", "medium":
		return 2
	case "困难", "hard":
		return 3
	case "很难", "very hard":
		return 4
	case "极难", "extreme":
		return 5
	default:
		return 1
	}
}

// ConvertDifficultyLevelToString 难度等级转标签
func ConvertDifficultyLevelToString(difficultyLevel int) string {
	switch difficultyLevel {
	case 2:
		return "中等"
	case 3:
		return "困难"
	case 4:
		return "很难"
	case 5:
		return "极难"
	default:
		return "简单"
	}
}
