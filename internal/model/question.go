package model

// QuestionBankModule 题库模块元数据（如 word/excel/ppt 等操作模块）
type QuestionBankModule struct {
	BaseModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Type        string `gorm:"size:50;index" json:"type"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`
	IsEnabled   bool   `gorm:"default:true" json:"isEnabled"`
}

func (QuestionBankModule) TableName() string {
	return "question_bank_modules"
}

// QuestionBankSubject 题库科目元数据
type QuestionBankSubject struct {
	BaseModel
	SubjectName     string  `gorm:"size:100;not null" json:"subjectName"`
	SubjectType     string  `gorm:"size:50;index" json:"subjectType"`
	Description     string  `gorm:"type:text" json:"description"`
	DurationMinutes int     `gorm:"default:0" json:"durationMinutes"`
	SortOrder       int     `gorm:"default:0" json:"sortOrder"`
	IsRequired      bool    `gorm:"default:true" json:"isRequired"`
	MinScore        float64 `gorm:"default:0" json:"minScore"`
	Weight          float64 `gorm:"default:1" json:"weight"`
	IsEnabled       bool    `gorm:"default:true" json:"isEnabled"`
}

func (QuestionBankSubject) TableName() string {
	return "question_bank_subjects"
}

// Question 题库题目。本子系统只读，抽题时快照复制，不保留活引用。
type Question struct {
	BaseModel
	SubjectID            *uint            `gorm:"index" json:"subjectId"`
	ModuleID             *uint            `gorm:"index" json:"moduleId"`
	Title                string           `gorm:"size:255;not null" json:"title"`
	Content              string           `gorm:"type:text" json:"content"`
	QuestionType         string           `gorm:"size:50;index;not null" json:"questionType"`
	DifficultyLevel      int              `gorm:"default:1" json:"difficultyLevel"` // 1-5
	EstimatedMinutes     int              `gorm:"default:0" json:"estimatedMinutes"`
	IsEnabled            bool             `gorm:"default:true;index" json:"isEnabled"`
	QuestionConfig       string           `gorm:"type:json" json:"questionConfig"`
	AnswerValidationRule string           `gorm:"type:json" json:"answerValidationRule"`
	Tags                 string           `gorm:"size:255" json:"tags"`
	Remarks              string           `gorm:"type:text" json:"remarks"`
	ProgramInput         string           `gorm:"type:text" json:"programInput"`
	ExpectedOutput       string           `gorm:"type:text" json:"expectedOutput"`
	OperationPoints      []OperationPoint `gorm:"foreignKey:QuestionID" json:"operationPoints,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// OperationPoint 操作题得分点
type OperationPoint struct {
	BaseModel
	QuestionID  uint                 `gorm:"index;not null" json:"questionId"`
	Name        string               `gorm:"size:100;not null" json:"name"`
	Description string               `gorm:"type:text" json:"description"`
	ModuleType  string               `gorm:"size:50" json:"moduleType"`
	Score       float64              `gorm:"default:0" json:"score"`
	Order       int                  `gorm:"column:sort_order;default:0" json:"order"`
	Parameters  []OperationParameter `gorm:"foreignKey:OperationPointID" json:"parameters,omitempty"`
}

func (OperationPoint) TableName() string {
	return "operation_points"
}

// OperationParameter 得分点参数，按 Order 排列
type OperationParameter struct {
	BaseModel
	OperationPointID uint   `gorm:"index;not null" json:"operationPointId"`
	Name             string `gorm:"size:100;not null" json:"name"`
	Description      string `gorm:"type:text" json:"description"`
	ParameterType    string `gorm:"size:50;default:'string'" json:"parameterType"`
	DefaultValue     string `gorm:"size:255" json:"defaultValue"`
	MinValue         string `gorm:"size:50" json:"minValue"`
	MaxValue         string `gorm:"size:50" json:"maxValue"`
	Order            int    `gorm:"column:sort_order;default:0" json:"order"`
}

func (OperationParameter) TableName() string {
	return "operation_parameters"
}
