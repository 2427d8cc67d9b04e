package service

import (
	"examina_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func snapQuestion(id uint, moduleID, subjectID *uint, score float64) model.ExtractedQuestion {
	return model.ExtractedQuestion{
		OriginalQuestionID: id,
		ModuleID:           moduleID,
		SubjectID:          subjectID,
		Score:              score,
	}
}

func namedModule(id uint, name, moduleType string, order int) model.QuestionBankModule {
	m := model.QuestionBankModule{Name: name, Type: moduleType, Order: order, IsEnabled: true}
	m.ID = id
	return m
}

func namedSubject(id uint, name, subjectType string, order int) model.QuestionBankSubject {
	s := model.QuestionBankSubject{SubjectName: name, SubjectType: subjectType, SortOrder: order, IsEnabled: true}
	s.ID = id
	return s
}

func TestAssembleExamTreeGroupsIndependently(t *testing.T) {
	questions := []model.ExtractedQuestion{
		snapQuestion(1, uintPtr(10), uintPtr(20), 15),
		snapQuestion(2, uintPtr(10), nil, 15),
		snapQuestion(3, nil, uintPtr(20), 5),
		snapQuestion(4, nil, nil, 5),
	}
	modules := []model.QuestionBankModule{namedModule(10, "C#编程", "csharp", 1)}
	subjects := []model.QuestionBankSubject{namedSubject(20, "程序设计", "programming", 1)}

	tree := AssembleExamTree(questions, modules, subjects)

	require.Len(t, tree.Modules, 1)
	assert.Equal(t, "C#编程", tree.Modules[0].Name)
	assert.Len(t, tree.Modules[0].Questions, 2)
	assert.Equal(t, 30.0, tree.Modules[0].Score)

	require.Len(t, tree.Subjects, 1)
	assert.Equal(t, "程序设计", tree.Subjects[0].SubjectName)
	assert.Len(t, tree.Subjects[0].Questions, 2)
	assert.Equal(t, 20.0, tree.Subjects[0].Score)

	// 两边都不归属的题目才进未分组
	require.Len(t, tree.Questions, 1)
	assert.Equal(t, uint(4), tree.Questions[0].OriginalQuestionID)

	assert.Equal(t, 40.0, tree.TotalScore)
}

func TestAssembleExamTreePartitionInvariant(t *testing.T) {
	questions := []model.ExtractedQuestion{
		snapQuestion(1, uintPtr(1), nil, 10),
		snapQuestion(2, uintPtr(2), nil, 10),
		snapQuestion(3, nil, uintPtr(5), 10),
		snapQuestion(4, nil, nil, 10),
		snapQuestion(5, uintPtr(1), uintPtr(5), 10),
	}

	subjects := []model.QuestionBankSubject{namedSubject(5, "程序设计", "programming", 1)}
	tree := AssembleExamTree(questions, nil, subjects)

	// 模块层：每道有模块归属的题恰好出现一次
	moduleIDs := map[uint]int{}
	for _, m := range tree.Modules {
		for _, q := range m.Questions {
			moduleIDs[q.OriginalQuestionID]++
		}
	}
	assert.Equal(t, map[uint]int{1: 1, 2: 1, 5: 1}, moduleIDs)

	// 科目层同理
	subjectIDs := map[uint]int{}
	for _, s := range tree.Subjects {
		for _, q := range s.Questions {
			subjectIDs[q.OriginalQuestionID]++
		}
	}
	assert.Equal(t, map[uint]int{3: 1, 5: 1}, subjectIDs)

	require.Len(t, tree.Questions, 1)
	assert.Equal(t, uint(4), tree.Questions[0].OriginalQuestionID)
}

func TestAssembleExamTreeSynthesizesDefaultModules(t *testing.T) {
	tests := []struct {
		moduleID uint
		wantType string
		wantName string
	}{
		{1, "word", "Word文字处理"},
		{2, "excel", "Excel电子表格"},
		{3, "ppt", "PPT演示文稿"},
		{4, "csharp", "C#编程"},
		{5, "windows", "Windows操作"},
		{99, "", "综合模块"},
	}

	for _, tt := range tests {
		questions := []model.ExtractedQuestion{snapQuestion(1, uintPtr(tt.moduleID), nil, 10)}
		tree := AssembleExamTree(questions, nil, nil)

		require.Len(t, tree.Modules, 1)
		assert.Equal(t, tt.wantType, tree.Modules[0].Type)
		assert.Equal(t, tt.wantName, tree.Modules[0].Name)
	}
}

func TestAssembleExamTreeOrdersNodes(t *testing.T) {
	questions := []model.ExtractedQuestion{
		snapQuestion(1, uintPtr(30), nil, 10),
		snapQuestion(2, uintPtr(10), nil, 10),
		snapQuestion(3, uintPtr(20), nil, 10),
	}
	modules := []model.QuestionBankModule{
		namedModule(10, "乙", "excel", 2),
		namedModule(20, "甲", "word", 1),
		namedModule(30, "丙", "ppt", 3),
	}

	tree := AssembleExamTree(questions, modules, nil)

	require.Len(t, tree.Modules, 3)
	assert.Equal(t, uint(20), tree.Modules[0].ModuleID)
	assert.Equal(t, uint(10), tree.Modules[1].ModuleID)
	assert.Equal(t, uint(30), tree.Modules[2].ModuleID)
}

func TestAssembleExamTreeSkipsUnknownSubjects(t *testing.T) {
	questions := []model.ExtractedQuestion{
		snapQuestion(1, nil, uintPtr(77), 10),
	}

	tree := AssembleExamTree(questions, nil, nil)

	// 科目元数据缺失时不生成节点，题目回落到未分组，不能凭空消失
	assert.Empty(t, tree.Subjects)
	require.Len(t, tree.Questions, 1)
	assert.Equal(t, uint(1), tree.Questions[0].OriginalQuestionID)
	assert.Equal(t, 10.0, tree.TotalScore)
}

func TestAssembleExamTreeUnknownSubjectWithModuleStaysGrouped(t *testing.T) {
	questions := []model.ExtractedQuestion{
		snapQuestion(1, uintPtr(4), uintPtr(77), 10),
	}

	tree := AssembleExamTree(questions, nil, nil)

	// 科目组被跳过但模块节点已收录该题，未分组保持为空
	require.Len(t, tree.Modules, 1)
	assert.Empty(t, tree.Subjects)
	assert.Empty(t, tree.Questions)
}

func TestAssembleExamTreeAllUngrouped(t *testing.T) {
	questions := []model.ExtractedQuestion{
		snapQuestion(1, nil, nil, 10),
		snapQuestion(2, nil, nil, 20),
	}

	tree := AssembleExamTree(questions, nil, nil)

	assert.Empty(t, tree.Modules)
	assert.Empty(t, tree.Subjects)
	assert.Len(t, tree.Questions, 2)
	assert.Equal(t, 30.0, tree.TotalScore)
}

func TestAssembleExamTreeEmptyInput(t *testing.T) {
	tree := AssembleExamTree(nil, nil, nil)

	assert.NotNil(t, tree.Modules)
	assert.NotNil(t, tree.Subjects)
	assert.NotNil(t, tree.Questions)
	assert.Zero(t, tree.TotalScore)
}
