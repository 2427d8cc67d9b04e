package service

import (
	"examina_backend/internal/model"
	"sort"
)

// ExamTree 考试详情的层次化视图：模块分组、科目分组与未分组题目并列，
// 同一道题可同时出现在模块分组和科目分组中
type ExamTree struct {
	Modules    []ExamModuleNode          `json:"modules"`
	Subjects   []ExamSubjectNode         `json:"subjects"`
	Questions  []model.ExtractedQuestion `json:"questions"`
	TotalScore float64                   `json:"totalScore"`
}

type ExamModuleNode struct {
	ModuleID    uint                      `json:"moduleId"`
	Name        string                    `json:"name"`
	Type        string                    `json:"type"`
	Description string                    `json:"description"`
	Order       int                       `json:"order"`
	Score       float64                   `json:"score"`
	Questions   []model.ExtractedQuestion `json:"questions"`
}

type ExamSubjectNode struct {
	SubjectID   uint                      `json:"subjectId"`
	SubjectName string                    `json:"subjectName"`
	SubjectType string                    `json:"subjectType"`
	Description string                    `json:"description"`
	Order       int                       `json:"order"`
	Score       float64                   `json:"score"`
	Questions   []model.ExtractedQuestion `json:"questions"`
}

// 内置模块编号到类型的映射，元数据缺失时据此合成默认模块
var defaultModuleTypes = map[uint]string{
	1: "word",
	2: "excel",
	3: "ppt",
	4: "csharp",
	5: "windows",
}

func moduleDisplayName(moduleType string) string {
	switch moduleType {
	case "word":
		return "Word文字处理"
	case "excel":
		return "Excel电子表格"
	case "ppt":
		return "PPT演示文稿"
	case "csharp":
		return "C#编程"
	case "windows":
		return "Windows操作"
	default:
		return "综合模块"
	}
}

// AssembleExamTree 把平铺的题目快照重组为层次结构。模块分组和科目分组
// 相互独立，各自只收归属明确的题目；未被任何已生成节点收录的题目进入
// 未分组列表。题目引用了元数据中不存在的模块时合成默认模块节点。
func AssembleExamTree(questions []model.ExtractedQuestion, modules []model.QuestionBankModule, subjects []model.QuestionBankSubject) ExamTree {
	tree := ExamTree{
		Modules:   []ExamModuleNode{},
		Subjects:  []ExamSubjectNode{},
		Questions: []model.ExtractedQuestion{},
	}

	moduleMeta := make(map[uint]model.QuestionBankModule, len(modules))
	for _, m := range modules {
		moduleMeta[m.ID] = m
	}
	subjectMeta := make(map[uint]model.QuestionBankSubject, len(subjects))
	for _, s := range subjects {
		subjectMeta[s.ID] = s
	}

	byModule := make(map[uint][]model.ExtractedQuestion)
	bySubject := make(map[uint][]model.ExtractedQuestion)
	for _, q := range questions {
		tree.TotalScore += q.Score
		if q.ModuleID != nil {
			byModule[*q.ModuleID] = append(byModule[*q.ModuleID], q)
		}
		if q.SubjectID != nil {
			bySubject[*q.SubjectID] = append(bySubject[*q.SubjectID], q)
		}
	}

	for id, qs := range byModule {
		node := ExamModuleNode{ModuleID: id, Questions: qs}
		if meta, ok := moduleMeta[id]; ok {
			node.Name = meta.Name
			node.Type = meta.Type
			node.Description = meta.Description
			node.Order = meta.Order
		} else {
			moduleType := defaultModuleTypes[id]
			node.Type = moduleType
			node.Name = moduleDisplayName(moduleType)
			node.Order = int(id)
		}
		for _, q := range qs {
			node.Score += q.Score
		}
		tree.Modules = append(tree.Modules, node)
	}

	for id, qs := range bySubject {
		// 科目元数据缺失时整组跳过，不合成占位节点
		meta, ok := subjectMeta[id]
		if !ok {
			continue
		}
		node := ExamSubjectNode{
			SubjectID:   id,
			SubjectName: meta.SubjectName,
			SubjectType: meta.SubjectType,
			Description: meta.Description,
			Order:       meta.SortOrder,
			Questions:   qs,
		}
		for _, q := range qs {
			node.Score += q.Score
		}
		tree.Subjects = append(tree.Subjects, node)
	}

	// 未分组 = 实际生成的节点都没收录的题目。科目组被跳过而题目又没有
	// 模块归属时，题目必须回落到这里，整棵树不能丢题
	grouped := make(map[uint]struct{})
	for _, node := range tree.Modules {
		for _, q := range node.Questions {
			grouped[q.OriginalQuestionID] = struct{}{}
		}
	}
	for _, node := range tree.Subjects {
		for _, q := range node.Questions {
			grouped[q.OriginalQuestionID] = struct{}{}
		}
	}
	for _, q := range questions {
		if _, ok := grouped[q.OriginalQuestionID]; !ok {
			tree.Questions = append(tree.Questions, q)
		}
	}

	sort.Slice(tree.Modules, func(i, j int) bool {
		if tree.Modules[i].Order != tree.Modules[j].Order {
			return tree.Modules[i].Order < tree.Modules[j].Order
		}
		return tree.Modules[i].ModuleID < tree.Modules[j].ModuleID
	})
	sort.Slice(tree.Subjects, func(i, j int) bool {
		if tree.Subjects[i].Order != tree.Subjects[j].Order {
			return tree.Subjects[i].Order < tree.Subjects[j].Order
		}
		return tree.Subjects[i].SubjectID < tree.Subjects[j].SubjectID
	})

	return tree
}
