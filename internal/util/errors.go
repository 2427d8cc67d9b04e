package util

import "errors"

var (
	ErrUserNotFound          = errors.New("用户不存在")
	ErrEmailRegistered       = errors.New("该邮箱已被注册")
	ErrInvalidCredentials    = errors.New("邮箱或密码错误")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrRuleScoreMismatch     = errors.New("抽取规则总分值与考试总分不匹配")
	ErrInsufficientQuestions = errors.New("题库中没有可抽取的题目")
	ErrMockExamNotFound      = errors.New("mock exam not found")
	ErrMockExamWrongState    = errors.New("mock exam is not in a valid state for this operation")
	ErrMockExamExpired       = errors.New("mock exam has expired")
	ErrSubmitFailed          = errors.New("成绩提交失败，请稍后重试")
)
