package controller

import (
	"errors"
	"examina_backend/internal/service"
	"examina_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type MockExamController struct {
	ExamService       *service.MockExamService
	SubmissionService *service.SubmissionService
	ExportService     *service.ExamExportService
}

func NewMockExamController(examService *service.MockExamService, submissionService *service.SubmissionService, exportService *service.ExamExportService) *MockExamController {
	return &MockExamController{
		ExamService:       examService,
		SubmissionService: submissionService,
		ExportService:     exportService,
	}
}

// Create godoc
// @Summary 创建模拟考试
// @Description 按抽取规则组卷并创建 Created 状态的考试实例
// @Tags 模拟考试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateMockExamRequest true "组卷规则与考试参数"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "规则总分不匹配或题库不足"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/student/mock-exams [post]
func (c *MockExamController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateMockExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.ExamService.Create(claims.UserID, req)
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": exam.ID, "status": exam.Status, "expiresAt": exam.ExpiresAt})
}

// QuickStart godoc
// @Summary 快速开始模拟考试
// @Description 使用系统预设规则组卷，实例直接进入进行中状态
// @Tags 模拟考试
// @Produce  json
// @Security ApiKeyAuth
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "题库不足"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/student/mock-exams/quick-start [post]
func (c *MockExamController) QuickStart(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	exam, err := c.ExamService.QuickStart(claims.UserID)
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"id":        exam.ID,
		"status":    exam.Status,
		"startedAt": exam.StartedAt,
		"expiresAt": exam.ExpiresAt,
	})
}

// List godoc
// @Summary 模拟考试列表
// @Description 分页返回当前学生的考试实例摘要
// @Tags 模拟考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   page  query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/student/mock-exams [get]
func (c *MockExamController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	summaries, total, err := c.ExamService.List(ctx.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: summaries, Total: total, Page: page, Limit: limit})
}

// Get godoc
// @Summary 模拟考试详情
// @Description 返回实例摘要与层次化题目树
// @Tags 模拟考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试实例ID"
// @Success 200 {object} util.Response{data=service.MockExamDetail} "成功"
// @Failure 404 {object} util.Response "实例不存在"
// @Router /api/student/mock-exams/{id} [get]
func (c *MockExamController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	examID, ok := c.examID(ctx)
	if !ok {
		return
	}

	detail, err := c.ExamService.Get(ctx.Request.Context(), claims.UserID, examID)
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// Start godoc
// @Summary 开始模拟考试
// @Description 把 Created 状态的实例转入进行中
// @Tags 模拟考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试实例ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "实例不存在"
// @Failure 409 {object} util.Response "状态不允许"
// @Failure 410 {object} util.Response "实例已过期"
// @Router /api/student/mock-exams/{id}/start [post]
func (c *MockExamController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	examID, ok := c.examID(ctx)
	if !ok {
		return
	}

	exam, err := c.ExamService.Start(ctx.Request.Context(), claims.UserID, examID)
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"id": exam.ID, "status": exam.Status, "startedAt": exam.StartedAt})
}

// SubmitScore godoc
// @Summary 提交考试成绩
// @Description 幂等提交，重复提交按保留最好成绩合并
// @Tags 模拟考试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int true "考试实例ID"
// @Param   body body service.SubmitScoreRequest true "成绩数据"
// @Success 200 {object} util.Response{data=service.Outcome} "已接受"
// @Failure 403 {object} util.Response "非本人考试"
// @Failure 404 {object} util.Response "实例不存在"
// @Failure 409 {object} util.Response "状态不允许提交"
// @Router /api/student/mock-exams/{id}/score [post]
func (c *MockExamController) SubmitScore(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	examID, ok := c.examID(ctx)
	if !ok {
		return
	}

	var req service.SubmitScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.SubmissionService.Submit(ctx.Request.Context(), claims.UserID, examID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if !outcome.Accepted {
		switch outcome.Reason {
		case service.SubmitReasonNotFound:
			util.NotFound(ctx)
		case service.SubmitReasonUnauthorized:
			util.Forbidden(ctx)
		default:
			util.Error(ctx, http.StatusConflict, "当前状态不允许提交成绩")
		}
		return
	}

	util.Success(ctx, outcome)
}

// Delete godoc
// @Summary 删除模拟考试
// @Tags 模拟考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试实例ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "实例不存在"
// @Router /api/student/mock-exams/{id} [delete]
func (c *MockExamController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	examID, ok := c.examID(ctx)
	if !ok {
		return
	}

	if err := c.ExamService.Delete(ctx.Request.Context(), claims.UserID, examID); err != nil {
		c.writeExamError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// Export godoc
// @Summary 导出考试快照
// @Description 把实例及题目快照归档为JSON对象并返回下载地址
// @Tags 模拟考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试实例ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "实例不存在"
// @Router /api/student/mock-exams/{id}/export [get]
func (c *MockExamController) Export(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	examID, ok := c.examID(ctx)
	if !ok {
		return
	}

	exam, err := c.ExamService.GetRaw(ctx.Request.Context(), claims.UserID, examID)
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}

	url, err := c.ExportService.Export(ctx.Request.Context(), exam)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}

// Stats godoc
// @Summary 考试统计
// @Description 当前学生的考试实例总数与完成数
// @Tags 模拟考试
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.StudentExamStats} "成功"
// @Router /api/student/mock-exams/stats [get]
func (c *MockExamController) Stats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.ExamService.Stats(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

func (c *MockExamController) examID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "无效的考试实例ID")
		return 0, false
	}
	return uint(id), true
}

func (c *MockExamController) writeExamError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrMockExamNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrMockExamExpired):
		util.Error(ctx, http.StatusGone, err.Error())
	case errors.Is(err, util.ErrMockExamWrongState):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrRuleScoreMismatch), errors.Is(err, util.ErrInsufficientQuestions):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
