package service

import (
	"bytes"
	"context"
	"encoding/json"
	"examina_backend/internal/config"
	"examina_backend/internal/model"
	"examina_backend/internal/util"
	"examina_backend/pkg/logger"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 对象存储后端
type StorageProvider interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
	GetURL(objectName string) string
}

// NewStorageProvider 按配置选择后端，默认本地磁盘
func NewStorageProvider(cfg config.StorageConfig) (StorageProvider, error) {
	switch cfg.Type {
	case util.StorageMinio:
		return newMinioStorageProvider(cfg)
	default:
		return &LocalStorageProvider{BasePath: cfg.LocalPath}, nil
	}
}

// LocalStorageProvider 本地磁盘存储，开发环境用
type LocalStorageProvider struct {
	BasePath string
}

func (p *LocalStorageProvider) Upload(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	fullPath := filepath.Join(p.BasePath, objectName)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", err
	}
	return p.GetURL(objectName), nil
}

func (p *LocalStorageProvider) Delete(_ context.Context, objectName string) error {
	return os.Remove(filepath.Join(p.BasePath, objectName))
}

func (p *LocalStorageProvider) GetURL(objectName string) string {
	return "/uploads/" + objectName
}

// MinioStorageProvider MinIO 对象存储
type MinioStorageProvider struct {
	Client *minio.Client
	Bucket string
}

func newMinioStorageProvider(cfg config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStorageProvider{Client: client, Bucket: cfg.MinioBucket}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return p.GetURL(objectName), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, objectName string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, objectName, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", p.Client.EndpointURL(), p.Bucket, objectName)
}

// ExamExportService 把考试实例快照归档为 JSON 对象，返回下载地址
type ExamExportService struct {
	Provider StorageProvider
}

func NewExamExportService(provider StorageProvider) *ExamExportService {
	return &ExamExportService{Provider: provider}
}

type examArchive struct {
	Exam      MockExamSummary           `json:"exam"`
	Questions []model.ExtractedQuestion `json:"questions"`
}

// Export 序列化实例及其题目快照并上传，对象名带随机段避免覆盖
func (s *ExamExportService) Export(ctx context.Context, exam *model.MockExam) (string, error) {
	questions, err := decodeSnapshot(exam.ExtractedQuestions)
	if err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(examArchive{
		Exam:      summarize(exam, len(questions)),
		Questions: questions,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("mock-exams/%d/%s.json", exam.ID, uuid.New().String())
	url, err := s.Provider.Upload(ctx, objectName, payload, "application/json")
	if err != nil {
		return "", err
	}

	logger.Log.Info("考试快照导出完成",
		zap.Uint("examId", exam.ID),
		zap.String("object", objectName))
	return url, nil
}
