package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"stopped-vehicle-detector-go/internal/longterm"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// PutObjectAPI часть клиента S3, нужная архиватору
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver сохраняет отчеты анализа в бакет S3
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *logrus.Logger
}

// NewS3Archiver загружает конфигурацию AWS и создает архиватор
func NewS3Archiver(ctx context.Context, region, bucket, prefix string, logger *logrus.Logger) (*S3Archiver, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return New(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// New создает архиватор с готовым клиентом
func New(client PutObjectAPI, bucket, prefix string, logger *logrus.Logger) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// ObjectKey путь отчета в бакете: prefix/yyyy/mm/dd/runID.json
func (a *S3Archiver) ObjectKey(runID string, report *longterm.Report) string {
	day := report.GeneratedAt.UTC().Format("2006/01/02")
	return path.Join(a.prefix, day, runID+".json")
}

// Archive сохраняет отчет в JSON
func (a *S3Archiver) Archive(ctx context.Context, runID string, report *longterm.Report) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if report == nil {
		return fmt.Errorf("report is required")
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := a.ObjectKey(runID, report)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("unable to upload report to S3: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"bucket": a.bucket,
		"key":    key,
		"bytes":  len(body),
	}).Info("Отчет сохранен в архив")
	return nil
}
