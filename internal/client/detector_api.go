package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"stopped-vehicle-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// DetectorAPIClient клиент внешнего сервиса распознавания автомобилей на снимках
type DetectorAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewDetectorAPIClient создает новый клиент сервиса распознавания
func NewDetectorAPIClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *DetectorAPIClient {
	return &DetectorAPIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// DetectImage отправляет снимок на распознавание
func (c *DetectorAPIClient) DetectImage(ctx context.Context, image []byte, filename string) (*models.DetectorResponse, error) {
	c.logger.Infof("Отправка снимка %s на распознавание (%d байт)", filename, len(image))

	// Создаем multipart form-data
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	imageWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field для снимка: %w", err)
	}

	if _, err := imageWriter.Write(image); err != nil {
		return nil, fmt.Errorf("ошибка записи снимка: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/detect", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debugf("Отправка POST запроса на %s", url)

	var response models.DetectorResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}

	if response.Status != "" && response.Status != "success" {
		return nil, fmt.Errorf("сервис распознавания вернул статус %q: %s", response.Status, response.Message)
	}

	c.logger.Infof("Получено %d объектов от сервиса распознавания", len(response.Detections))
	return &response, nil
}

// CheckHealth проверяет состояние сервиса распознавания
func (c *DetectorAPIClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса распознавания")

	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	var health models.HealthResponse
	if err := c.do(req, &health); err != nil {
		return nil, err
	}

	return &health, nil
}

func (c *DetectorAPIClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервис распознавания вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	return nil
}
