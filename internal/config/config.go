package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/pkg/models"
)

// Region область, которую планировщик сканирует по расписанию
type Region struct {
	Name      string
	Center    models.Coordinates
	RadiusDeg float64
}

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
		GRPCPort    int
	}
	Database struct {
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		SSLMode  string
	}
	DetectorAPI struct {
		BaseURL       string
		Timeout       time.Duration
		MinConfidence float64
	}
	Detector longterm.Config
	Scanner  struct {
		Enabled  bool
		Interval time.Duration
		Workers  int
		DaysBack int
		Regions  []Region
	}
	Kafka struct {
		Enabled    bool
		Brokers    []string
		AlertTopic string
	}
	Archive struct {
		Enabled bool
		Region  string
		Bucket  string
		Prefix  string
	}
	Logging struct {
		Level string
	}
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")
	cfg.Server.GRPCPort = getEnvInt("GRPC_HEALTH_PORT", 9090)

	// База данных
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.Name = getEnv("DB_NAME", "stopped_vehicles")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	// Внешний сервис распознавания
	cfg.DetectorAPI.BaseURL = getEnv("DETECTOR_API_BASE_URL", "http://localhost:8000")
	cfg.DetectorAPI.Timeout = getEnvDuration("DETECTOR_API_TIMEOUT", 60*time.Second)
	cfg.DetectorAPI.MinConfidence = getEnvFloat("DETECTOR_MIN_CONFIDENCE", 0.5)

	// Пороги детектора длительных остановок
	defaults := longterm.DefaultConfig()
	cfg.Detector.StopThresholdHours = getEnvFloat("STOP_THRESHOLD_HOURS", defaults.StopThresholdHours)
	cfg.Detector.MovementThresholdMeters = getEnvFloat("MOVEMENT_THRESHOLD_METERS", defaults.MovementThresholdMeters)
	cfg.Detector.ClusterRadiusMeters = getEnvFloat("CLUSTER_RADIUS_METERS", defaults.ClusterRadiusMeters)
	cfg.Detector.MinStopDurationHours = getEnvFloat("MIN_STOP_DURATION_HOURS", defaults.MinStopDurationHours)

	// Планировщик
	cfg.Scanner.Enabled = getEnvBool("SCAN_ENABLED", false)
	cfg.Scanner.Interval = getEnvDuration("SCAN_INTERVAL", 12*time.Hour) // дважды в сутки
	cfg.Scanner.Workers = getEnvInt("SCAN_WORKERS", 4)
	cfg.Scanner.DaysBack = getEnvInt("SCAN_DAYS_BACK", 7)
	regions, err := ParseRegions(getEnv("SCAN_REGIONS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid SCAN_REGIONS: %w", err)
	}
	cfg.Scanner.Regions = regions

	// Kafka
	cfg.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", false)
	cfg.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", "localhost:9092"))
	cfg.Kafka.AlertTopic = getEnv("KAFKA_ALERT_TOPIC", "stopped-vehicle-alerts")

	// Архив отчетов в S3
	cfg.Archive.Enabled = getEnvBool("ARCHIVE_ENABLED", false)
	cfg.Archive.Region = getEnv("ARCHIVE_REGION", "us-east-1")
	cfg.Archive.Bucket = getEnv("ARCHIVE_BUCKET", "")
	cfg.Archive.Prefix = getEnv("ARCHIVE_PREFIX", "reports")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if c.DetectorAPI.MinConfidence < 0 || c.DetectorAPI.MinConfidence > 1 {
		return fmt.Errorf("DETECTOR_MIN_CONFIDENCE must be in [0, 1], got %v", c.DetectorAPI.MinConfidence)
	}
	if c.Scanner.Enabled {
		if c.Scanner.Interval <= 0 {
			return fmt.Errorf("SCAN_INTERVAL must be positive, got %v", c.Scanner.Interval)
		}
		if c.Scanner.Workers <= 0 {
			return fmt.Errorf("SCAN_WORKERS must be positive, got %d", c.Scanner.Workers)
		}
		if c.Scanner.DaysBack <= 0 {
			return fmt.Errorf("SCAN_DAYS_BACK must be positive, got %d", c.Scanner.DaysBack)
		}
		if len(c.Scanner.Regions) == 0 {
			return fmt.Errorf("SCAN_REGIONS is required when scanning is enabled")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("ARCHIVE_BUCKET is required when archiving is enabled")
	}
	return nil
}

// DSN строка подключения к PostgreSQL
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode,
	)
}

// ParseRegions разбирает список областей вида "name:lat:lon:radius;name:lat:lon:radius"
func ParseRegions(value string) ([]Region, error) {
	var regions []Region
	for _, item := range strings.Split(value, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("region %q: expected name:lat:lon:radius", item)
		}

		nums := make([]float64, 3)
		for i, raw := range parts[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", item, err)
			}
			nums[i] = v
		}

		region := Region{
			Name:      strings.TrimSpace(parts[0]),
			Center:    models.Coordinates{Lat: nums[0], Lon: nums[1]},
			RadiusDeg: nums[2],
		}
		if region.Name == "" {
			return nil, fmt.Errorf("region %q: empty name", item)
		}
		if region.RadiusDeg <= 0 {
			return nil, fmt.Errorf("region %q: radius must be positive", item)
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
