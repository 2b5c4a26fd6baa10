package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// FCMConfig FCM推送配置
type FCMConfig struct {
	CredentialsFile string // 服务账号凭证文件路径（为空时使用默认凭证）
	ProjectID       string
}

// Config 通知服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	FCM      FCMConfig

	// 通知服务特定配置
	Notify struct {
		// 事件流配置（Redis Streams）
		Stream struct {
			Name     string // 紧急事件流名称，如 "resq:emergency:stream"
			Group    string // 消费者组名称
			Consumer string // 消费者名称（同组内唯一）
		}

		// MQTT 触发配置（设备端上报）
		MQTTTrigger struct {
			Enabled bool
			Topic   string // 如 "resq/emergency/report"
		}

		// 接收者筛选规则
		Eligibility struct {
			Mode          string   // "claims"（角色来自身份声明）或 "registry"（角色来自接收者记录）
			Roles         []string // 可接收通知的角色
			RequireActive bool     // 是否要求 active = true
		}

		// 消息正文截断配置
		Message struct {
			BodyLimit int // 通知正文最大长度，默认 100
			DataLimit int // data.description 最大长度，默认 200
		}

		// 超时配置
		DispatchTimeout time.Duration // 推送调用超时
		RegistryTimeout time.Duration // 注册表读写超时
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（附默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "resq")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "resq-notify")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.FCM.CredentialsFile = getEnv("FCM_CREDENTIALS_FILE", "")
	cfg.FCM.ProjectID = getEnv("FCM_PROJECT_ID", "")

	// 通知服务配置
	cfg.Notify.Stream.Name = getEnv("NOTIFY_STREAM", "resq:emergency:stream")
	cfg.Notify.Stream.Group = getEnv("NOTIFY_STREAM_GROUP", "resq-notify")
	cfg.Notify.Stream.Consumer = getEnv("NOTIFY_STREAM_CONSUMER", "resq-notify-1")

	cfg.Notify.MQTTTrigger.Enabled = getEnvBool("NOTIFY_MQTT_ENABLED", false)
	cfg.Notify.MQTTTrigger.Topic = getEnv("NOTIFY_MQTT_TOPIC", "resq/emergency/report")

	cfg.Notify.Eligibility.Mode = getEnv("NOTIFY_ELIGIBILITY_MODE", "claims")
	cfg.Notify.Eligibility.Roles = splitRoles(getEnv("NOTIFY_ELIGIBLE_ROLES", defaultRolesFor(cfg.Notify.Eligibility.Mode)))
	cfg.Notify.Eligibility.RequireActive = getEnvBool("NOTIFY_REQUIRE_ACTIVE", cfg.Notify.Eligibility.Mode == "registry")

	cfg.Notify.Message.BodyLimit = getEnvInt("NOTIFY_BODY_LIMIT", 100)
	cfg.Notify.Message.DataLimit = getEnvInt("NOTIFY_DATA_LIMIT", 200)

	cfg.Notify.DispatchTimeout = getEnvDuration("NOTIFY_DISPATCH_TIMEOUT", 10*time.Second)
	cfg.Notify.RegistryTimeout = getEnvDuration("NOTIFY_REGISTRY_TIMEOUT", 5*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate 校验配置组合的合法性
func validate(cfg *Config) error {
	switch cfg.Notify.Eligibility.Mode {
	case "claims", "registry":
	default:
		return fmt.Errorf("invalid eligibility mode: %s", cfg.Notify.Eligibility.Mode)
	}
	if len(cfg.Notify.Eligibility.Roles) == 0 {
		return fmt.Errorf("eligible roles must not be empty")
	}
	if cfg.Notify.Message.BodyLimit <= 0 || cfg.Notify.Message.DataLimit <= 0 {
		return fmt.Errorf("message limits must be positive")
	}
	return nil
}

// defaultRolesFor 两种筛选策略的默认角色集
// claims 模式：role ∈ {admin, helper}
// registry 模式：role == helper（配合 RequireActive）
func defaultRolesFor(mode string) string {
	if mode == "registry" {
		return "helper"
	}
	return "admin,helper"
}

func splitRoles(s string) []string {
	parts := strings.Split(s, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
