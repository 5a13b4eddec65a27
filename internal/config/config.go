package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Auth         APIAuthConfig `mapstructure:"auth"`
}

// APIAuthConfig /api 路由的 API Key 认证
type APIAuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// TCPConfig TCP 接入配置
type TCPConfig struct {
	Enable         bool          `mapstructure:"enable"`
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"` // 单次读超时，同时是看门狗检查粒度
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"` // 无数据超过该时长关闭连接
	ReadBufferSize int           `mapstructure:"readBufferSize"`
	MaxConnections int           `mapstructure:"maxConnections"`
	AcquireTimeout time.Duration `mapstructure:"acquireTimeout"`
	AcceptRate     int           `mapstructure:"acceptRate"` // 每秒接入连接数，0 表示不限
	AcceptBurst    int           `mapstructure:"acceptBurst"`
	// Protocol 固定协议；为空时按首包初判，失败回退 decoder.defaultProtocol
	Protocol string `mapstructure:"protocol"`
}

// UDPConfig UDP 接入配置（每个源地址一个解码实例）
type UDPConfig struct {
	Enable      bool          `mapstructure:"enable"`
	Addr        string        `mapstructure:"addr"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
	IdleTimeout time.Duration `mapstructure:"idleTimeout"`
	MaxPeers    int           `mapstructure:"maxPeers"`
	Protocol    string        `mapstructure:"protocol"`
}

// DecoderConfig 解码器行为
type DecoderConfig struct {
	DefaultProtocol string        `mapstructure:"defaultProtocol"`
	OversizePolicy  string        `mapstructure:"oversizePolicy"` // truncate | reject
	StallTimeout    time.Duration `mapstructure:"stallTimeout"`   // 帧累积停滞超过该时长自动 Reset，0 关闭
	NotifyBuffer    int           `mapstructure:"notifyBuffer"`   // 每个订阅通道容量
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig 最新帧缓存
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	KeyPrefix    string        `mapstructure:"keyPrefix"`
	FrameTTL     time.Duration `mapstructure:"frameTTL"`
	HistoryLen   int           `mapstructure:"historyLen"`
}

// NATSConfig 帧事件发布
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	SubjectPrefix string        `mapstructure:"subjectPrefix"`
	Name          string        `mapstructure:"name"`
	ReconnectWait time.Duration `mapstructure:"reconnectWait"`
	MaxReconnects int           `mapstructure:"maxReconnects"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	TCP     TCPConfig     `mapstructure:"tcp"`
	UDP     UDPConfig     `mapstructure:"udp"`
	Decoder DecoderConfig `mapstructure:"decoder"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试环境变量 LCD_CONFIG；否则回退到 ./configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	// 环境变量覆盖：前缀 LCD_，并将点号替换为下划线
	v.SetEnvPrefix("LCD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少默认配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 基本合法性检查
func (c *Config) Validate() error {
	if c.Decoder.DefaultProtocol == "" {
		return errors.New("config: decoder.defaultProtocol is required")
	}
	switch strings.ToLower(c.Decoder.OversizePolicy) {
	case "", "truncate", "reject":
	default:
		return fmt.Errorf("config: unknown decoder.oversizePolicy %q", c.Decoder.OversizePolicy)
	}
	if c.Decoder.NotifyBuffer < 0 {
		return fmt.Errorf("config: decoder.notifyBuffer must be >= 0, got %d", c.Decoder.NotifyBuffer)
	}
	if c.HTTP.Auth.Enabled && len(c.HTTP.Auth.APIKeys) == 0 {
		return errors.New("config: http.auth.enabled requires at least one api key")
	}
	if !c.TCP.Enable && !c.UDP.Enable {
		return errors.New("config: at least one of tcp/udp must be enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lcd-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")
	v.SetDefault("http.auth.enabled", false)

	v.SetDefault("tcp.enable", true)
	v.SetDefault("tcp.addr", ":7000")
	v.SetDefault("tcp.readTimeout", "1s")
	v.SetDefault("tcp.idleTimeout", "300s")
	v.SetDefault("tcp.readBufferSize", 4096)
	v.SetDefault("tcp.maxConnections", 1000)
	v.SetDefault("tcp.acquireTimeout", "2s")
	v.SetDefault("tcp.acceptRate", 100)
	v.SetDefault("tcp.acceptBurst", 200)
	v.SetDefault("tcp.protocol", "")

	v.SetDefault("udp.enable", false)
	v.SetDefault("udp.addr", ":7001")
	v.SetDefault("udp.readTimeout", "1s")
	v.SetDefault("udp.idleTimeout", "60s")
	v.SetDefault("udp.maxPeers", 1024)
	v.SetDefault("udp.protocol", "")

	v.SetDefault("decoder.defaultProtocol", "lcd480")
	v.SetDefault("decoder.oversizePolicy", "truncate")
	v.SetDefault("decoder.stallTimeout", "5s")
	v.SetDefault("decoder.notifyBuffer", 8)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/lcd-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.keyPrefix", "lcd")
	v.SetDefault("redis.frameTTL", "10m")
	v.SetDefault("redis.historyLen", 32)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subjectPrefix", "lcd.frames")
	v.SetDefault("nats.name", "lcd-gateway")
	v.SetDefault("nats.reconnectWait", "2s")
	v.SetDefault("nats.maxReconnects", -1)
}
