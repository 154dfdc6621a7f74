package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"PscannerGo/internal/portscan"
)

// EnvPrefix 环境变量前缀, 例如 PSCANNER_SCANNER_TIMEOUT=0.5
const EnvPrefix = "PSCANNER"

// Config 全局配置
type Config struct {
	Scanner ScannerConfig `mapstructure:"scanner"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// ScannerConfig 扫描参数
type ScannerConfig struct {
	Timeout     float64 `mapstructure:"timeout"` // 秒
	Retries     int     `mapstructure:"retries"`
	Concurrency int     `mapstructure:"concurrency"`
	Banner      bool    `mapstructure:"banner"`
}

// OutputConfig 结果输出
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
	File   string `mapstructure:"file"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig 报告写入 Redis 的连接与键配置
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // 秒
}

func setDefaults(v *viper.Viper) {
	def := portscan.DefaultPolicy()
	v.SetDefault("scanner.timeout", def.Timeout.Seconds())
	v.SetDefault("scanner.retries", def.Retries)
	v.SetDefault("scanner.concurrency", def.Concurrency)
	v.SetDefault("scanner.banner", def.GrabBanner)

	v.SetDefault("output.format", "json")
	v.SetDefault("output.dir", "result")
	v.SetDefault("output.file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "pscanner:report")
	v.SetDefault("redis.ttl", 86400)
}

// Load 读取配置: 默认值 < 配置文件 < 环境变量.
// path 为空时不读文件; envFiles 中存在的 .env 文件会先载入环境(不覆盖已有变量).
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Policy 转换为扫描策略并校验
func (c ScannerConfig) Policy() (portscan.Policy, error) {
	p := portscan.Policy{
		Timeout:     time.Duration(c.Timeout * float64(time.Second)),
		Retries:     c.Retries,
		Concurrency: c.Concurrency,
		GrabBanner:  c.Banner,
	}
	if err := p.Validate(); err != nil {
		return portscan.Policy{}, err
	}
	return p, nil
}

// TTLDuration 报告在 Redis 中的保留时间, 0 表示不过期
func (c RedisConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}
