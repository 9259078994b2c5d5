/*
 * @Description: 统一配置管理 (手动加载: .env -> conf.ini -> 环境变量)
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2026-04-09 20:41:18
 * @LastEditors: 安知鱼
 */
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	KeyServerPort    = "System.Port"
	KeyServerDebug   = "System.Debug"
	KeyServerBaseURL = "System.BaseURL"

	// KeyServerCorsOrigins 逗号分隔的跨域白名单，* 表示回显任意来源
	KeyServerCorsOrigins = "System.CorsOrigins"

	KeyStorageURL = "Storage.URL"

	KeyAWSAccessKeyID     = "AWS.AccessKeyID"
	KeyAWSSecretAccessKey = "AWS.SecretAccessKey"
	KeyAWSEndpointURL     = "AWS.EndpointURL"
	KeyAWSRegion          = "AWS.Region"

	KeyDBType  = "Database.Type"
	KeyDBURL   = "Database.URL"
	KeyDBDebug = "Database.Debug"

	KeyRedisAddr     = "Redis.Addr"
	KeyRedisPassword = "Redis.Password"
	KeyRedisDB       = "Redis.DB"

	KeyUploadAuthToken = "Upload.AuthToken"
	KeyUploadSerialize = "Upload.Serialize"
	KeyUploadMaxSizeMB = "Upload.MaxSizeMB"

	KeyReconcileCron = "Reconcile.Cron"
)

// DefaultConfigPath 未通过 --config 指定时使用的配置文件
const DefaultConfigPath = "data/conf.ini"

// DefaultAuthToken 默认上传令牌，生产环境必须修改
const DefaultAuthToken = "secret"

const envPrefix = "APPDIST"

// 定义所有已知的配置键
var allKeys = []string{
	KeyServerPort, KeyServerDebug, KeyServerBaseURL, KeyServerCorsOrigins,
	KeyStorageURL,
	KeyAWSAccessKeyID, KeyAWSSecretAccessKey, KeyAWSEndpointURL, KeyAWSRegion,
	KeyDBType, KeyDBURL, KeyDBDebug,
	KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
	KeyUploadAuthToken, KeyUploadSerialize, KeyUploadMaxSizeMB,
	KeyReconcileCron,
}

// legacyEnv 兼容旧部署方式使用的环境变量，仅在 APPDIST_ 前缀变量不存在时生效
var legacyEnv = map[string]string{
	KeyStorageURL:         "STORAGE_URL",
	KeyDBURL:              "DATABASE_URL",
	KeyAWSAccessKeyID:     "AWS_ACCESS_KEY_ID",
	KeyAWSSecretAccessKey: "AWS_SECRET_ACCESS_KEY",
	KeyAWSEndpointURL:     "AWS_ENDPOINT_URL",
	KeyAWSRegion:          "AWS_DEFAULT_REGION",
	KeyUploadAuthToken:    "UPLOADS_SECRET_AUTH_TOKEN",
	KeyServerBaseURL:      "APP_BASE_URL",
}

// 内部默认值，配置文件与环境变量都未提供时使用
var defaults = map[string]any{
	KeyServerPort:        8091,
	KeyServerDebug:       false,
	KeyServerBaseURL:     "http://localhost:8091",
	KeyServerCorsOrigins: "*",
	KeyStorageURL:        "osfs://./data/uploads",
	KeyAWSRegion:         "us-east-1",
	KeyDBType:            "none",
	KeyDBDebug:           false,
	KeyRedisDB:           0,
	KeyUploadAuthToken:   DefaultAuthToken,
	KeyUploadSerialize:   "local",
	KeyUploadMaxSizeMB:   1024,
	KeyReconcileCron:     "@every 30m",
}

type Config struct {
	vp *viper.Viper
}

// NewConfig 手动加载配置，确保可靠性。path 为空时使用 data/conf.ini。
func NewConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	vp := viper.New()
	for k, v := range defaults {
		vp.SetDefault(k, v)
	}

	// --- 步骤 1: 加载 .env，已存在的环境变量不会被覆盖 ---
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("解析 .env 文件失败: %v", err)
	}

	// --- 步骤 2: 使用 go-ini 从文件加载配置 ---
	iniCfg, err := ini.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Infof("提示: 未找到 %s，将创建默认配置文件。", path)
			if err := createDefaultConfigFile(path); err != nil {
				logrus.Warnf("创建默认配置文件失败: %v，将仅依赖环境变量或内部默认值。", err)
			} else if iniCfg, err = ini.Load(path); err != nil {
				logrus.Warnf("重新加载配置文件失败: %v", err)
			}
		} else {
			// 如果文件存在但格式错误
			return nil, fmt.Errorf("错误: 解析配置文件 '%s' 失败: %w", path, err)
		}
	}
	if iniCfg != nil {
		applyINI(vp, iniCfg)
		logrus.Infof("从 %s 文件加载了配置。", path)
	}

	// --- 步骤 3: 手动检查并覆盖环境变量 ---
	applyEnv(vp, os.LookupEnv)

	logrus.Info("配置加载器初始化完成。")
	return &Config{vp: vp}, nil
}

// NewFromValues 直接由键值构造配置，未给出的键使用内部默认值
func NewFromValues(values map[string]any) *Config {
	vp := viper.New()
	for k, v := range defaults {
		vp.SetDefault(k, v)
	}
	for k, v := range values {
		vp.Set(k, v)
	}
	return &Config{vp: vp}
}

func applyINI(vp *viper.Viper, iniCfg *ini.File) {
	for _, section := range iniCfg.Sections() {
		for _, key := range section.Keys() {
			// 构建 Viper 使用的 key，例如 "Database.URL"
			viperKey := fmt.Sprintf("%s.%s", section.Name(), key.Name())
			// 特殊处理默认分区 "DEFAULT"
			if section.Name() == ini.DefaultSection {
				viperKey = key.Name()
			}
			// 空值视为未配置，保留内部默认值
			if strings.TrimSpace(key.Value()) == "" {
				continue
			}
			vp.Set(viperKey, key.Value())
		}
	}
}

func applyEnv(vp *viper.Viper, lookup func(string) (string, bool)) {
	envReplacer := strings.NewReplacer(".", "_")
	for _, key := range allKeys {
		// 构建环境变量名，例如 APPDIST_DATABASE_URL
		envVarName := fmt.Sprintf("%s_%s", envPrefix, envReplacer.Replace(strings.ToUpper(key)))
		if value, found := lookup(envVarName); found {
			vp.Set(key, value)
			logrus.Debugf("发现环境变量: %s, 已覆盖配置 '%s'。", envVarName, key)
			continue
		}
		if legacy, ok := legacyEnv[key]; ok {
			if value, found := lookup(legacy); found && value != "" {
				vp.Set(key, value)
				logrus.Debugf("发现环境变量: %s, 已覆盖配置 '%s'。", legacy, key)
			}
		}
	}
}

func (c *Config) GetString(key string) string {
	return c.vp.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

// GetStringList 按逗号拆分配置值，忽略空项
func (c *Config) GetStringList(key string) []string {
	var out []string
	for _, part := range strings.Split(c.GetString(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// UsesDefaultAuthToken 上传令牌仍为默认值时返回 true
func (c *Config) UsesDefaultAuthToken() bool {
	return c.GetString(KeyUploadAuthToken) == DefaultAuthToken
}

// createDefaultConfigFile 创建默认的配置文件
func createDefaultConfigFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	defaultConfig := `[System]
Port = 8091
Debug = false
BaseURL = http://localhost:8091
# 跨域白名单，多个来源用逗号分隔
CorsOrigins = *

# 文件存储: osfs://<目录> 或 s3://<存储桶>[/<前缀>]
[Storage]
URL = osfs://./data/uploads

[AWS]
AccessKeyID =
SecretAccessKey =
EndpointURL =
Region = us-east-1

# 元数据库: postgres / pgx / mysql / sqlite / none
# 设置为 none 时只使用文件存储
[Database]
Type = sqlite
URL = data/appdist.db
Debug = false

# Redis 配置（可选），仅在 Upload.Serialize = redis 时使用
[Redis]
Addr =
Password =
DB = 0

[Upload]
AuthToken = secret
# 同一应用并发上传的串行化方式: none / local / redis
Serialize = local
MaxSizeMB = 1024

[Reconcile]
Cron = @every 30m
`

	if err := os.WriteFile(filePath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
