package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web config
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig Logging config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// ShopConfig storefront business settings
type ShopConfig struct {
	Currency          string `yaml:"currency"`
	LowStockThreshold int    `yaml:"low_stock_threshold"`
	LowStockCron      string `yaml:"low_stock_cron"`
	MaxImages         int    `yaml:"max_images"`
	SeedDemoData      bool   `yaml:"seed_demo_data"`
}

// PaymentConfig external payment collaborator. An empty endpoint means orders
// complete immediately without a redirect.
type PaymentConfig struct {
	Endpoint   string `yaml:"endpoint"`
	ReturnURL  string `yaml:"return_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// MailConfig SMTP settings for order and stock notifications
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	AdminTo  string `yaml:"admin_to"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Database DBConfig      `yaml:"database"`
	Logger   LogConfig     `yaml:"logger"`
	Shop     ShopConfig    `yaml:"shop"`
	Payment  PaymentConfig `yaml:"payment"`
	Mail     MailConfig    `yaml:"mail"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o700)
	_ = os.MkdirAll(c.GetDataDir(), 0o700)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Storefront",
		Location: "Asia/Ho_Chi_Minh",
		Workdir:  "/var/storefront",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 8000,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "storefront",
		User:     "postgres",
		Passwd:   "storefront",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/storefront/logs/storefront.log",
	},
	Shop: ShopConfig{
		Currency:          "USD",
		LowStockThreshold: 5,
		LowStockCron:      "@every 1h",
		MaxImages:         4,
		SeedDemoData:      true,
	},
	Payment: PaymentConfig{
		TimeoutSec: 15,
	},
	Mail: MailConfig{
		Port: 587,
	},
}

// LoadConfig reads the yaml file when present, falls back to defaults, and
// applies STOREFRONT_* environment overrides last.
func LoadConfig(cfile string) *AppConfig {
	cfg := *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				panic(err)
			}
		}
	}

	setEnvValue("STOREFRONT_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvBoolValue("STOREFRONT_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("STOREFRONT_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("STOREFRONT_WEB_PORT", &cfg.Web.Port)

	setEnvValue("STOREFRONT_DB_TYPE", &cfg.Database.Type)
	setEnvValue("STOREFRONT_DB_HOST", &cfg.Database.Host)
	setEnvValue("STOREFRONT_DB_NAME", &cfg.Database.Name)
	setEnvValue("STOREFRONT_DB_USER", &cfg.Database.User)
	setEnvValue("STOREFRONT_DB_PWD", &cfg.Database.Passwd)
	setEnvIntValue("STOREFRONT_DB_PORT", &cfg.Database.Port)
	setEnvBoolValue("STOREFRONT_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("STOREFRONT_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("STOREFRONT_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("STOREFRONT_SHOP_CURRENCY", &cfg.Shop.Currency)
	setEnvIntValue("STOREFRONT_SHOP_LOW_STOCK_THRESHOLD", &cfg.Shop.LowStockThreshold)

	setEnvValue("STOREFRONT_PAYMENT_ENDPOINT", &cfg.Payment.Endpoint)
	setEnvValue("STOREFRONT_PAYMENT_RETURN_URL", &cfg.Payment.ReturnURL)

	setEnvBoolValue("STOREFRONT_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("STOREFRONT_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("STOREFRONT_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("STOREFRONT_MAIL_USER", &cfg.Mail.User)
	setEnvValue("STOREFRONT_MAIL_PASSWORD", &cfg.Mail.Password)
	setEnvValue("STOREFRONT_MAIL_FROM", &cfg.Mail.From)
	setEnvValue("STOREFRONT_MAIL_ADMIN_TO", &cfg.Mail.AdminTo)

	cfg.Shop.Currency = strings.ToUpper(strings.TrimSpace(cfg.Shop.Currency))
	if cfg.Shop.MaxImages <= 0 {
		cfg.Shop.MaxImages = 4
	}
	return &cfg
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if v, err := cast.ToIntE(evalue); err == nil {
		*val = v
	}
}
