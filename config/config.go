package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env string `toml:"env"`

	Database  DatabaseConfigs `toml:"database"`
	ApiServer ServerConfigs   `toml:"api_server"`
	Auth      AuthConfigs     `toml:"auth"`
	Redis     RedisConfigs    `toml:"redis"`
	Kafka     KafkaConfigs    `toml:"kafka"`
	Postback  PostbackConfigs `toml:"postback"`
	Draw      DrawConfigs     `toml:"draw"`
	Mailer    MailerConfigs   `toml:"mailer"`
}

type DatabaseConfigs struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`

	LogLevel string `toml:"log_level"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string `toml:"host"`
	Port string `toml:"port"`

	MaxLimit     int `toml:"max_limit"`
	DefaultLimit int `toml:"default_limit"`
}

func (s *ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type AuthConfigs struct {
	TokenSecret string       `toml:"token_secret"`
	AccessToken TokenConfigs `toml:"access_token"`
}

type TokenConfigs struct {
	Name       string        `toml:"name"`
	Expiration time.Duration `toml:"expiration"`
}

type RedisConfigs struct {
	Addr string `toml:"addr"`
}

type KafkaConfigs struct {
	Addr      string `toml:"addr"`
	TaskTopic string `toml:"task_topic"`
}

// PostbackConfigs describes the inbound completion-notification endpoint of
// the external offer provider.
type PostbackConfigs struct {
	// Secret keys the HMAC of user_id carried as auth_hash.
	Secret string `toml:"secret"`

	// AllowTestMode accepts notifications with test_mode=1 without a valid
	// auth_hash. Never enable outside of staging.
	AllowTestMode bool `toml:"allow_test_mode"`

	// SchedulerSecret authenticates the scheduled draw-close trigger.
	SchedulerSecret string `toml:"scheduler_secret"`
}

type DrawConfigs struct {
	DefaultPrize int64 `toml:"default_prize"`

	// CloseWeekday and CloseHour define the weekly draw schedule in UTC.
	CloseWeekday time.Weekday `toml:"close_weekday"`
	CloseHour    int          `toml:"close_hour"`
}

type MailerConfigs struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
	Sender   string `toml:"sender"`
}

// Load reads the TOML config file at path. The DB password can be overridden
// with the DB_PASSWORD environment variable so it never needs to live in the
// file.
func Load(path string) (Configs, error) {
	var configs Configs
	if _, err := toml.DecodeFile(path, &configs); err != nil {
		return Configs{}, err
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		configs.Database.Password = password
	}

	return configs, nil
}
