package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
		// RateLimitPerSecond caps requests per client IP; 0 disables.
		RateLimitPerSecond int `yaml:"rateLimitPerSecond"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Analysis struct {
		BaseURL               string `yaml:"baseURL"`
		RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
		PollIntervalSeconds   int    `yaml:"pollIntervalSeconds"`
		MaxPollAttempts       int    `yaml:"maxPollAttempts"`
		// CountTransientPolls decides whether a transport failure while
		// polling consumes an attempt from the shared budget (true) or
		// from a separate budget of the same size (false).
		CountTransientPolls *bool `yaml:"countTransientPolls"`
	} `yaml:"analysis"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Cron struct {
		Secret     string `yaml:"secret"`
		BatchLimit int    `yaml:"batchLimit"`
	} `yaml:"cron"`

	Worker struct {
		IntervalMinutes int  `yaml:"intervalMinutes"`
		RunOnStart      bool `yaml:"runOnStart"`
	} `yaml:"worker"`
}

// Load reads the yaml config file, then lets environment variables
// override the secrets so they never have to live on disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CRON_SECRET"); v != "" {
		c.Cron.Secret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("MRI_ANALYSIS_MODEL_URL"); v != "" {
		c.Analysis.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Analysis.RequestTimeoutSeconds == 0 {
		c.Analysis.RequestTimeoutSeconds = 30
	}
	if c.Analysis.PollIntervalSeconds == 0 {
		c.Analysis.PollIntervalSeconds = 10
	}
	if c.Analysis.MaxPollAttempts == 0 {
		c.Analysis.MaxPollAttempts = 60
	}
	if c.Cron.BatchLimit == 0 {
		c.Cron.BatchLimit = 5
	}
	if c.Worker.IntervalMinutes == 0 {
		c.Worker.IntervalMinutes = 5
	}
}

// PollInterval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Analysis.PollIntervalSeconds) * time.Second
}

// CountTransientPolls defaults to true: the original processor charged
// failed status checks against the same ceiling.
func (c *Config) CountTransientPolls() bool {
	if c.Analysis.CountTransientPolls == nil {
		return true
	}
	return *c.Analysis.CountTransientPolls
}

// MySQLDSN builds the DSN for the mysql driver.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the connection string for lib/pq.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
