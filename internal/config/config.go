package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the boj CLI and the runner worker need.
type Config struct {
	Language string         `mapstructure:"language"` // language tag, e.g. "cpp", "py"
	Author   string         `mapstructure:"author"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Provider ProviderConfig `mapstructure:"provider"`
	Cache    CacheConfig    `mapstructure:"cache"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
	Report   ReportConfig   `mapstructure:"report"`
}

// RunnerConfig controls the build and case execution steps.
type RunnerConfig struct {
	CompilationTimeoutSec int                         `mapstructure:"compilationTimeoutSec"`
	WaitDelayMs           int                         `mapstructure:"waitDelayMs"` // how long to wait for pipes after the child exits
	Languages             map[string]LanguageOverride `mapstructure:"languages"`
}

// LanguageOverride replaces the default toolchain binaries for one tag.
// Flags is split shell-style and appended to the build step.
type LanguageOverride struct {
	Compiler    string `mapstructure:"compiler"`
	Interpreter string `mapstructure:"interpreter"`
	Flags       string `mapstructure:"flags"`
}

// ProviderConfig configures the problem page scraper.
type ProviderConfig struct {
	BaseURL     string  `mapstructure:"baseURL"`
	TierURL     string  `mapstructure:"tierURL"`
	UserAgent   string  `mapstructure:"userAgent"`
	MaxRetries  int     `mapstructure:"maxRetries"`
	RetryWaitMs int     `mapstructure:"retryWaitMs"`
	TimeoutSec  int     `mapstructure:"timeoutSec"`
	RatePerSec  float64 `mapstructure:"ratePerSec"` // page requests per second to the judge site
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// NATSConfig is only used when Enabled is set or in serve mode.
type NATSConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	URL               string `mapstructure:"url"`
	RunRequestSubject string `mapstructure:"runRequestSubject"`
	VerdictSubject    string `mapstructure:"verdictSubject"`
	ReportSubject     string `mapstructure:"reportSubject"`
	QueueGroup        string `mapstructure:"queueGroup"`
}

type WorkerConfig struct {
	MaxConcurrentJobs int `mapstructure:"maxConcurrentJobs"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ReportConfig struct {
	Width int `mapstructure:"width"`
}

// New returns a viper instance with search paths, env binding and defaults
// set. Callers may bind flags to it before calling Load.
func New(configPaths ...string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, path := range configPaths {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "boj-runner"))
	}

	// BOJ_RUNNER_COMPILATIONTIMEOUTSEC -> runner.compilationTimeoutSec
	v.SetEnvPrefix("BOJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", "")
	v.SetDefault("author", "")
	v.SetDefault("runner.compilationTimeoutSec", 30)
	v.SetDefault("runner.waitDelayMs", 500)
	v.SetDefault("provider.baseURL", "https://www.acmicpc.net")
	v.SetDefault("provider.tierURL", "https://solved.ac/api/v3/problem/show")
	v.SetDefault("provider.userAgent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	v.SetDefault("provider.maxRetries", 3)
	v.SetDefault("provider.retryWaitMs", 1000)
	v.SetDefault("provider.timeoutSec", 10)
	v.SetDefault("provider.ratePerSec", 2.0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", defaultCacheDir())
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.runRequestSubject", "boj.run.request")
	v.SetDefault("nats.verdictSubject", "boj.run.verdict")
	v.SetDefault("nats.reportSubject", "boj.run.report")
	v.SetDefault("nats.queueGroup", "boj-runner-group")
	v.SetDefault("worker.maxConcurrentJobs", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("report.width", 40)
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "boj-runner")
	}
	return filepath.Join(os.TempDir(), "boj-runner")
}

// Load reads the config file (if any) into a Config. A missing file is not
// an error; defaults and environment variables still apply. The returned
// path is the file that was used, empty if none.
func Load(v *viper.Viper) (*Config, string, error) {
	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", err
		}
	} else {
		used = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, used, err
	}
	return &cfg, used, nil
}

// LoadConfig is New followed by Load.
func LoadConfig(configPaths ...string) (*Config, error) {
	cfg, _, err := Load(New(configPaths...))
	return cfg, err
}
