package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Pipeline modes: in stream mode the submit path only spools the upload and
// the runner owns every stage; in prepare mode the submit path transcodes and
// uploads synchronously (failing early, at a blocking cost) and the runner
// starts at recognition.
const (
	ModeStream  = "stream"
	ModePrepare = "prepare"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`

	Storage struct {
		SpoolDir  string `mapstructure:"spool_dir"`
		OutputDir string `mapstructure:"output_dir"`
	} `mapstructure:"storage"`

	OSS struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		AccessKeySecret string `mapstructure:"access_key_secret"`
	} `mapstructure:"oss"`

	Speech struct {
		AppKey       string        `mapstructure:"app_key"`
		Region       string        `mapstructure:"region"`
		PollInterval time.Duration `mapstructure:"poll_interval"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"speech"`

	Transcode struct {
		FFmpegPath string        `mapstructure:"ffmpeg_path"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"transcode"`

	Upload struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"upload"`

	Summarize struct {
		Provider string        `mapstructure:"provider"` // "openai" or "gemini"
		Model    string        `mapstructure:"model"`
		APIKey   string        `mapstructure:"api_key"`
		BaseURL  string        `mapstructure:"base_url"`
		Prompt   string        `mapstructure:"prompt"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"summarize"`

	Pipeline struct {
		Mode               string        `mapstructure:"mode"`
		FragmentDelay      time.Duration `mapstructure:"fragment_delay"`
		StreamPollInterval time.Duration `mapstructure:"stream_poll_interval"`
	} `mapstructure:"pipeline"`

	Jobs struct {
		Retention       time.Duration `mapstructure:"retention"`
		JanitorInterval time.Duration `mapstructure:"janitor_interval"`
	} `mapstructure:"jobs"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	// Credentials come from the environment in every deployment we run;
	// bind them explicitly so no prefix or naming convention is needed.
	viper.BindEnv("oss.access_key_id", "OSS_ACCESS_KEY_ID")
	viper.BindEnv("oss.access_key_secret", "OSS_ACCESS_KEY_SECRET")
	viper.BindEnv("speech.app_key", "NLS_APP_KEY")
	viper.BindEnv("summarize.api_key", "DASHSCOPE_API_KEY", "GEMINI_API_KEY")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Running purely on env vars and defaults is fine; only a broken
		// config file is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.addr", "localhost")
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("storage.spool_dir", "data/input")
	viper.SetDefault("storage.output_dir", "data/output")

	viper.SetDefault("oss.region", "cn-shanghai")

	viper.SetDefault("speech.region", "cn-shanghai")
	viper.SetDefault("speech.poll_interval", 10*time.Second)
	viper.SetDefault("speech.timeout", 30*time.Minute)

	viper.SetDefault("transcode.ffmpeg_path", "ffmpeg")
	viper.SetDefault("transcode.timeout", 5*time.Minute)

	viper.SetDefault("upload.timeout", 10*time.Minute)

	viper.SetDefault("summarize.provider", "openai")
	viper.SetDefault("summarize.model", "qwen-plus")
	viper.SetDefault("summarize.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	viper.SetDefault("summarize.prompt", "You are a study-notes assistant. Turn the transcript into clear, structured notes in Markdown, keeping the details and examples.")
	viper.SetDefault("summarize.timeout", 5*time.Minute)

	viper.SetDefault("pipeline.mode", ModeStream)
	viper.SetDefault("pipeline.fragment_delay", 300*time.Millisecond)
	viper.SetDefault("pipeline.stream_poll_interval", time.Second)

	viper.SetDefault("jobs.retention", time.Hour)
	viper.SetDefault("jobs.janitor_interval", 5*time.Minute)
}
