package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Pass    string `mapstructure:"pass"`
}

// InterviewConfig carries the session defaults and the recovery tuning.
// Stall threshold and watchdog interval are deliberately configuration,
// not constants.
type InterviewConfig struct {
	DefaultPosition     string             `mapstructure:"default_position"`
	DefaultDifficulty   float64            `mapstructure:"default_difficulty"`
	DefaultInterviewer  string             `mapstructure:"default_interviewer"`
	InterviewerPrompts  map[string]string  `mapstructure:"interviewer_types"`
	MaxHistoryTurns     int                `mapstructure:"max_history_turns"`
	SessionTimeoutSecs  int                `mapstructure:"session_timeout_secs"`
	StallThresholdSecs  int                `mapstructure:"stall_threshold_secs"`
	WatchdogIntervalSecs int               `mapstructure:"watchdog_interval_secs"`
}

func (i InterviewConfig) SessionTimeout() time.Duration {
	return time.Duration(i.SessionTimeoutSecs) * time.Second
}

func (i InterviewConfig) StallThreshold() time.Duration {
	return time.Duration(i.StallThresholdSecs) * time.Second
}

func (i InterviewConfig) WatchdogInterval() time.Duration {
	return time.Duration(i.WatchdogIntervalSecs) * time.Second
}

type OllamaModelSrv struct {
	URL string `mapstructure:"url"`
}

type LLMConfig struct {
	Provider     string           `mapstructure:"provider"` // ollama | openai | gemini
	Model        string           `mapstructure:"model"`
	LLamaModels  []OllamaModelSrv `mapstructure:"llama_models"`
	OpenAIAPIKey string           `mapstructure:"open_ai_api_key"`
	GeminiAPIKey string           `mapstructure:"gemini_api_key"`
	Temperature  float64          `mapstructure:"temperature"`
	MaxTokens    int              `mapstructure:"max_tokens"`
	MaxRetries   int              `mapstructure:"max_retries"`
	CacheSize    int              `mapstructure:"response_cache_size"`
	CacheTTLMins int              `mapstructure:"response_cache_ttl_mins"`
}

type VoiceConfig struct {
	STTURL      string `mapstructure:"stt_url"`
	TTSURL      string `mapstructure:"tts_url"`
	TTSVoice    string `mapstructure:"tts_voice"`
	ResponseDir string `mapstructure:"response_dir"`
	SampleRate  int    `mapstructure:"sample_rate"`
}

// WorkerConfig sizes the inference pool and its hand-off queues.
type WorkerConfig struct {
	Count           int `mapstructure:"count"`
	JobQueueSize    int `mapstructure:"job_queue_size"`
	ResultQueueSize int `mapstructure:"result_queue_size"`
	EmitQueueSize   int `mapstructure:"emit_queue_size"`
}

type Settings struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Interview InterviewConfig `mapstructure:"interview"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Workers   WorkerConfig    `mapstructure:"workers"`
	Env       string          `mapstructure:"env"`
	Debug     bool            `mapstructure:"debug"`
}

func Load() (*Settings, error) {
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &settings, nil
}

// Default returns settings usable without a config file. Tests and the
// wiring code lean on this so a missing yaml never blocks a component.
func Default() *Settings {
	var s Settings
	s.Server = ServerConfig{Host: "0.0.0.0", Port: 8080}
	s.Interview = InterviewConfig{
		DefaultPosition:      "Software Engineer",
		DefaultDifficulty:    0.5,
		DefaultInterviewer:   "professional",
		MaxHistoryTurns:      10,
		SessionTimeoutSecs:   1800,
		StallThresholdSecs:   45,
		WatchdogIntervalSecs: 15,
	}
	s.LLM = LLMConfig{
		Provider:     "ollama",
		Model:        "llama3",
		Temperature:  0.7,
		MaxTokens:    75,
		MaxRetries:   2,
		CacheSize:    200,
		CacheTTLMins: 60,
	}
	s.Voice = VoiceConfig{
		ResponseDir: "data/audio/responses",
		SampleRate:  44100,
	}
	s.Workers = WorkerConfig{
		Count:           2,
		JobQueueSize:    32,
		ResultQueueSize: 32,
		EmitQueueSize:   256,
	}
	return &s
}

func setDefaults() {
	d := Default()
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("interview.default_position", d.Interview.DefaultPosition)
	viper.SetDefault("interview.default_difficulty", d.Interview.DefaultDifficulty)
	viper.SetDefault("interview.default_interviewer", d.Interview.DefaultInterviewer)
	viper.SetDefault("interview.max_history_turns", d.Interview.MaxHistoryTurns)
	viper.SetDefault("interview.session_timeout_secs", d.Interview.SessionTimeoutSecs)
	viper.SetDefault("interview.stall_threshold_secs", d.Interview.StallThresholdSecs)
	viper.SetDefault("interview.watchdog_interval_secs", d.Interview.WatchdogIntervalSecs)
	viper.SetDefault("llm.provider", d.LLM.Provider)
	viper.SetDefault("llm.model", d.LLM.Model)
	viper.SetDefault("llm.temperature", d.LLM.Temperature)
	viper.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	viper.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	viper.SetDefault("llm.response_cache_size", d.LLM.CacheSize)
	viper.SetDefault("llm.response_cache_ttl_mins", d.LLM.CacheTTLMins)
	viper.SetDefault("voice.response_dir", d.Voice.ResponseDir)
	viper.SetDefault("voice.sample_rate", d.Voice.SampleRate)
	viper.SetDefault("workers.count", d.Workers.Count)
	viper.SetDefault("workers.job_queue_size", d.Workers.JobQueueSize)
	viper.SetDefault("workers.result_queue_size", d.Workers.ResultQueueSize)
	viper.SetDefault("workers.emit_queue_size", d.Workers.EmitQueueSize)
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
