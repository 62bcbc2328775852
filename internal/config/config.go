package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"imposter-rounds/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Game    GameConfig    `mapstructure:"game" yaml:"game"`
	Words   WordsConfig   `mapstructure:"words" yaml:"words"`
	WS      WSConfig      `mapstructure:"ws" yaml:"ws"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
	Host string `mapstructure:"host" yaml:"host"`
	Env  string `mapstructure:"env" yaml:"env"` // "development" or "production"

	ReadTimeout     time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout" yaml:"requestTimeout"` // middleware timeout, not applied to /ws

	// Rate limiting per client IP (requests per second)
	RateLimit      float64 `mapstructure:"rateLimit" yaml:"rateLimit"`
	RateLimitBurst int     `mapstructure:"rateLimitBurst" yaml:"rateLimitBurst"`

	MaxRequestSize int64    `mapstructure:"maxRequestSize" yaml:"maxRequestSize"`
	AllowedOrigins []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MinPlayers             int           `mapstructure:"minPlayers" yaml:"minPlayers"`
	MaxPlayers             int           `mapstructure:"maxPlayers" yaml:"maxPlayers"`
	ImposterCount          int           `mapstructure:"imposterCount" yaml:"imposterCount"` // 0 picks by player count
	DiscussionDuration     time.Duration `mapstructure:"discussionDuration" yaml:"discussionDuration"`
	ConsensusDelay         time.Duration `mapstructure:"consensusDelay" yaml:"consensusDelay"`
	MinActivePlayers       int           `mapstructure:"minActivePlayers" yaml:"minActivePlayers"`
	MaxRounds              int           `mapstructure:"maxRounds" yaml:"maxRounds"`
	TargetScore            int           `mapstructure:"targetScore" yaml:"targetScore"`
	ReconnectGracePeriod   time.Duration `mapstructure:"reconnectGracePeriod" yaml:"reconnectGracePeriod"`
	WithdrawDisconnected   bool          `mapstructure:"withdrawDisconnected" yaml:"withdrawDisconnected"`
	CountEliminatedVotes   bool          `mapstructure:"countEliminatedVotes" yaml:"countEliminatedVotes"`
	RevealWordToEliminated bool          `mapstructure:"revealWordToEliminated" yaml:"revealWordToEliminated"`
	RoomCodeLength         int           `mapstructure:"roomCodeLength" yaml:"roomCodeLength"`
	StaleGameTimeout       time.Duration `mapstructure:"staleGameTimeout" yaml:"staleGameTimeout"`
}

// WordsConfig points at an optional word list file
type WordsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// WSConfig holds websocket connection limits
type WSConfig struct {
	MessageRate    float64 `mapstructure:"messageRate" yaml:"messageRate"`
	MessageBurst   int     `mapstructure:"messageBurst" yaml:"messageBurst"`
	MaxMessageSize int64   `mapstructure:"maxMessageSize" yaml:"maxMessageSize"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "json" or "text"
}

// Default returns the built-in configuration
func Default() *Config {
	settings := domain.DefaultGameSettings()

	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			Env:             "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			RateLimit:       10,
			RateLimitBurst:  20,
			MaxRequestSize:  1 << 20, // 1MB
			AllowedOrigins:  []string{"*"},
		},
		Game: GameConfig{
			MinPlayers:             settings.MinPlayers,
			MaxPlayers:             settings.MaxPlayers,
			ImposterCount:          settings.ImposterCount,
			DiscussionDuration:     settings.DiscussionDuration,
			ConsensusDelay:         settings.ConsensusDelay,
			MinActivePlayers:       settings.MinActivePlayers,
			MaxRounds:              settings.MaxRounds,
			TargetScore:            settings.TargetScore,
			ReconnectGracePeriod:   settings.ReconnectGracePeriod,
			WithdrawDisconnected:   settings.WithdrawDisconnected,
			CountEliminatedVotes:   settings.CountEliminatedVotes,
			RevealWordToEliminated: settings.RevealWordToEliminated,
			RoomCodeLength:         6,
			StaleGameTimeout:       2 * time.Hour,
		},
		WS: WSConfig{
			MessageRate:    5,
			MessageBurst:   10,
			MaxMessageSize: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration with priority env > config file > defaults.
// An empty path searches ., ./config and /etc/imposter for imposter.yaml.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("imposter")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/imposter")
	}

	// IMPOSTER_GAME_MAXPLAYERS and friends
	v.SetEnvPrefix("imposter")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short names used by container platforms
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.env", "ENV")
	v.BindEnv("server.ratelimit", "RATE_LIMIT")
	v.BindEnv("server.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("server.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.env", d.Server.Env)
	v.SetDefault("server.readtimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writetimeout", d.Server.WriteTimeout)
	v.SetDefault("server.idletimeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdowntimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.requesttimeout", d.Server.RequestTimeout)
	v.SetDefault("server.ratelimit", d.Server.RateLimit)
	v.SetDefault("server.ratelimitburst", d.Server.RateLimitBurst)
	v.SetDefault("server.maxrequestsize", d.Server.MaxRequestSize)
	v.SetDefault("server.allowedorigins", d.Server.AllowedOrigins)

	v.SetDefault("game.minplayers", d.Game.MinPlayers)
	v.SetDefault("game.maxplayers", d.Game.MaxPlayers)
	v.SetDefault("game.impostercount", d.Game.ImposterCount)
	v.SetDefault("game.discussionduration", d.Game.DiscussionDuration)
	v.SetDefault("game.consensusdelay", d.Game.ConsensusDelay)
	v.SetDefault("game.minactiveplayers", d.Game.MinActivePlayers)
	v.SetDefault("game.maxrounds", d.Game.MaxRounds)
	v.SetDefault("game.targetscore", d.Game.TargetScore)
	v.SetDefault("game.reconnectgraceperiod", d.Game.ReconnectGracePeriod)
	v.SetDefault("game.withdrawdisconnected", d.Game.WithdrawDisconnected)
	v.SetDefault("game.counteliminatedvotes", d.Game.CountEliminatedVotes)
	v.SetDefault("game.revealwordtoeliminated", d.Game.RevealWordToEliminated)
	v.SetDefault("game.roomcodelength", d.Game.RoomCodeLength)
	v.SetDefault("game.stalegametimeout", d.Game.StaleGameTimeout)

	v.SetDefault("words.file", d.Words.File)

	v.SetDefault("ws.messagerate", d.WS.MessageRate)
	v.SetDefault("ws.messageburst", d.WS.MessageBurst)
	v.SetDefault("ws.maxmessagesize", d.WS.MaxMessageSize)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must be set")
	}
	if c.Server.RateLimit < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}

	g := c.Game
	if g.MinPlayers < 2 {
		return fmt.Errorf("minPlayers must be at least 2")
	}
	if g.MinPlayers > g.MaxPlayers {
		return fmt.Errorf("minPlayers cannot be greater than maxPlayers")
	}
	if g.ImposterCount < 0 || (g.ImposterCount > 0 && g.ImposterCount >= g.MinPlayers) {
		return fmt.Errorf("imposterCount must be 0 (auto) or less than minPlayers")
	}
	if g.ConsensusDelay <= 0 {
		return fmt.Errorf("consensusDelay must be positive")
	}
	if g.DiscussionDuration < 0 {
		return fmt.Errorf("discussionDuration cannot be negative")
	}
	if g.MinActivePlayers < 1 {
		return fmt.Errorf("minActivePlayers must be at least 1")
	}
	if g.MaxRounds < 0 || g.TargetScore < 0 {
		return fmt.Errorf("maxRounds and targetScore cannot be negative")
	}
	if g.RoomCodeLength < 3 {
		return fmt.Errorf("roomCodeLength must be at least 3")
	}

	if c.WS.MessageRate <= 0 || c.WS.MessageBurst < 1 {
		return fmt.Errorf("ws message rate and burst must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	return nil
}

// GameSettings converts the game section into domain settings
func (c *Config) GameSettings() domain.GameSettings {
	return domain.GameSettings{
		MinPlayers:             c.Game.MinPlayers,
		MaxPlayers:             c.Game.MaxPlayers,
		ImposterCount:          c.Game.ImposterCount,
		DiscussionDuration:     c.Game.DiscussionDuration,
		ConsensusDelay:         c.Game.ConsensusDelay,
		MinActivePlayers:       c.Game.MinActivePlayers,
		MaxRounds:              c.Game.MaxRounds,
		TargetScore:            c.Game.TargetScore,
		ReconnectGracePeriod:   c.Game.ReconnectGracePeriod,
		WithdrawDisconnected:   c.Game.WithdrawDisconnected,
		CountEliminatedVotes:   c.Game.CountEliminatedVotes,
		RevealWordToEliminated: c.Game.RevealWordToEliminated,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
