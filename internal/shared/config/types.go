package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type GoogleOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type OAuthConfig struct {
	Google GoogleOAuthConfig `mapstructure:"google"`
}

// SyncConfig holds the tunables of the calendar sync engine.
type SyncConfig struct {
	Timezone            string `mapstructure:"timezone"`
	LoopWindowSeconds   int    `mapstructure:"loop_window_seconds"`
	QueueBatchSize      int    `mapstructure:"queue_batch_size"`
	MaxRetries          int    `mapstructure:"max_retries"`
	WorkerPollSeconds   int    `mapstructure:"worker_poll_seconds"`
	ChannelTTLHours     int    `mapstructure:"channel_ttl_hours"`
	RenewalLeadHours    int    `mapstructure:"renewal_lead_hours"`
	RenewalSweepMinutes int    `mapstructure:"renewal_sweep_minutes"`
	FullSyncPastDays    int    `mapstructure:"full_sync_past_days"`
	FullSyncFutureDays  int    `mapstructure:"full_sync_future_days"`
	PollingMinutes      int    `mapstructure:"polling_minutes"`
}
