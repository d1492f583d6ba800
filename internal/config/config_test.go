package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "DATA_BACKEND", "SQLITE_DB_PATH", "DATABASE_URL",
	"REMOTE_BACKEND", "REDIS_URL", "REDIS_KEY_PREFIX",
	"GOOGLE_SPREADSHEET_ID", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_SERVICE_ACCOUNT_JSON",
	"EVENTS_BACKEND", "AMQP_URL", "AMQP_EXCHANGE", "AMQP_QUEUE", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"BASE_DAILY_TARGET", "ALLOCATION_POLICY", "SYNC_INTERVAL", "SYNC_MERGE_POLICY",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "LOG_LEVEL", "LOG_FORMAT", "BUDGET_CONFIG_FILE",
}

// clearEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("BUDGET_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "valid sqlite backend",
			mutate: func(c *Config) { c.DataBackend = "sqlite"; c.SQLiteDBPath = "./test.db" },
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			wantErr:     true,
			errorString: "invalid data backend 'sheets': must be one of [memory sqlite postgres]",
		},
		{
			name:        "sqlite backend missing database path",
			mutate:      func(c *Config) { c.DataBackend = "sqlite"; c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name:        "postgres backend missing url",
			mutate:      func(c *Config) { c.DataBackend = "postgres" },
			wantErr:     true,
			errorString: "DATABASE_URL is required when using postgres backend",
		},
		{
			name:        "postgres backend with wrong scheme",
			mutate:      func(c *Config) { c.DataBackend = "postgres"; c.DatabaseURL = "mysql://localhost/db" },
			wantErr:     true,
			errorString: "must be a postgres:// URL",
		},
		{
			name:   "valid postgres backend",
			mutate: func(c *Config) { c.DataBackend = "postgres"; c.DatabaseURL = "postgres://u:p@localhost:5432/budget" },
		},
		{
			name:        "sheets remote missing spreadsheet id",
			mutate:      func(c *Config) { c.RemoteBackend = "sheets"; c.GoogleServiceAccountJSON = "{}" },
			wantErr:     true,
			errorString: "Google Spreadsheet ID is required when using sheets remote backend",
		},
		{
			name:        "sheets remote missing credentials",
			mutate:      func(c *Config) { c.RemoteBackend = "sheets"; c.GoogleSpreadsheetID = "abc" },
			wantErr:     true,
			errorString: "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON",
		},
		{
			name: "sheets remote with missing credentials file",
			mutate: func(c *Config) {
				c.RemoteBackend = "sheets"
				c.GoogleSpreadsheetID = "abc"
				c.GoogleServiceAccountFile = "/non/existent/file.json"
			},
			wantErr:     true,
			errorString: "Google service account file does not exist",
		},
		{
			name:        "redis remote missing prefix",
			mutate:      func(c *Config) { c.RemoteBackend = "redis"; c.RedisKeyPrefix = "" },
			wantErr:     true,
			errorString: "Redis key prefix cannot be empty",
		},
		{
			name:        "unknown remote backend",
			mutate:      func(c *Config) { c.RemoteBackend = "s3" },
			wantErr:     true,
			errorString: "invalid remote backend 's3'",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Config) { c.EventsBackend = "amqp"; c.AMQPURL = "http://localhost:5672/" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name:        "AMQP without queue",
			mutate:      func(c *Config) { c.EventsBackend = "amqp"; c.AMQPQueue = "" },
			wantErr:     true,
			errorString: "AMQP queue name cannot be empty when using amqp events backend",
		},
		{
			name:        "kafka without brokers",
			mutate:      func(c *Config) { c.EventsBackend = "kafka"; c.KafkaBrokers = nil },
			wantErr:     true,
			errorString: "KAFKA_BROKERS is required",
		},
		{
			name:        "zero daily target",
			mutate:      func(c *Config) { c.BaseDailyTarget = "0" },
			wantErr:     true,
			errorString: "invalid base daily target '0'",
		},
		{
			name:        "non-numeric daily target",
			mutate:      func(c *Config) { c.BaseDailyTarget = "lots" },
			wantErr:     true,
			errorString: "invalid base daily target 'lots'",
		},
		{
			name:        "unknown allocation policy",
			mutate:      func(c *Config) { c.AllocationPolicy = "fifo" },
			wantErr:     true,
			errorString: "invalid allocation policy 'fifo'",
		},
		{
			name:        "invalid sync interval - too short",
			mutate:      func(c *Config) { c.SyncInterval = 500 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid sync interval 500ms: must be at least 1 second",
		},
		{
			name:        "invalid sync interval - too long",
			mutate:      func(c *Config) { c.SyncInterval = 25 * time.Hour },
			wantErr:     true,
			errorString: "invalid sync interval 25h0m0s: must be at most 24 hours",
		},
		{
			name:        "invalid merge policy",
			mutate:      func(c *Config) { c.SyncMergePolicy = "latest" },
			wantErr:     true,
			errorString: "invalid sync merge policy 'latest'",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Port = "abc"
	cfg.AllocationPolicy = "nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") {
		t.Errorf("unexpected prefix: %s", msg)
	}
	if strings.Count(msg, "\n- ") != 2 {
		t.Errorf("expected two problems, got: %s", msg)
	}
}

func TestLoad(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "8081" {
			t.Errorf("Port = %v, want 8081", cfg.Port)
		}
		if cfg.DataBackend != "memory" {
			t.Errorf("DataBackend = %v, want memory", cfg.DataBackend)
		}
		if cfg.AllocationPolicy != "scr" {
			t.Errorf("AllocationPolicy = %v, want scr", cfg.AllocationPolicy)
		}
		if cfg.SyncInterval != 5*time.Minute {
			t.Errorf("SyncInterval = %v, want 5m", cfg.SyncInterval)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults should validate: %v", err)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9090")
		t.Setenv("DATA_BACKEND", "sqlite")
		t.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
		t.Setenv("SYNC_INTERVAL", "45s")
		t.Setenv("BASE_DAILY_TARGET", "12,50")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "9090" || cfg.DataBackend != "sqlite" || cfg.SQLiteDBPath != "/tmp/test.db" {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
			t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
		}
		if cfg.SyncInterval != 45*time.Second {
			t.Errorf("SyncInterval = %v, want 45s", cfg.SyncInterval)
		}
		target, err := cfg.DailyTarget()
		if err != nil || target.String() != "12.5" {
			t.Errorf("DailyTarget() = %v, %v", target, err)
		}
	})

	t.Run("invalid duration keeps default", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_INTERVAL", "soon")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.SyncInterval != 5*time.Minute {
			t.Errorf("SyncInterval = %v, want default", cfg.SyncInterval)
		}
	})
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("BUDGET_CONFIG_FILE", path)

	content := `
[storage]
backend = "sqlite"
sqlite_path = "/var/lib/budget.db"

[budget]
base_daily_target = "45"
policy = "rsr"

[remote]
sync_interval = "2m"
merge_policy = "merge"

[events]
kafka_brokers = ["broker:9092"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Run("file values apply", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.DataBackend != "sqlite" || cfg.SQLiteDBPath != "/var/lib/budget.db" {
			t.Errorf("storage not read from file: %+v", cfg)
		}
		if cfg.BaseDailyTarget != "45" || cfg.AllocationPolicy != "rsr" {
			t.Errorf("budget not read from file: %+v", cfg)
		}
		if cfg.SyncInterval != 2*time.Minute || cfg.SyncMergePolicy != "merge" {
			t.Errorf("remote not read from file: %+v", cfg)
		}
		if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "broker:9092" {
			t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
		}
	})

	t.Run("environment wins over file", func(t *testing.T) {
		t.Setenv("ALLOCATION_POLICY", "scr")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.AllocationPolicy != "scr" {
			t.Errorf("AllocationPolicy = %v, want scr", cfg.AllocationPolicy)
		}
	})
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("BUDGET_CONFIG_FILE", path)
	if err := os.WriteFile(path, []byte("[budget\npolicy = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	in := FileConfig{Budget: BudgetSection{BaseDailyTarget: "20", Policy: "rsr"}}

	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if out.Budget != in.Budget {
		t.Errorf("round trip = %+v, want %+v", out.Budget, in.Budget)
	}
}

func TestConfigDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "dailybudget") {
		t.Errorf("ConfigDir() = %s", got)
	}
}
