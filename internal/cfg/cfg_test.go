package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8000 {
					t.Errorf("expected default Port 8000, got %d", settings.Port)
				}
				if settings.IrisModelPath != "models/iris-model/dt_model.json" {
					t.Errorf("expected default IrisModelPath, got %s", settings.IrisModelPath)
				}
				if settings.LoanEncodersPath != "models/loan-approval/results/label_encoders.json" {
					t.Errorf("expected default LoanEncodersPath, got %s", settings.LoanEncodersPath)
				}
				if settings.MaxBatchSize != 1000 {
					t.Errorf("expected default MaxBatchSize 1000, got %d", settings.MaxBatchSize)
				}
				if settings.IdleTimeout != 120*time.Second {
					t.Errorf("expected default IdleTimeout 120s, got %v", settings.IdleTimeout)
				}
				if settings.AuditEnabled {
					t.Error("expected audit to be disabled by default")
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"PORT":            "9090",
				"LOAN_MODEL_PATH": "/srv/loan.json",
				"DATA_PATH":       "/var/lib/ml-api",
				"AUDIT_ENABLED":   "true",
				"LOG_LEVEL":       "debug",
				"READ_TIMEOUT":    "30s",
				"MAX_BATCH_SIZE":  "50",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 9090 {
					t.Errorf("expected Port 9090, got %d", settings.Port)
				}
				if settings.LoanModelPath != "/srv/loan.json" {
					t.Errorf("expected LoanModelPath /srv/loan.json, got %s", settings.LoanModelPath)
				}
				if !settings.AuditEnabled || settings.DataPath != "/var/lib/ml-api" {
					t.Errorf("expected audit enabled at /var/lib/ml-api, got %v %s", settings.AuditEnabled, settings.DataPath)
				}
				if settings.Level() != zerolog.DebugLevel {
					t.Errorf("expected debug level, got %v", settings.Level())
				}
				if settings.ReadTimeout != 30*time.Second {
					t.Errorf("expected ReadTimeout 30s, got %v", settings.ReadTimeout)
				}
				if settings.MaxBatchSize != 50 {
					t.Errorf("expected MaxBatchSize 50, got %d", settings.MaxBatchSize)
				}
			},
		},
		{
			name:    "invalid port",
			envVars: map[string]string{"PORT": "80"},
			wantErr: true,
		},
		{
			name:    "audit without data path",
			envVars: map[string]string{"AUDIT_ENABLED": "true"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			envVars: map[string]string{"LOG_LEVEL": "chatty"},
			wantErr: true,
		},
		{
			name: "unparseable values fall back to defaults",
			envVars: map[string]string{
				"PORT":          "not-a-port",
				"WRITE_TIMEOUT": "soon",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8000 {
					t.Errorf("expected default Port 8000, got %d", settings.Port)
				}
				if settings.WriteTimeout != 10*time.Second {
					t.Errorf("expected default WriteTimeout 10s, got %v", settings.WriteTimeout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()
			if (err != nil) != tt.wantErr {
				t.Errorf("loadFromEnv() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
server:
  port: 8081
  readTimeout: "15s"
  writeTimeout: "20s"
  maxBatchSize: 200

models:
  dir: "/srv/models"
  irisModel: "/srv/models/iris.json"
  irisEncoder: "/srv/models/iris_encoder.json"
  loanModel: "/srv/models/loan.json"
  loanEncoders: "/srv/models/loan_encoders.json"

audit:
  enabled: true
  dataPath: "/srv/audit"

system:
  logLevel: "warn"
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8081 {
					t.Errorf("expected Port 8081, got %d", settings.Port)
				}
				if settings.ReadTimeout != 15*time.Second {
					t.Errorf("expected ReadTimeout 15s, got %v", settings.ReadTimeout)
				}
				if settings.IdleTimeout != 120*time.Second {
					t.Errorf("expected default IdleTimeout 120s, got %v", settings.IdleTimeout)
				}
				if settings.MaxBatchSize != 200 {
					t.Errorf("expected MaxBatchSize 200, got %d", settings.MaxBatchSize)
				}
				if settings.IrisModelPath != "/srv/models/iris.json" {
					t.Errorf("expected IrisModelPath from file, got %s", settings.IrisModelPath)
				}
				if settings.ModelsDir != "/srv/models" {
					t.Errorf("expected ModelsDir /srv/models, got %s", settings.ModelsDir)
				}
				if !settings.AuditEnabled || settings.DataPath != "/srv/audit" {
					t.Errorf("expected audit at /srv/audit, got %v %s", settings.AuditEnabled, settings.DataPath)
				}
				if settings.LogLevel != "warn" {
					t.Errorf("expected LogLevel warn, got %s", settings.LogLevel)
				}
			},
		},
		{
			name: "env overrides file",
			yamlContent: `
server:
  port: 8081
models:
  loanModel: "/srv/models/loan.json"
`,
			envOverrides: map[string]string{
				"PORT":            "9000",
				"LOAN_MODEL_PATH": "/override/loan.json",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 9000 {
					t.Errorf("expected Port 9000, got %d", settings.Port)
				}
				if settings.LoanModelPath != "/override/loan.json" {
					t.Errorf("expected overridden LoanModelPath, got %s", settings.LoanModelPath)
				}
				if settings.IrisModelPath != "models/iris-model/dt_model.json" {
					t.Errorf("expected default IrisModelPath, got %s", settings.IrisModelPath)
				}
			},
		},
		{
			name:        "invalid YAML",
			yamlContent: "server: [unclosed",
			wantErr:     true,
		},
		{
			name: "invalid batch size",
			yamlContent: `
server:
  maxBatchSize: -1
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}

			settings, err := loadFromYAML(configPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("loadFromYAML() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	clearTestEnv(t)
	if _, err := loadFromYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad(t *testing.T) {
	t.Run("load from env when no config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("PORT", "8123")

		settings, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if settings.Port != 8123 {
			t.Errorf("expected Port 8123, got %d", settings.Port)
		}
	})

	t.Run("load from YAML when config file specified", func(t *testing.T) {
		clearTestEnv(t)
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configPath, []byte("server:\n  port: 8124\n"), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("CONFIG_FILE", configPath)

		settings, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if settings.Port != 8124 {
			t.Errorf("expected Port 8124, got %d", settings.Port)
		}
	})
}

func TestSettings_Addr(t *testing.T) {
	s := Settings{Port: 8000}
	if got := s.Addr(); got != ":8000" {
		t.Errorf("expected :8000, got %s", got)
	}
}

// clearTestEnv clears potentially conflicting environment variables
func clearTestEnv(t *testing.T) {
	envVars := []string{
		"CONFIG_FILE", "PORT", "IRIS_MODEL_PATH", "IRIS_ENCODER_PATH", "LOAN_MODEL_PATH",
		"LOAN_ENCODERS_PATH", "MODELS_DIR", "DATA_PATH", "AUDIT_ENABLED", "LOG_LEVEL",
		"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "MAX_BATCH_SIZE",
	}

	for _, env := range envVars {
		t.Setenv(env, "")
	}
}
