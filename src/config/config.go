package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvFileEnvVar          = "GET_SELECTED_TEXT_ENV"
	DefaultHotkey          = "Cmd+Shift+C"
	DefaultFileManager     = "Finder"
	DefaultInterpreter     = "osascript"
	DefaultMethodCacheSize = 100
	DefaultDeadlineSec     = 5
	DefaultPortStart       = 49600
	DefaultPortEnd         = 49650
)

type LoadOptions struct {
	EnvFileOverride string
	HotkeyOverride  string
}

type Config struct {
	EnvFile             string
	EnableFileLogging   bool
	EnableNotifications bool
	Hotkey              string
	FileManagerApp      string
	OsascriptPath       string
	MethodCacheSize     int
	DeadlineSec         int
	// PortStart..PortEnd is the inclusive loopback range; the resident binds PortStart.
	PortStart int
	PortEnd   int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) explicit override path
	// 2) .env in the application (executable) directory
	// 3) GET_SELECTED_TEXT_ENV env var as a path to a config file
	// godotenv never overrides variables already set in the process environment.
	envPath := resolveEnvPath(opts)
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		EnvFile:             envPath,
		EnableFileLogging:   strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		EnableNotifications: strings.ToLower(os.Getenv("ENABLE_NOTIFICATIONS")) != "false",
		Hotkey:              resolveHotkey(opts),
		FileManagerApp:      getEnvWithDefault("FILE_MANAGER_APP", DefaultFileManager),
		OsascriptPath:       getEnvWithDefault("OSASCRIPT_PATH", DefaultInterpreter),
		MethodCacheSize:     getPositiveInt("METHOD_CACHE_SIZE", DefaultMethodCacheSize),
		DeadlineSec:         getPositiveInt("EXTRACT_DEADLINE_SEC", DefaultDeadlineSec),
	}
	cfg.PortStart, cfg.PortEnd = resolvePortRange()

	return cfg, nil
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvFileOverride); override != "" {
		return override
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveHotkey(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.HotkeyOverride); override != "" {
		return override
	}
	return getEnvWithDefault("HOTKEY", DefaultHotkey)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// resolvePortRange reads SINGLEINSTANCE_PORT_START/END, clamped to [1024, 65535].
// Unparsable values fall back to the defaults and a reversed range is swapped.
func resolvePortRange() (int, int) {
	start := getInt("SINGLEINSTANCE_PORT_START", DefaultPortStart)
	end := getInt("SINGLEINSTANCE_PORT_END", DefaultPortEnd)
	start = min(max(start, 1024), 65535)
	end = min(max(end, 1024), 65535)
	if end < start {
		start, end = end, start
	}
	return start, end
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return n
	}
	return defaultValue
}
