package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"voice-recorder/constant"
)

type Config struct {
	App      App      `yaml:"app"`
	Database Database `yaml:"database"`
	Storage  Storage  `yaml:"storage"`
	Capture  Capture  `yaml:"capture"`
	Playback Playback `yaml:"playback"`
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
}

type App struct {
	Environment string `yaml:"environment"`
}

type Database struct {
	Driver constant.DatabaseDriver `yaml:"driver"`
	DSN    string                  `yaml:"dsn"`
	LogSQL bool                    `yaml:"log_sql"`
}

type Storage struct {
	Mode     constant.StorageMode `yaml:"mode"`
	MediaDir string               `yaml:"media_dir"`
}

type Capture struct {
	FFmpeg      string `yaml:"ffmpeg"`
	InputFormat string `yaml:"input_format"`
	Device      string `yaml:"device"`
}

type Playback struct {
	FFplay         string `yaml:"ffplay"`
	FFprobe        string `yaml:"ffprobe"`
	ClearOnFailure bool   `yaml:"clear_on_failure"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
}

type Log struct {
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// Dir is where config.yaml is looked up: RECORDER_CONFIG_DIR when set,
// otherwise the working directory.
func Dir() (string, error) {
	if dir := os.Getenv("RECORDER_CONFIG_DIR"); dir != "" {
		return expandTilde(dir), nil
	}
	return os.Getwd()
}

// Load reads config.yaml from path. A missing file is fine: defaults and
// RECORDER_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RECORDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	mediaDir := expandTilde(v.GetString("storage.media_dir"))
	if mediaDir == "" {
		mediaDir = defaultMediaDir()
	}

	driver := constant.DatabaseDriver(v.GetString("database.driver"))
	dsn := v.GetString("database.dsn")
	if dsn == "" && driver == constant.DatabaseDriverSQLite {
		dsn = filepath.Join(mediaDir, "recordings.db")
	}

	return &Config{
		App: App{
			Environment: v.GetString("app.environment"),
		},
		Database: Database{
			Driver: driver,
			DSN:    dsn,
			LogSQL: v.GetBool("database.log_sql"),
		},
		Storage: Storage{
			Mode:     constant.StorageMode(v.GetString("storage.mode")),
			MediaDir: mediaDir,
		},
		Capture: Capture{
			FFmpeg:      v.GetString("capture.ffmpeg"),
			InputFormat: v.GetString("capture.input_format"),
			Device:      v.GetString("capture.device"),
		},
		Playback: Playback{
			FFplay:         v.GetString("playback.ffplay"),
			FFprobe:        v.GetString("playback.ffprobe"),
			ClearOnFailure: v.GetBool("playback.clear_on_failure"),
		},
		Server: Server{
			HttpPort: v.GetString("server.http_port"),
		},
		Log: Log{
			File:      v.GetString("log.file"),
			MaxSizeMB: v.GetInt("log.max_size_mb"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", constant.EnvironmentProduction.String())
	v.SetDefault("database.driver", string(constant.DatabaseDriverSQLite))
	v.SetDefault("storage.mode", constant.StorageModeAuto.String())
	v.SetDefault("capture.ffmpeg", "ffmpeg")
	v.SetDefault("capture.input_format", "pulse")
	v.SetDefault("capture.device", "default")
	v.SetDefault("playback.ffplay", "ffplay")
	v.SetDefault("playback.ffprobe", "ffprobe")
	v.SetDefault("playback.clear_on_failure", false)
	v.SetDefault("server.http_port", "8090")
	v.SetDefault("log.max_size_mb", 10)
}

func defaultMediaDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "voice-recorder"
	}
	return filepath.Join(home, "VoiceRecorder")
}

func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
