package config

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

// fileSettings is the persisted subset of Config. The camera model is
// deliberately absent (selection resets to the default every run), and tool
// paths are recomputed from UtilityPath rather than round-tripped.
type fileSettings struct {
	SourceDir              string     `mapstructure:"SourceDir"`
	TargetDir              string     `mapstructure:"TargetDir"`
	HeroSourceDir          string     `mapstructure:"HeroSourceDir"`
	HeroTargetDir          string     `mapstructure:"HeroTargetDir"`
	UtilityPath            string     `mapstructure:"UtilityPath"`
	NadirImagePath         string     `mapstructure:"NadirImagePath"`
	NadirScaleFactor       float64    `mapstructure:"NadirScaleFactor"`
	NadirCRF               int        `mapstructure:"NadirCRF"`
	NadirQP                int        `mapstructure:"NadirQP"`
	UseGPUEncoding         bool       `mapstructure:"UseGPUEncoding"`
	GPUEncoder             GPUEncoder `mapstructure:"GPUEncoder"`
	MapillaryUserName      string     `mapstructure:"MapillaryUserName"`
	VideoSampleDistance    float64    `mapstructure:"VideoSampleDistance"`
	MapillaryUploadWorkers int        `mapstructure:"MapillaryUploadWorkers"`
	FileSuffix             string     `mapstructure:"FileSuffix"`
}

// DefaultFileName is the settings file looked up next to the binary when
// --config is not given.
const DefaultFileName = "panoflow_config.json"

// Load reads the settings file at path into a Config. A missing file is not
// an error: defaults are returned. Absent keys keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v, &cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	var loaded fileSettings
	if err := v.Unmarshal(&loaded); err != nil {
		return cfg, err
	}
	applyFileSettings(&cfg, &loaded)
	cfg.Normalize()
	return cfg, nil
}

// Save writes the persisted subset of cfg to path as JSON.
func Save(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigType("json")
	v.Set("SourceDir", cfg.SourceDir)
	v.Set("TargetDir", cfg.TargetDir)
	v.Set("HeroSourceDir", cfg.HeroSourceDir)
	v.Set("HeroTargetDir", cfg.HeroTargetDir)
	v.Set("UtilityPath", cfg.UtilityPath)
	v.Set("NadirImagePath", cfg.NadirImagePath)
	v.Set("NadirScaleFactor", cfg.NadirScaleFactor)
	v.Set("NadirCRF", cfg.NadirCRF)
	v.Set("NadirQP", cfg.NadirQP)
	v.Set("UseGPUEncoding", cfg.UseGPUEncoding)
	v.Set("GPUEncoder", string(cfg.GPUEncoder))
	v.Set("MapillaryUserName", cfg.MapillaryUserName)
	v.Set("VideoSampleDistance", cfg.VideoSampleDistance)
	v.Set("MapillaryUploadWorkers", cfg.MapillaryUploadWorkers)
	v.Set("FileSuffix", cfg.FileSuffix)
	return v.WriteConfigAs(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("NadirScaleFactor", cfg.NadirScaleFactor)
	v.SetDefault("NadirCRF", cfg.NadirCRF)
	v.SetDefault("NadirQP", cfg.NadirQP)
	v.SetDefault("GPUEncoder", string(cfg.GPUEncoder))
	v.SetDefault("VideoSampleDistance", cfg.VideoSampleDistance)
	v.SetDefault("MapillaryUploadWorkers", cfg.MapillaryUploadWorkers)
	v.SetDefault("FileSuffix", cfg.FileSuffix)
}

func applyFileSettings(cfg *Config, s *fileSettings) {
	cfg.SourceDir = s.SourceDir
	cfg.TargetDir = s.TargetDir
	cfg.HeroSourceDir = s.HeroSourceDir
	cfg.HeroTargetDir = s.HeroTargetDir
	cfg.UtilityPath = s.UtilityPath
	cfg.NadirImagePath = s.NadirImagePath
	cfg.NadirScaleFactor = s.NadirScaleFactor
	cfg.NadirCRF = s.NadirCRF
	cfg.NadirQP = s.NadirQP
	cfg.UseGPUEncoding = s.UseGPUEncoding
	cfg.GPUEncoder = s.GPUEncoder
	cfg.MapillaryUserName = s.MapillaryUserName
	cfg.VideoSampleDistance = s.VideoSampleDistance
	cfg.MapillaryUploadWorkers = s.MapillaryUploadWorkers
	cfg.FileSuffix = s.FileSuffix
}
