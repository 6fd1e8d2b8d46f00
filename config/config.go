// config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type SourceURLsConfig struct {
	FireStatsIndex    string `yaml:"fire_stats_index"`
	DatasetLinkSuffix string `yaml:"dataset_link_suffix"`
	FamilyGroupsXLSX  string `yaml:"family_groups_xlsx"`
	ONSPopulationPage string `yaml:"ons_population_page"`
}

type LandingConfig struct {
	Root             string   `yaml:"root"`
	FireDir          string   `yaml:"fire_dir"`
	ExternalDir      string   `yaml:"external_dir"`
	ReferenceDir     string   `yaml:"reference_dir"`
	PopulationCSV    string   `yaml:"population_csv"`
	ProtectedFolders []string `yaml:"protected_folders"`
}

type FetchConfig struct {
	TimeoutStr       string `yaml:"timeout"`
	DownloadDelayStr string `yaml:"download_delay"`
	Retries          int    `yaml:"retries"`
	Timeout          time.Duration `yaml:"-"`
	DownloadDelay    time.Duration `yaml:"-"`
}

type PopulationConfig struct {
	ScaffoldMinYear int `yaml:"scaffold_min_year"`
	ScaffoldMaxYear int `yaml:"scaffold_max_year"`
}

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	SourceURLs SourceURLsConfig `yaml:"source_urls"`
	Landing    LandingConfig    `yaml:"landing"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Population PopulationConfig `yaml:"population"`
}

var AppConfig Config

// LoadConfig reads configuration from a yaml file. If configPath is empty the
// standard locations are probed, matching how the binary is usually launched
// (repo root or from inside config/).
func LoadConfig(configPath string) error {
	if configPath == "" {
		potentialPaths := []string{
			"config/config.yaml",
			"config.yaml",
			"../config/config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
		if configPath == "" {
			return fmt.Errorf("config.yaml not found in standard locations")
		}
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(file, &AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := finalize(&AppConfig); err != nil {
		return err
	}

	// Env var wins over the file for the DB password so the yaml can be
	// committed without secrets.
	if pw := os.Getenv("FIRELAKE_DB_PASSWORD"); pw != "" {
		AppConfig.Database.Password = pw
	}

	return nil
}

func finalize(cfg *Config) error {
	var err error
	if cfg.Fetch.TimeoutStr != "" {
		if cfg.Fetch.Timeout, err = time.ParseDuration(cfg.Fetch.TimeoutStr); err != nil {
			return fmt.Errorf("invalid fetch.timeout: %w", err)
		}
	} else {
		cfg.Fetch.Timeout = 120 * time.Second
	}
	if cfg.Fetch.DownloadDelayStr != "" {
		if cfg.Fetch.DownloadDelay, err = time.ParseDuration(cfg.Fetch.DownloadDelayStr); err != nil {
			return fmt.Errorf("invalid fetch.download_delay: %w", err)
		}
	} else {
		cfg.Fetch.DownloadDelay = 3 * time.Second
	}
	if cfg.Fetch.Retries == 0 {
		cfg.Fetch.Retries = 3
	}
	if cfg.SourceURLs.DatasetLinkSuffix == "" {
		cfg.SourceURLs.DatasetLinkSuffix = ".xlsx"
	}
	if cfg.Population.ScaffoldMinYear == 0 {
		cfg.Population.ScaffoldMinYear = 2010
	}
	if cfg.Population.ScaffoldMaxYear == 0 {
		cfg.Population.ScaffoldMaxYear = 2025
	}
	if cfg.Landing.PopulationCSV == "" {
		cfg.Landing.PopulationCSV = "LSOA Populations 2011 to 2024.csv"
	}
	if len(cfg.Landing.ProtectedFolders) == 0 {
		cfg.Landing.ProtectedFolders = []string{"Reference_Data"}
	}
	return nil
}
