package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Category names one survey component and the listing page that catalogs
// its downloadable data files.
type Category struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url" yaml:"url"`
}

// Figure references a pre-rendered chart image consumed by the report.
type Figure struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Caption string `mapstructure:"caption" yaml:"caption"`
}

// Global configuration structure.
type Global struct {
	// Survey cycle suffix appended to dataset codes (e.g. "_L" for the
	// August 2021 - August 2023 cycle).
	Cycle string `mapstructure:"cycle" yaml:"cycle"`

	BaseURL    string     `mapstructure:"base_url" yaml:"base_url"`
	Categories []Category `mapstructure:"categories" yaml:"categories"`

	// Extension of the downloadable data files, matched case-insensitively.
	DataExt string `mapstructure:"data_ext" yaml:"data_ext"`

	DownloadDir   string `mapstructure:"download_dir" yaml:"download_dir"`
	CatalogPath   string `mapstructure:"catalog_path" yaml:"catalog_path"`
	ProcessedPath string `mapstructure:"processed_path" yaml:"processed_path"`
	AnalysisPath  string `mapstructure:"analysis_path" yaml:"analysis_path"`
	ReportPath    string `mapstructure:"report_path" yaml:"report_path"`

	Figures []Figure `mapstructure:"figures" yaml:"figures"`

	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ./nhanes.yaml in the working directory.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		path = "nhanes.yaml"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("NHANES")
	v.AutomaticEnv()

	// Defaults describe the August 2021 - August 2023 release.
	v.SetDefault("cycle", "_L")
	v.SetDefault("base_url", "https://wwwn.cdc.gov")
	v.SetDefault("data_ext", ".xpt")
	v.SetDefault("download_dir", filepath.Join("data", "raw"))
	v.SetDefault("catalog_path", filepath.Join("data", "catalog.yaml"))
	v.SetDefault("processed_path", filepath.Join("data", "diabetes.csv"))
	v.SetDefault("analysis_path", filepath.Join("data", "diabetes_analysis.csv"))
	v.SetDefault("report_path", filepath.Join("report", "report.md"))
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("nhanes")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(c.Categories) == 0 {
		c.Categories = defaultCategories(c.BaseURL)
	}
	if len(c.Figures) == 0 {
		c.Figures = defaultFigures()
	}
	return &c, nil
}

// defaultCategories builds the per-component listing URLs against the
// configured site origin.
func defaultCategories(baseURL string) []Category {
	mk := func(name string) Category {
		url := fmt.Sprintf("%s/nchs/nhanes/search/datapage.aspx?Component=%s&Cycle=2021-2023", baseURL, name)
		return Category{Name: name, URL: url}
	}
	return []Category{
		mk("Demographics"),
		mk("Examination"),
		mk("Questionnaire"),
	}
}

func defaultFigures() []Figure {
	return []Figure{
		{Path: "figures/diabetes_by_age_group.png", Caption: "Diabetes prevalence by age group"},
		{Path: "figures/diabetes_by_bmi_class.png", Caption: "Diabetes prevalence by BMI class"},
		{Path: "figures/diabetes_by_income.png", Caption: "Diabetes prevalence by income tier"},
		{Path: "figures/hypertension_overlap.png", Caption: "Diabetes and hypertension overlap"},
	}
}
