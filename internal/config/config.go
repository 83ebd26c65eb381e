// Package config handles runtime configuration and the .courseforge
// directory structure. Every project that uses courseforge gets a
// .courseforge/ folder created in its root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	// WorkDir is the name of the directory created in each project.
	WorkDir = ".courseforge"

	configFileName = "courseforge"
)

// LLMConfig carries the settings for the drafting and review agents.
type LLMConfig struct {
	APIKey       string
	BaseURL      string
	WriterModel  string
	EditorModel  string
	StudentModel string
}

// SearchConfig carries the web search provider settings.
type SearchConfig struct {
	TavilyAPIKey string
	MaxResults   int
}

// LinksConfig carries the link verifier settings.
type LinksConfig struct {
	Timeout       time.Duration
	MaxConcurrent int
}

// Config holds the runtime configuration for a courseforge run.
type Config struct {
	// ProjectDir is the directory the user ran `courseforge` from.
	ProjectDir string

	// SectionsPath points at the YAML section plan.
	SectionsPath string
	// GuidelinesPath points at the writing guidelines markdown.
	GuidelinesPath string
	// BibliographyPath points at the raw reference entries, one per line.
	BibliographyPath string

	LLM    LLMConfig
	Search SearchConfig
	Links  LinksConfig
}

// Load reads courseforge.yaml from the project directory (if present),
// applies COURSEFORGE_* environment overrides, and validates the result.
func Load(projectDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(projectDir)
	v.SetEnvPrefix("courseforge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s.yaml: %w", configFileName, err)
		}
	}

	cfg := &Config{
		ProjectDir:       projectDir,
		SectionsPath:     resolvePath(projectDir, v.GetString("inputs.sections")),
		GuidelinesPath:   resolvePath(projectDir, v.GetString("inputs.guidelines")),
		BibliographyPath: resolvePath(projectDir, v.GetString("inputs.bibliography")),
		LLM: LLMConfig{
			APIKey:       v.GetString("llm.api_key"),
			BaseURL:      v.GetString("llm.base_url"),
			WriterModel:  v.GetString("llm.writer_model"),
			EditorModel:  v.GetString("llm.editor_model"),
			StudentModel: v.GetString("llm.student_model"),
		},
		Search: SearchConfig{
			TavilyAPIKey: v.GetString("search.tavily_api_key"),
			MaxResults:   v.GetInt("search.max_results"),
		},
		Links: LinksConfig{
			// Accepts "15s" as well as a bare second count.
			Timeout:       coerceTimeout(v.Get("links.timeout")),
			MaxConcurrent: v.GetInt("links.max_concurrent"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("inputs.sections", "config/sections.yaml")
	v.SetDefault("inputs.guidelines", "input/guidelines.md")
	v.SetDefault("inputs.bibliography", "input/bibliography.txt")
	v.SetDefault("llm.writer_model", "gpt-4o")
	v.SetDefault("llm.editor_model", "gpt-4o-mini")
	v.SetDefault("llm.student_model", "gpt-4o-mini")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("links.timeout", "15s")
	v.SetDefault("links.max_concurrent", 4)
}

func (c *Config) validate() error {
	if c.ProjectDir == "" {
		return fmt.Errorf("config: project dir is required")
	}
	if c.LLM.WriterModel == "" || c.LLM.EditorModel == "" || c.LLM.StudentModel == "" {
		return fmt.Errorf("config: llm model names are required")
	}
	if c.Links.Timeout <= 0 {
		return fmt.Errorf("config: links.timeout must be positive")
	}
	if c.Links.MaxConcurrent <= 0 {
		return fmt.Errorf("config: links.max_concurrent must be positive")
	}
	return nil
}

// WorkDirPath returns ProjectDir/.courseforge.
func (c *Config) WorkDirPath() string {
	return filepath.Join(c.ProjectDir, WorkDir)
}

// StateDir returns the directory holding the run store database.
func (c *Config) StateDir() string {
	return filepath.Join(c.WorkDirPath(), "state")
}

// SectionsDir returns the directory accepted section documents are written to.
func (c *Config) SectionsDir() string {
	return filepath.Join(c.WorkDirPath(), "sections")
}

// OutputDir returns the directory the assembled weekly document lands in.
func (c *Config) OutputDir() string {
	return filepath.Join(c.ProjectDir, "weekly_content")
}

// JournalPath returns the human-readable run journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.WorkDirPath(), "logs", "journey.log")
}

// InitWorkDir creates the .courseforge directory structure.
func (c *Config) InitWorkDir() error {
	dirs := []string{
		filepath.Join(c.WorkDirPath(), "logs"),
		c.StateDir(),
		c.SectionsDir(),
		c.OutputDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func coerceTimeout(value any) time.Duration {
	// A unit-suffixed string ("15s") parses as a duration; anything else
	// is read as a bare second count.
	if s, ok := value.(string); ok && strings.ContainsAny(s, "smh") {
		if d, err := cast.ToDurationE(s); err == nil && d > 0 {
			return d
		}
	}
	if secs := cast.ToInt(value); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
