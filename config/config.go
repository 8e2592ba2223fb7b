package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"chessgpt-local/engine"
)

var (
	cfgFile    = "chessgpt-local/config.toml"
	historyDir = "chessgpt-local/history"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("Config error: %s", e.err)
}

type ConfigColors struct {
	LightSquare int `toml:"light_square"`
	DarkSquare  int `toml:"dark_square"`
	WhitePiece  int `toml:"white_piece"`
	BlackPiece  int `toml:"black_piece"`
	CursorBG    int `toml:"cursor_bg"`
	SelectedBG  int `toml:"selected_bg"`
	LastMoveBG  int `toml:"last_move_bg"`
	Coordinates int `toml:"coordinates"`
}

type ConfigSymbols struct {
	EmptySquare rune `toml:"empty_square"`
	Cursor      rune `toml:"cursor"`
}

type Theme struct {
	DrawCursorBackground   bool          `toml:"draw_cursor_bg"`
	DrawLastMoveBackground bool          `toml:"draw_last_move_bg"`
	ShowCoordinates        bool          `toml:"show_coordinates"`
	Colors                 ConfigColors  `toml:"colors"`
	Symbols                ConfigSymbols `toml:"symbols"`
}

// EngineConfig holds the UCI engine settings.
type EngineConfig struct {
	Path     string   `toml:"path"`
	Args     []string `toml:"args"`
	Threads  int      `toml:"threads"`
	MoveTime string   `toml:"movetime"`
}

// OpenAIConfig holds the language model backend settings.
type OpenAIConfig struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	SystemPrompt string `toml:"system_prompt"`
	UserPrompt   string `toml:"user_prompt"`
}

// PlayConfig holds the players and loop settings used at startup.
type PlayConfig struct {
	White         string `toml:"white"`
	Black         string `toml:"black"`
	AutoplayDelay string `toml:"autoplay_delay"`
}

type Config struct {
	Engine EngineConfig `toml:"engine"`
	OpenAI OpenAIConfig `toml:"openai"`
	Play   PlayConfig   `toml:"play"`
	Theme  Theme        `toml:"theme"`
}

// InitConfig loads the config file if one exists, on top of the defaults.
// OPENAI_API_KEY overrides the file's api key.
func InitConfig() (*Config, error) {
	config := DefaultConfig
	absPath, err := xdg.SearchConfigFile(cfgFile)
	if err == nil {
		if err := readCfgFile(absPath, &config); err != nil {
			return nil, err
		}
	}
	config.applyEnv()
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load reads the config from an explicit path.
func Load(path string) (*Config, error) {
	config := DefaultConfig
	if err := readCfgFile(path, &config); err != nil {
		return nil, err
	}
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.OpenAI.BaseURL = url
	}
}

func (c *Config) Validate() error {
	for _, r := range []rune{c.Theme.Symbols.EmptySquare, c.Theme.Symbols.Cursor} {
		if r < 32 || (r >= 127 && r <= 159) {
			return &InvalidConfig{"Unicode characters 1-31 and 127-159 are not allowed"}
		}
	}
	if c.Engine.Path == "" {
		return &InvalidConfig{"engine.path must not be empty"}
	}
	if c.Engine.Threads < 1 {
		return &InvalidConfig{"engine.threads must be at least 1"}
	}
	if _, err := c.MoveTime(); err != nil {
		return &InvalidConfig{fmt.Sprintf("engine.movetime: %v", err)}
	}
	if _, err := c.AutoplayDelay(); err != nil {
		return &InvalidConfig{fmt.Sprintf("play.autoplay_delay: %v", err)}
	}
	if _, err := c.Players(); err != nil {
		return &InvalidConfig{err.Error()}
	}
	return nil
}

// MoveTime returns the engine search time per move.
func (c *Config) MoveTime() (time.Duration, error) {
	return positiveDuration(c.Engine.MoveTime)
}

// AutoplayDelay returns the pause between autoplay iterations.
func (c *Config) AutoplayDelay() (time.Duration, error) {
	return positiveDuration(c.Play.AutoplayDelay)
}

func positiveDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v)
	}
	return d, nil
}

// Players parses the configured sources for both sides.
func (c *Config) Players() (engine.Pair, error) {
	white, err := engine.ParseDescriptor(c.Play.White)
	if err != nil {
		return engine.Pair{}, fmt.Errorf("play.white: %w", err)
	}
	black, err := engine.ParseDescriptor(c.Play.Black)
	if err != nil {
		return engine.Pair{}, fmt.Errorf("play.black: %w", err)
	}
	return engine.Pair{White: white, Black: black}, nil
}

func (c *Config) Save() error {
	absPath, err := xdg.ConfigFile(cfgFile)
	if err != nil {
		return err
	}
	return saveCfgFile(absPath, c, 0600)
}

// HistoryDir returns the directory game records are written to.
func HistoryDir() string {
	return filepath.Join(xdg.DataHome, historyDir)
}

func saveCfgFile(filePath string, a interface{}, perm fs.FileMode) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(a); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(filePath, buf.Bytes(), perm); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func readCfgFile(filePath string, a interface{}) error {
	if _, err := toml.DecodeFile(filePath, a); err != nil {
		return &InvalidConfig{fmt.Sprintf("%s: %v", filePath, err)}
	}
	return nil
}
