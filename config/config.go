package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zlnvch/whiteboard/canvas"
)

const (
	StoreDynamo = "dynamo"
	StoreSQLite = "sqlite"
)

// Config holds everything the server needs to start.
type Config struct {
	DevMode       bool   `yaml:"dev_mode"`
	HostPort      string `yaml:"host_port"`
	AllowedOrigin string `yaml:"allowed_origin"`
	// JWTSecret is base64 encoded.
	JWTSecret string `yaml:"jwt_secret"`

	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Queue   QueueConfig   `yaml:"queue"`
	Workers WorkersConfig `yaml:"workers"`
	Canvas  CanvasConfig  `yaml:"canvas"`
}

type StoreConfig struct {
	Backend        string `yaml:"backend"`
	DynamoEndpoint string `yaml:"dynamo_endpoint"`
	DynamoTable    string `yaml:"dynamo_table"`
	SQLitePath     string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type QueueConfig struct {
	Endpoint         string `yaml:"endpoint"`
	DeleteBoardQueue string `yaml:"delete_board_queue"`
}

type WorkersConfig struct {
	LayerBatchMs int `yaml:"layer_batch_ms"`
	EditCountMs  int `yaml:"edit_count_ms"`
}

type CanvasConfig struct {
	MaxLayers            int     `yaml:"max_layers"`
	MultiSelectThreshold float64 `yaml:"multi_select_threshold"`
	ZoomStep             float64 `yaml:"zoom_step"`
	MinZoom              float64 `yaml:"min_zoom"`
	MaxZoom              float64 `yaml:"max_zoom"`
}

func DefaultConfig() *Config {
	machine := canvas.DefaultConfig()
	return &Config{
		HostPort:      "8080",
		AllowedOrigin: "http://localhost:5173",
		Store: StoreConfig{
			Backend:     StoreDynamo,
			DynamoTable: "Whiteboard",
			SQLitePath:  "data/whiteboard.db",
		},
		Redis: RedisConfig{Endpoint: "localhost:6379"},
		Queue: QueueConfig{DeleteBoardQueue: "DeleteBoardQueue"},
		Workers: WorkersConfig{
			LayerBatchMs: 500,
			EditCountMs:  60000,
		},
		Canvas: CanvasConfig{
			MaxLayers:            machine.MaxLayers,
			MultiSelectThreshold: machine.MultiSelectThreshold,
			ZoomStep:             machine.ZoomStep,
			MinZoom:              machine.MinZoom,
			MaxZoom:              machine.MaxZoom,
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies the
// environment. An empty or missing path means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DEV_MODE"); v != "" {
		c.DevMode = v == "true"
	}
	if v := os.Getenv("HOST_PORT"); v != "" {
		c.HostPort = v
	}
	if v := os.Getenv("ALLOWED_ORIGIN"); v != "" {
		c.AllowedOrigin = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("DYNAMODB_ENDPOINT"); v != "" {
		c.Store.DynamoEndpoint = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ENDPOINT"); v != "" {
		c.Redis.Endpoint = v
	}
	if v := os.Getenv("SQS_ENDPOINT"); v != "" {
		c.Queue.Endpoint = v
	}
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret not configured (set JWT_SECRET)")
	}
	if _, err := c.JWTSecretBytes(); err != nil {
		return err
	}

	port, err := strconv.Atoi(c.HostPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid host port %q", c.HostPort)
	}
	if c.AllowedOrigin == "" {
		return errors.New("allowed origin not configured")
	}

	switch c.Store.Backend {
	case StoreDynamo:
		if c.Store.DynamoTable == "" {
			return errors.New("dynamo table not configured")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite path not configured")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Redis.Endpoint == "" {
		return errors.New("redis endpoint not configured")
	}
	if c.Queue.DeleteBoardQueue == "" {
		return errors.New("delete board queue not configured")
	}
	if c.Workers.LayerBatchMs <= 0 || c.Workers.EditCountMs <= 0 {
		return errors.New("worker intervals must be positive")
	}

	cv := c.Canvas
	if cv.MaxLayers <= 0 {
		return errors.New("canvas max layers must be positive")
	}
	if cv.MultiSelectThreshold < 0 {
		return errors.New("canvas multi select threshold must not be negative")
	}
	if cv.ZoomStep <= 1 {
		return errors.New("canvas zoom step must be greater than 1")
	}
	if cv.MinZoom <= 0 || cv.MinZoom > cv.MaxZoom {
		return fmt.Errorf("invalid canvas zoom range [%v, %v]", cv.MinZoom, cv.MaxZoom)
	}

	return nil
}

func (c *Config) JWTSecretBytes() ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 jwt secret: %w", err)
	}
	return secret, nil
}

func (c *Config) MachineConfig() canvas.Config {
	return canvas.Config{
		MaxLayers:            c.Canvas.MaxLayers,
		MultiSelectThreshold: c.Canvas.MultiSelectThreshold,
		ZoomStep:             c.Canvas.ZoomStep,
		MinZoom:              c.Canvas.MinZoom,
		MaxZoom:              c.Canvas.MaxZoom,
	}
}
