// Package config loads layered settings (defaults, config file, SENTIMENT_*
// environment variables, command-line flags) and validates them.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SENTIMENT"

type Config struct {
	Paths     PathsConfig    `mapstructure:"paths"`
	Pipeline  PipelineConfig `mapstructure:"pipeline"`
	Model     ModelConfig    `mapstructure:"model"`
	Train     TrainConfig    `mapstructure:"train"`
	Runtime   RuntimeConfig  `mapstructure:"runtime"`
	Server    ServerConfig   `mapstructure:"server"`
	LogLevel  string         `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string         `mapstructure:"log_format" validate:"oneof=json console"`
}

type PathsConfig struct {
	Reviews   string `mapstructure:"reviews"`
	Labels    string `mapstructure:"labels"`
	Vocab     string `mapstructure:"vocab" validate:"required"`
	Dataset   string `mapstructure:"dataset"`
	Model     string `mapstructure:"model"`
	ONNXModel string `mapstructure:"onnx_model"`
}

type PipelineConfig struct {
	SequenceLength int     `mapstructure:"sequence_length" validate:"gt=0"`
	TrainFraction  float64 `mapstructure:"train_fraction" validate:"gt=0,lte=1"`
	ValFraction    float64 `mapstructure:"val_fraction" validate:"gte=0,lte=1"`
	TestFraction   float64 `mapstructure:"test_fraction" validate:"gte=0,lte=1"`
	BatchSize      int     `mapstructure:"batch_size" validate:"gt=0"`
	Seed           uint64  `mapstructure:"seed"`
}

type ModelConfig struct {
	EmbeddingDim int     `mapstructure:"embedding_dim" validate:"gt=0"`
	HiddenDim    int     `mapstructure:"hidden_dim" validate:"gt=0"`
	Layers       int     `mapstructure:"layers" validate:"gt=0"`
	DropProb     float64 `mapstructure:"drop_prob" validate:"gte=0,lt=1"`
	FCDropProb   float64 `mapstructure:"fc_drop_prob" validate:"gte=0,lt=1"`
}

type TrainConfig struct {
	Epochs       int     `mapstructure:"epochs" validate:"gt=0"`
	LearningRate float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Clip         float64 `mapstructure:"clip" validate:"gte=0"`
	PrintEvery   int     `mapstructure:"print_every" validate:"gt=0"`
}

type RuntimeConfig struct {
	Backend        string `mapstructure:"backend" validate:"oneof=native onnx"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version" validate:"gt=0"`
	ONNXInput      string `mapstructure:"onnx_input" validate:"required"`
	ONNXOutput     string `mapstructure:"onnx_output" validate:"required"`
	ONNXLogits     bool   `mapstructure:"onnx_logits"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr" validate:"required"`
	Workers         int    `mapstructure:"workers" validate:"gt=0"`
	RequestTimeout  int    `mapstructure:"request_timeout" validate:"gt=0"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"gte=0"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes" validate:"gt=0"`
	// RateLimit caps predictions per client IP per minute. Zero disables it.
	RateLimit int `mapstructure:"rate_limit" validate:"gte=0"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Reviews:   "data/reviews.txt",
			Labels:    "data/labels.txt",
			Vocab:     "artifacts/vocab.json",
			Dataset:   "artifacts/dataset.safetensors",
			Model:     "artifacts/model.safetensors",
			ONNXModel: "artifacts/model.onnx",
		},
		Pipeline: PipelineConfig{
			SequenceLength: 200,
			TrainFraction:  0.8,
			ValFraction:    0.1,
			TestFraction:   0.1,
			BatchSize:      50,
			Seed:           1,
		},
		Model: ModelConfig{
			EmbeddingDim: 400,
			HiddenDim:    256,
			Layers:       2,
			DropProb:     0.5,
			FCDropProb:   0.3,
		},
		Train: TrainConfig{
			Epochs:       4,
			LearningRate: 0.001,
			Clip:         5,
			PrintEvery:   100,
		},
		Runtime: RuntimeConfig{
			Backend:       BackendNative,
			ORTAPIVersion: 23,
			ONNXInput:     "input_ids",
			ONNXOutput:    "score",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         2,
			RequestTimeout:  60,
			ShutdownTimeout: 30,
			MaxTextBytes:    4096,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// flagBindings maps each command-line flag to its configuration key.
var flagBindings = []struct{ flag, key string }{
	{"reviews", "paths.reviews"},
	{"labels", "paths.labels"},
	{"vocab", "paths.vocab"},
	{"dataset", "paths.dataset"},
	{"model", "paths.model"},
	{"onnx-model", "paths.onnx_model"},
	{"seq-length", "pipeline.sequence_length"},
	{"train-fraction", "pipeline.train_fraction"},
	{"val-fraction", "pipeline.val_fraction"},
	{"test-fraction", "pipeline.test_fraction"},
	{"batch-size", "pipeline.batch_size"},
	{"seed", "pipeline.seed"},
	{"embedding-dim", "model.embedding_dim"},
	{"hidden-dim", "model.hidden_dim"},
	{"layers", "model.layers"},
	{"drop-prob", "model.drop_prob"},
	{"fc-drop-prob", "model.fc_drop_prob"},
	{"epochs", "train.epochs"},
	{"lr", "train.learning_rate"},
	{"clip", "train.clip"},
	{"print-every", "train.print_every"},
	{"backend", "runtime.backend"},
	{"ort-lib", "runtime.ort_library_path"},
	{"ort-version", "runtime.ort_version"},
	{"ort-api-version", "runtime.ort_api_version"},
	{"onnx-input", "runtime.onnx_input"},
	{"onnx-output", "runtime.onnx_output"},
	{"onnx-logits", "runtime.onnx_logits"},
	{"listen-addr", "server.listen_addr"},
	{"workers", "server.workers"},
	{"request-timeout", "server.request_timeout"},
	{"shutdown-timeout", "server.shutdown_timeout"},
	{"max-text-bytes", "server.max_text_bytes"},
	{"rate-limit", "server.rate_limit"},
	{"log-level", "log_level"},
	{"log-format", "log_format"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("reviews", defaults.Paths.Reviews, "Review corpus, one review per line")
	fs.String("labels", defaults.Paths.Labels, "Label file, one label per line")
	fs.String("vocab", defaults.Paths.Vocab, "Vocabulary file")
	fs.String("dataset", defaults.Paths.Dataset, "Packed dataset file (.safetensors)")
	fs.String("model", defaults.Paths.Model, "Native classifier checkpoint (.safetensors)")
	fs.String("onnx-model", defaults.Paths.ONNXModel, "ONNX classifier graph")
	fs.Int("seq-length", defaults.Pipeline.SequenceLength, "Packed sequence length")
	fs.Float64("train-fraction", defaults.Pipeline.TrainFraction, "Training split fraction")
	fs.Float64("val-fraction", defaults.Pipeline.ValFraction, "Validation split fraction")
	fs.Float64("test-fraction", defaults.Pipeline.TestFraction, "Test split fraction")
	fs.Int("batch-size", defaults.Pipeline.BatchSize, "Batch size")
	fs.Uint64("seed", defaults.Pipeline.Seed, "Random seed for initialization and shuffling")
	fs.Int("embedding-dim", defaults.Model.EmbeddingDim, "Embedding dimension")
	fs.Int("hidden-dim", defaults.Model.HiddenDim, "LSTM hidden dimension")
	fs.Int("layers", defaults.Model.Layers, "Number of stacked LSTM layers")
	fs.Float64("drop-prob", defaults.Model.DropProb, "Dropout between LSTM layers")
	fs.Float64("fc-drop-prob", defaults.Model.FCDropProb, "Dropout before the output layer")
	fs.Int("epochs", defaults.Train.Epochs, "Training epochs")
	fs.Float64("lr", defaults.Train.LearningRate, "Adam learning rate")
	fs.Float64("clip", defaults.Train.Clip, "Gradient norm clip (0 disables)")
	fs.Int("print-every", defaults.Train.PrintEvery, "Steps between validation passes")
	fs.String("backend", defaults.Runtime.Backend, "Inference backend (native|onnx)")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.Uint32("ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime C API version")
	fs.String("onnx-input", defaults.Runtime.ONNXInput, "ONNX graph input name")
	fs.String("onnx-output", defaults.Runtime.ONNXOutput, "ONNX graph output name")
	fs.Bool("onnx-logits", defaults.Runtime.ONNXLogits, "ONNX graph emits logits; apply a sigmoid")
	fs.String("listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent predictions")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.Int("max-text-bytes", defaults.Server.MaxTextBytes, "Maximum review size in bytes")
	fs.Int("rate-limit", defaults.Server.RateLimit, "Max predictions per client IP per minute (0 = unlimited)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.LogFormat, "Log format (json|console)")
}

// Load merges defaults, the config file, environment and flags, in
// increasing priority, then normalizes and validates the result.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		fs := opts.Cmd.Flags()
		for _, b := range flagBindings {
			f := fs.Lookup(b.flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag --%s: %w", b.flag, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	if err := v.BindEnv("runtime.ort_library_path", EnvPrefix+"_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("sentiment")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	backend, err := NormalizeBackend(cfg.Runtime.Backend)
	if err != nil {
		return Config{}, err
	}
	cfg.Runtime.Backend = backend
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.reviews", c.Paths.Reviews)
	v.SetDefault("paths.labels", c.Paths.Labels)
	v.SetDefault("paths.vocab", c.Paths.Vocab)
	v.SetDefault("paths.dataset", c.Paths.Dataset)
	v.SetDefault("paths.model", c.Paths.Model)
	v.SetDefault("paths.onnx_model", c.Paths.ONNXModel)
	v.SetDefault("pipeline.sequence_length", c.Pipeline.SequenceLength)
	v.SetDefault("pipeline.train_fraction", c.Pipeline.TrainFraction)
	v.SetDefault("pipeline.val_fraction", c.Pipeline.ValFraction)
	v.SetDefault("pipeline.test_fraction", c.Pipeline.TestFraction)
	v.SetDefault("pipeline.batch_size", c.Pipeline.BatchSize)
	v.SetDefault("pipeline.seed", c.Pipeline.Seed)
	v.SetDefault("model.embedding_dim", c.Model.EmbeddingDim)
	v.SetDefault("model.hidden_dim", c.Model.HiddenDim)
	v.SetDefault("model.layers", c.Model.Layers)
	v.SetDefault("model.drop_prob", c.Model.DropProb)
	v.SetDefault("model.fc_drop_prob", c.Model.FCDropProb)
	v.SetDefault("train.epochs", c.Train.Epochs)
	v.SetDefault("train.learning_rate", c.Train.LearningRate)
	v.SetDefault("train.clip", c.Train.Clip)
	v.SetDefault("train.print_every", c.Train.PrintEvery)
	v.SetDefault("runtime.backend", c.Runtime.Backend)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("runtime.onnx_input", c.Runtime.ONNXInput)
	v.SetDefault("runtime.onnx_output", c.Runtime.ONNXOutput)
	v.SetDefault("runtime.onnx_logits", c.Runtime.ONNXLogits)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.rate_limit", c.Server.RateLimit)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}
