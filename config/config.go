// Package config loads dtreegen settings from defaults, an optional TOML
// file, DTREEGEN_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. DTREEGEN_MONGO_URI.
const EnvPrefix = "DTREEGEN"

// Config is the complete run configuration.
type Config struct {
	Mongo  MongoConfig  `mapstructure:"mongo"  toml:"mongo"`
	Tree   TreeConfig   `mapstructure:"tree"   toml:"tree"`
	Output OutputConfig `mapstructure:"output" toml:"output"`
	Log    LogConfig    `mapstructure:"log"    toml:"log"`
}

// MongoConfig locates the training collection.
type MongoConfig struct {
	URI            string        `mapstructure:"uri"             toml:"uri"             validate:"required"`
	Database       string        `mapstructure:"database"        toml:"database"        validate:"required"`
	Collection     string        `mapstructure:"collection"      toml:"collection"      validate:"required"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" toml:"connect_timeout" validate:"gt=0"`
	// StrictPing はping失敗時に処理を中断する
	StrictPing bool `mapstructure:"strict_ping" toml:"strict_ping"`
}

// TreeConfig holds the classifier hyperparameters.
type TreeConfig struct {
	MaxDepth            int     `mapstructure:"max_depth"             toml:"max_depth"             validate:"gte=0"`
	Criterion           string  `mapstructure:"criterion"             toml:"criterion"             validate:"oneof=gini entropy log_loss"`
	MinSamplesSplit     int     `mapstructure:"min_samples_split"     toml:"min_samples_split"     validate:"gte=2"`
	MinSamplesLeaf      int     `mapstructure:"min_samples_leaf"      toml:"min_samples_leaf"      validate:"gte=1"`
	MinImpurityDecrease float64 `mapstructure:"min_impurity_decrease" toml:"min_impurity_decrease" validate:"gte=0"`
}

// OutputConfig controls what a run produces.
type OutputConfig struct {
	Dialect  string `mapstructure:"dialect"  toml:"dialect"  validate:"oneof=cpp go"`
	Function string `mapstructure:"function" toml:"function" validate:"required"`
	// File が空なら標準出力
	File        string `mapstructure:"file"         toml:"file"`
	PlotFile    string `mapstructure:"plot_file"    toml:"plot_file"`
	MetricsFile string `mapstructure:"metrics_file" toml:"metrics_file"`
	Report      bool   `mapstructure:"report"       toml:"report"`
}

// LogConfig controls stderr logging.
type LogConfig struct {
	Level  string `mapstructure:"level"  toml:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" toml:"format" validate:"oneof=json console auto"`
}

var defaults = map[string]any{
	"mongo.uri":                  "mongodb://localhost:27017",
	"mongo.database":             "feature_db",
	"mongo.collection":           "features",
	"mongo.connect_timeout":      10 * time.Second,
	"mongo.strict_ping":          false,
	"tree.max_depth":             3,
	"tree.criterion":             "gini",
	"tree.min_samples_split":     2,
	"tree.min_samples_leaf":      1,
	"tree.min_impurity_decrease": 0.0,
	"output.dialect":             "cpp",
	"output.function":            "classify",
	"output.file":                "",
	"output.plot_file":           "",
	"output.metrics_file":        "",
	"output.report":              false,
	"log.level":                  "info",
	"log.format":                 "auto",
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"mongo-uri":             "mongo.uri",
	"database":              "mongo.database",
	"collection":            "mongo.collection",
	"connect-timeout":       "mongo.connect_timeout",
	"strict-ping":           "mongo.strict_ping",
	"max-depth":             "tree.max_depth",
	"criterion":             "tree.criterion",
	"min-samples-split":     "tree.min_samples_split",
	"min-samples-leaf":      "tree.min_samples_leaf",
	"min-impurity-decrease": "tree.min_impurity_decrease",
	"dialect":               "output.dialect",
	"function":              "output.function",
	"output":                "output.file",
	"plot":                  "output.plot_file",
	"metrics-file":          "output.metrics_file",
	"report":                "output.report",
	"log-level":             "log.level",
	"log-format":            "log.format",
}

// RegisterFlags defines every configuration flag on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("mongo-uri", defaults["mongo.uri"].(string), "MongoDB connection string")
	fs.String("database", defaults["mongo.database"].(string), "database holding the training collection")
	fs.String("collection", defaults["mongo.collection"].(string), "collection of {features, type} documents")
	fs.Duration("connect-timeout", defaults["mongo.connect_timeout"].(time.Duration), "connect and server selection timeout")
	fs.Bool("strict-ping", false, "abort when the deployment does not answer ping")
	fs.Int("max-depth", defaults["tree.max_depth"].(int), "maximum tree depth (0 = unbounded)")
	fs.String("criterion", defaults["tree.criterion"].(string), "split criterion: gini, entropy or log_loss")
	fs.Int("min-samples-split", defaults["tree.min_samples_split"].(int), "minimum samples to split a node")
	fs.Int("min-samples-leaf", defaults["tree.min_samples_leaf"].(int), "minimum samples in a leaf")
	fs.Float64("min-impurity-decrease", defaults["tree.min_impurity_decrease"].(float64), "minimum weighted impurity decrease to split a node")
	fs.String("dialect", defaults["output.dialect"].(string), "generated code dialect: cpp or go")
	fs.String("function", defaults["output.function"].(string), "name of the generated function")
	fs.StringP("output", "o", "", "write generated code to this file instead of stdout")
	fs.String("plot", "", "save a feature importance bar chart (png, svg, pdf, ...)")
	fs.String("metrics-file", "", "write Prometheus metrics in text format to this file")
	fs.Bool("report", false, "print a training-set confusion table to stderr")
	fs.String("log-level", defaults["log.level"].(string), "log level: debug, info, warn, error")
	fs.String("log-format", defaults["log.format"].(string), "log format: json, console or auto")
}

// Load builds the Config. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// RedactedURI returns the MongoDB URI with any password masked, for logs.
func (c MongoConfig) RedactedURI() string {
	u, err := url.Parse(c.URI)
	if err != nil {
		return "<unparseable uri>"
	}
	return u.Redacted()
}
