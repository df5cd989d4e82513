package cfg

import (
	"os"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "HEAPDB"

type Config struct {
	Environment Environment `default:"dev"     split_words:"true"`

	DataDir  string `default:"./data" split_words:"true"`
	PoolSize uint64 `default:"64"     split_words:"true"`
}

// LoadConfig reads HEAPDB_* variables. Variables missing from the
// environment are taken from the .env file at path, or from ./.env if
// path is empty and that file exists.
func LoadConfig(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return Config{}, errors.Wrapf(err, "load %s", path)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, errors.Wrap(err, "load .env")
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process env")
	}

	if err := cfg.Environment.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "environment validation")
	}

	if cfg.PoolSize == 0 {
		return Config{}, errors.New("pool size must be greater than zero")
	}

	if cfg.DataDir == "" {
		return Config{}, errors.New("data dir must not be empty")
	}

	return cfg, nil
}

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"

	DefaultEnv = EnvDev
)

type Environment string

func (e Environment) Validate() error {
	if e != EnvDev && e != EnvProd {
		return errors.Errorf("environment must be either %s or %s, got %q", EnvDev, EnvProd, e)
	}

	return nil
}
