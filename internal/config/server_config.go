package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	// ModuleName is used as the CLI short description and the metrics namespace prefix.
	ModuleName = "go-keyring"

	envPrefix  = "KEYRING"
	dotEnvFile = ".env"
)

type LoggerServer struct {
	Level              zerolog.Level `toml:"level"`
	RequestLevel       zerolog.Level `toml:"request_level"`
	PrettyPrintConsole bool          `toml:"pretty_print_console"`
}

type EchoServer struct {
	ListenAddress string `toml:"listen_address"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// Graph selects the backend that provides the store primitives.
type Graph struct {
	// Backend is one of "memory", "postgres", "sqlite3". Empty means memory
	// for the library and a sqlite file beside the keystore for the CLI.
	Backend string `toml:"backend"`
	DSN     string `toml:"dsn"`

	// Memory backend simulation knobs.
	WriteLag    time.Duration `toml:"write_lag"`
	DropWrites  float64       `toml:"drop_writes"`
	DropReads   float64       `toml:"drop_reads"`
	MaxOpenConn int           `toml:"max_open_conns"`
}

// Storage holds the write-verify-retry parameters of the persistence adapter.
type Storage struct {
	VerifyAttempts   int           `toml:"verify_attempts"`
	VerifyInterval   time.Duration `toml:"verify_interval"`
	PutRetries       int           `toml:"put_retries"`
	GetRetries       int           `toml:"get_retries"`
	ReadTimeout      time.Duration `toml:"read_timeout"`
	AckTimeout       time.Duration `toml:"ack_timeout"`
	OperationTimeout time.Duration `toml:"operation_timeout"`
	BackoffInitial   time.Duration `toml:"backoff_initial"`
	BackoffMax       time.Duration `toml:"backoff_max"`
	ReadsPerSecond   float64       `toml:"reads_per_second"`
	ReadBurst        int           `toml:"read_burst"`

	// ArrayEncoding writes sequences as tagged maps for stores without an
	// ordered container.
	ArrayEncoding bool `toml:"array_encoding"`
}

type Wallet struct {
	AppPrefix          string `toml:"app_prefix"`
	SealPrivateRecords bool   `toml:"seal_private_records"`
	EnableSigning      bool   `toml:"enable_signing"`
	ListConcurrency    int    `toml:"list_concurrency"`
}

type Sea struct {
	WorkIterations int `toml:"work_iterations"`
}

type Keystore struct {
	Path    string `toml:"path"`
	ScryptN int    `toml:"scrypt_n"`
	ScryptP int    `toml:"scrypt_p"`
}

type Server struct {
	Logger   LoggerServer `toml:"logger"`
	Echo     EchoServer   `toml:"echo"`
	Graph    Graph        `toml:"graph"`
	Storage  Storage      `toml:"storage"`
	Wallet   Wallet       `toml:"wallet"`
	Sea      Sea          `toml:"sea"`
	Keystore Keystore     `toml:"keystore"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.request_level", "debug")
	v.SetDefault("logger.pretty_print_console", false)

	v.SetDefault("echo.listen_address", "127.0.0.1:8080")
	v.SetDefault("echo.enable_metrics", true)

	v.SetDefault("graph.backend", "")
	v.SetDefault("graph.dsn", "")
	v.SetDefault("graph.write_lag", 0)
	v.SetDefault("graph.drop_writes", 0.0)
	v.SetDefault("graph.drop_reads", 0.0)
	v.SetDefault("graph.max_open_conns", 10)

	v.SetDefault("storage.verify_attempts", 5)
	v.SetDefault("storage.verify_interval", 2*time.Second)
	v.SetDefault("storage.put_retries", 3)
	v.SetDefault("storage.get_retries", 3)
	v.SetDefault("storage.read_timeout", 5*time.Second)
	v.SetDefault("storage.ack_timeout", 10*time.Second)
	v.SetDefault("storage.operation_timeout", 30*time.Second)
	v.SetDefault("storage.backoff_initial", 500*time.Millisecond)
	v.SetDefault("storage.backoff_max", 5*time.Second)
	v.SetDefault("storage.reads_per_second", 20.0)
	v.SetDefault("storage.read_burst", 5)
	v.SetDefault("storage.array_encoding", true)

	v.SetDefault("wallet.app_prefix", "keyring")
	v.SetDefault("wallet.seal_private_records", true)
	v.SetDefault("wallet.enable_signing", true)
	v.SetDefault("wallet.list_concurrency", 4)

	v.SetDefault("sea.work_iterations", 100000)

	v.SetDefault("keystore.path", "keyring.json")
	v.SetDefault("keystore.scrypt_n", 262144)
	v.SetDefault("keystore.scrypt_p", 1)
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined above. A .env file in the working directory is loaded first.
func DefaultServiceConfigFromEnv() Server {
	if _, err := os.Stat(dotEnvFile); err == nil {
		// gotenv never overrides variables that are already set
		_ = gotenv.Load(dotEnvFile)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return Server{
		Logger: LoggerServer{
			Level:              parseLevel(v.GetString("logger.level"), zerolog.InfoLevel),
			RequestLevel:       parseLevel(v.GetString("logger.request_level"), zerolog.DebugLevel),
			PrettyPrintConsole: v.GetBool("logger.pretty_print_console"),
		},
		Echo: EchoServer{
			ListenAddress: v.GetString("echo.listen_address"),
			EnableMetrics: v.GetBool("echo.enable_metrics"),
		},
		Graph: Graph{
			Backend:     v.GetString("graph.backend"),
			DSN:         v.GetString("graph.dsn"),
			WriteLag:    v.GetDuration("graph.write_lag"),
			DropWrites:  v.GetFloat64("graph.drop_writes"),
			DropReads:   v.GetFloat64("graph.drop_reads"),
			MaxOpenConn: v.GetInt("graph.max_open_conns"),
		},
		Storage: Storage{
			VerifyAttempts:   v.GetInt("storage.verify_attempts"),
			VerifyInterval:   v.GetDuration("storage.verify_interval"),
			PutRetries:       v.GetInt("storage.put_retries"),
			GetRetries:       v.GetInt("storage.get_retries"),
			ReadTimeout:      v.GetDuration("storage.read_timeout"),
			AckTimeout:       v.GetDuration("storage.ack_timeout"),
			OperationTimeout: v.GetDuration("storage.operation_timeout"),
			BackoffInitial:   v.GetDuration("storage.backoff_initial"),
			BackoffMax:       v.GetDuration("storage.backoff_max"),
			ReadsPerSecond:   v.GetFloat64("storage.reads_per_second"),
			ReadBurst:        v.GetInt("storage.read_burst"),
			ArrayEncoding:    v.GetBool("storage.array_encoding"),
		},
		Wallet: Wallet{
			AppPrefix:          v.GetString("wallet.app_prefix"),
			SealPrivateRecords: v.GetBool("wallet.seal_private_records"),
			EnableSigning:      v.GetBool("wallet.enable_signing"),
			ListConcurrency:    v.GetInt("wallet.list_concurrency"),
		},
		Sea: Sea{
			WorkIterations: v.GetInt("sea.work_iterations"),
		},
		Keystore: Keystore{
			Path:    v.GetString("keystore.path"),
			ScryptN: v.GetInt("keystore.scrypt_n"),
			ScryptP: v.GetInt("keystore.scrypt_p"),
		},
	}
}

// FromFile overlays the TOML file at path on top of base. Keys missing from the
// file keep the value from base. A missing file is not an error.
func FromFile(path string, base Server) (Server, error) {
	cfg := base
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return base, err
	}

	return cfg, nil
}

func parseLevel(s string, fallback zerolog.Level) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return fallback
	}
	return level
}
