package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/joho/godotenv"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"

	"github.com/spf13/viper"
)

const (
	// ListeningPortKey is the port where the HTTP interface will listen on
	ListeningPortKey = "LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// EscrowAccountKey is the account holding the assets in custody during trades
	EscrowAccountKey = "ESCROW_ACCOUNT"
	// AuthSecretKey is the secret used to verify the bearer tokens of the callers
	AuthSecretKey = "AUTH_SECRET"
	// RegistriesKey is the comma separated list of the asset registries, each
	// one in the form id=memory or id=<http(s) url>
	RegistriesKey = "REGISTRIES"
	// RegistryAuthSecretKey is the secret used to sign the transfer requests
	// towards remote registries and to verify those of hosted ones. Defaults
	// to the auth secret
	RegistryAuthSecretKey = "REGISTRY_AUTH_SECRET"
	// RegistryRateLimitKey is the max number of requests per second towards a
	// remote registry, 0 means unlimited
	RegistryRateLimitKey = "REGISTRY_RATE_LIMIT"
	// RegistryRequestTimeoutKey is the timeout in seconds of a request to a
	// remote registry
	RegistryRequestTimeoutKey = "REGISTRY_REQUEST_TIMEOUT"
	// WebhookRateLimitKey is the max number of webhook requests per second, 0
	// means unlimited
	WebhookRateLimitKey = "WEBHOOK_RATE_LIMIT"
	// EnableStatsKey enables the periodic logging of memory statistics
	EnableStatsKey = "ENABLE_STATS"
	// StatsIntervalKey defines interval for printing basic escrow statistics
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation       = "db"
	ProfilerLocation = "stats"

	DBBadger   = "badger"
	DBSqlite   = "sqlite"
	DBInMemory = "inmemory"

	// MemoryRegistry marks a registry hosted in memory by the daemon.
	MemoryRegistry = "memory"
)

var (
	vip            *viper.Viper
	defaultDatadir = btcutil.AppDataDir("escrowd", false)

	registryIDRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	supportedDBTypes = map[string]struct{}{
		DBBadger:   {},
		DBSqlite:   {},
		DBInMemory: {},
	}
)

// Registry is the configuration of an asset registry. An empty URL means the
// registry is hosted in memory by the daemon.
type Registry struct {
	ID  domain.RegistryID
	URL string
}

func (r Registry) IsInMemory() bool {
	return len(r.URL) <= 0
}

func InitConfig() error {
	// An optional .env file in the working directory; real env vars win.
	//nolint
	godotenv.Load()

	vip = viper.New()
	vip.SetEnvPrefix("ESCROW")
	vip.AutomaticEnv()

	vip.SetDefault(ListeningPortKey, 9090)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(EscrowAccountKey, "escrow")
	vip.SetDefault(RegistriesKey, "local=memory")
	vip.SetDefault(RegistryRateLimitKey, 0)
	vip.SetDefault(RegistryRequestTimeoutKey, 15)
	vip.SetDefault(WebhookRateLimitKey, 0)
	vip.SetDefault(EnableStatsKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDBDatadir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

func GetAuthSecret() []byte {
	return []byte(GetString(AuthSecretKey))
}

func GetRegistryAuthSecret() []byte {
	if secret := GetString(RegistryAuthSecretKey); len(secret) > 0 {
		return []byte(secret)
	}
	return GetAuthSecret()
}

// GetRegistryRequestTimeout returns the timeout of remote registry requests.
func GetRegistryRequestTimeout() time.Duration {
	return time.Duration(GetInt(RegistryRequestTimeoutKey)) * time.Second
}

// GetStatsInterval returns the interval of the memory statistics logs.
func GetStatsInterval() time.Duration {
	return time.Duration(GetInt(StatsIntervalKey)) * time.Second
}

// GetRegistries returns the configured registries sorted by id.
func GetRegistries() ([]Registry, error) {
	return parseRegistries(GetString(RegistriesKey))
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	dbType := GetString(DBTypeKey)
	if _, ok := supportedDBTypes[dbType]; !ok {
		return fmt.Errorf(
			"unsupported db type %s, must be one of %s, %s, %s",
			dbType, DBBadger, DBSqlite, DBInMemory,
		)
	}

	if len(GetString(EscrowAccountKey)) <= 0 {
		return fmt.Errorf("missing escrow account")
	}
	if len(GetString(AuthSecretKey)) <= 0 {
		return fmt.Errorf("missing auth secret")
	}

	if _, err := GetRegistries(); err != nil {
		return err
	}

	if GetInt(RegistryRateLimitKey) < 0 {
		return fmt.Errorf("%s must not be negative", RegistryRateLimitKey)
	}
	if GetInt(WebhookRateLimitKey) < 0 {
		return fmt.Errorf("%s must not be negative", WebhookRateLimitKey)
	}
	if GetInt(RegistryRequestTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be greater than zero", RegistryRequestTimeoutKey)
	}
	if GetBool(EnableStatsKey) && GetInt(StatsIntervalKey) <= 0 {
		return fmt.Errorf("%s must be greater than zero", StatsIntervalKey)
	}

	return nil
}

func parseRegistries(str string) ([]Registry, error) {
	registries := make([]Registry, 0)
	seen := make(map[domain.RegistryID]struct{})

	for _, entry := range strings.Split(str, ",") {
		entry = strings.TrimSpace(entry)
		if len(entry) <= 0 {
			continue
		}

		id, target, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf(
				"invalid registry %s, must be in the form id=%s or id=<url>",
				entry, MemoryRegistry,
			)
		}
		if !registryIDRegexp.MatchString(id) {
			return nil, fmt.Errorf(
				"invalid registry id %s, only letters, digits, '-' and '_' are allowed",
				id,
			)
		}
		registryID := domain.RegistryID(id)
		if _, ok := seen[registryID]; ok {
			return nil, fmt.Errorf("duplicated registry id %s", id)
		}
		seen[registryID] = struct{}{}

		if target == MemoryRegistry {
			registries = append(registries, Registry{ID: registryID})
			continue
		}
		u, err := url.ParseRequestURI(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("invalid url %s for registry %s", target, id)
		}
		registries = append(registries, Registry{ID: registryID, URL: target})
	}

	if len(registries) <= 0 {
		return nil, fmt.Errorf("at least one registry must be defined")
	}

	sort.Slice(registries, func(i, j int) bool {
		return registries[i].ID < registries[j].ID
	})
	return registries, nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if GetString(DBTypeKey) != DBInMemory {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
			return err
		}
	}

	if GetBool(EnableStatsKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
