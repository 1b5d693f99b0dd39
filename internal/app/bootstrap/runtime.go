package bootstrap

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/counseling-clinic/internal/appointments"
	"github.com/wolfman30/counseling-clinic/internal/assignments"
	"github.com/wolfman30/counseling-clinic/internal/cashregister"
	appconfig "github.com/wolfman30/counseling-clinic/internal/config"
	"github.com/wolfman30/counseling-clinic/internal/dashboard"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/packages"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, directory cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Stores bundles the repositories behind the HTTP services.
type Stores struct {
	Directory    directory.Store
	Appointments appointments.Repository
	CashRegister cashregister.Repository
	Assignments  assignments.Repository
	Packages     packages.Repository
	Stats        dashboard.Source
}

// ReferenceChecks returns the checks that keep the directory from deleting
// clients or services that appointments, payments or packages still point at.
func (s *Stores) ReferenceChecks() []directory.ReferenceCheck {
	return []directory.ReferenceCheck{
		func(ctx context.Context, kind directory.Kind, id string) (bool, error) {
			f := appointments.Filter{Limit: 1}
			switch kind {
			case directory.KindClient:
				f.ClientID = id
			case directory.KindService:
				f.ServiceID = id
			default:
				return false, nil
			}
			rows, err := s.Appointments.List(ctx, f)
			return len(rows) > 0, err
		},
		func(ctx context.Context, kind directory.Kind, id string) (bool, error) {
			if kind != directory.KindClient {
				return false, nil
			}
			rows, err := s.CashRegister.List(ctx, cashregister.Filter{ClientID: id})
			return len(rows) > 0, err
		},
		func(ctx context.Context, kind directory.Kind, id string) (bool, error) {
			if kind != directory.KindService {
				return false, nil
			}
			return s.Packages.ReferencesService(ctx, id)
		},
	}
}

// BuildStores wires Postgres-backed repositories when pool is set and in-memory ones otherwise.
// The directory is fronted by the Redis cache when redisClient is non-nil.
func BuildStores(cfg *appconfig.Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var stores *Stores
	if pool != nil {
		stores = &Stores{
			Directory:    directory.NewPostgresRepository(pool),
			Appointments: appointments.NewPostgresRepository(pool),
			CashRegister: cashregister.NewPostgresRepository(pool),
			Assignments:  assignments.NewPostgresRepository(pool),
			Packages:     packages.NewPostgresRepository(pool),
			Stats:        dashboard.NewStatsRepository(pool),
		}
		logger.Info("using postgres stores")
	} else {
		dir := directory.NewInMemoryRepository()
		if path := strings.TrimSpace(cfg.DirectorySeedFile); path != "" {
			n, err := SeedDirectory(dir, path)
			if err != nil {
				return nil, err
			}
			logger.Info("directory seeded", "file", path, "entries", n)
		}
		appts := appointments.NewInMemoryRepository()
		cash := cashregister.NewInMemoryRepository()
		stores = &Stores{
			Directory:    dir,
			Appointments: appts,
			CashRegister: cash,
			Assignments:  assignments.NewInMemoryRepository(),
			Packages:     packages.NewInMemoryRepository(),
			Stats:        dashboard.NewMemoryStats(appts, dir, cash),
		}
		logger.Warn("using in-memory stores; data is lost on restart")
	}

	if redisClient != nil {
		stores.Directory = directory.NewCachedRepository(stores.Directory, redisClient, cfg.DirectoryCacheTTL, logger)
		logger.Info("directory cache enabled", "ttl", cfg.DirectoryCacheTTL.String())
	}
	return stores, nil
}

// DirectorySeed is the on-disk shape of a directory seed file.
type DirectorySeed struct {
	Clients   []directory.Client    `json:"clients"`
	Personnel []directory.Personnel `json:"personnel"`
	Services  []directory.Service   `json:"services"`
}

// SeedDirectory loads a JSON seed file into an in-memory directory and returns the entry count.
func SeedDirectory(dir *directory.InMemoryRepository, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: read directory seed: %w", err)
	}
	var seed DirectorySeed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("bootstrap: decode directory seed: %w", err)
	}
	for _, c := range seed.Clients {
		if c.ID == "" {
			return 0, fmt.Errorf("bootstrap: directory seed: client without id")
		}
		dir.PutClient(c)
	}
	for _, p := range seed.Personnel {
		if p.ID == "" {
			return 0, fmt.Errorf("bootstrap: directory seed: personnel without id")
		}
		dir.PutPersonnel(p)
	}
	for _, s := range seed.Services {
		if s.ID == "" {
			return 0, fmt.Errorf("bootstrap: directory seed: service without id")
		}
		dir.PutService(s)
	}
	return len(seed.Clients) + len(seed.Personnel) + len(seed.Services), nil
}
