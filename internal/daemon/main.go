// Package daemon wires configuration, database, cache and web service into
// the running application.
package daemon

import (
	"strconv"

	sessionmysql "github.com/gofiber/storage/mysql"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/cache"
	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/controller/passwordtoken"
	"github.com/felipemart/baseprojeto/internal/db/dsn"
	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/notify"
	"github.com/felipemart/baseprojeto/internal/web"
	"github.com/felipemart/baseprojeto/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
	redis      *cache.Client
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
}

// WaitShutdown blocks until the web service finished its graceful shutdown,
// then releases the cache connection pool.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()

	if err := d.redis.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis client")
	}
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	dbDriver := gormmysql.Open(dsn.Create(cfg)) // open db with gorm mysql driver

	db, err := gorm.Open(dbDriver, &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.PermissionUser{},
		&models.PermissionRole{},
		&models.PasswordToken{},
	); err != nil {
		panic("failed to migrate database")
	}

	seed(cfg, db)

	if err := passwordtoken.PurgeExpired(db); err != nil {
		log.Error().Err(err).Msg("failed to purge expired password tokens")
	}

	// Initialize fiber session store
	sessionStorage := sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
	})

	session.Init(sessionStorage)

	// Authorization session cache on Redis
	redisClient := cache.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	sessionCache := authz.NewSessionCache(redisClient, cfg.Cache.TTL)

	roles := authz.NewRoleService(db, sessionCache)
	perms := authz.NewPermissionService(db, sessionCache)
	notifier := notify.New(cfg)

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db, roles, perms, sessionCache, notifier),
		redis:      redisClient,
	}
}
