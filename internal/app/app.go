// Package app builds the export stack from configuration for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"time"

	"idcards/internal/artifact"
	"idcards/internal/cardtemplate"
	"idcards/internal/cloudinary"
	"idcards/internal/config"
	"idcards/internal/employee"
	"idcards/internal/export"
	"idcards/internal/faceclient"
	"idcards/internal/jobstore"
	"idcards/internal/locks"
	"idcards/internal/photo"
	"idcards/internal/queue"
	"idcards/internal/store"
	"idcards/internal/surface"
)

// Components is everything the api and worker processes share.
type Components struct {
	DB        *store.DB
	Redis     *store.Redis
	Employees *employee.Service
	Templates *cardtemplate.Store
	Fonts     *surface.Fonts
	Face      *faceclient.Client
	Photos    *photo.Processor
	Pipeline  *export.Pipeline
	Exports   *export.Service
	Queue     queue.Queue

	inProcess bool
}

// ServeQueue starts an export worker inside this process when the queue is
// in memory, and reports whether it did. Shared queues are left to
// cmd/worker.
func (c *Components) ServeQueue(ctx context.Context, logger *slog.Logger) bool {
	if !c.inProcess {
		return false
	}
	go func() {
		if err := c.Exports.Work(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("app: in-process worker stopped", "err", err)
		}
	}()
	return true
}

// Close releases connections.
func (c *Components) Close() {
	_ = c.DB.Close()
	_ = c.Redis.Close()
}

// Build wires the stack. DATABASE_URL=memory keeps employees in process,
// as does an unreachable database.
func Build(ctx context.Context, cfg config.App, logger *slog.Logger) (*Components, error) {
	c := &Components{Redis: store.NewRedis(cfg.RedisAddr)}

	var records employee.Store
	if cfg.DatabaseURL == "memory" {
		records = employee.NewMemoryStore()
	} else {
		db, err := store.NewDB(ctx, cfg.DatabaseURL, 5*time.Second)
		c.DB = db
		if err != nil {
			log.Printf("warning: db not reachable, using in-memory employees: %v", err)
			records = employee.NewMemoryStore()
		} else {
			repo := employee.NewRepository(db.Client)
			if err := repo.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate employees: %w", err)
			}
			records = repo
		}
	}
	c.Employees = employee.NewService(records)

	templates, err := LoadTemplates(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}
	c.Templates = templates

	c.Fonts = Fonts(cfg)
	c.Face = faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	c.Photos = photo.NewProcessor(c.Face, logger)

	var locker locks.Locker = locks.NewMemory()
	if cfg.LockBackend == "redis" {
		locker = locks.NewRedis(c.Redis.Client, "", 0)
	}
	c.Pipeline = export.NewPipeline(export.Config{
		Surfaces: surface.NewRasterSource(c.Fonts, logger),
		Fonts:    c.Fonts,
		Locker:   locker,
		FontWait: cfg.FontWait,
		Yield:    cfg.ExportYield,
		Log:      logger,
	})

	var jobs jobstore.Store
	if cfg.QueueBackend == "memory" {
		c.Queue = queue.NewInMemory(64)
		c.inProcess = true
		jobs = jobstore.NewMemory(cfg.JobTTL)
	} else {
		c.Queue = queue.NewRedisQueue(c.Redis.Client, "")
		jobs = jobstore.NewRedis(c.Redis.Client, "", cfg.JobTTL)
	}

	sink, err := Sink(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Exports = export.NewService(export.ServiceConfig{
		Pipeline:  c.Pipeline,
		Records:   c.Employees,
		Templates: c.Templates,
		Sink:      sink,
		Jobs:      jobs,
		Queue:     c.Queue,
		Log:       logger,
	})
	return c, nil
}

// LoadTemplates reads dir and always includes the built-in template.
func LoadTemplates(dir string) (*cardtemplate.Store, error) {
	templates := cardtemplate.NewStore()
	if dir != "" {
		loaded, err := cardtemplate.LoadDir(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("template dir %s not found, using built-in template", dir)
		case err != nil:
			return nil, fmt.Errorf("load templates: %w", err)
		default:
			templates = loaded
		}
	}
	if _, err := templates.Get(cardtemplate.Default().ID); err != nil {
		templates.Put(cardtemplate.Default())
	}
	return templates, nil
}

// Fonts loads the configured typeface or falls back to the built-in one.
func Fonts(cfg config.App) *surface.Fonts {
	if cfg.FontRegularPath == "" {
		return surface.BuiltinFonts()
	}
	return surface.LoadFonts(cfg.FontRegularPath, cfg.FontBoldPath)
}

// Sink stores documents in OutputDir and mirrors them to Cloudinary when
// credentials are set.
func Sink(cfg config.App, logger *slog.Logger) (artifact.Sink, error) {
	local, err := artifact.NewLocalDir(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	if !cfg.CloudinaryEnabled() {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
		return local, nil
	}
	log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	return artifact.NewMirror(local, logger, artifact.NewCloudinary(cdn)), nil
}
