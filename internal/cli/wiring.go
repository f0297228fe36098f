package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"assessment-service/internal/app"
	"assessment-service/internal/catalog"
	"assessment-service/internal/config"
	"assessment-service/internal/domain"
	"assessment-service/internal/i18n"
	"assessment-service/internal/infra/memory"
	"assessment-service/internal/infra/postgres"
	infraredis "assessment-service/internal/infra/redis"
	"assessment-service/internal/infra/sheets"
	"assessment-service/internal/infra/smtp"
	"assessment-service/internal/notify"
	"assessment-service/internal/report"
	transport "assessment-service/internal/transport/http"
)

const defaultCatalogID = "cbk-corf"

// services is everything the commands need, built once from config.
type services struct {
	cfg           config.Config
	redis         *redis.Client
	pool          *pgxpool.Pool
	catalogs      app.CatalogRepository
	sessions      app.SessionRepository
	sweeper       *memory.SessionStore
	bundle        *i18n.Bundle
	renderer      *report.PDFRenderer
	composer      *notify.Composer
	dispatcher    *app.Dispatcher
	assessments   *app.AssessmentService
	consultations *app.ConsultationService
}

func (s *services) catalogID() string {
	if s.cfg.Catalog.ID != "" {
		return s.cfg.Catalog.ID
	}
	return defaultCatalogID
}

func (s *services) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &services{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
	}

	loader, err := catalogLoader(cfg, s.pool)
	if err != nil {
		return nil, err
	}
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Session.TTL, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	if s.redis != nil {
		s.catalogs = infraredis.NewCatalogRepository(s.redis, loader, catalogTTL)
		s.sessions = infraredis.NewSessionStore(s.redis, sessionTTL)
	} else {
		s.catalogs = memory.NewCatalogRepository(loader, catalogTTL)
		s.sweeper = memory.NewSessionStore(sessionTTL)
		s.sessions = s.sweeper
	}

	s.bundle = i18n.Default()
	if cfg.Report.LocalesFile != "" {
		if s.bundle, err = i18n.LoadFile(cfg.Report.LocalesFile); err != nil {
			return nil, err
		}
	}
	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, err
	}
	brand := brandFromConfig(cfg)
	s.renderer = report.NewPDFRenderer(cfg.Report.Font, cfg.Report.BoldFont)
	s.composer, err = notify.NewComposer(s.bundle, notify.Settings{
		Title:            brand.Title,
		BrandName:        brand.Name,
		Tagline:          brand.Tagline,
		ReplyTo:          cfg.Notifications.ReplyTo,
		AppointmentEmail: cfg.Notifications.AppointmentEmail,
		Location:         cfg.Location(),
	})
	if err != nil {
		return nil, err
	}

	mail, err := mailSender(cfg)
	if err != nil {
		return nil, err
	}
	rows, err := rowAppender(ctx, cfg, s.pool)
	if err != nil {
		return nil, err
	}

	s.dispatcher = app.NewDispatcher(app.DispatcherConfig{
		Mail:               mail,
		Rows:               rows,
		Renderer:           s.renderer,
		Composer:           s.composer,
		Catalogs:           s.catalogs,
		CatalogID:          s.catalogID(),
		Classifier:         classifier,
		Bundle:             s.bundle,
		Brand:              brand,
		InternalRecipients: cfg.Notifications.InternalRecipients,
		Sheet:              cfg.Sheets.SubmissionSheet,
		Timeout:            config.TTLDuration(cfg.Notifications.DeliveryTimeout, time.Minute),
	})
	s.assessments = app.NewAssessmentService(s.sessions, s.catalogs, s.catalogID(), s.dispatcher,
		app.WithValidator(domain.NewRespondentValidator(cfg.Catalog.BlockedEmailDomains)),
		app.WithClassifier(classifier),
		app.WithBundle(s.bundle),
		app.WithBrand(brand),
	)
	consultationRecipients := cfg.Notifications.ConsultationRecipients
	if len(consultationRecipients) == 0 {
		consultationRecipients = cfg.Notifications.InternalRecipients
	}
	s.consultations = app.NewConsultationService(mail, rows, s.composer, cfg.Sheets.ConsultationSheet, consultationRecipients)
	ok = true
	return s, nil
}

// catalogLoader resolves catalogs from a file, then Postgres, then the embedded default.
func catalogLoader(cfg config.Config, pool *pgxpool.Pool) (catalog.Loader, error) {
	var chain catalog.Chain
	if cfg.Catalog.File != "" {
		c, err := catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		chain = append(chain, catalog.NewStaticLoader(c))
	}
	if pool != nil {
		chain = append(chain, postgres.NewCatalogStore(pool))
	}
	return append(chain, catalog.NewStaticLoader(catalog.Default())), nil
}

func brandFromConfig(cfg config.Config) report.Brand {
	b := report.DefaultBrand()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&b.Title, cfg.Report.Title)
	set(&b.Name, cfg.Report.BrandName)
	set(&b.Tagline, cfg.Report.Tagline)
	set(&b.Copyright, cfg.Report.Copyright)
	set(&b.Description, cfg.Report.Description)
	set(&b.CoverImage, cfg.Report.CoverImage)
	set(&b.LogoImage, cfg.Report.LogoImage)
	return b
}

// mailSender uses SMTP when a host is configured and otherwise logs messages.
func mailSender(cfg config.Config) (app.EmailSender, error) {
	if cfg.SMTP.Host == "" {
		log.Printf("smtp not configured, emails are logged only")
		outbox := memory.NewOutbox()
		outbox.Verbose = true
		return outbox, nil
	}
	return smtp.NewSender(smtp.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		Secure:   cfg.SMTP.Secure,
		From:     cfg.SMTP.From,
	})
}

// rowAppender prefers the spreadsheet, then Postgres, then memory.
func rowAppender(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (app.RowAppender, error) {
	if cfg.Sheets.SpreadsheetID != "" {
		creds := []byte(cfg.Sheets.CredentialsJSON)
		if cfg.Sheets.CredentialsFile != "" {
			data, err := os.ReadFile(cfg.Sheets.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("read sheets credentials: %w", err)
			}
			creds = data
		}
		return sheets.NewAppender(ctx, cfg.Sheets.SpreadsheetID, creds)
	}
	if pool != nil {
		return postgres.NewRowStore(pool), nil
	}
	log.Printf("no spreadsheet or database configured, rows are kept in memory")
	return memory.NewSheetStore(), nil
}

func (s *services) handler() *transport.Handler {
	return transport.NewHandler(s.assessments, s.dispatcher, s.consultations, s.renderer)
}

func (s *services) healthChecks() map[string]transport.HealthCheck {
	checks := map[string]transport.HealthCheck{}
	if s.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return s.redis.Ping(ctx).Err() }
	}
	if s.pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return s.pool.Ping(ctx) }
	}
	return checks
}
