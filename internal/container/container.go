// Package container wires the mattax components from configuration.
package container

import (
	"context"
	"fmt"
	"io"
	"time"

	"softetsolutions/mattax/internal/backend"
	"softetsolutions/mattax/internal/config"
	"softetsolutions/mattax/internal/feed"
	"softetsolutions/mattax/internal/form"
	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
	"softetsolutions/mattax/internal/receipt"
	"softetsolutions/mattax/internal/report"
	"softetsolutions/mattax/internal/resolver"
)

// Container holds the application's dependencies. It is immutable after
// creation; the accessors return shared instances.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	session   models.Session
	service   backend.Service
	resolver  *resolver.Resolver
	merger    *receipt.Merger
	extractor receipt.Extractor
	builder   *payload.Builder
	reports   *report.Generator

	closers []io.Closer
}

// Option customises NewContainer.
type Option func(*options)

type options struct {
	logger  logging.Logger
	service backend.Service
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithService replaces the HTTP backend client, typically with a
// backend.MockService.
func WithService(s backend.Service) Option {
	return func(o *options) { o.service = s }
}

// NewContainer creates and wires all dependencies for cfg.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	c := &Container{
		logger: logger,
		config: cfg,
		session: models.Session{
			Token:  cfg.Session.Token,
			UserID: cfg.Session.UserID,
		},
	}

	c.service = o.service
	if c.service == nil {
		client, err := backend.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}
		c.service = client
	}

	c.resolver = resolver.New(c.service, logger)
	c.merger = receipt.NewMerger(c.resolver, logger)
	c.builder = payload.NewBuilder(logger)

	switch cfg.Receipt.Extractor {
	case config.ExtractorGemini:
		gemini, err := receipt.NewGeminiExtractor(ctx, cfg.AI.APIKey, cfg.AI.Model, logger)
		if err != nil {
			return nil, err
		}
		c.extractor = receipt.WithTimeout(gemini, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
		c.closers = append(c.closers, gemini)
	default:
		c.extractor = c.service
	}

	delimiter := ','
	if r := []rune(cfg.Report.Delimiter); len(r) > 0 {
		delimiter = r[0]
	}
	c.reports = report.NewGenerator(c.resolver, delimiter, logger)

	logger.Debug("Container initialized",
		logging.F("extractor", cfg.Receipt.Extractor),
		logging.F(logging.FieldUserID, c.session.UserID))
	return c, nil
}

// Logger returns the application logger.
func (c *Container) Logger() logging.Logger { return c.logger }

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config { return c.config }

// Session returns the configured user session.
func (c *Container) Session() models.Session { return c.session }

// Service returns the backend.
func (c *Container) Service() backend.Service { return c.service }

// Resolver returns the shared entity resolver.
func (c *Container) Resolver() *resolver.Resolver { return c.resolver }

// Merger returns the receipt merger.
func (c *Container) Merger() *receipt.Merger { return c.merger }

// Extractor returns the configured receipt extractor.
func (c *Container) Extractor() receipt.Extractor { return c.extractor }

// Reports returns the report generator.
func (c *Container) Reports() *report.Generator { return c.reports }

// FormDeps returns the collaborators of a transaction form.
func (c *Container) FormDeps() form.Deps {
	return form.Deps{
		Resolver:  c.resolver,
		Merger:    c.merger,
		Extractor: c.extractor,
		Builder:   c.builder,
		Writer:    c.service,
		Logger:    c.logger,
	}
}

// NewCreateForm opens a create flow for the configured session.
func (c *Container) NewCreateForm() *form.Controller {
	return form.NewCreate(c.session, c.FormDeps())
}

// NewEditForm opens an edit flow for tx.
func (c *Container) NewEditForm(tx models.Transaction) *form.Controller {
	return form.NewEdit(c.session, c.FormDeps(), tx)
}

// Feed returns a controller over the live transactions, or over the deleted
// bin when deleted is true.
func (c *Container) Feed(deleted bool) *feed.Controller {
	source := feed.Source(c.service.ListTransactions)
	if deleted {
		source = c.service.ListDeletedTransactions
	}
	return feed.NewController(source, c.session, c.logger)
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	var firstErr error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.logger.Debug("Container closed")
	return firstErr
}
