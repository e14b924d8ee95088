// Package generate runs the installer build pipeline for one request:
// validate ids, look them up in the catalog, plan, render, then store and
// package the build.
//
// Validation runs before any I/O. Once a request is past validation the caller's
// cancellation no longer applies, so a disconnecting client never leaves a half
// written build behind.
package generate

import (
	"context"
	"errors"
	"path"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/async"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/builds"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/catalog"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/plan"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/script"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/validation"
)

// DefaultDownloadPrefix is the route builds are served under
const DefaultDownloadPrefix = "/api/downloads"

// Publisher mirrors a finished build somewhere else
type Publisher interface {
	Publish(ctx context.Context, build *builds.Build) error
}

// Options configures a Service
type Options struct {
	MaxApps        int
	DownloadPrefix string
	// PublishTimeout bounds a background Publish call
	PublishTimeout time.Duration
}

// Result is a successful generate response
type Result struct {
	SelectedApps    []catalog.Item      `json:"selectedApps"`
	GeneratedScript string              `json:"generatedScript"`
	DownloadURL     string              `json:"downloadUrl"`
	GeneratedAt     time.Time           `json:"generatedAt"`
	BuildID         string              `json:"buildId"`
	ArtifactKind    builds.ArtifactKind `json:"artifactKind"`
}

// Service runs the generate pipeline
type Service struct {
	lookup    catalog.Lookup
	renderer  *script.Renderer
	store     *builds.Store
	packager  builds.Packager
	publisher Publisher
	tasks     *async.Group
	opts      Options
	logger    *observability.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewService wires a pipeline. packager may be nil for script-only builds.
func NewService(lookup catalog.Lookup, store *builds.Store, packager builds.Packager, opts Options, logger *observability.Logger, metrics *observability.Metrics) (*Service, error) {
	renderer, err := script.NewRenderer()
	if err != nil {
		return nil, err
	}
	if opts.MaxApps <= 0 {
		opts.MaxApps = validation.DefaultMaxAppIDs
	}
	if opts.DownloadPrefix == "" {
		opts.DownloadPrefix = DefaultDownloadPrefix
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		lookup:   lookup,
		renderer: renderer,
		store:    store,
		packager: packager,
		opts:     opts,
		logger:   logger.WithField("component", "generate"),
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// WithPublisher mirrors every new build through p, in the background on tasks
func (s *Service) WithPublisher(p Publisher, tasks *async.Group) *Service {
	if tasks == nil {
		tasks = async.NewGroup(s.logger)
	}
	s.publisher = p
	s.tasks = tasks
	return s
}

// Generate builds an installer for rawIDs. Failures are *Error.
func (s *Service) Generate(ctx context.Context, rawIDs []string) (*Result, error) {
	start := time.Now()
	result, err := s.generate(ctx, rawIDs)

	outcome := "ok"
	var gerr *Error
	if errors.As(err, &gerr) {
		outcome = string(gerr.Kind)
	}
	s.metrics.RecordGenerate(outcome, time.Since(start))
	return result, err
}

func (s *Service) generate(ctx context.Context, rawIDs []string) (*Result, error) {
	log := observability.FromContext(ctx, s.logger)

	ids, err := validation.ValidateAppIDs(rawIDs, s.opts.MaxApps)
	if err != nil {
		gerr := fromValidation(err)
		log.WithField("kind", string(gerr.Kind)).Info("Generate request rejected")
		return nil, gerr
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := observability.StartSpan(ctx, "generate.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("kll.requested_apps", len(ids)))
	log = observability.WithTraceContext(ctx, log)

	ids = catalog.Unique(ids)

	var items []catalog.Item
	err = observability.Stage(ctx, "catalog.GetItemsByIDs", func(ctx context.Context) error {
		var err error
		items, err = s.lookup.GetItemsByIDs(ctx, ids)
		return err
	})
	if err != nil {
		observability.FailSpan(span, err, "catalog lookup failed")
		log.WithError(err).Error("Catalog lookup failed")
		return nil, &Error{Kind: KindCatalog, Message: "catalog unavailable", Err: err}
	}

	if missing := catalog.Missing(ids, items); len(missing) > 0 {
		log.WithField("missing", missing).Info("Generate request references unknown apps")
		return nil, appsNotFound(missing)
	}
	items = catalog.OrderByRequest(ids, items)

	installPlan := plan.Build(items)
	generatedAt := s.now().UTC()

	text, err := s.renderer.Render(installPlan, generatedAt)
	if err != nil {
		observability.FailSpan(span, err, "render failed")
		return nil, &Error{Kind: KindInternal, Message: "failed to render installer", Err: err}
	}

	var build *builds.Build
	err = observability.Stage(ctx, "builds.Create", func(ctx context.Context) error {
		var err error
		build, err = s.store.Create(ctx, installPlan, text, s.packager)
		return err
	})
	if err != nil {
		observability.FailSpan(span, err, "build failed")
		log.WithError(err).Error("Failed to create build")
		return nil, &Error{Kind: KindInternal, Message: "failed to create build", Err: err}
	}

	span.SetAttributes(
		attribute.String("kll.build_id", build.ID),
		attribute.String("kll.artifact_kind", string(build.ArtifactKind)),
		attribute.Int("kll.auto_install", len(installPlan.AutoInstall)),
		attribute.Int("kll.manual_only", len(installPlan.ManualOnly)),
	)

	log.WithFields(map[string]interface{}{
		"build_id":      build.ID,
		"artifact_kind": string(build.ArtifactKind),
		"auto":          len(installPlan.AutoInstall),
		"manual":        len(installPlan.ManualOnly),
	}).Info("Installer generated")

	s.publish(ctx, build)

	return &Result{
		SelectedApps:    items,
		GeneratedScript: text,
		DownloadURL:     path.Join(s.opts.DownloadPrefix, build.ID),
		GeneratedAt:     generatedAt,
		BuildID:         build.ID,
		ArtifactKind:    build.ArtifactKind,
	}, nil
}

func (s *Service) publish(ctx context.Context, build *builds.Build) {
	if s.publisher == nil {
		return
	}
	ctx = observability.WithBuildID(ctx, build.ID)
	s.tasks.Go(ctx, s.opts.PublishTimeout, "build mirror upload", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, build)
	})
}

func fromValidation(err error) *Error {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return &Error{Kind: KindInternal, Message: "validation failed", Err: err}
	}
	e := &Error{Message: verr.Error()}
	switch verr.Kind {
	case validation.KindEmptySelection:
		e.Kind = KindEmptySelection
	case validation.KindTooMany:
		e.Kind = KindTooMany
	default:
		e.Kind = KindInvalidFormat
	}
	return e
}
