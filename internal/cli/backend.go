package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mesh-intelligence/agencydesk/internal/controller"
	"github.com/mesh-intelligence/agencydesk/internal/logging"
	"github.com/mesh-intelligence/agencydesk/internal/memory"
	"github.com/mesh-intelligence/agencydesk/internal/metrics"
	"github.com/mesh-intelligence/agencydesk/internal/postgres"
	"github.com/mesh-intelligence/agencydesk/internal/rest"
	"github.com/mesh-intelligence/agencydesk/internal/sqlite"
	"github.com/mesh-intelligence/agencydesk/internal/view"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// openBackend constructs the backend cfg selects. The caller must Close it.
func (a *app) openBackend(ctx context.Context, cfg types.Config) (types.Backend, error) {
	switch cfg.Backend {
	case types.BackendSQLite:
		b := sqlite.NewBackend(a.component(logging.ComponentSQLite))
		if err := b.Attach(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("attach backend: %w", err)
		}
		return b, nil
	case types.BackendREST:
		return rest.NewClient(rest.Options{
			BaseURL:    cfg.APIURL,
			Token:      cfg.Token,
			HTTPClient: &http.Client{Timeout: cfg.RequestTimeout()},
			Logger:     a.component(logging.ComponentREST),
		})
	case types.BackendPostgres:
		return postgres.Open(ctx, cfg.DSN, a.component(logging.ComponentPostgres))
	case types.BackendMemory:
		return memory.NewSeeded()
	default:
		return nil, userError(fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend))
	}
}

// session is one collection opened for a command: the backend, a loaded
// controller, and a view over its store.
type session struct {
	cfg     types.Config
	spec    types.CollectionSpec
	backend types.Backend
	ctrl    *controller.Controller
	view    *view.View
}

// openSession opens the backend, loads collection into a controller, and
// builds a view sized by the config.
func (a *app) openSession(ctx context.Context, collection string) (*session, error) {
	spec, err := types.LookupCollection(collection)
	if err != nil {
		return nil, userError(fmt.Errorf("%w (valid: %s)", err, collectionNames()))
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	backend, err := a.openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gw, err := backend.Gateway(spec.Name)
	if err != nil {
		backend.Close()
		return nil, err
	}
	ctrl := controller.New(spec, gw, controller.Options{
		Concurrency: cfg.Concurrency,
		Logger:      a.component(logging.ComponentController),
		Recorder:    metrics.Default(),
	})

	loadCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()
	if err := ctrl.Load(loadCtx); err != nil {
		ctrl.Close()
		backend.Close()
		return nil, fmt.Errorf("load %s: %w", spec.Name, err)
	}
	return &session{
		cfg:     cfg,
		spec:    spec,
		backend: backend,
		ctrl:    ctrl,
		view:    view.New(spec, ctrl.Store(), cfg.PageSizeFor(spec)),
	}, nil
}

func (s *session) Close() error {
	s.ctrl.Close()
	return s.backend.Close()
}

// mutationContext bounds one gateway call by the configured timeout.
func (s *session) mutationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout())
}
