package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/client/config"
	"github.com/dmitrijs2005/dropzone/internal/client/intake"
	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/client/remotestore"
	"github.com/dmitrijs2005/dropzone/internal/client/resolver"
	"github.com/dmitrijs2005/dropzone/internal/client/services"
	"github.com/dmitrijs2005/dropzone/internal/client/view"
	"github.com/dmitrijs2005/dropzone/internal/client/webapi"
	"github.com/dmitrijs2005/dropzone/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

var (
	errNotBound       = errors.New(remotestore.MsgBindingMissing)
	errParentRequired = errors.New("parent record id is not configured (use -p)")
)

type App struct {
	config    *config.Config
	session   services.SessionService
	store     services.FileStore
	resolve   func(ctx context.Context) *models.RelationshipBinding
	validator *intake.Validator
	opts      models.AttachmentOptions
	policy    services.FailurePolicy
	log       logging.Logger

	modeMu sync.Mutex
	Mode   Mode

	mu         sync.Mutex
	controller *services.SyncController
	uploader   *services.UploadOrchestrator
	progress   *progressPrinter
	view       view.State

	watchMu     sync.Mutex
	watchDir    string
	watchCancel context.CancelFunc
}

// NewApp wires the HTTP transport, resolver and store for c. When a client
// id is configured without a secret the secret is read from the terminal.
func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	policy, err := services.ParseFailurePolicy(c.UploadFailurePolicy)
	if err != nil {
		return nil, err
	}

	secret := []byte(c.ClientSecret)
	if len(secret) == 0 && c.ClientID != "" {
		secret, err = GetSecret(fmt.Sprintf("Client secret for %s", c.ClientID), os.Stdout)
		if err != nil {
			return nil, fmt.Errorf("read client secret: %w", err)
		}
	}

	api, err := webapi.NewHTTPClient(webapi.Options{
		BaseURL:           c.ServerURL,
		ClientID:          c.ClientID,
		ClientSecret:      secret,
		HealthAddr:        c.HealthAddr,
		RequestTimeout:    c.RequestTimeout,
		MetadataCacheSize: c.MetadataCacheSize,
	}, log)
	if err != nil {
		return nil, err
	}

	res := resolver.New(api, log)
	resolve := func(ctx context.Context) *models.RelationshipBinding {
		return res.Resolve(ctx, c.Relationship, c.ParentEntity)
	}

	return newApp(c, services.NewSessionService(api), remotestore.New(api, log), resolve, policy, log), nil
}

func newApp(c *config.Config, session services.SessionService, store services.FileStore,
	resolve func(ctx context.Context) *models.RelationshipBinding, policy services.FailurePolicy, log logging.Logger) *App {
	if log == nil {
		log = logging.Nop()
	}
	return &App{
		config:    c,
		session:   session,
		store:     store,
		resolve:   resolve,
		validator: intake.NewValidator(c.IntakeRules()),
		opts:      c.AttachmentOptions(),
		policy:    policy,
		log:       log.With("module", "cli"),
		Mode:      ModeOffline,
	}
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) getMode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.Mode
}

// Run signs in, starts the online status watcher and blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	defer a.session.Close(ctx)
	defer a.stopWatch()
	a.Root(ctx)
}

// bound returns the controller, resolving the relationship on first use.
// Resolution is retried on every call until it succeeds.
func (a *App) bound(ctx context.Context) (*services.SyncController, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.controller != nil {
		return a.controller, nil
	}
	if a.config.ParentID == "" {
		return nil, errParentRequired
	}

	b := a.resolve(ctx)
	if b == nil {
		return nil, errNotBound
	}

	a.controller = services.NewSyncController(a.store, b, a.config.ParentID, a.opts, a.log)
	a.uploader = services.NewUploadOrchestrator(a.store, a.controller, a.policy, a.log)
	a.progress = newProgressPrinter()
	a.controller.OnChange(a.progress.observe)

	a.log.Info(ctx, "relationship bound",
		"parent_entity", b.ParentEntity, "child_entity", b.ChildEntity, "parent_id", a.config.ParentID)
	return a.controller, nil
}

func (a *App) submit(ctx context.Context, c *services.SyncController, files []models.RawFile) services.BatchResult {
	a.mu.Lock()
	up := a.uploader
	a.mu.Unlock()
	return up.Submit(ctx, c.Binding(), c.ParentID(), files, a.opts)
}

// StartOnlineStatusWatcher pings the store every interval and flips Mode
// accordingly. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 3 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.session.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
