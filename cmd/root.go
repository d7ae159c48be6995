package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/config"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/log"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/session"
	"github.com/theirongolddev/exptrack/internal/store"
	"github.com/theirongolddev/exptrack/internal/tui/theme"

	"github.com/spf13/cobra"
)

var (
	flagAPIURL   string
	flagQuiet    bool
	flagNoCache  bool
	flagLogLevel string
	flagTheme    string
)

var rootCmd = &cobra.Command{
	Use:           "exptrack",
	Short:         "Expense tracker terminal client",
	Long:          "Track expenses against an expense-tracker server: ledger, statistics, monthly summaries and predictions.",
	RunE:          runOverview,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError("  "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Expense API root (overrides config and "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the snapshot cache")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagTheme, "theme", "", "Color theme ("+strings.Join(theme.Names(), ", ")+")")
}

// appEnv bundles the collaborators every command needs.
type appEnv struct {
	cfg    config.Config
	log    *log.Logger
	client *api.Client
	cache  *store.Cache
	snaps  store.Snapshots
	mgr    *session.Manager

	closers []io.Closer
}

// openEnv loads configuration and wires the API client, session manager and
// caches. logToFile routes logs away from the terminal.
func openEnv(logToFile bool) (*appEnv, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.API.BaseURL = config.GetAPIURL(cfg)
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if flagTheme != "" {
		cfg.Appearance.Theme = flagTheme
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &appEnv{cfg: cfg}
	if err := e.openLogger(logToFile); err != nil {
		return nil, err
	}

	if !theme.SetActive(cfg.Appearance.Theme) {
		e.log.Warn("unknown theme, using default", "theme", cfg.Appearance.Theme)
	}
	if cfg.General.Currency != "" {
		cli.CurrencySymbol = cfg.General.Currency
	}

	e.client, err = api.NewClient(cfg.API.BaseURL, api.WithTimeout(cfg.Timeout()))
	if err != nil {
		e.Close()
		return nil, err
	}

	cache, err := store.Open(store.DefaultPath())
	if err != nil {
		e.log.Warn("local store unavailable", log.FieldError, err)
		if !flagQuiet {
			fmt.Fprintln(os.Stderr, cli.RenderWarning("  Local store unavailable; login will not be remembered."))
		}
	} else {
		e.cache = cache
		e.closers = append(e.closers, cache)
	}

	var creds store.Credentials
	switch {
	case config.GetToken() != "":
		creds = store.NewMemoryCredentials(config.GetToken())
	case e.cache != nil:
		creds = e.cache
	default:
		creds = store.NewMemoryCredentials("")
	}

	e.openSnapshots()

	e.mgr = session.NewManager(e.client, creds, session.WithLogger(e.log))
	e.client.SetUnauthorizedHook(e.mgr.HandleUnauthorized)
	return e, nil
}

func (e *appEnv) openLogger(logToFile bool) error {
	levelName := e.cfg.Log.Level
	if flagLogLevel != "" {
		levelName = flagLogLevel
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return err
	}

	path := e.cfg.Log.File
	if path == "" && logToFile {
		path = filepath.Join(store.Dir(), "exptrack.log")
	}
	if path == "" {
		e.log = log.New(log.Config{Level: level})
		return nil
	}

	handler, closer, err := log.OpenFile(path, level)
	if err != nil {
		return err
	}
	e.closers = append(e.closers, closer)
	e.log = log.New(log.Config{Level: level, Handler: handler})
	return nil
}

// openSnapshots selects the snapshot backend. Redis falls back to SQLite
// when it cannot be reached.
func (e *appEnv) openSnapshots() {
	if flagNoCache {
		return
	}
	if e.cfg.Cache.Backend == config.BackendRedis {
		if redisURL := config.GetRedisURL(e.cfg); redisURL != "" {
			rs, err := store.OpenRedis(redisURL)
			if err == nil {
				e.snaps = rs
				e.closers = append(e.closers, rs)
				return
			}
			e.log.Warn("redis unavailable, using sqlite snapshots", log.FieldBackend, config.BackendRedis, log.FieldError, err)
		}
	}
	if e.cache != nil {
		e.snaps = e.cache
	}
}

// newDashboard builds an empty dashboard bound to the current session.
func (e *appEnv) newDashboard() *dashboard.Dashboard {
	opts := []dashboard.Option{dashboard.WithLogger(e.log)}
	if e.snaps != nil {
		opts = append(opts, dashboard.WithCache(e.snaps))
	}
	return dashboard.New(e.client, e.mgr, opts...)
}

// Close releases the store, the Redis client and the log file.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

// resume restores the persisted session.
func (e *appEnv) resume(ctx context.Context) (model.Session, error) {
	sess, err := e.mgr.Resume(ctx)
	if err != nil {
		return model.Session{}, commandError("", err)
	}
	return sess, nil
}

// loadView restores cached snapshots and then fetches with refresh. A
// network or server failure falls back to the cached view with a warning.
func (e *appEnv) loadView(ctx context.Context, d *dashboard.Dashboard, view model.View, action string,
	refresh func(context.Context) error) error {
	d.LoadCached()
	err := refresh(ctx)
	if err == nil {
		return nil
	}
	if !useCached(err, e.mgr.State(), d.Loaded(view)) {
		return commandError(action, err)
	}
	if !flagQuiet {
		fmt.Fprintln(os.Stderr, cli.RenderWarning(fmt.Sprintf("  %s Showing cached data from %s.",
			cli.ErrorMessage(action, err), cli.FormatAge(d.FetchedAt(view), timeNow()))))
	}
	return nil
}

// useCached reports whether a failed fetch may still print cached figures.
// Cached data is never shown once the session has ended, whatever error the
// fetch surfaced.
func useCached(err error, state session.State, haveCache bool) bool {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrNotLoggedIn) {
		return false
	}
	return state != session.StateLoggedOut && haveCache
}

// commandError maps err onto the message printed for a failed command.
func commandError(action string, err error) error {
	msg := cli.ErrorMessage(action, err)
	if errors.Is(err, api.ErrUnauthorized) && action != cli.ActionLogin && action != cli.ActionSignup {
		return errors.New(msg + " Run `exptrack login`.")
	}
	if errors.Is(err, session.ErrNotLoggedIn) {
		return errors.New(msg + " Run `exptrack login`.")
	}
	return errors.New(msg)
}

func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
}
