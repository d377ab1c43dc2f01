package bootstrap

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go-amadeus/internal/bot"
	"go-amadeus/internal/commands"
	"go-amadeus/internal/config"
	"go-amadeus/internal/database"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/security"
	"go-amadeus/internal/server"
)

const sweepInterval = time.Minute

type Bootstrap struct {
	Config     *config.Config
	Components *Components

	lastSweepNanos int64
	initialized    bool
}

func New(cfg *config.Config) *Bootstrap {
	return &Bootstrap{Config: cfg}
}

// Initialize sets up logging, opens the database and wires the components.
// Nothing talks to Discord yet.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	if err := logging.InitGlobalLogger(logging.ParseLevel(b.Config.Log.Level), b.Config.Log.File); err != nil {
		return errors.Wrap(err, "logging init failed")
	}

	db, err := database.Open(b.Config.Database.Path)
	if err != nil {
		return errors.WithMessage(err, "database init failed")
	}
	logging.Info("Database ready at %s", b.Config.Database.Path)

	session, err := bot.NewSession(b.Config.Bot.Token, b.Config.Bot.GuildID)
	if err != nil {
		_ = db.Close()
		return err
	}

	c, err := Wire(ctx, b, db, session)
	if err != nil {
		_ = db.Close()
		return errors.WithMessage(err, "component wiring failed")
	}
	b.Components = c
	b.initialized = true
	logging.Info("Bootstrap complete")
	return nil
}

// Run connects to Discord, registers the slash commands and serves until ctx
// is cancelled or a background task fails. Shutdown always runs.
func (b *Bootstrap) Run(ctx context.Context) error {
	if !b.initialized {
		return errors.New("bootstrap not initialized")
	}
	c := b.Components
	defer Shutdown(c)

	if err := c.Session.Connect(); err != nil {
		return err
	}
	if err := c.Session.RegisterCommands(commands.GetAllCommands()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.sweepRateWindows(gctx, c.RateGate)
		return nil
	})
	g.Go(func() error {
		c.Watchdog.Run(gctx)
		return nil
	})
	if addr := b.Config.HTTP.Address; addr != "" {
		handler, err := server.NewHTTPHandler(server.Dependencies{
			Metrics:    c.Metrics,
			Database:   c.Database,
			Components: c.Watchdog,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return server.Run(gctx, addr, handler)
		})
	}

	logging.Info("Amadeus is running")
	return g.Wait()
}

func (b *Bootstrap) sweepRateWindows(ctx context.Context, gate *security.RateGate) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	b.markSweep(time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := gate.Sweep(now); n > 0 {
				logging.Debug("[SECURITY] Dropped %d idle rate windows", n)
			}
			b.markSweep(now)
		}
	}
}

func (b *Bootstrap) markSweep(at time.Time) {
	atomic.StoreInt64(&b.lastSweepNanos, at.UnixNano())
}

func (b *Bootstrap) lastSweep() time.Time {
	ns := atomic.LoadInt64(&b.lastSweepNanos)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
