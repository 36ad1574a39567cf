package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/app"
	"github.com/ayusman/arsticker/internal/capture"
	"github.com/ayusman/arsticker/internal/config"
	"github.com/ayusman/arsticker/internal/detector"
	"github.com/ayusman/arsticker/internal/logging"
	"github.com/ayusman/arsticker/internal/placement"
	"github.com/ayusman/arsticker/internal/render"
	"github.com/ayusman/arsticker/internal/server"
	"github.com/ayusman/arsticker/internal/sticker"
	"github.com/ayusman/arsticker/internal/store"
	"github.com/ayusman/arsticker/internal/tray"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arsticker: %v\n", err)
		os.Exit(2)
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(cfg.DataDir, "logs", "arsticker.log")
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, File: logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "arsticker: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("arsticker stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.WithField("path", st.Path()).Info("sticker catalog opened")

	surface, err := render.NewSurface(render.Backend(cfg.Backend), cfg.Width, cfg.Height)
	if err != nil {
		return err
	}

	loader := sticker.NewSourceLoader()
	engine := app.New(app.Config{
		Camera:          capture.NewCameraWithSize(cfg.Camera, cfg.Width, cfg.Height),
		Detector:        newDetector(cfg, log),
		Surface:         surface,
		Loader:          loader,
		Log:             log.WithField("component", "engine"),
		Placement:       placementConfig(cfg),
		PinchThreshold:  cfg.PinchThreshold,
		Snap:            cfg.Snap,
		Adjustment:      placement.NoAdjustment(),
		Overlay:         render.Options{Skeleton: cfg.Skeleton, DebugMarks: cfg.DebugMarks},
		StreamFPS:       cfg.StreamFPS,
		JPEGQuality:     cfg.JPEGQuality,
		MotionThreshold: cfg.MotionThreshold,
	})
	restorePreferences(cfg, st, engine, log)

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer engine.Stop()

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.WithField("dir", webDir).Info("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Engine:    engine,
		Loader:    loader,
		StreamFPS: cfg.StreamFPS,
		Log:       log.WithField("component", "http"),
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(cfg.Addr) }()

	if cfg.Tray {
		runTray(ctx, stop, cfg, engine, log)
	} else {
		select {
		case <-ctx.Done():
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := engine.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newDetector(cfg config.Config, log logrus.FieldLogger) detector.Detector {
	dc := detector.DefaultConfig()
	dc.ScriptPath = cfg.HolisticScript
	dc.PythonPath = cfg.Python
	dc.StartTimeout = cfg.ModelTimeout

	d, err := detector.NewHolisticDetector(dc)
	if err != nil {
		log.WithError(err).Warn("holistic landmarker unavailable, nothing will be tracked")
		return detector.NewMockDetector()
	}
	return d
}

func placementConfig(cfg config.Config) placement.Config {
	pc := placement.DefaultConfig()
	pc.HitRadiusFactor = cfg.HitRadiusFactor
	pc.CaptureRadius = cfg.CaptureRadius
	pc.Smoothing.Enabled = cfg.Smoothing
	if cfg.FPS > 0 {
		pc.Smoothing.Dt = 1 / float64(cfg.FPS)
	}
	return pc
}

// restorePreferences applies the controls and sticker saved by the last run.
// Placement itself always starts fresh.
func restorePreferences(cfg config.Config, st *store.Store, engine *app.App, log logrus.FieldLogger) {
	p, err := st.Settings().LoadPreferences(store.Preferences{
		Snap:            cfg.Snap,
		ScaleMultiplier: 1,
	})
	if err != nil {
		log.WithError(err).Warn("ignoring stored preferences")
		return
	}

	engine.SetSnap(p.Snap)
	if err := engine.SetAdjustment(placement.Adjustment{
		ScaleMultiplier: p.ScaleMultiplier,
		RotationDegrees: p.RotationDegrees,
	}); err != nil {
		log.WithError(err).Warn("ignoring stored adjustment")
	}

	if p.ActiveSticker == "" {
		return
	}
	s, err := st.Stickers().GetByID(p.ActiveSticker)
	if err != nil {
		log.WithError(err).WithField("id", p.ActiveSticker).Warn("stored sticker unavailable")
		return
	}
	engine.SetSticker(s.Source)
	log.WithField("name", s.Name).Info("restored sticker")
}

// runTray blocks in the tray event loop until the user quits or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, cfg config.Config, engine *app.App, log logrus.FieldLogger) {
	t := tray.New(engine.Controls().Snap)
	t.OnSnap(func(enabled bool) {
		engine.SetSnap(enabled)
		log.WithField("snap", enabled).Info("snap toggled from tray")
	})
	t.OnClear(engine.ClearSticker)
	t.OnOpenUI(func() {
		if err := openBrowser(uiURL(cfg.Addr)); err != nil {
			log.WithError(err).Warn("failed to open browser")
		}
	})
	t.OnQuit(stop)

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				s := engine.Snapshot()
				t.SetSnap(s.Controls.Snap)
				t.SetSticker(s.Sticker)
			}
		}
	}()

	t.Run()
}

func uiURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
