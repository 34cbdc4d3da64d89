package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/app"
	"github.com/ayusman/pinchglobe/internal/config"
	"github.com/ayusman/pinchglobe/internal/gesture"
	"github.com/ayusman/pinchglobe/internal/logging"
	"github.com/ayusman/pinchglobe/internal/plugin"
	"github.com/ayusman/pinchglobe/internal/server"
	"github.com/ayusman/pinchglobe/internal/sink"
	"github.com/ayusman/pinchglobe/internal/store"
	"github.com/ayusman/pinchglobe/internal/tray"
)

const (
	// sinkBuffer is the queue depth of each asynchronous sink.
	sinkBuffer    = 64
	pluginTimeout = 5 * time.Second
)

func main() {
	base, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logging.New(base.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.With(zap.String("session", uuid.NewString()))

	if err := run(base, log); err != nil {
		log.Fatal("pinchglobe stopped", zap.Error(err))
	}
}

func parseFlags(args []string) (config.AppConfig, error) {
	cfg := config.Default()

	fs := flag.NewFlagSet("pinchglobe", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DataDir, "data", "", "data directory (default ~/.pinchglobe)")
	fs.StringVar(&cfg.StaticDir, "web", "", "directory with the globe page (searched when empty)")
	fs.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "video device index")
	fs.StringVar(&cfg.VideoFile, "video", "", "replay a recorded video instead of the camera")
	fs.StringVar(&cfg.PluginDir, "plugins", "", "plugin directory (default <data>/plugins)")
	fs.StringVar(&cfg.ZMQAddr, "zmq", "", "publish events on this ZeroMQ endpoint, e.g. tcp://*:5556")
	fs.BoolVar(&cfg.Pointer, "pointer", false, "drive the OS pointer with the right hand")
	fs.BoolVar(&cfg.Tray, "tray", false, "show a system tray icon")
	fs.BoolVar(&cfg.ForceMock, "mock", false, "use the mock detector")
	fs.Float64Var(&cfg.MotionPct, "motion", cfg.MotionPct, "percent of changed pixels that counts as motion")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	fs.StringVar(&cfg.Log.File, "log-file", "", "also write JSON logs to this file")
	fs.BoolVar(&cfg.Log.Development, "dev", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".pinchglobe")
	}
	if cfg.PluginDir == "" {
		cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir(cfg.DataDir)
	}
	return cfg, nil
}

func run(base config.AppConfig, log *zap.Logger) error {
	if err := os.MkdirAll(base.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(filepath.Join(base.DataDir, "pinchglobe.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	settings, err := st.Settings().Map()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	cfg, err := config.Resolve(base, settings)
	if err != nil {
		return fmt.Errorf("apply stored settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(app.Options{Config: cfg, Log: log})
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("camera unavailable (is a webcam connected and may this program use it?): %w", err)
	}
	defer a.Stop()

	if cfg.ZMQAddr != "" {
		pub, err := sink.NewZMQPublisher(cfg.ZMQAddr, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		a.Bus().Forward(ctx, sinkBuffer, pub)
	}
	plugins := plugin.NewManager(cfg.PluginDir, log)
	if err := plugins.Discover(); err != nil {
		log.Warn("discover plugins", zap.String("dir", cfg.PluginDir), zap.Error(err))
	}
	if len(plugins.List()) > 0 {
		a.Bus().Forward(ctx, sinkBuffer, plugin.NewDispatcher(ctx, plugins, plugin.NewExecutor(pluginTimeout), log))
	}
	if cfg.Pointer {
		a.Bus().Forward(ctx, sinkBuffer, sink.NewPointerSink(gesture.RoleRight, sink.RobotDriver{}, log))
	}

	if cfg.StaticDir != "" {
		log.Info("serving globe page", zap.String("dir", cfg.StaticDir))
	}
	srv := server.New(server.Config{
		StaticDir: cfg.StaticDir,
		Store:     st,
		Preview:   a.Preview(),
		Bus:       a.Bus(),
		Scene:     a.Globe(),
		Log:       log,
		ValidateSetting: func(key, value string) error {
			settings, err := st.Settings().Map()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			_, err = config.Amend(base, settings, key, value)
			return err
		},
		SettingsChanged: func() {
			reload(st, base, a, log)
		},
		Status: a.Status,
	})

	errc := make(chan error, 2)
	go func() { errc <- srv.Run(ctx, cfg.Addr) }()
	go func() {
		<-a.Done()
		if err := a.Err(); err != nil {
			errc <- err
			return
		}
		if cfg.VideoFile != "" {
			log.Info("recording finished; still serving the final scene")
		}
	}()

	if cfg.Tray {
		t := tray.New()
		t.OnToggle(a.SetEnabled)
		t.OnOpen(func() { openBrowser(browserURL(cfg.Addr), log) })
		t.OnQuit(stop)
		a.Bus().Forward(ctx, sinkBuffer, t)

		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// systray owns the main goroutine until it quits.
		t.Run()
		stop()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errc:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// reload re-reads persisted settings and pushes them into the pipeline.
func reload(st *store.Store, base config.AppConfig, a *app.App, log *zap.Logger) {
	settings, err := st.Settings().Map()
	if err != nil {
		log.Error("reload settings", zap.Error(err))
		return
	}
	cfg, err := config.Resolve(base, settings)
	if err != nil {
		log.Error("reload settings", zap.Error(err))
		return
	}
	if cfg.CameraID != a.Config().CameraID {
		log.Warn("camera change takes effect after restart", zap.Int("camera_id", cfg.CameraID))
	}
	a.Reconfigure(cfg)
}

// findWebDir searches for the globe page in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string, log *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("open browser", zap.String("url", url), zap.Error(err))
	}
}
