package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/cutout/compose"
	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/server"
	"github.com/chaos-io/cutout/util"
)

// 构建时通过 ldflags 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type options struct {
	configPath string
	host       string
	port       int
	debug      bool
	remote     string
	in         string
	out        string
	background string
	crop       bool
	version    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("cutout failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("cutout", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&opts.host, "host", "", "Host to run the server on")
	fs.IntVar(&opts.port, "port", 0, "Port to run the server on")
	fs.BoolVar(&opts.debug, "debug", false, "Run in debug mode")
	fs.StringVar(&opts.remote, "remote", "", "Base URL of the U-2-Net model server, empty for local only")
	fs.StringVar(&opts.in, "in", "", "Remove the background of this image (path or http(s) URL) once and exit")
	fs.StringVar(&opts.out, "out", "", "Output PNG path for -in, default output/<id>_cutout.png")
	fs.StringVar(&opts.background, "background", "transparent", "Backdrop for -in: transparent, white, black, #rrggbb or a studio backdrop name")
	fs.BoolVar(&opts.crop, "crop", false, "Frame the subject in a square for -in")
	fs.BoolVar(&opts.version, "version", false, "Print version information")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.version {
		_, _ = fmt.Fprintf(stdout, "cutout %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, fs, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	slog.SetDefault(newLogger(cfg, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remover, monitor := newRemover(cfg)
	lib := compose.NewLibrary(cfg.Backdrops.Dir)

	if opts.in != "" {
		if monitor != nil {
			monitor.Probe(ctx)
		}
		return cutoutOnce(ctx, remover, lib, opts)
	}

	srvOpts := []server.Option{server.WithLibrary(lib)}
	if monitor != nil {
		if err := monitor.Start(); err != nil {
			return err
		}
		defer monitor.Stop()
		srvOpts = append(srvOpts, server.WithHealth(monitor))
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("starting cutout", "version", Version, "addr", cfg.Addr(), "remover", remover.Name(),
		"backdrops", lib.Dir(), "matte", cfg.Matte)
	return server.New(cfg, remover, srvOpts...).Run(ctx)
}

// applyFlags 命令行参数只覆盖显式设置的项
func applyFlags(cfg *config.Config, fs *flag.FlagSet, opts *options) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Server.Host = opts.host
		case "port":
			cfg.Server.Port = opts.port
		case "debug":
			cfg.Server.Debug = opts.debug
			if opts.debug {
				cfg.LogLevel = "debug"
			}
		case "remote":
			cfg.Remote.URL = opts.remote
		}
	})
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// newRemover 配置了远程模型服务时优先使用它，不可用时降级到本地抠图
func newRemover(cfg *config.Config) (rembg.Remover, *rembg.HealthMonitor) {
	local := rembg.NewLocalRemover(cfg.Matte)
	if cfg.Remote.URL == "" {
		return local, nil
	}

	remote := rembg.NewU2NetRemover(cfg.Remote.URL, cfg.Remote.Timeout)
	monitor := rembg.NewHealthMonitor(remote, cfg.Remote.HealthSchedule)
	return &rembg.FallbackRemover{
		Primary:   remote,
		Secondary: local,
		Monitor:   monitor,
	}, monitor
}

func cutoutOnce(ctx context.Context, remover rembg.Remover, lib *compose.Library, opts *options) error {
	defer util.Trace("cutout " + opts.in)()

	backdrop, err := compose.ParseBackdrop(opts.background, lib)
	if err != nil {
		return err
	}

	img, err := util.LoadImage(ctx, opts.in)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	method := remover.Name()
	var out image.Image
	if f, ok := remover.(*rembg.FallbackRemover); ok {
		out, method, err = f.RemoveWithMethod(ctx, img)
	} else {
		out, err = remover.Remove(ctx, img)
	}
	if err != nil {
		return fmt.Errorf("remove background: %w", err)
	}

	if opts.crop {
		framed, err := compose.Frame(out)
		if err != nil {
			return err
		}
		out = framed
	}

	path := opts.out
	if path == "" {
		path = filepath.Join("output", ksuid.New().String()+"_cutout.png")
	}
	if err := util.SavePNG(path, compose.Apply(out, backdrop)); err != nil {
		return err
	}

	slog.Info("Done!", "output", path, "method", method, "background", backdrop.Name)
	return nil
}
