package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/i18n"
	"github.com/reoring/goserdes/internal/config"
	"github.com/reoring/goserdes/manifest"
	"github.com/reoring/goserdes/render"
)

var version = "dev"

// app carries what every subcommand shares once the config is resolved.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     config.Config
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	style   styles
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New(), stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "goserdes",
		Short:         "Load, convert and render records from JSON, YAML, TOML and INI documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./goserdes.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("templates", "", "templates directory")
	pf.StringSliceP("manifest", "m", nil, "kinds manifest (repeatable)")
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("templates_dir", pf.Lookup("templates"))
	_ = a.v.BindPFlag("manifest", pf.Lookup("manifest"))

	root.AddCommand(
		a.convertCmd(),
		a.formatsCmd(),
		a.loadCmd(),
		a.queryCmd(),
		a.renderCmd(),
		a.roundtripCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	lvl, _ := cfg.Level()
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: lvl}))
	i18n.SetLanguage(cfg.Language)
	a.style = newStyles(a.stdout)
	return nil
}

// engine builds an Engine over the kinds of every configured manifest.
func (a *app) engine() (*goserdes.Engine, error) {
	catalog := goserdes.NewCatalog()
	for _, path := range a.cfg.Manifests {
		m, err := manifest.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := m.Register(catalog); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		a.logger.Debug("manifest registered", "path", path, "kinds", len(m.Kinds))
	}
	renderer := render.New(os.DirFS(a.cfg.TemplatesDir), render.WithExtension(a.cfg.TemplateExt))
	return goserdes.New(
		goserdes.WithCatalog(catalog),
		goserdes.WithRenderer(renderer),
		goserdes.WithLogger(a.logger),
	), nil
}

// requireManifest fails early for commands that build records.
func (a *app) requireManifest() error {
	if len(a.cfg.Manifests) == 0 {
		return fmt.Errorf("no kinds declared: pass --manifest or set %s_MANIFEST", config.EnvPrefix)
	}
	return nil
}
