// Package app is the mdedit command line host. It wires configuration,
// logging and the editing engine to cobra commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mdedit/internal/config"
	"mdedit/internal/editor"
	mdlog "mdedit/internal/log"
	"mdedit/internal/style"
)

var version = "dev"

type App struct {
	v       *viper.Viper
	cfg     config.Config
	cfgFile string

	sheet *style.Sheet
	log   *slog.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	readClipboard func() (string, error)

	root *cobra.Command
}

type Option func(*App)

// WithIO replaces the standard streams.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.in, a.out, a.errOut = in, out, errOut
	}
}

func WithClipboard(read func() (string, error)) Option {
	return func(a *App) { a.readClipboard = read }
}

func New(opts ...Option) *App {
	a := &App{
		v:             viper.New(),
		cfg:           config.Defaults(),
		in:            os.Stdin,
		out:           os.Stdout,
		errOut:        os.Stderr,
		log:           mdlog.Discard(),
		readClipboard: clipboard.ReadAll,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = a.rootCommand()
	return a
}

// Run executes the command line in os.Args until it finishes or the process
// is interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return a.Execute(ctx, os.Args[1:])
}

func (a *App) Execute(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mdedit",
		Short:         "A Markdown backed rich text editing engine",
		Long:          `mdedit keeps Markdown, styled text and a document tree in sync. Its commands render, edit and store documents from the terminal.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ~/.config/mdedit/config.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().String("color", "", "color profile: auto, ascii, ansi, ansi256 or truecolor")

	// Bind flags to viper
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("render.color_profile", root.PersistentFlags().Lookup("color"))

	root.AddCommand(
		a.renderCommand(),
		a.roundtripCommand(),
		a.editCommand(),
		a.openCommand(),
		a.pasteCommand(),
		a.previewCommand(),
		a.configCommand(),
	)
	return root
}

func (a *App) initConfig() error {
	if err := config.SetDefaults(a.v, config.Defaults()); err != nil {
		return err
	}
	a.v.SetEnvPrefix("MDEDIT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		// Config lookup order:
		// 1. .mdedit/config.yaml (current directory)
		// 2. ~/.config/mdedit/config.yaml (user config)
		if _, err := os.Stat(".mdedit/config.yaml"); err == nil {
			a.v.SetConfigFile(".mdedit/config.yaml")
		} else if path, err := config.DefaultPath(); err == nil {
			a.v.SetConfigFile(path)
		}
	}

	if err := a.v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if a.cfgFile != "" || !(notFound || os.IsNotExist(err)) {
			return fmt.Errorf("reading config: %w", err)
		}
		// No config file anywhere: run on defaults.
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	level, err := mdlog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	sheet, err := cfg.Sheet()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.sheet = sheet
	a.log = mdlog.New(a.errOut, level)
	mdlog.For(a.log, mdlog.CatConfig).Debug("config loaded",
		"file", a.v.ConfigFileUsed(), "metrics", cfg.Metrics, "profile", cfg.Render.ColorProfile)
	return nil
}

func (a *App) newState(opts ...editor.Option) *editor.State {
	opts = append([]editor.Option{editor.WithLogger(a.log)}, opts...)
	return editor.New(a.sheet, opts...)
}
