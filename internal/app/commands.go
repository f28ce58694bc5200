package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"mdedit/internal/config"
	"mdedit/internal/editor"
	mdlog "mdedit/internal/log"
	"mdedit/internal/markdown"
	"mdedit/internal/platform/console"
	"mdedit/internal/render"
	"mdedit/internal/ui"
	"mdedit/pkg/mdoc"
	"mdedit/pkg/styled"
)

func (a *App) renderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render FILE",
		Short: "Print a Markdown file as styled terminal text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.parseFile(args[0])
			if err != nil {
				return err
			}
			return a.printStyled(text, styled.Range{})
		},
	}
}

func (a *App) roundtripCommand() *cobra.Command {
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "roundtrip FILE",
		Short: "Parse a Markdown file and print the Markdown generated back from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := markdown.FromMarkdown(a.sheet, string(src))
			if err != nil {
				return err
			}
			generated := markdown.Generate(a.sheet, text)
			if !showDiff {
				_, err = io.WriteString(a.out, generated)
				return err
			}
			_, err = io.WriteString(a.out, LineDiff(string(src), generated))
			return err
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a line diff against the input instead")
	return cmd
}

func (a *App) editCommand() *cobra.Command {
	var (
		opts    sessionOptions
		preview bool
	)
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Replay an editing script against a document",
		Long: `edit feeds a script of editing commands to the engine, one per line:

  type TEXT | type "quoted\ttext"   insert at the caret
  enter | backspace | delete        keys
  select LOC LEN | caret LOC        move the selection
  end | all                         caret at end, select everything
  bold | italic | heading | list    toggles
  paste TEXT                        paste at the caret
  close                             stop reading

Without --script the script is read from standard input. The resulting
Markdown is printed unless --preview asks for the editor screen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.runSession(opts)
			if err != nil {
				return err
			}
			if preview {
				return a.printShell(s.state, s.title)
			}
			_, err = io.WriteString(a.out, s.state.Markdown())
			return err
		},
	}
	cmd.Flags().StringVar(&opts.script, "script", "", "script file (default: standard input)")
	cmd.Flags().StringVar(&opts.markdown, "markdown", "", "Markdown file to start from")
	cmd.Flags().StringVar(&opts.save, "save", "", "store the session as a snapshot at this path")
	cmd.Flags().StringVar(&opts.password, "password", "", "encrypt the snapshot with this password")
	cmd.Flags().StringVar(&opts.title, "title", "", "snapshot title (default: file name)")
	cmd.Flags().BoolVar(&preview, "preview", false, "print the editor screen instead of Markdown")
	return cmd
}

func (a *App) openCommand() *cobra.Command {
	var (
		password string
		asMD     bool
		info     bool
	)
	cmd := &cobra.Command{
		Use:   "open PATH",
		Short: "Print a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, env, err := a.openSnapshot(args[0], password)
			if err != nil {
				return err
			}
			if info {
				return a.printInfo(snap, env)
			}
			st := a.newState()
			st.SetText(snap.Text)
			st.UpdateSelection(snap.Selection)
			if asMD {
				_, err = io.WriteString(a.out, st.Markdown())
				return err
			}
			return a.printStyled(st.Text(), st.Selection())
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password of an encrypted snapshot")
	cmd.Flags().BoolVar(&asMD, "markdown", false, "print Markdown instead of styled text")
	cmd.Flags().BoolVar(&info, "info", false, "print metadata and container layout")
	return cmd
}

func (a *App) pasteCommand() *cobra.Command {
	var mdPath string
	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Paste the clipboard at the end of a document and print the Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := a.newState()
			if mdPath != "" {
				src, err := os.ReadFile(mdPath)
				if err != nil {
					return err
				}
				if err := st.LoadMarkdown(string(src)); err != nil {
					return err
				}
			}
			clip, err := a.readClipboard()
			if err != nil {
				return fmt.Errorf("reading clipboard: %w", err)
			}
			st.UpdateSelection(styled.Range{Location: st.Text().Len()})
			if err := st.Paste(clip); err != nil {
				return err
			}
			_, err = io.WriteString(a.out, st.Markdown())
			return err
		},
	}
	cmd.Flags().StringVar(&mdPath, "markdown", "", "Markdown file to paste into")
	return cmd
}

func (a *App) previewCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Print the editor screen for a Markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := a.previewFile(path); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return a.watchPreview(cmd.Context(), path)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "redraw whenever the file changes")
	cmd.Flags().Int("width", 0, "screen width in cells")
	cmd.Flags().Int("height", 0, "screen height in cells")
	_ = a.v.BindPFlag("render.width", cmd.Flags().Lookup("width"))
	_ = a.v.BindPFlag("render.height", cmd.Flags().Lookup("height"))
	return cmd
}

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if len(args) == 1 {
				path, err = args[0], nil
			}
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "wrote %s\n", path)
			return err
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

type sessionOptions struct {
	script   string
	markdown string
	save     string
	password string
	title    string
}

type session struct {
	state   *editor.State
	backend *console.Backend
	title   string
}

// runSession replays a script until the backend closes. Events the engine
// rejects are logged and skipped.
func (a *App) runSession(opts sessionOptions) (*session, error) {
	var script io.Reader = a.in
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		script = f
	}

	backend, err := console.New(script, nil, a.log)
	if err != nil {
		return nil, err
	}
	st := a.newState(editor.WithHost(backend))
	backend.Attach(st)

	title := opts.title
	if opts.markdown != "" {
		src, err := os.ReadFile(opts.markdown)
		if err != nil {
			return nil, err
		}
		if err := st.LoadMarkdown(string(src)); err != nil {
			return nil, err
		}
		if title == "" {
			title = filepath.Base(opts.markdown)
		}
	}

	logger := mdlog.For(a.log, mdlog.CatHost)
loop:
	for {
		for _, ev := range backend.PollEvents() {
			err := st.Handle(ev)
			switch {
			case errors.Is(err, editor.ErrClosed):
				break loop
			case err != nil:
				logger.Warn("event rejected", "event", ev.Type, "err", err)
			}
		}
	}
	logger.Debug("session closed", "changes", backend.Changes(), "length", st.Text().Len())

	if opts.save != "" {
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(opts.save), filepath.Ext(opts.save))
		}
		snap := mdoc.New(title, st.Text())
		snap.Selection = st.Selection()
		err := mdoc.Save(opts.save, snap, mdoc.SaveOptions{
			Compress: a.cfg.Snapshot.Compress,
			Password: opts.password,
		})
		if err != nil {
			return nil, fmt.Errorf("saving snapshot: %w", err)
		}
		mdlog.For(a.log, mdlog.CatStore).Info("snapshot saved", "path", opts.save, "id", snap.Meta.ID)
	}
	return &session{state: st, backend: backend, title: title}, nil
}

func (a *App) openSnapshot(path, password string) (*mdoc.Snapshot, mdoc.EnvelopeInfo, error) {
	env, err := mdoc.Inspect(path)
	if err != nil {
		return nil, env, err
	}
	if env.Encrypted && strings.TrimSpace(password) == "" {
		return nil, env, fmt.Errorf("%s is encrypted: %w (use --password)", filepath.Base(path), mdoc.ErrPasswordRequired)
	}
	snap, err := mdoc.Load(path, mdoc.LoadOptions{Password: password})
	if err != nil {
		if errors.Is(err, mdoc.ErrInvalidPassword) {
			return nil, env, fmt.Errorf("incorrect password for %s: %w", filepath.Base(path), err)
		}
		return nil, env, err
	}
	mdlog.For(a.log, mdlog.CatStore).Debug("snapshot opened",
		"path", path, "id", snap.Meta.ID, "compressed", env.Compressed, "encrypted", env.Encrypted)
	return snap, env, nil
}

func (a *App) printInfo(snap *mdoc.Snapshot, env mdoc.EnvelopeInfo) error {
	sections, err := mdoc.Sections(snap)
	if err != nil {
		return err
	}
	w := a.out
	fmt.Fprintf(w, "title:      %s\n", snap.Meta.Title)
	fmt.Fprintf(w, "id:         %s\n", snap.Meta.ID)
	fmt.Fprintf(w, "created:    %s\n", snap.Meta.Created.Format("2006-01-02 15:04:05Z"))
	fmt.Fprintf(w, "modified:   %s\n", snap.Meta.Modified.Format("2006-01-02 15:04:05Z"))
	fmt.Fprintf(w, "length:     %d\n", snap.Text.Len())
	fmt.Fprintf(w, "selection:  %v\n", snap.Selection)
	fmt.Fprintf(w, "compressed: %t\n", env.Compressed)
	fmt.Fprintf(w, "encrypted:  %t\n", env.Encrypted)
	for _, s := range sections {
		fmt.Fprintf(w, "section %-9s offset %d length %d crc %08x\n", s.Kind, s.Offset, s.Length, s.CRC32)
	}
	return nil
}

func (a *App) parseFile(path string) (styled.Text, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return styled.Text{}, err
	}
	text, err := markdown.FromMarkdown(a.sheet, string(src))
	if err != nil {
		return styled.Text{}, fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

func (a *App) printStyled(text styled.Text, sel styled.Range) error {
	profile, err := a.cfg.ColorProfile()
	if err != nil {
		return err
	}
	out := render.NewTerminal(a.out, a.sheet, profile).Render(text, sel)
	_, err = fmt.Fprintln(a.out, out)
	return err
}

func (a *App) printShell(st *editor.State, title string) error {
	profile, err := a.cfg.ColorProfile()
	if err != nil {
		return err
	}
	if title == "" {
		title = "Untitled"
	}
	fb := render.NewFrameBuffer(max(a.cfg.Render.Width, 20), max(a.cfg.Render.Height, 5))
	ui.DrawShell(fb, st, ui.ThemeFor(a.sheet), title)
	_, err = io.WriteString(a.out, fb.Encode(profile))
	return err
}

func (a *App) previewFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st := a.newState()
	if err := st.LoadMarkdown(string(src)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return a.printShell(st, filepath.Base(path))
}

// LineDiff compares want and got line by line and marks removed lines with
// "-" and added lines with "+".
func LineDiff(want, got string) string {
	if want == got {
		return "no differences\n"
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		mark := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			mark = "-"
		case diffmatchpatch.DiffInsert:
			mark = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(mark)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}
