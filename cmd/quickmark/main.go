package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/nikbrunner/quickmark/internal/config"
	"github.com/nikbrunner/quickmark/internal/exporter"
	"github.com/nikbrunner/quickmark/internal/importer"
	"github.com/nikbrunner/quickmark/internal/library"
	"github.com/nikbrunner/quickmark/internal/logger"
	"github.com/nikbrunner/quickmark/internal/model"
	"github.com/nikbrunner/quickmark/internal/notify"
	"github.com/nikbrunner/quickmark/internal/picker"
	"github.com/nikbrunner/quickmark/internal/search"
	"github.com/nikbrunner/quickmark/internal/server"
	"github.com/nikbrunner/quickmark/internal/storage"
	"github.com/nikbrunner/quickmark/internal/tree"
)

var version = "dev"

// errUsage marks errors that should be followed by the command usage.
var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(args []string) error
}

var commands = map[string]command{
	"add":            {"add <url> [--title t] [--tag t]... [--desc d]", runAdd},
	"rm":             {"rm <url|id>", runRemove},
	"ls":             {"ls [--tag t] [--json]", runList},
	"search":         {"search [query]", runSearch},
	"tags":           {"tags", runTags},
	"tag":            {"tag rm <tag> | tag mv <from> <to>", runTag},
	"import":         {"import <file.json>", runImport},
	"import-browser": {"import-browser [--file path] [--folder name] [--list]", runImportBrowser},
	"export":         {"export [path] [--full] [--html]", runExport},
	"stats":          {"stats", runStats},
	"settings":       {"settings [key [value]]", runSettings},
	"clear":          {"clear --yes", runClear},
	"serve":          {"serve [--addr host:port]", runServe},
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	name := os.Args[1]
	switch name {
	case "help", "--help", "-h":
		printHelp()
		return
	case "version", "--version":
		fmt.Println(version)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		// Treat as search query (join all remaining args)
		cmd, name = commands["search"], "search"
		if err := cmd.run(os.Args[1:]); err != nil {
			exitWith(name, cmd, err)
		}
		return
	}

	if err := cmd.run(os.Args[2:]); err != nil {
		exitWith(name, cmd, err)
	}
}

func exitWith(name string, cmd command, err error) {
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "Usage: quickmark %s\n", cmd.usage)
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "Error (%s): %v\n", name, err)
	os.Exit(1)
}

func printHelp() {
	help := `quickmark - local bookmark collection manager

Usage:
  quickmark <command> [flags]
  quickmark <query>          Quick search → select → open

Commands:
`
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		help += fmt.Sprintf("  quickmark %s\n", commands[name].usage)
	}
	help += `
Global flags:
  --config path         Config file (default ~/.config/quickmark/config.json)
  --backend name        Storage backend: file, sqlite or redis
  --log-level level     debug, info, warn or error

Data Storage:
  ~/.config/quickmark/storage.json
`
	fmt.Print(help)
}

// globalFlags are accepted by every command.
type globalFlags struct {
	configPath string
	backend    string
	logLevel   string
}

func newFlagSet(name string) (*pflag.FlagSet, *globalFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", "", "config file path")
	fs.StringVar(&g.backend, "backend", "", "storage backend (file, sqlite, redis)")
	fs.StringVar(&g.logLevel, "log-level", "", "log level")
	return fs, g
}

// app holds what a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	kv       storage.KV
	lib      *library.Library
	notifier notify.Notifier
}

func openApp(ctx context.Context, g *globalFlags) (*app, error) {
	path := g.configPath
	if path == "" {
		var err error
		path, err = config.DefaultFilePath()
		if err != nil {
			return nil, fmt.Errorf("getting config path: %w", err)
		}
	}

	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return nil, err
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	kv, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	if f, ok := kv.(interface{ Path() string }); ok {
		log.Debug("storage opened", logger.String("path", f.Path()))
	}

	lib := library.New(kv,
		library.WithLogger(log),
		library.WithBackup(library.FileBackup(cfg.BackupDir)),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		kv:       kv,
		lib:      lib,
		notifier: notify.NewWriterNotifier(os.Stdout),
	}, nil
}

func (a *app) Close() {
	_ = a.kv.Close()
	_ = a.log.Sync()
}

// setup parses flags and opens the app.
func setup(fs *pflag.FlagSet, g *globalFlags, args []string) (*app, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return openApp(context.Background(), g)
}

func runAdd(args []string) error {
	fs, g := newFlagSet("add")
	title := fs.String("title", "", "bookmark title (defaults to the URL)")
	tags := fs.StringSlice("tag", nil, "tag, repeatable or comma separated")
	desc := fs.String("desc", "", "description")

	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()
	if fs.NArg() != 1 {
		return errUsage
	}

	cand := model.NewCandidate(model.NewCandidateParams{
		Title:       *title,
		URL:         fs.Arg(0),
		Tags:        *tags,
		Description: *desc,
	})
	_, outcome, err := a.lib.Add(context.Background(), cand)
	a.notifier.Notify(notify.AddOutcome(outcome, err))
	return err
}

func runRemove(args []string) error {
	fs, g := newFlagSet("rm")
	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()
	if fs.NArg() != 1 {
		return errUsage
	}

	ctx := context.Background()
	target := fs.Arg(0)
	removed, err := a.lib.RemoveURL(ctx, target)
	if err == nil && !removed {
		removed, err = a.lib.Remove(ctx, target)
	}
	a.notifier.Notify(notify.RemoveOutcome(removed, err))
	return err
}

func runList(args []string) error {
	fs, g := newFlagSet("ls")
	tag := fs.String("tag", "", "only records carrying this tag")
	asJSON := fs.Bool("json", false, "print as JSON")

	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.lib.Load(context.Background())
	if err != nil {
		return err
	}
	if *tag != "" {
		filtered := model.Collection{}
		for _, r := range c {
			if r.HasTag(*tag) {
				filtered = append(filtered, r)
			}
		}
		c = filtered
	}

	if *asJSON {
		data, err := exporter.ExportJSON(c)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	for _, r := range c {
		fmt.Printf("%s  %s\n", r.Title, r.URL)
		if len(r.Tags) > 0 {
			fmt.Printf("    #%s\n", strings.Join(r.Tags, " #"))
		}
	}
	return nil
}

// runSearch filters the collection and opens the chosen bookmark.
func runSearch(args []string) error {
	fs, g := newFlagSet("search")
	printOnly := fs.Bool("print", false, "print the URL instead of opening it")

	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(fs.Args(), " ")
	c, err := a.lib.Load(context.Background())
	if err != nil {
		return err
	}
	if len(c) == 0 {
		fmt.Println("No bookmarks saved yet")
		return nil
	}

	var selected *model.Record
	if results := search.Filter(c, query); query != "" && len(results) == 1 {
		// Single result - select it directly
		selected = &results[0]
	} else {
		p := picker.New(c, query)
		finalModel, err := tea.NewProgram(p).Run()
		if err != nil {
			return fmt.Errorf("running picker: %w", err)
		}
		result := finalModel.(picker.Picker)
		if result.Cancelled() {
			return nil
		}
		selected = result.Selected()
	}

	if selected == nil {
		return nil
	}
	if *printOnly {
		fmt.Println(selected.URL)
		return nil
	}
	fmt.Printf("Opening: %s\n", selected.Title)
	openURL(selected.URL)
	return nil
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}

func runTags(args []string) error {
	fs, g := newFlagSet("tags")
	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := a.lib.Tags(context.Background())
	if err != nil {
		return err
	}
	for _, c := range counts {
		fmt.Printf("%4d  %s\n", c.Count, c.Tag)
	}
	return nil
}

func runTag(args []string) error {
	fs, g := newFlagSet("tag")
	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	switch {
	case fs.NArg() == 2 && fs.Arg(0) == "rm":
		n, err := a.lib.DeleteTag(ctx, fs.Arg(1))
		if err != nil {
			return err
		}
		fmt.Printf("Removed tag %q from %d bookmarks\n", fs.Arg(1), n)
	case fs.NArg() == 3 && fs.Arg(0) == "mv":
		n, err := a.lib.RenameTag(ctx, fs.Arg(1), strings.TrimSpace(fs.Arg(2)))
		if err != nil {
			return err
		}
		fmt.Printf("Renamed tag %q on %d bookmarks\n", fs.Arg(1), n)
	default:
		return errUsage
	}
	return nil
}

// runImport handles the import subcommand.
func runImport(args []string) error {
	fs, g := newFlagSet("import")
	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()
	if fs.NArg() != 1 {
		return errUsage
	}

	file, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	doc, err := importer.ParseDocument(file)
	if err != nil {
		a.notifier.Notify(notify.MsgImportFailed)
		return err
	}
	if doc.Kind == importer.Envelope {
		fmt.Printf("Replacing collection with %d bookmarks\n", len(doc.Bookmarks))
	}

	result, err := a.lib.ImportDocument(context.Background(), doc)
	if err != nil {
		a.notifier.Notify(notify.MsgImportFailed)
		return err
	}
	a.notifier.Notify(notify.ImportSummary(result.Stats))
	return nil
}

// runImportBrowser imports the native bookmark tree of a browser profile.
func runImportBrowser(args []string) error {
	fs, g := newFlagSet("import-browser")
	file := fs.String("file", "", "bookmark file (Chromium Bookmarks, Netscape HTML or tree JSON)")
	folder := fs.String("folder", "", "import only this folder")
	list := fs.Bool("list", false, "list folders instead of importing")

	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	path := *file
	if path == "" {
		if path, err = importer.DefaultChromiumPath(); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening bookmark file: %w", err)
	}
	defer f.Close()

	forest, err := importer.ParseTree(f)
	if err != nil {
		return err
	}

	if *list {
		for _, info := range tree.Folders(forest) {
			fmt.Printf("%s%s (%d)\n", strings.Repeat("  ", info.Depth), info.Title, info.Leaves)
		}
		return nil
	}

	ctx := context.Background()
	if *folder != "" {
		node, ok := tree.FindFolder(forest, *folder)
		if !ok {
			return fmt.Errorf("folder %q not found", *folder)
		}
		stats, err := a.lib.ImportFolder(ctx, *node)
		if err != nil {
			a.notifier.Notify(notify.MsgImportFailed)
			return err
		}
		a.notifier.Notify(notify.ImportSummary(stats))
		return nil
	}

	stats, err := a.lib.ImportTree(ctx, forest)
	if err != nil {
		a.notifier.Notify(notify.MsgImportFailed)
		return err
	}
	a.notifier.Notify(notify.ImportSummary(stats))
	return nil
}

// runExport handles the export subcommand.
func runExport(args []string) error {
	fs, g := newFlagSet("export")
	full := fs.Bool("full", false, "export bookmarks and settings")
	asHTML := fs.Bool("html", false, "export Netscape bookmark HTML")

	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	now := time.Now()

	kind := exporter.KindJSON
	switch {
	case *asHTML:
		kind = exporter.KindHTML
	case *full:
		kind = exporter.KindState
	}

	outputPath := fs.Arg(0)
	if outputPath == "" {
		if outputPath, err = exporter.DefaultExportPath(kind, now); err != nil {
			return fmt.Errorf("getting default export path: %w", err)
		}
	}

	state, err := a.lib.State(ctx)
	if err != nil {
		return err
	}

	var data []byte
	switch kind {
	case exporter.KindHTML:
		data = []byte(exporter.ExportHTML(state.Bookmarks))
	case exporter.KindState:
		data, err = exporter.ExportState(state, now)
	default:
		data, err = exporter.ExportJSON(state.Bookmarks)
	}
	if err != nil {
		return err
	}

	if err := exporter.WriteFile(outputPath, data); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	fmt.Printf("Exported %d bookmarks to %s\n", len(state.Bookmarks), outputPath)
	return nil
}

func runStats(args []string) error {
	fs, g := newFlagSet("stats")
	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.lib.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Bookmarks:  %d\n", stats.Total)
	fmt.Printf("Tags:       %d\n", stats.Tags)
	if stats.LastAdded != nil {
		fmt.Printf("Last added: %s\n", stats.LastAdded.Local().Format("2006-01-02"))
	}
	return nil
}

// runSettings prints all settings, one setting, or stores a value.
// Values are parsed as JSON when possible, so true stays a boolean.
func runSettings(args []string) error {
	fs, g := newFlagSet("settings")
	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	switch fs.NArg() {
	case 0, 1:
		settings, err := a.lib.Settings(ctx)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(settings))
		for k := range settings {
			if fs.NArg() == 0 || k == fs.Arg(0) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := json.Marshal(settings[k])
			fmt.Printf("%s = %s\n", k, v)
		}
		return nil

	case 2:
		var value any
		if err := json.Unmarshal([]byte(fs.Arg(1)), &value); err != nil {
			value = fs.Arg(1)
		}
		return a.lib.SetSetting(ctx, fs.Arg(0), value)

	default:
		return errUsage
	}
}

func runClear(args []string) error {
	fs, g := newFlagSet("clear")
	yes := fs.Bool("yes", false, "confirm removing all data")

	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if !*yes {
		return errUsage
	}
	if err := a.lib.Clear(context.Background()); err != nil {
		return err
	}
	fmt.Println("All data cleared")
	return nil
}

// runServe runs the local HTTP API until interrupted.
func runServe(args []string) error {
	fs, g := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address (overrides config)")

	a, err := setup(fs, g, args)
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.ListenAddr
	if *addr != "" {
		listen = *addr
	}

	srv := server.New(listen, server.Deps{
		Library: a.lib,
		Logger:  a.log,
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
