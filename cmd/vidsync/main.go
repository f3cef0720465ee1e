package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/mmcdole/vidsync/internal/config"
	"github.com/mmcdole/vidsync/internal/logging"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `usage: vidsync [flags] <command> [args]

commands:
  browse                 interactive terminal browser (default on a terminal)
  list                   list videos, newest first (default otherwise)
  show <id>              video detail with recommendations
  search <query>         search users, videos, categories and courses
  categories             all categories
  courses                all courses
  create                 create a video
  edit <id>              edit a video's title and description
  comments <id>          list a video's comments
  comment <id> <text>    post a comment
  note <id> [text]       show or set your scratch note
  breadcrumbs <path>     resolve a page path, e.g. /videos/abc
  play <id>              open a video in an external player

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("vidsync", flag.ContinueOnError)
	var (
		showVersion bool
		configPath  string
		username    string
	)
	fs.BoolVar(&showVersion, "v", false, "print version")
	fs.BoolVar(&showVersion, "version", false, "print version")
	fs.StringVar(&configPath, "config", "", "config file (default ~/.config/vidsync/config.yaml)")
	fs.StringVar(&username, "user", "", "act as this username")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVersion {
		fmt.Fprintf(stdout, "vidsync %s\n", Version)
		return nil
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if username != "" {
		cfg.User.Username = username
	}

	interactive := isTerminal(stdout)
	if !cfg.IsConfigured() {
		if !interactive {
			return fmt.Errorf("no backend configured: set api.url in the config file or %s_API_URL", config.EnvPrefix)
		}
		return runSetupFlow(cfg, configPath, stdin, stdout)
	}

	// Setup logger
	logger, closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closer = logging.NullLogger(), io.NopCloser(nil)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting vidsync", "version", Version, "api", cfg.API.URL)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	command, rest := "", fs.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}
	if command == "" {
		command = "list"
		if interactive {
			command = "browse"
		}
	}

	handler, ok := a.commands()[command]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
	return handler(ctx, rest, stdout)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *config.Config, path string, stdin io.Reader, stdout io.Writer) error {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Welcome to vidsync!")
	fmt.Fprintln(stdout)

	reader := bufio.NewReader(stdin)
	for cfg.API.URL == "" {
		fmt.Fprint(stdout, "Enter the backend URL (e.g., http://localhost:8000): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		cfg.API.URL = strings.TrimSpace(input)
		if cfg.API.URL == "" {
			fmt.Fprintln(stdout, "Backend URL cannot be empty. Please try again.")
		}
	}

	fmt.Fprint(stdout, "Username (leave empty to browse as guest): ")
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read input: %w", err)
	}
	cfg.User.Username = strings.TrimSpace(input)

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "✓ Configuration saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Run vidsync again to start browsing.")
	return nil
}
