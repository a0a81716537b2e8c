package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/uhodav/vuensight"
	"github.com/uhodav/vuensight/internal/config"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// stdout receives command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "vuensight",
	Short:         "Vue component channel usage analysis",
	Long:          "Vuensight indexes Vue single-file components and records which props, events and slots each dependent actually uses.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .vuensight/index.db relative to project root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "configuration file (default: vuensight.yaml in project root)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "debug logging on stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queryCmd)
}

var (
	flagForce    bool
	flagWorkers  int
	flagRulesDir string
	flagDir      string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project and analyze channel usage",
	Long:  "Parses component declarations and imports, resolves the dependency graph and writes usage records to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	for _, cmd := range []*cobra.Command{indexCmd, watchCmd} {
		cmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
		cmd.Flags().IntVar(&flagWorkers, "workers", 0, "analysis workers (default: number of CPUs)")
		cmd.Flags().StringVar(&flagRulesDir, "rules-dir", "", "load rule scripts from disk path instead of embedded")
		cmd.Flags().StringVar(&flagDir, "dir", "", "scan root relative to the project root (overrides config)")
	}
}

// project is everything a command needs to open the engine for one
// project root.
type project struct {
	root   string
	dbPath string
	cfg    *config.Config
	logger *zap.Logger
}

func loadProject(args []string) (*project, error) {
	target, err := resolveTargetDir(args)
	if err != nil {
		return nil, err
	}
	root := findRepoRoot(target)

	var cfg *config.Config
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, err
	}
	if flagDir != "" {
		cfg.Dir = flagDir
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagRulesDir != "" {
		cfg.RulesDir = flagRulesDir
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	return &project{root: root, dbPath: resolveDBPath(root, cfg), cfg: cfg, logger: logger}, nil
}

func (p *project) open() (*vuensight.Engine, error) {
	if flagForce {
		if err := os.Remove(p.dbPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", p.dbPath)
	}
	engine, err := vuensight.New(p.dbPath, vuensight.WithConfig(p.cfg), vuensight.WithLogger(p.logger))
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	p, err := loadProject(args)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	engine, err := p.open()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	indexStart := time.Now()
	if err := engine.IndexDirectory(ctx, p.root); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	indexDuration := time.Since(indexStart)
	changes := engine.Changes()

	analyzeStart := time.Now()
	if err := engine.Analyze(ctx); err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}
	analyzeDuration := time.Since(analyzeStart)

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (index: %s, analyze: %s)\n",
		p.cfg.ScanRoot(p.root),
		time.Since(start).Round(time.Millisecond),
		indexDuration.Round(time.Millisecond),
		analyzeDuration.Round(time.Millisecond),
	)
	fmt.Fprintf(os.Stderr, "Changes: %d added, %d modified, %d removed\n",
		len(changes.Added), len(changes.Modified), len(changes.Removed))
	fmt.Fprintf(os.Stderr, "Database: %s\n", p.dbPath)
	return nil
}

// newLogger builds the stderr logger. --verbose enables debug output.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if flagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !flagVerbose
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a configuration file or
// a .git directory. Returns startDir if neither is found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		for _, name := range config.FileNames {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir
			}
		}
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, the
// configuration, or the default, relative to the project root.
func resolveDBPath(root string, cfg *config.Config) string {
	p := flagDB
	if p == "" && cfg != nil {
		p = cfg.DB
	}
	if p == "" {
		p = filepath.Join(".vuensight", "index.db")
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
