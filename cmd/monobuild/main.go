// Package main implements the monobuild CLI: dependency-aware builds for
// pnpm workspaces with content-addressed caching.
//
// Usage:
//
//	monobuild plan -target apps/web
//	monobuild affected -paths libs/core/src/index.ts
//	monobuild build -target apps/web -channel lts -jobs 4
//	monobuild serve -addr :8080
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/example/monobuild/internal/cache"
	"github.com/example/monobuild/internal/observability"
	"github.com/example/monobuild/internal/service"
	"github.com/example/monobuild/internal/storage/sqlite"
	"github.com/example/monobuild/internal/web"
)

// errBuildFailed marks a build that ran to completion with failed tasks. The
// report is already printed; main only translates it into the exit status.
var errBuildFailed = errors.New("build failed")

func main() {
	log.SetFlags(log.Ltime)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "plan":
		err = runPlan(os.Args[2:])
	case "affected":
		err = runAffected(os.Args[2:])
	case "build":
		err = runBuild(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, errBuildFailed) {
			os.Exit(1)
		}
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `monobuild - dependency-aware builds for pnpm workspaces

Commands:
  plan      Print the build order for a target
  affected  Print packages affected by changed paths
  build     Build a target and its dependencies
  serve     Serve the build status API

Run 'monobuild <command> -h' for command flags.
`)
}

// commonFlags registers the flags shared by every workspace command.
func commonFlags(fs *flag.FlagSet) (root, lockfile *string) {
	root = fs.String("root", ".", "Workspace root directory")
	lockfile = fs.String("lockfile", "", "Path to pnpm-lock.yaml (default <root>/pnpm-lock.yaml)")
	return root, lockfile
}

func newService(root, lockfilePath string) (*service.BuildService, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	cfg := service.DefaultConfig(absRoot)
	if lockfilePath != "" {
		cfg.LockfilePath = lockfilePath
	}
	return service.New(cfg)
}

func runPlan(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	root, lockfile := commonFlags(fs)
	target := fs.String("target", "", "Target package, e.g. apps/web")
	fs.Parse(args)

	if *target == "" {
		return fmt.Errorf("-target is required")
	}

	svc, err := newService(*root, *lockfile)
	if err != nil {
		return err
	}

	order, err := svc.Plan(*target)
	if err != nil {
		return err
	}
	for _, node := range order {
		fmt.Println(node.ID)
	}
	return nil
}

func runAffected(args []string) error {
	fs := flag.NewFlagSet("affected", flag.ExitOnError)
	root, lockfile := commonFlags(fs)
	paths := fs.String("paths", "", "Comma-separated changed file paths, workspace-relative")
	fs.Parse(args)

	if *paths == "" {
		return fmt.Errorf("-paths is required")
	}

	svc, err := newService(*root, *lockfile)
	if err != nil {
		return err
	}

	affected, err := svc.Affected(strings.Split(*paths, ","))
	if err != nil {
		return err
	}
	for _, pkg := range affected {
		fmt.Println(pkg)
	}
	return nil
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	root, lockfile := commonFlags(fs)
	target := fs.String("target", "", "Target package, e.g. apps/web")
	channel := fs.String("channel", "lts", "Runtime channel: lts, current, edge, bun, deno, or a version")
	jobs := fs.Int("jobs", 0, "Max parallel tasks (0 = number of CPUs)")
	commandFlag := fs.String("command", "pnpm run build", "Build command run in each package directory")
	cacheDir := fs.String("cache-dir", "", "Local cache directory (default <root>/.monobuild/cache)")
	remoteURL := fs.String("remote", "", "Remote cache URL: s3://bucket/prefix or oci://registry")
	dbPath := fs.String("db", "", "SQLite build history path (empty = disabled)")
	timeout := fs.Duration("timeout", 30*time.Minute, "Overall build timeout")
	jsonOut := fs.Bool("json", false, "Print the build report as JSON")
	fs.Parse(args)

	if *target == "" {
		return fmt.Errorf("-target is required")
	}
	command := strings.Fields(*commandFlag)
	if len(command) == 0 {
		return fmt.Errorf("-command must not be empty")
	}

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	cfg := service.DefaultConfig(absRoot)
	cfg.Channel = *channel
	cfg.MaxParallel = *jobs
	cfg.RemoteURL = *remoteURL
	cfg.Remote = remoteOptionsFromEnv()
	if *lockfile != "" {
		cfg.LockfilePath = *lockfile
	}

	svc, err := service.New(cfg)
	if err != nil {
		return err
	}

	dir := *cacheDir
	if dir == "" {
		dir = filepath.Join(absRoot, ".monobuild", "cache")
	}
	svc.WithLocalCache(cache.NewDirStore(dir))
	svc.WithMetrics(observability.NewMetrics())

	if *dbPath != "" {
		store, err := sqlite.New(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to open build history: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(context.Background()); err != nil {
			return fmt.Errorf("failed to migrate build history: %w", err)
		}
		svc.WithStorage(store)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Received interrupt, shutting down...")
		cancel()
	}()

	runner := &service.CommandRunner{
		Root:    absRoot,
		Command: command,
	}

	report, err := svc.Build(ctx, *target, runner)
	if err != nil {
		return err
	}

	if *jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	if !report.Success {
		return errBuildFailed
	}
	return nil
}

func printReport(report *service.BuildReport) {
	for _, res := range report.Results {
		status := "ok"
		if res.CacheHit {
			status = "cached"
		}
		if !res.Success {
			status = "FAILED"
		}
		fmt.Printf("%-10s %-40s %v\n", status, res.TaskID, res.Duration.Round(time.Millisecond))
		if res.Error != "" {
			fmt.Printf("           %s\n", res.Error)
		}
	}
	outcome := "succeeded"
	if !report.Success {
		outcome = "failed"
	}
	fmt.Printf("build %s %s in %v (%d tasks)\n",
		report.Target, outcome, report.Duration.Round(time.Millisecond), len(report.Results))
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	dbPath := fs.String("db", "monobuild.db", "SQLite build history path")
	fs.Parse(args)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open build history: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to migrate build history: %w", err)
	}

	server := web.NewServer(*addr, store, observability.NewMetrics())
	return server.Start()
}

// remoteOptionsFromEnv reads remote cache credentials from the environment,
// keeping secrets off the command line.
func remoteOptionsFromEnv() cache.RemoteOptions {
	return cache.RemoteOptions{
		S3Endpoint: os.Getenv("MONOBUILD_S3_ENDPOINT"),
		S3Region:   os.Getenv("MONOBUILD_S3_REGION"),
		AccessKey:  os.Getenv("MONOBUILD_S3_ACCESS_KEY"),
		SecretKey:  os.Getenv("MONOBUILD_S3_SECRET_KEY"),
		UseSSL:     os.Getenv("MONOBUILD_S3_INSECURE") == "",
		ORASBinary: os.Getenv("MONOBUILD_ORAS_BIN"),
	}
}
