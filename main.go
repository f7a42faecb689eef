package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hostfs/config"
	"hostfs/core"
	"hostfs/logger"
)

const usage = `usage: hostfs [-config file] <command> [args]

commands:
  read <path> [encoding]         print file contents
  write <path> <data> [encoding] create or truncate a file
  append <path> <data>           append to a file
  rm <path>                      delete a file or directory
  exists <path>                  print true or false
  mv <old> <new>                 rename
  mkdir [-recursive=false] <path>
  ls <path>                      list entry names
  stat <path>
  cp <src> <dst>
  serve                          keep the snapshot refreshed until interrupted
`

var errUsage = errors.New("invalid arguments")

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	// 1. Load Config
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	// 2. Init Host
	host, err := core.NewHost(ctx, cfg.Host)
	if err != nil {
		return err
	}
	defer host.Close()

	opts := []core.Option{
		core.WithEncoding(cfg.FS.Encoding),
		core.WithStrictEncoding(cfg.FS.StrictEncoding),
		core.WithLogger(log),
	}

	// 3. Init Snapshot
	var snap *core.Snapshot
	if cfg.Cache.Enabled {
		ttl, err := cfg.Cache.TTLDuration()
		if err != nil {
			return err
		}
		snap = core.NewSnapshot(cfg.Cache.File, ttl)
		if err := snap.Load(); err != nil {
			log.Warn("failed to load snapshot", "path", cfg.Cache.File, "error", err)
		}
		defer func() {
			if err := snap.Save(); err != nil {
				log.Warn("failed to save snapshot", "path", cfg.Cache.File, "error", err)
			}
		}()
		opts = append(opts, core.WithSnapshot(snap))
	}

	fsys := core.New(host, opts...)

	if args[0] == "serve" {
		return serve(ctx, cfg, fsys, log)
	}
	return runCommand(ctx, fsys, args, out)
}

func serve(ctx context.Context, cfg *config.Config, fsys *core.FS, log *slog.Logger) error {
	if fsys.Snapshot() == nil {
		return errors.New("serve requires [cache] enabled = true")
	}

	if cfg.Cache.Watch && (cfg.Host.Type == "local" || cfg.Host.Type == "") {
		w, err := core.NewWatcher(cfg.Host.RootPath, fsys.Snapshot(), log)
		if err != nil {
			log.Warn("failed to create file watcher", "error", err)
		} else if err := w.Start(); err != nil {
			log.Warn("failed to start file watcher", "error", err)
		} else {
			defer func() { _ = w.Stop() }()
			log.Info("file watcher enabled", "root", cfg.Host.RootPath)
		}
	}

	if cfg.Cache.Refresh != "" {
		r := core.NewRefresher(fsys, cfg.Cache.Refresh, log)
		if err := r.Start(ctx); err != nil {
			return err
		}
		defer r.Stop()
	}

	log.Info("hostfs serving snapshot", "host", cfg.Host.Type, "file", cfg.Cache.File)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func runCommand(ctx context.Context, fsys *core.FS, args []string, out io.Writer) error {
	cmd, args := args[0], args[1:]
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	need := func(n int) error {
		if len(args) < n {
			return errUsage
		}
		return nil
	}

	switch cmd {
	case "read":
		if err := need(1); err != nil {
			return err
		}
		text, err := fsys.ReadFile(ctx, args[0], arg(1))
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	case "write":
		if err := need(2); err != nil {
			return err
		}
		return fsys.WriteFile(ctx, args[0], args[1], arg(2))
	case "append":
		if err := need(2); err != nil {
			return err
		}
		return fsys.AppendFile(ctx, args[0], args[1])
	case "rm":
		if err := need(1); err != nil {
			return err
		}
		return fsys.Delete(ctx, args[0])
	case "exists":
		if err := need(1); err != nil {
			return err
		}
		fmt.Fprintln(out, fsys.Exists(ctx, args[0]))
		return nil
	case "mv":
		if err := need(2); err != nil {
			return err
		}
		return fsys.Rename(ctx, args[0], args[1])
	case "mkdir":
		fset := flag.NewFlagSet("mkdir", flag.ContinueOnError)
		fset.SetOutput(io.Discard)
		recursive := fset.Bool("recursive", true, "create missing parents")
		if err := fset.Parse(args); err != nil || fset.NArg() != 1 {
			return errUsage
		}
		return fsys.Mkdir(ctx, fset.Arg(0), core.Recursive(*recursive))
	case "ls":
		names, err := fsys.ReadDir(ctx, arg(0))
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	case "stat":
		if err := need(1); err != nil {
			return err
		}
		st, err := fsys.Stat(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "name: %s\nfile: %t\ndirectory: %t\nsize: %d\nmodified: %s\n",
			st.Name, st.IsFile(), st.IsDirectory(), st.Size, st.ModTime.Format("2006-01-02 15:04:05"))
		return nil
	case "cp":
		if err := need(2); err != nil {
			return err
		}
		return fsys.CopyFile(ctx, args[0], args[1])
	default:
		return errUsage
	}
}
