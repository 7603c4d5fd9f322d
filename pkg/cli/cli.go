package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/igolaizola/lightshow/pkg/cache"
	cachecmd "github.com/igolaizola/lightshow/pkg/cmd/cache"
	"github.com/igolaizola/lightshow/pkg/cmd/compile"
	"github.com/igolaizola/lightshow/pkg/cmd/importer"
	"github.com/igolaizola/lightshow/pkg/cmd/migrate"
	"github.com/igolaizola/lightshow/pkg/cmd/play"
	"github.com/igolaizola/lightshow/pkg/cmd/plot"
	"github.com/igolaizola/lightshow/pkg/cmd/preload"
	"github.com/igolaizola/lightshow/pkg/cmd/publish"
	"github.com/igolaizola/lightshow/pkg/cmd/purge"
	"github.com/igolaizola/lightshow/pkg/cmd/serve"
	"github.com/igolaizola/lightshow/pkg/playback"
	"github.com/igolaizola/lightshow/pkg/publisher"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("lightshow", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "lightshow [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newImportCommand(),
			newCompileCommand(),
			newPublishCommand(),
			newPurgeCommand(),
			newServeCommand(),
			newPreloadCommand(),
			newPlayCommand(),
			newCacheCommand(),
			newPlotCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "lightshow version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("LIGHTSHOW"),
	}
}

func dbFlags(fs *flag.FlagSet, dbType, dbConn *string) {
	fs.StringVar(dbType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(dbConn, "db-conn", "lightshow.db", "path for sqlite, dsn for mysql or postgres")
}

func fsFlags(fs *flag.FlagSet, fsType, fsConn, publicURL *string) {
	fs.StringVar(fsType, "fs-type", "local", "fs type (local, s3)")
	fs.StringVar(fsConn, "fs-conn", "cdn", "path for local, key:secret@bucket.region[@endpoint] for s3")
	fs.StringVar(publicURL, "public-url", "", "public base url of the published bundles")
}

func cacheFlags(fs *flag.FlagSet, dir *string, retention *time.Duration) {
	fs.StringVar(dir, "cache-dir", ".lightshow", "device cache directory")
	fs.DurationVar(retention, "retention", cache.DefaultRetention, "cache entries older than this are expired")
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	dbFlags(fs, &cfg.DBType, &cfg.DBConn)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create or update the database schema",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newImportCommand() *ffcli.Command {
	cmd := "import"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &importer.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	dbFlags(fs, &cfg.DBType, &cfg.DBConn)
	fs.StringVar(&cfg.Input, "input", "", "input manifest (json, yaml or csv)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "import a project with its sections, songs and sequences",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return importer.Run(ctx, cfg)
		},
	}
}

func newCompileCommand() *ffcli.Command {
	cmd := "compile"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &compile.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	dbFlags(fs, &cfg.DBType, &cfg.DBConn)
	fs.StringVar(&cfg.Project, "project", "", "project id")
	fs.StringVar(&cfg.Output, "output", "", "output folder (stdout if empty)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "compile the section bundles of a project",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return compile.Run(ctx, cfg)
		},
	}
}

func newPublishCommand() *ffcli.Command {
	cmd := "publish"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &publish.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	dbFlags(fs, &cfg.DBType, &cfg.DBConn)
	fsFlags(fs, &cfg.FSType, &cfg.FSConn, &cfg.PublicURL)
	fs.StringVar(&cfg.CacheControl, "cache-control", publisher.DefaultCacheControl, "cache control header of the bundles")
	fs.StringVar(&cfg.Project, "project", "", "project id")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "compile and upload the section bundles of a project",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return publish.Run(ctx, cfg)
		},
	}
}

func newPurgeCommand() *ffcli.Command {
	cmd := "purge"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &purge.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fsFlags(fs, &cfg.FSType, &cfg.FSConn, &cfg.PublicURL)
	fs.StringVar(&cfg.Project, "project", "", "project id")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "remove the published bundles of a project",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return purge.Run(ctx, cfg)
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &serve.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	dbFlags(fs, &cfg.DBType, &cfg.DBConn)
	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fs.StringVar(&cfg.CDNDir, "cdn-dir", "", "local file store folder to serve under /cdn/ (optional)")
	fs.StringVar(&cfg.CacheControl, "cache-control", publisher.DefaultCacheControl, "cache control header of the bundles")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "api credentials (semicolon separated) Example: user1:pass1;user2:pass2")
	fs.BoolVar(&cfg.Tunnel, "tunnel", false, "expose the server through ngrok")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "serve the datastore read api",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return serve.Serve(ctx, cfg)
		},
	}
}

func newPreloadCommand() *ffcli.Command {
	cmd := "preload"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &preload.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	cacheFlags(fs, &cfg.CacheDir, &cfg.Retention)
	fs.StringVar(&cfg.CDNURL, "cdn-url", "", "public base url of the published bundles")
	fs.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "bundle fetch timeout")
	fs.IntVar(&cfg.Concurrency, "concurrency", 4, "concurrent cache writes")
	fs.StringVar(&cfg.APIURL, "api-url", "", "read api url for the per song fallback")
	fs.StringVar(&cfg.APIUser, "api-user", "", "read api user")
	fs.StringVar(&cfg.APIPassword, "api-password", "", "read api password")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type for the per song fallback when there is no api (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Project, "project", "", "project id")
	fs.StringVar(&cfg.Section, "section", "", "section id")
	fs.StringVar(&cfg.Song, "song", "", "song id (optional, preloads a single song)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "download the sequences of a section to the device cache",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return preload.Run(ctx, cfg)
		},
	}
}

func newPlayCommand() *ffcli.Command {
	cmd := "play"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &play.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	cacheFlags(fs, &cfg.CacheDir, &cfg.Retention)
	fs.DurationVar(&cfg.StrobeSpeed, "strobe-speed", playback.DefaultStrobeSpeed, "default strobe half period")
	fs.StringVar(&cfg.StrobeColor, "strobe-color", playback.DefaultStrobeColor, "default second strobe color")
	fs.StringVar(&cfg.OffColor, "off-color", playback.DefaultOffColor, "color rendered between blocks")
	fs.IntVar(&cfg.FrameRate, "fps", 60, "frames per second")
	fs.StringVar(&cfg.Project, "project", "", "project id")
	fs.StringVar(&cfg.Section, "section", "", "section id")
	fs.StringVar(&cfg.Song, "song", "", "song id")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "play a preloaded song on the terminal",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return play.Run(ctx, cfg)
		},
	}
}

func newCacheCommand() *ffcli.Command {
	cmd := "cache"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &cachecmd.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	cacheFlags(fs, &cfg.CacheDir, &cfg.Retention)
	fs.BoolVar(&cfg.Expired, "expired", false, "remove expired entries")
	fs.StringVar(&cfg.Project, "project", "", "remove every entry of the project")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "clean the device cache",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return cachecmd.Run(ctx, cfg)
		},
	}
}

func newPlotCommand() *ffcli.Command {
	cmd := "plot"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &plot.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	dbFlags(fs, &cfg.DBType, &cfg.DBConn)
	fs.StringVar(&cfg.Song, "song", "", "song id")
	fs.StringVar(&cfg.Section, "section", "", "section id")
	fs.StringVar(&cfg.Output, "output", "", "output image (png, jpg, svg or pdf)")
	fs.StringVar(&cfg.StrobeColor, "strobe-color", playback.DefaultStrobeColor, "default second strobe color")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lightshow %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "draw a stored sequence",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return plot.Run(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
