package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gridbind/config"
	"gridbind/core"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		slog.Error("gridbind failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	mode           string
	configFile     string
	dataSourceFile string
	template       string
	input          string
	output         string
	fetcherType    string
	dataDir        string
	dbDSN          string
	s3Bucket       string
	s3Prefix       string
	params         map[string]string
}

// run executes one invocation. Read results without an -output file go to
// stdout; logs go to logOut.
func run(stdout, logOut io.Writer, args []string) error {
	opts := options{params: make(map[string]string)}
	flags := flag.NewFlagSet("gridbind", flag.ContinueOnError)
	flags.SetOutput(logOut)

	flags.StringVar(&opts.mode, "mode", "write", "Operation: read (workbook -> JSON) or write (data -> workbook)")
	flags.StringVar(&opts.configFile, "config", "./config.yaml", "Path to configuration bundle")
	flags.StringVar(&opts.dataSourceFile, "datasources", "", "Path to data source bundle (optional)")
	flags.StringVar(&opts.template, "template", "", "Template workbook (write mode)")
	flags.StringVar(&opts.input, "input", "", "Workbook to read (read mode)")
	flags.StringVar(&opts.output, "output", "", "Output file or directory; ${param} placeholders are replaced")
	flags.StringVar(&opts.fetcherType, "fetcher", "csv", "Data fetcher type: csv, dynamodb, mysql, postgres")
	flags.StringVar(&opts.dataDir, "data", "./data", "Directory of <table>.csv files for the csv fetcher")
	flags.StringVar(&opts.dbDSN, "db-dsn", "", "Database connection string (DSN) for mysql/postgres")
	flags.StringVar(&opts.s3Bucket, "s3-bucket", "", "S3 bucket name for uploading output")
	flags.StringVar(&opts.s3Prefix, "s3-prefix", "gridbind-output", "S3 prefix (folder) for uploaded files")
	flags.Func("param", "Invocation parameter key=value (repeatable)", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return fmt.Errorf("parameter %q is not key=value", s)
		}
		opts.params[k] = v
		return nil
	})

	if err := flags.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	slog.Info("loading configuration bundle", "file", opts.configFile)
	bundle, registry, err := config.LoadConfigBundle(opts.configFile)
	if err != nil {
		return err
	}
	if opts.dataSourceFile != "" {
		slog.Info("loading data source bundle", "file", opts.dataSourceFile)
		sources, err := config.LoadDataSourcesBundle(opts.dataSourceFile)
		if err != nil {
			return err
		}
		registry.SetDataSources(sources)
		slog.Info("loaded data sources", "count", len(sources))
	}

	def, err := core.NewDefinitionCache(registry).Get(bundle.Schema.Id)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var produced string
	switch opts.mode {
	case "read":
		produced, err = runRead(stdout, opts, def)
	case "write":
		produced, err = runWrite(ctx, opts, bundle, registry, def)
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
	if produced != "" && opts.s3Bucket != "" {
		if upErr := upload(ctx, opts, produced); upErr != nil {
			return upErr
		}
	}
	return err
}

func runRead(stdout io.Writer, opts options, def *core.Definition) (string, error) {
	if opts.input == "" {
		return "", fmt.Errorf("-input is required in read mode")
	}
	root := make(map[string]any)
	status := core.NewReader(def).ReadFile(opts.input, root)
	slog.Info("read finished", "status", status.Code.String(), "errors", len(status.Errors))

	if status.Code != core.StatusSuccess && status.Code != core.StatusDataCollectionError {
		return "", status.Err()
	}

	out := stdout
	if opts.output != "" {
		if err := os.MkdirAll(filepath.Dir(opts.output), 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		file, err := os.Create(opts.output)
		if err != nil {
			return "", fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("failed to encode read result: %w", err)
	}
	return opts.output, status.Err()
}

func runWrite(ctx context.Context, opts options, bundle *config.ConfigBundle, registry *config.MemoryConfigRegistry, def *core.Definition) (string, error) {
	if opts.template == "" {
		return "", fmt.Errorf("-template is required in write mode")
	}
	if opts.output == "" {
		return "", fmt.Errorf("-output is required in write mode")
	}

	fetcher, closeFetcher, err := newFetcher(ctx, opts)
	if err != nil {
		return "", err
	}
	defer closeFetcher()

	gc := core.NewGenerationContext(bundle.Parameters, registry, fetcher, opts.params)
	gen := core.NewGenerator(gc, def, registry.DataViewNames())
	slog.Info("writing workbook", "schema", def.ID, "template", opts.template)
	path, err := gen.Generate(ctx, opts.template, opts.output)
	if path != "" {
		slog.Info("successfully generated", "path", path)
	}
	return path, err
}

func newFetcher(ctx context.Context, opts options) (core.DataFetcher, func(), error) {
	switch opts.fetcherType {
	case "dynamodb":
		slog.Info("initializing DynamoDB data fetcher")
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		return core.NewDynamoDBDataFetcher(cfg), func() {}, nil
	case "mysql", "postgres":
		if opts.dbDSN == "" {
			return nil, nil, fmt.Errorf("db-dsn is required for %s fetcher", opts.fetcherType)
		}
		slog.Info("initializing SQL data fetcher", "type", opts.fetcherType)
		db, err := sql.Open(opts.fetcherType, opts.dbDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping db: %w", err)
		}
		return core.NewSQLDataFetcher(db, opts.fetcherType), func() { db.Close() }, nil
	case "csv":
		slog.Info("initializing CSV data fetcher", "dir", opts.dataDir)
		return core.NewCsvDataFetcher(opts.dataDir), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher %q", opts.fetcherType)
	}
}

func upload(ctx context.Context, opts options, path string) error {
	slog.Info("starting S3 upload", "bucket", opts.s3Bucket, "prefix", opts.s3Prefix)
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("unable to load AWS SDK config for S3: %w", err)
	}
	uploader := core.NewS3Uploader(cfg, opts.s3Bucket, opts.s3Prefix)
	if err := uploader.UploadFile(ctx, path, uploader.Key(filepath.Base(path))); err != nil {
		return fmt.Errorf("failed to upload output to s3: %w", err)
	}
	slog.Info("successfully uploaded to S3")
	return nil
}
