// Command docmeta prints the metadata of local DOCX and PDF files.
//
// Usage:
//
//	docmeta [-format table|json|yaml] [-parallel N] file...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/documentmetadata/internal/config"
	"github.com/Lllllllleong/documentmetadata/internal/docmeta"
	"github.com/Lllllllleong/documentmetadata/internal/logging"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// fileReport is the outcome for one input path.
type fileReport struct {
	Path   string          `json:"path" yaml:"path"`
	Result *docmeta.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Kind   docmeta.Kind    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error  string          `json:"error,omitempty" yaml:"error,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadCLI()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	fs := flag.NewFlagSet("docmeta", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "table", "output format: table, json or yaml")
	parallel := fs.Int("parallel", cfg.Parallel, "number of files processed at once")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: docmeta [-format table|json|yaml] [-parallel N] file...")
		return 2
	}
	render, ok := renderers[*format]
	if !ok {
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}
	if *parallel < 1 {
		*parallel = 1
	}

	logger := logging.NewWithWriter(stderr, *logLevel)
	pcfg := cfg.DocmetaConfig()
	pcfg.Logger = logger
	pipe := docmeta.New(pcfg)

	reports := processFiles(ctx, logger, pipe, fs.Args(), *parallel)
	if err := render(stdout, reports); err != nil {
		logger.Error("Failed to write output", "error", err)
		return 1
	}

	for _, r := range reports {
		if r.Error != "" {
			return 1
		}
	}
	return 0
}

func processFiles(ctx context.Context, logger *slog.Logger, pipe *docmeta.Pipeline, paths []string, parallel int) []fileReport {
	reports := make([]fileReport, len(paths))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)

	for i, p := range paths {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				reports[i] = failed(logger, p, err)
				return nil
			}
			reports[i] = processFile(logger, pipe, p)
			return nil
		})
	}
	_ = eg.Wait()
	return reports
}

func processFile(logger *slog.Logger, pipe *docmeta.Pipeline, path string) fileReport {
	data, err := readFile(path, pipe.MaxUploadBytes())
	if err != nil {
		return failed(logger, path, err)
	}
	res, err := pipe.Process(docmeta.Upload{Data: data, Filename: filepath.Base(path)})
	if err != nil {
		return failed(logger, path, err)
	}
	return fileReport{Path: path, Result: res}
}

var errTooLarge = errors.New("file is too large")

func readFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: maximum size is %s", errTooLarge, docmeta.FormatSize(limit))
	}
	return data, nil
}

func failed(logger *slog.Logger, path string, err error) fileReport {
	kind := docmeta.KindOf(err)
	logger.Debug("file failed", "path", path, "kind", kind, "error", err)
	return fileReport{Path: path, Kind: kind, Error: err.Error()}
}
