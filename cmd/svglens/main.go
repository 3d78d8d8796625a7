// Command svglens detects SVG graphics in HTML documents and applies
// reversible visual enhancements.
//
// Usage:
//
//	svglens -in page.html -out enhanced.html     # enhance a file
//	svglens -url https://example.com             # enhance a fetched page
//	svglens -url https://example.com -rendered   # fetch via headless Chrome
//	svglens -in page.html -report                # detection report only
//	svglens -serve :8080                         # HTTP API
//	svglens -mcp                                 # MCP server on stdio
//
// Settings come from -settings (YAML file) or -settings-db (SQLite), both
// watched for changes in the long-running modes.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/pagefetch"
	"github.com/atelier9/svglens/runner"
	"github.com/atelier9/svglens/settings"
)

func main() {
	inPath := flag.String("in", "", "input HTML file (default: stdin when no -url)")
	outPath := flag.String("out", "", "output HTML file (default: stdout)")
	pageURL := flag.String("url", "", "fetch the page at this URL instead of reading a file")
	rendered := flag.Bool("rendered", false, "fetch via headless Chrome (captures script-built markup)")
	reportOnly := flag.Bool("report", false, "print a detection report as JSON instead of enhanced HTML")
	serveAddr := flag.String("serve", "", "run the HTTP API on this address (e.g. :8080)")
	mcpMode := flag.Bool("mcp", false, "run as an MCP server on stdio")
	settingsPath := flag.String("settings", "", "path to settings YAML file")
	settingsDB := flag.String("settings-db", "", "path to settings SQLite database")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		in:         *inPath,
		out:        *outPath,
		url:        *pageURL,
		rendered:   *rendered,
		reportOnly: *reportOnly,
		serveAddr:  *serveAddr,
		mcpMode:    *mcpMode,
		settings:   *settingsPath,
		settingsDB: *settingsDB,
	}); err != nil {
		logger.Error("svglens: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	in, out    string
	url        string
	rendered   bool
	reportOnly bool
	serveAddr  string
	mcpMode    bool
	settings   string
	settingsDB string
}

func run(ctx context.Context, logger *slog.Logger, opt options) error {
	store, closeStore, err := openStore(opt, logger)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	r := runner.New(runner.Config{Settings: store, Logger: logger})
	if err := r.Start(ctx); err != nil {
		return err
	}

	if opt.serveAddr != "" {
		return serve(ctx, logger, r, opt.serveAddr)
	}
	if opt.mcpMode {
		srv := mcp.NewServer(&mcp.Implementation{Name: "svglens", Version: "1.0.0"}, nil)
		r.RegisterMCP(srv)
		logger.Info("svglens: mcp server on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	return oneShot(ctx, r, opt)
}

func oneShot(ctx context.Context, r *runner.Runner, opt options) error {
	html, err := readInput(ctx, opt)
	if err != nil {
		return err
	}

	doc, err := dom.Parse(bytes.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if opt.reportOnly {
		report, err := r.DetectOnce(doc)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if _, err := r.EnhanceOnce(doc); err != nil {
		return err
	}
	out, err := dom.RenderString(doc)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if opt.out != "" {
		return os.WriteFile(opt.out, []byte(out), 0o644)
	}
	_, err = io.WriteString(os.Stdout, out)
	return err
}

func readInput(ctx context.Context, opt options) ([]byte, error) {
	if opt.url != "" {
		if opt.rendered {
			rend := pagefetch.NewRenderer(pagefetch.RenderConfig{})
			defer rend.Close()
			res, err := rend.Fetch(ctx, opt.url)
			if err != nil {
				return nil, err
			}
			return res.HTML, nil
		}
		res, err := pagefetch.New().Fetch(ctx, opt.url)
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= 400 {
			return nil, fmt.Errorf("fetch %s: status %d", opt.url, res.StatusCode)
		}
		return res.HTML, nil
	}
	if opt.in != "" {
		return os.ReadFile(opt.in)
	}
	return io.ReadAll(os.Stdin)
}

func openStore(opt options, logger *slog.Logger) (settings.Store, func() error, error) {
	switch {
	case opt.settingsDB != "":
		s, err := settings.OpenSQLite(settings.SQLiteConfig{Path: opt.settingsDB, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case opt.settings != "":
		return settings.NewFileStore(settings.FileConfig{Path: opt.settings, Logger: logger}), nil, nil
	}
	return nil, nil, nil
}
