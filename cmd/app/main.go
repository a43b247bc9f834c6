package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tonearm/internal"
	"github.com/starford/tonearm/internal/search"
	pkgconfig "github.com/starford/tonearm/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func crawl(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rep, err := internal.Crawl(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	return printJSON(rep)
}

func searchTracks(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := search.Request{
		Text:       strings.Join(cmd.Args().Slice(), " "),
		Facets:     cmd.StringSlice("facet"),
		Page:       int(cmd.Int("page")),
		PageSize:   int(cmd.Int("size")),
		FacetsOnly: cmd.Bool("facets-only"),
	}
	if field := cmd.String("order"); field != "" {
		req.Order = &search.Order{Field: field, Direction: search.Asc}
		if cmd.Bool("desc") {
			req.Order.Direction = search.Desc
		}
	}
	resp, err := internal.Search(ctx, req, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func reindex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RequestReindex(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)); err != nil {
		return err
	}
	fmt.Println("reindex requested: the index will be rebuilt on next start")
	return nil
}

func status(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := internal.Status(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	return printJSON(st)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "tonearm",
		Usage:  "Index a local music library and search it by tags, facets and dates",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the start-up crawl and the library watcher",
				Action: serve,
			},
			{
				Name:   "crawl",
				Usage:  "Crawl the library once and print the report",
				Action: crawl,
			},
			{
				Name:      "search",
				Usage:     "Search the index and print the response",
				ArgsUsage: "[query]",
				Action:    searchTracks,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "facet", Aliases: []string{"f"}, Usage: "Facet path, repeatable (e.g. /genre/17)"},
					&cli.StringFlag{Name: "order", Usage: "Order by created_at, modified_at or indexed_at"},
					&cli.BoolFlag{Name: "desc", Usage: "Descending order"},
					&cli.IntFlag{Name: "page", Usage: "Zero-based page"},
					&cli.IntFlag{Name: "size", Value: search.DefaultPageSize, Usage: "Page size"},
					&cli.BoolFlag{Name: "facets-only", Usage: "Print facet counts only"},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the index from scratch on the next start",
				Action: reindex,
			},
			{
				Name:   "status",
				Usage:  "Print index and housekeeping state",
				Action: status,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
