// Command schemalens introspects a PostgreSQL database and visualizes its
// schema: an ER diagram (Graphviz DOT), a force-directed relationship graph
// (PNG), and an HTTP dashboard serving both plus tabular summaries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dkovalev/schemalens/internal/config"
	"github.com/dkovalev/schemalens/internal/filestore"
	"github.com/dkovalev/schemalens/internal/filestore/minio"
	"github.com/dkovalev/schemalens/internal/logger"
	"github.com/dkovalev/schemalens/internal/render"
	"github.com/dkovalev/schemalens/internal/schema"
	"github.com/dkovalev/schemalens/internal/server"
)

var (
	cfgPath      string
	flagHost     string
	flagPort     int
	flagDatabase string
	flagUser     string
	flagPassword string

	renderOut  string
	renderKind string
)

var rootCmd = &cobra.Command{
	Use:   "schemalens",
	Short: "Visualize a PostgreSQL schema as ER diagrams and relationship graphs",
	Long: `schemalens reads the Postgres catalog (tables, columns, primary keys,
foreign keys, indexes) and renders the result as a hierarchical ER diagram,
a force-directed relationship graph, or an interactive dashboard.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the schema dashboard",
	RunE:  runServe,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Extract the schema once and print a per-table summary",
	RunE:  runInspect,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Extract the schema once and write diagram files",
	RunE:  runRender,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	pf.StringVar(&flagHost, "host", "", "database host")
	pf.IntVar(&flagPort, "port", 0, "database port")
	pf.StringVar(&flagDatabase, "database", "", "database name")
	pf.StringVar(&flagUser, "user", "", "database user")
	pf.StringVar(&flagPassword, "password", "", "database password")

	renderCmd.Flags().StringVarP(&renderOut, "out", "o", ".", "output directory")
	renderCmd.Flags().StringVarP(&renderKind, "kind", "k", "both", "diagram to write: erd, graph, or both")

	rootCmd.AddCommand(serveCmd, inspectCmd, renderCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if flagHost != "" {
		cfg.Database.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Database.Port = flagPort
	}
	if flagDatabase != "" {
		cfg.Database.Database = flagDatabase
	}
	if flagUser != "" {
		cfg.Database.User = flagUser
	}
	if flagPassword != "" {
		cfg.Database.Password = flagPassword
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LoggerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store filestore.Store
	if storeCfg := cfg.ArtifactStoreConfig(); storeCfg != nil {
		store, err = minio.New(ctx, storeCfg)
		if err != nil {
			return fmt.Errorf("artifact store: %w", err)
		}
		defer store.Close()
		log.Infof("publishing diagrams to bucket %q", storeCfg.Bucket)
	}

	extractor := schema.NewExtractor(log)
	srv := server.New(cfg, log, extractor.Extract, store)
	return srv.Run(ctx)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LoggerConfig())

	model, err := schema.NewExtractor(log).Extract(cmd.Context(), cfg.DatabaseConfig())
	if err != nil {
		return err
	}

	stats := model.ComputeStats()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tCOLUMNS\tPK\tFK\tINDEXES")
	for _, t := range stats.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", t.Table, t.Columns, t.PKColumns, t.ForeignKeys, t.Indexes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d tables, %d foreign keys\n", stats.TableCount, stats.ForeignKeyCount)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderKind != "erd" && renderKind != "graph" && renderKind != "both" {
		return fmt.Errorf("unknown diagram kind %q (want erd, graph, or both)", renderKind)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LoggerConfig())

	model, err := schema.NewExtractor(log).Extract(cmd.Context(), cfg.DatabaseConfig())
	if err != nil {
		return err
	}

	write := func(name string, r render.Renderer) error {
		art, err := r.Render(model)
		if err != nil {
			return err
		}
		path := filepath.Join(renderOut, name)
		if err := os.WriteFile(path, art.Data, 0o644); err != nil {
			return err
		}
		log.Infof("wrote %s (%d nodes, %d edges)", path, art.NodeCount, art.EdgeCount)
		return nil
	}

	if renderKind == "erd" || renderKind == "both" {
		if err := write("erd.dot", render.NewERD()); err != nil {
			return err
		}
	}
	if renderKind == "graph" || renderKind == "both" {
		fg := render.NewForceGraph()
		if cfg.Graph.Width > 0 {
			fg.Width = cfg.Graph.Width
		}
		if cfg.Graph.Height > 0 {
			fg.Height = cfg.Graph.Height
		}
		if cfg.Graph.Seed > 0 {
			fg.Seed = cfg.Graph.Seed
		}
		if err := write("graph.png", fg); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
