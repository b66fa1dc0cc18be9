// Command inspector renders the built-in demo scene and serves it to
// inspection clients over the wire protocol and the diagnostics API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/df07/go-render-inspector/pkg/archive"
	"github.com/df07/go-render-inspector/pkg/capture"
	"github.com/df07/go-render-inspector/pkg/config"
	"github.com/df07/go-render-inspector/pkg/heatmap"
	"github.com/df07/go-render-inspector/pkg/logging"
	"github.com/df07/go-render-inspector/pkg/render"
	"github.com/df07/go-render-inspector/pkg/server"
	"github.com/df07/go-render-inspector/pkg/wire"
	web "github.com/df07/go-render-inspector/web/server"
)

var (
	flagConfig string
	flags      config.Flags
	cfg        config.Config

	captureRegion  string
	captureSession string
	heatmapPLY     string

	rootCmd = &cobra.Command{
		Use:          "inspector",
		Short:        "Inspection server and demo renderer for Monte Carlo path tracers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagConfig != "" {
				loaded, err := config.Load(flagConfig)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				cfg = config.Config{}
			}
			cfg.Resolve(flags)
			return nil
		},
	}

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render the scene offline, optionally archiving pixel captures",
		RunE:  runRender,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the scene to inspection clients over TCP and HTTP",
		RunE:  runServe,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	pf.IntVar(&flags.Width, "width", 0, "image width in pixels")
	pf.IntVar(&flags.Height, "height", 0, "image height in pixels")
	pf.IntVar(&flags.SamplesPerPixel, "spp", 0, "samples per pixel")
	pf.IntVar(&flags.MaxDepth, "max-depth", 0, "maximum path depth")
	pf.IntVar(&flags.Workers, "workers", 0, "render workers, one per CPU when unset")
	pf.StringVar(&flags.Scene, "scene", "", "scene name")
	pf.StringVar(&flags.MeshPath, "mesh", "", "PLY model to drop into the scene")
	pf.StringVar(&flags.OutputDir, "output-dir", "", "directory for rendered images")
	pf.StringVar(&flags.ArchivePath, "archive", "", "enable the capture archive at this path")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	serveCmd.Flags().StringVar(&flags.ListenAddr, "listen", "", "inspection listen address")
	serveCmd.Flags().StringVar(&flags.HTTPAddr, "http", "", "diagnostics listen address")

	renderCmd.Flags().StringVar(&captureRegion, "capture-region", "",
		"pixel region x,y,width,height to capture into the archive")
	renderCmd.Flags().StringVar(&captureSession, "session", "offline",
		"archive session name for captured pixels")
	renderCmd.Flags().StringVar(&heatmapPLY, "heatmap-ply", "",
		"collect a heatmap during the render and export it as PLY to this path")

	rootCmd.AddCommand(renderCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.JSON)

	store := capture.NewStore()
	heat := heatmap.NewEngine(heatmap.DefaultDisplayOptions())
	console := web.NewConsole(&logging.PrintfAdapter{Logger: logger}, 200)

	demo, err := render.NewDemo(renderConfig(cfg.Render), store, heat, console)
	if err != nil {
		return err
	}

	arch, err := openArchive(logger)
	if err != nil {
		return err
	}
	if arch != nil {
		defer arch.Close()
	}

	insp := server.New(server.Config{
		Renderer: demo,
		Store:    store,
		Heatmap:  heat,
		Archive:  arch,
		Logger:   logger,
	})
	webSrv := web.New(cfg.Server.HTTPAddr, web.Config{
		Renderer:  demo,
		Heatmap:   heat,
		Archive:   arch,
		Inspector: insp,
		Console:   console,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.ListenAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return insp.Serve(gctx, ln) })
	g.Go(func() error { return webSrv.Run(gctx) })

	switch err := g.Wait(); {
	case errors.Is(err, server.ErrQuit):
		logger.Info("shutdown requested by client")
	case errors.Is(err, context.Canceled):
		logger.Info("interrupted")
	default:
		return err
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.JSON)

	store := capture.NewStore()
	heat := heatmap.NewEngine(heatmap.DefaultDisplayOptions())
	demo, err := render.NewDemo(renderConfig(cfg.Render), store, heat,
		&logging.PrintfAdapter{Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if heatmapPLY != "" {
		heat.Enable()
	}

	path, err := demo.RenderImage(ctx)
	if err != nil {
		return err
	}
	logger.Info("image written", "path", path)

	if heatmapPLY != "" {
		if err := exportHeatmap(heat, heatmapPLY, logger); err != nil {
			return err
		}
	}
	if captureRegion != "" {
		if err := capturePixels(ctx, demo, store, logger); err != nil {
			return err
		}
	}
	return nil
}

func renderConfig(rc config.RenderConfig) render.Config {
	return render.Config{
		Width:             rc.Width,
		Height:            rc.Height,
		SamplesPerPixel:   rc.SamplesPerPixel,
		MaxDepth:          rc.MaxDepth,
		TileSize:          rc.TileSize,
		Workers:           rc.Workers,
		OutputDir:         rc.OutputDir,
		Scene:             rc.Scene,
		MeshPath:          rc.MeshPath,
		SubdivisionBudget: rc.SubdivisionBudget,
	}
}

func openArchive(logger *slog.Logger) (*archive.Archive, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	return archive.Open(archive.Config{
		Path:     cfg.Archive.Path,
		InMemory: cfg.Archive.InMemory,
		Logger:   logger,
	})
}

func exportHeatmap(heat *heatmap.Engine, path string, logger *slog.Logger) error {
	for i := 0; i < heat.NumMeshes(); i++ {
		name := plyName(path, i, heat.NumMeshes())
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		err = heat.ExportPLY(f, uint32(i), false)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("export heatmap mesh %d: %w", i, err)
		}
		logger.Info("heatmap exported", "mesh", i, "path", name)
	}
	return nil
}

// plyName appends the mesh index when the scene has more than one mesh.
func plyName(path string, mesh, total int) string {
	if total <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), mesh, ext)
}

func capturePixels(ctx context.Context, demo *render.Demo, store *capture.Store, logger *slog.Logger) error {
	if !cfg.Archive.Enabled {
		return errors.New("--capture-region requires the archive; pass --archive or enable it in the config")
	}
	reg, err := parseRegion(captureRegion)
	if err != nil {
		return err
	}

	arch, err := openArchive(logger)
	if err != nil {
		return err
	}
	defer arch.Close()

	for y := reg.y; y < reg.y+reg.h; y++ {
		for x := reg.x; x < reg.x+reg.w; x++ {
			blob, err := capturePixel(ctx, demo, store, x, y)
			if err != nil {
				return fmt.Errorf("capture pixel (%d,%d): %w", x, y, err)
			}
			if err := arch.Put(captureSession, x, y, blob); err != nil {
				return err
			}
		}
	}
	logger.Info("pixel region archived",
		"session", captureSession,
		"pixels", reg.w*reg.h)
	return nil
}

func capturePixel(ctx context.Context, demo *render.Demo, store *capture.Store, x, y uint32) ([]byte, error) {
	store.Enable()
	defer store.Disable()
	if err := demo.RenderPixel(ctx, x, y); err != nil {
		return nil, err
	}
	blob := wire.NewBufferStream()
	if err := store.SerializePixel(wire.NewWriter(blob), x, y); err != nil {
		return nil, err
	}
	return blob.Bytes(), nil
}

type region struct {
	x, y, w, h uint32
}

func parseRegion(s string) (region, error) {
	var r region
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &r.x, &r.y, &r.w, &r.h); err != nil {
		return region{}, fmt.Errorf("invalid region %q, want x,y,width,height", s)
	}
	if r.w == 0 || r.h == 0 {
		return region{}, fmt.Errorf("region %q is empty", s)
	}
	return r, nil
}
