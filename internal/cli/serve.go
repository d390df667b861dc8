package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapforge/pc2pgm/internal/server"
	"github.com/mapforge/pc2pgm/pkg/cache"
	"github.com/mapforge/pc2pgm/pkg/pointcloud"
)

// previewCacheEntries bounds the in-memory preview cache. Each entry is one
// rendered PNG, so a few dozen covers a whole tuning session.
const previewCacheEntries = 64

// serveCommand creates the serve command for the HTTP preview server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve <cloud.pcd|cloud.ply>",
		Short: "Serve live occupancy grid previews over HTTP",
		Long: `Serve live occupancy grid previews over HTTP.

The point cloud is loaded once. The control page at / re-renders the map
whenever a parameter changes, and /map.pgm and /map.yaml download the
current slice in the exported format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the preview cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, input, addr string, noCache bool) error {
	spinner := newSpinnerWithContext(ctx, "Loading "+input)
	spinner.Start()
	cloud, err := pointcloud.ReadFile(input)
	if err != nil {
		spinner.StopWithError("Failed to load " + input)
		return err
	}
	spinner.Stop()

	var previewCache cache.Cache = cache.NewMemoryCache(previewCacheEntries)
	if noCache {
		previewCache = cache.NewNullCache()
	}
	defer previewCache.Close()

	opts := c.newPipelineOptions(input)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(cloud, opts, previewCache, c.Logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	c.Logger.Info("serving previews", "addr", addr, "points", cloud.Len())
	printInfo("Open %s in a browser; Ctrl-C stops the server", fmt.Sprintf("http://%s/", addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}
