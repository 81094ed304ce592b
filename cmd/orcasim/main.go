// Command orcasim runs ORCA crowd scenarios in batch or streams them live to
// websocket viewers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gorustyt/goorca/common"
	"github.com/gorustyt/goorca/common/log"
	"github.com/gorustyt/goorca/config"
	"github.com/gorustyt/goorca/orca"
	"github.com/gorustyt/goorca/raycast"
	"github.com/gorustyt/goorca/scenario"
	"github.com/gorustyt/goorca/simulator"
	"github.com/gorustyt/goorca/stream"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "orcasim",
		Short:        "Reciprocal collision avoidance crowd simulator",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(raycastCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "run [config]",
		Short: "Run a scenario until every agent arrives or the step limit is hit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cmd.OutOrStdout(), args, name)
		},
	}

	cmd.Flags().StringVarP(&name, "scenario", "s", "", "scenario to run, overrides the config")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [config]",
		Short: "Run a scenario in real time and stream frames on /frames",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, args, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address, overrides the config")
	return cmd
}

// rayFlags describes one world space ray given on the command line.
type rayFlags struct {
	scenario string
	plane    string
	origin   []float64
	dir      []float64
	distance float64
	ignore   uint32
	twoSided bool
}

func raycastCmd() *cobra.Command {
	var f rayFlags

	cmd := &cobra.Command{
		Use:   "raycast [config]",
		Short: "Cast a ray against the obstacles of a scenario and print the first hit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRaycast(cmd.Context(), cmd.OutOrStdout(), args, f)
		},
	}

	cmd.Flags().StringVarP(&f.scenario, "scenario", "s", "", "scenario to load, overrides the config")
	cmd.Flags().StringVarP(&f.plane, "plane", "p", "xy", "world axes spanning the simulation plane, xy or xz")
	cmd.Flags().Float64SliceVarP(&f.origin, "origin", "o", []float64{0, 0, 0}, "ray origin x,y,z")
	cmd.Flags().Float64SliceVarP(&f.dir, "dir", "d", []float64{1, 0, 0}, "ray direction x,y,z")
	cmd.Flags().Float64Var(&f.distance, "distance", 100, "maximum ray length")
	cmd.Flags().Uint32Var(&f.ignore, "ignore", 0, "obstacle layers the ray passes through")
	cmd.Flags().BoolVar(&f.twoSided, "two-sided", false, "also hit edges seen from behind")
	return cmd
}

func toVec3(name string, v []float64) (common.Vec3, error) {
	if len(v) != 3 {
		return common.Vec3{}, fmt.Errorf("--%s needs three components, got %d", name, len(v))
	}
	return common.Vec3{v[0], v[1], v[2]}, nil
}

func runRaycast(ctx context.Context, out io.Writer, args []string, f rayFlags) error {
	plane, err := raycast.ParseAxisPair(f.plane)
	if err != nil {
		return err
	}
	origin, err := toVec3("origin", f.origin)
	if err != nil {
		return err
	}
	dir, err := toVec3("dir", f.dir)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if f.scenario != "" {
		cfg.Scenario.Name = f.scenario
	}
	s, err := newSession(cfg, false)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	provider := &raycast.Provider{Plane: plane, Workers: cfg.Workers}
	rays, err := provider.Project(ctx, []raycast.Ray{{
		Origin:      origin,
		Dir:         dir,
		Distance:    f.distance,
		LayerIgnore: f.ignore,
		TwoSided:    f.twoSided,
	}})
	if err != nil {
		return err
	}

	hit, ok := raycast.FirstHit(&rays[0], s.sim.Obstacles())
	if !ok {
		fmt.Fprintf(out, "no hit within %.2f on %s\n", f.distance, plane)
		return nil
	}
	fmt.Fprintf(out, "hit edge %d at (%.2f, %.2f) distance %.2f on %s\n",
		hit.Edge, hit.Point[0], hit.Point[1], hit.Distance, plane)
	s.logger.Debug("ray hit",
		zap.Int("edge", hit.Edge),
		zap.Float64("distance", hit.Distance),
		zap.Float64("baseline", rays[0].Baseline))
	return nil
}

type session struct {
	id       uuid.UUID
	cfg      *config.Config
	logger   *zap.Logger
	sim      *simulator.Simulator
	scenario *scenario.Scenario
	hub      *stream.Hub
}

func loadConfig(args []string) (*config.Config, error) {
	if len(args) == 0 {
		return config.Default(), nil
	}
	return config.Load(args[0])
}

// newSession builds the logger, the simulator and the scenario described by
// cfg. With streaming set, every step is published to a websocket hub.
func newSession(cfg *config.Config, streaming bool) (*session, error) {
	orca.Epsilon = cfg.Epsilon

	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	s := &session{id: uuid.New(), cfg: cfg}
	s.logger = logger.With(zap.Stringer("run", s.id))

	opts := []simulator.Option{simulator.WithLogger(s.logger)}
	if streaming {
		s.hub = stream.NewHub(s.logger, cfg.Stream.Buffer)
		opts = append(opts, simulator.WithPublisher(s.hub))
	}
	s.sim = simulator.New(cfg, opts...)

	if s.scenario, err = scenario.Build(s.sim, cfg.Scenario); err != nil {
		return nil, err
	}

	s.logger.Info("scenario ready",
		zap.String("scenario", s.scenario.Name),
		zap.Int("agents", s.sim.NumAgents()),
		zap.Int("obstacle_edges", s.sim.Obstacles().Len()),
		zap.Int("workers", cfg.Workers))
	return s, nil
}

func runBatch(ctx context.Context, out io.Writer, args []string, name string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if name != "" {
		cfg.Scenario.Name = name
	}
	s, err := newSession(cfg, false)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	start := time.Now()
	for s.sim.Tick() < uint64(cfg.Scenario.Steps) && !s.scenario.Done(s.sim) {
		s.scenario.Update(s.sim)
		if err := s.sim.Step(ctx); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)
	arrived := s.scenario.Done(s.sim)

	rate := 0.0
	if elapsed > 0 {
		rate = float64(s.sim.Tick()) * float64(s.sim.NumAgents()) / elapsed.Seconds()
	}

	fmt.Fprintf(out, "run %s: %s\n", s.id, s.scenario.Name)
	fmt.Fprintf(out, "  agents       %s\n", humanize.Comma(int64(s.sim.NumAgents())))
	fmt.Fprintf(out, "  ticks        %s (%.2fs simulated)\n", humanize.Comma(int64(s.sim.Tick())), s.sim.GlobalTime())
	fmt.Fprintf(out, "  wall time    %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  throughput   %s agent steps/s\n", humanize.CommafWithDigits(rate, 0))
	fmt.Fprintf(out, "  arrived      %t\n", arrived)

	s.logger.Info("run finished",
		zap.Uint64("ticks", s.sim.Tick()),
		zap.Duration("elapsed", elapsed),
		zap.Bool("arrived", arrived))
	return nil
}

func runServe(ctx context.Context, args []string, addr string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Stream.Addr = addr
	}
	s, err := newSession(cfg, true)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	mux := http.NewServeMux()
	mux.Handle("/frames", s.hub)
	srv := &http.Server{Addr: cfg.Stream.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("streaming frames", zap.String("addr", cfg.Stream.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ticker := time.NewTicker(time.Duration(cfg.TimeStep * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			s.logger.Info("stopped",
				zap.Uint64("ticks", s.sim.Tick()),
				zap.Int("clients", s.hub.Clients()),
				zap.String("dropped_frames", humanize.Comma(int64(s.hub.Dropped()))))
			return nil
		case err := <-serveErr:
			return err
		case <-ticker.C:
			s.scenario.Update(s.sim)
			if err := s.sim.Step(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		}
	}
}
