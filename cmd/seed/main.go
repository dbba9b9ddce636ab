// Command seed bootstraps the schema and fills it with synthetic pilots and
// drones for local development.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/skyguard/fleet-backend/internal/config"
	"github.com/skyguard/fleet-backend/internal/db"
	"github.com/skyguard/fleet-backend/internal/pilot"
	"github.com/skyguard/fleet-backend/internal/position"
	"github.com/skyguard/fleet-backend/internal/seeds"
)

type rootOptions struct {
	DatabaseURL string
	Seed        int64

	cfg config.Config
	db  *gorm.DB
	log *slog.Logger
}

func main() {
	_ = godotenv.Load(".env.local")
	opts := &rootOptions{}
	err := execute(newRootCommand(opts), opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

// execute runs cmd and closes the connection whether or not the command
// failed. Cobra skips post-run hooks after a RunE error.
func execute(cmd *cobra.Command, opts *rootOptions) error {
	err := cmd.Execute()
	if cerr := db.Close(opts.db); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Create the fleet schema and load synthetic data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.connect(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "database URL (default: $DATABASE_URL)")
	cmd.PersistentFlags().Int64Var(&opts.Seed, "seed", 0, "random seed (default: current time)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newPilotsCommand(opts))
	cmd.AddCommand(newDronesCommand(opts))
	return cmd
}

func (o *rootOptions) connect(cmd *cobra.Command) error {
	o.cfg = config.LoadFromEnv()
	if o.DatabaseURL != "" {
		o.cfg.DatabaseURL = o.DatabaseURL
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	o.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: o.cfg.LogLevel})).
		With("component", "seed")

	dbOpts := db.DefaultOptions()
	dbOpts.LogLevel = o.cfg.DBLogLevel
	dbOpts.Logger = o.log
	gdb, err := db.Open(o.cfg.DatabaseURL, dbOpts)
	if err != nil {
		return err
	}
	o.db = gdb
	return nil
}

func (o *rootOptions) stores() (*position.Store, *pilot.Registry) {
	return position.NewStore(o.db, o.cfg.QueryTimeout), pilot.NewRegistry(o.db, o.cfg.QueryTimeout)
}

func (o *rootOptions) rng() *rand.Rand {
	seed := o.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the drones and pilots tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), opts)
		},
	}
}

func migrate(ctx context.Context, opts *rootOptions) error {
	positions, pilots := opts.stores()
	if err := pilots.Migrate(ctx); err != nil {
		return err
	}
	if err := positions.Migrate(ctx); err != nil {
		return err
	}
	opts.log.Info("schema ready")
	return nil
}

func newPilotsCommand(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "pilots",
		Short: "Register random pilots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate(cmd.Context(), opts); err != nil {
				return err
			}
			_, registry := opts.stores()
			res, err := seeds.SeedPilots(cmd.Context(), registry, opts.rng(), count)
			fmt.Fprintf(cmd.OutOrStdout(), "pilots: %s\n", res)
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of pilots to generate")
	return cmd
}

func newDronesCommand(opts *rootOptions) *cobra.Command {
	var (
		count      int
		withPilots bool
	)
	cmd := &cobra.Command{
		Use:   "drones",
		Short: "Append random drone positions around Astana",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate(cmd.Context(), opts); err != nil {
				return err
			}
			positions, registry := opts.stores()
			res, err := seeds.SeedDrones(cmd.Context(), positions, registry, opts.rng(), count, time.Now(), withPilots)
			fmt.Fprintf(cmd.OutOrStdout(), "drones: %s\n", res)
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 200, "number of drones to generate")
	cmd.Flags().BoolVar(&withPilots, "with-pilots", false, "assign each drone a registered pilot")
	return cmd
}
