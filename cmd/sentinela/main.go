package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dropDatabas3/sentinela/internal/app"
	"github.com/dropDatabas3/sentinela/internal/config"
	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"github.com/dropDatabas3/sentinela/internal/security/password"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env en dev; en prod las vars vienen del entorno
	_ = godotenv.Load()

	var (
		cfgPath string
		migrate bool
	)

	root := &cobra.Command{
		Use:           "sentinela",
		Short:         "Núcleo de autenticación/autorización del panel admin",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "ruta del YAML de configuración")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			initLogger(cfg)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, migrate)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
	serve.Flags().BoolVar(&migrate, "migrate", false, "corre el bootstrap de schema antes de servir")

	syncPerms := &cobra.Command{
		Use:   "sync-perms [roleID]",
		Short: "Reconcilia permisos contra el catálogo (todos los roles, o uno)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			initLogger(cfg)
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Store.Close()

			if len(args) == 1 {
				return a.Engine.SyncRole(ctx, args[0])
			}
			return a.Engine.SyncAll(ctx)
		},
	}

	hashPwd := &cobra.Command{
		Use:   "hash-password <plain>",
		Short: "Hashea un password con los parámetros del sistema (para seeds)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			phc, err := password.Hash(password.Default, cfg.Auth.Pepper, args[0])
			if err != nil {
				return err
			}
			fmt.Println(phc)
			return nil
		},
	}

	root.AddCommand(serve, syncPerms, hashPwd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) {
	env := "dev"
	if cfg.IsProd() {
		env = "prod"
	}
	logger.Init(logger.Config{Env: env, Level: "info", ServiceName: "sentinela"})
}
