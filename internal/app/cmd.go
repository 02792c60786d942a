package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version はビルド時に -ldflags で埋め込まれるバージョン文字列。
var Version = "dev"

const appName = "sleeplog"

// options はサブコマンド間で共有するフラグ値。
type options struct {
	configPath string
	migrate    bool
}

// NewRootCommand はsleeplogのルートコマンドを生成する。
// サブコマンド指定なしで起動した場合はserveと同じ動作をする。
// ログはwに出力する。
func NewRootCommand(w io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Sleep log JSON API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), w, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file path (overrides CONFIG_FILE)")
	root.Flags().BoolVar(&opts.migrate, "migrate", false, "Apply pending migrations before serving")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), w, opts)
		},
	}
	serveCmd.Flags().BoolVar(&opts.migrate, "migrate", false, "Apply pending migrations before serving")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w, opts.configPath)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cfg)
		},
	}

	// distroless環境でのDockerヘルスチェック用。設定ファイルは読まない。
	healthcheckCmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the /health endpoint of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := os.Getenv("SERVER_PORT")
			if port == "" {
				port = "8080"
			}
			return runHealthcheck(cmd.Context(), "http://localhost:"+port)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, healthcheckCmd, versionCmd)
	return root
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMでコンテキストがキャンセルされる。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return RunContext(ctx, w, args)
}

// RunContext はctxをルートコマンドに渡してargsを実行する。
func RunContext(ctx context.Context, w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func serve(ctx context.Context, w io.Writer, opts *options) error {
	cfg, err := Init(w, opts.configPath)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if opts.migrate {
		if err := runMigrate(cfg); err != nil {
			return err
		}
	}
	return runServe(ctx, cfg)
}
