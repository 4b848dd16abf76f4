package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/giga-sharing/gateway/internal/server"
	"github.com/giga-sharing/gateway/internal/service"
	"github.com/giga-sharing/gateway/internal/sharing"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Long:  "Start the HTTP server that authenticates sharing keys and forwards Delta Sharing requests upstream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(verbose)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(verbose bool) error {
	logger := newLogger(verbose)

	store, err := openStore()
	if err != nil {
		return err
	}
	logger.Info("key store opened", "driver", viper.GetString("store.driver"))

	upstreamURL := viper.GetString("upstream.base_url")
	if upstreamURL == "" {
		store.Close()
		return fmt.Errorf("upstream.base_url is required (GATEWAY_UPSTREAM_BASE_URL)")
	}
	clientCfg := sharing.DefaultConfig()
	clientCfg.BaseURL = upstreamURL
	clientCfg.BearerToken = viper.GetString("upstream.bearer_token")
	if d := viper.GetDuration("upstream.metadata_timeout"); d > 0 {
		clientCfg.MetadataTimeout = d
	}
	if d := viper.GetDuration("upstream.query_timeout"); d > 0 {
		clientCfg.QueryTimeout = d
	}
	client, err := sharing.NewClient(clientCfg, nil, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("init upstream client: %w", err)
	}
	logger.Info("upstream configured", "base_url", upstreamURL)

	rootToken := viper.GetString("auth.root_token")
	if rootToken == "" {
		logger.Warn("no root token configured, only stored keys can authenticate")
	}
	authSvc := service.NewAuthService(store, rootToken, logger)
	keySvc := service.NewKeyService(store, profileEndpoint(), viper.GetString("auth.bootstrap_key_id"), logger)

	if _, err := store.ListRoles(context.Background()); err != nil {
		logger.Warn("role catalog unreachable at startup", "error", err)
	}

	srvCfg := server.Config{
		Host:             viper.GetString("server.host"),
		Port:             viper.GetInt("server.port"),
		ShutdownTimeout:  30 * time.Second,
		CORSOrigins:      corsOrigins(),
		KeyRatePerMinute: viper.GetInt("server.key_rate_per_minute"),
	}

	srv := server.New(srvCfg, store, client, authSvc, keySvc, logger)

	fmt.Printf("Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("OpenAPI: http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("Health:  http://%s:%d/health\n", srvCfg.Host, srvCfg.Port)

	return srv.ListenAndServe()
}

func corsOrigins() []string {
	if origins := viper.GetStringSlice("server.cors_origins"); len(origins) > 0 {
		return origins
	}
	return []string{"*"}
}
