package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/giga-sharing/gateway/internal/config"
)

// openStore opens the key store configured through store.driver and
// store.dsn (GATEWAY_STORE_DRIVER / GATEWAY_STORE_DSN).
func openStore() (*config.Store, error) {
	driver := viper.GetString("store.driver")
	dsn := viper.GetString("store.dsn")
	store, err := config.NewStore(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store (%s): %w", driver, err)
	}
	return store, nil
}

// newLogger builds the process logger. Debug level when verbose is set.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// profileEndpoint returns the public endpoint written into issued profile
// files. Falls back to the local listen address when unset.
func profileEndpoint() string {
	if ep := viper.GetString("profile.endpoint"); ep != "" {
		return ep
	}
	return fmt.Sprintf("http://%s:%d", viper.GetString("server.host"), viper.GetInt("server.port"))
}
