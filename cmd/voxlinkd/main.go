// Command voxlinkd runs the voxlink provider orchestration service. It
// probes the configured telephony providers and serves health, provider
// status, cache administration and Prometheus metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aks-o/voxlink-sub005/config"
	"github.com/aks-o/voxlink-sub005/secret"
)

func main() {
	configPath := flag.String("config", "voxlink.yaml", "path to the YAML configuration file")
	secretsDir := flag.String("secrets-dir", "", "directory served to secretref:file: references")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *secretsDir); err != nil {
		fmt.Fprintf(os.Stderr, "voxlinkd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, secretsDir string) error {
	resolver := secret.NewResolver(true, secret.EnvProvider{})
	if secretsDir != "" {
		resolver.Register(secret.NewFileProvider(secretsDir))
	}
	defer resolver.Close()

	cfg, err := config.Load(ctx, configPath, resolver)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	return a.serve(ctx)
}
