// Command resolve performs a single handle resolution from the terminal and
// prints the result as JSON. Useful for verifying credentials and upstream
// connectivity without standing up the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/handlegraph/followings-gateway/internal/config"
	"github.com/handlegraph/followings-gateway/internal/registration"
	"github.com/handlegraph/followings-gateway/internal/runtime"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the config file")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for the resolution")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: resolve [flags] <handle>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	registration.RegisterBuiltins()

	resolver, err := runtime.BuildResolver(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build resolver: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, apiErr := resolver.Resolve(ctx, flag.Arg(0))
	if apiErr != nil {
		out, _ := json.MarshalIndent(apiErr, "", "  ")
		fmt.Fprintln(os.Stderr, string(out))
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
