// ABOUTME: One-shot RPC CLI for fold gateways.
// ABOUTME: Dials the gateway websocket, performs the hello handshake, issues one call, prints the result.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/fold-cli/internal/auth"
	"github.com/2389/fold-cli/internal/call"
	"github.com/2389/fold-cli/internal/config"
)

const banner = `
   __      _     _            _ _
  / _| ___| | __| |       ___(_) |
 | |_ / _ \ |/ _' |_____ / __| | |
 |  _| (_) | | (_| |_____| (__| | |
 |_|  \___/|_|\__,_|      \___|_|_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "call":
		err = cmdCall(ctx, args)
	case "ping":
		err = cmdPing(ctx, args)
	case "token":
		err = cmdToken(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: fold-call <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  call <method> [params]   Invoke a gateway method (params as a JSON value, default {})")
	fmt.Println("  ping                     Round-trip health check against the gateway")
	fmt.Println("  token create             Mint an HS256 JWT for a dev gateway")
	fmt.Println("  token verify <token>     Verify a JWT against a shared secret")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  FOLD_GATEWAY_URL         Gateway websocket URL (ws:// or wss://)")
	fmt.Println("  FOLD_TOKEN               Bearer token sent in the hello frame")
	fmt.Println("  FOLD_CALL_CONFIG         Config file path (default: ~/.config/fold/call.toml)")
	fmt.Println()
	fmt.Println("Run 'fold-call call -h' for per-call flags.")
}

// callFlags holds the flag values shared by the call and ping commands.
type callFlags struct {
	configPath    string
	url           string
	token         string
	password      string
	timeout       time.Duration
	expectFinal   bool
	progress      bool
	instanceID    string
	clientName    string
	clientVersion string
	platform      string
	mode          string
	minProtocol   int
	maxProtocol   int
	logLevel      string
}

// register wires the shared flags onto a flag set.
func (f *callFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", config.DefaultPath(), "Config file path")
	fs.StringVar(&f.url, "url", "", "Gateway websocket URL (overrides config and FOLD_GATEWAY_URL)")
	fs.StringVar(&f.token, "token", "", "Bearer token (overrides FOLD_TOKEN and config)")
	fs.StringVar(&f.password, "password", "", "Gateway password (alternative to token auth)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Overall call deadline (default 10s)")
	fs.BoolVar(&f.expectFinal, "final", false, "Wait past partial frames for the final frame")
	fs.BoolVar(&f.progress, "progress", false, "Print partial payloads to stderr while waiting")
	fs.StringVar(&f.instanceID, "instance", "", "Instance id (default: freshly generated)")
	fs.StringVar(&f.clientName, "client-name", "", `Client name sent in hello (default "cli")`)
	fs.StringVar(&f.clientVersion, "client-version", "", `Client version sent in hello (default "dev")`)
	fs.StringVar(&f.platform, "platform", runtime.GOOS, "Platform string sent in hello")
	fs.StringVar(&f.mode, "mode", "", `Client mode sent in hello (default "cli")`)
	fs.IntVar(&f.minProtocol, "min-protocol", 0, "Lowest acceptable protocol version (default: current)")
	fs.IntVar(&f.maxProtocol, "max-protocol", 0, "Highest acceptable protocol version (default: current)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// options merges flags over the config file and environment into call
// options. Precedence: flag > env > config file > built-in default.
func (f *callFlags) options() (call.Options, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return call.Options{}, err
	}

	url := f.url
	if url == "" {
		url = os.Getenv("FOLD_GATEWAY_URL")
	}
	if url == "" {
		url = cfg.Gateway.URL
	}
	if url == "" {
		return call.Options{}, fmt.Errorf("no gateway URL: pass -url, set FOLD_GATEWAY_URL, or configure gateway.url")
	}

	password := f.password
	if password == "" {
		password = cfg.Gateway.Password
	}

	timeout := f.timeout
	if timeout == 0 {
		timeout = cfg.Call.Timeout
	}

	opts := call.Options{
		URL:           url,
		Token:         auth.ResolveToken(f.token, cfg.Gateway.Token),
		Password:      password,
		InstanceID:    f.instanceID,
		ClientName:    firstNonEmpty(f.clientName, cfg.Client.Name),
		ClientVersion: firstNonEmpty(f.clientVersion, cfg.Client.Version),
		Platform:      firstNonEmpty(f.platform, cfg.Client.Platform),
		Mode:          firstNonEmpty(f.mode, cfg.Client.Mode),
		MinProtocol:   f.minProtocol,
		MaxProtocol:   f.maxProtocol,
		Timeout:       timeout,
		ExpectFinal:   f.expectFinal,
		Logger:        setupLogger(firstNonEmpty(f.logLevel, cfg.Logging.Level)),
	}
	if opts.MinProtocol == 0 {
		opts.MinProtocol = cfg.Client.MinProtocol
	}
	if opts.MaxProtocol == 0 {
		opts.MaxProtocol = cfg.Client.MaxProtocol
	}

	if f.progress {
		opts.OnPartial = func(partial json.RawMessage) {
			fmt.Fprintln(os.Stderr, string(partial))
		}
	}

	return opts, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func cmdCall(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	var flags callFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: fold-call call <method> [params]")
	}
	method := fs.Arg(0)

	params := json.RawMessage(`{}`)
	if fs.NArg() > 1 {
		raw := []byte(fs.Arg(1))
		if !json.Valid(raw) {
			return fmt.Errorf("params must be a valid JSON value")
		}
		params = raw
	}

	opts, err := flags.options()
	if err != nil {
		return err
	}

	result, err := call.Gateway(ctx, method, params, opts)
	if err != nil {
		return err
	}

	return printResult(result)
}

func cmdPing(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	var flags callFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := flags.options()
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := call.Gateway(ctx, "ping", json.RawMessage(`{}`), opts)
	if err != nil {
		return err
	}

	color.Green("gateway answered in %s", time.Since(start).Round(time.Millisecond))
	return printResult(result)
}

func cmdToken(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fold-call token <create|verify> [args]")
	}

	switch args[0] {
	case "create":
		return cmdTokenCreate(args[1:])
	case "verify":
		return cmdTokenVerify(args[1:])
	default:
		return fmt.Errorf("unknown token subcommand: %s", args[0])
	}
}

func cmdTokenCreate(args []string) error {
	fs := flag.NewFlagSet("token create", flag.ExitOnError)
	secret := fs.String("secret", os.Getenv("FOLD_JWT_SECRET"), "Shared JWT secret (or FOLD_JWT_SECRET)")
	principal := fs.String("principal", "", "Principal id for the sub claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *secret == "" {
		return fmt.Errorf("a JWT secret is required (-secret or FOLD_JWT_SECRET)")
	}
	if *principal == "" {
		return fmt.Errorf("-principal is required")
	}

	token, err := auth.NewMinter([]byte(*secret)).Mint(*principal, *ttl)
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func cmdTokenVerify(args []string) error {
	fs := flag.NewFlagSet("token verify", flag.ExitOnError)
	secret := fs.String("secret", os.Getenv("FOLD_JWT_SECRET"), "Shared JWT secret (or FOLD_JWT_SECRET)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: fold-call token verify <token>")
	}
	if *secret == "" {
		return fmt.Errorf("a JWT secret is required (-secret or FOLD_JWT_SECRET)")
	}

	principal, err := auth.NewMinter([]byte(*secret)).Verify(fs.Arg(0))
	if err != nil {
		return err
	}

	color.Green("token valid")
	fmt.Printf("principal: %s\n", principal)
	return nil
}

// printResult writes the raw result payload to stdout, indented when it
// is a JSON object or array.
func printResult(result json.RawMessage) error {
	if len(result) == 0 {
		fmt.Println("null")
		return nil
	}

	if result[0] == '{' || result[0] == '[' {
		if indented, err := json.MarshalIndent(result, "", "  "); err == nil {
			fmt.Println(string(indented))
			return nil
		}
	}

	fmt.Println(string(result))
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
