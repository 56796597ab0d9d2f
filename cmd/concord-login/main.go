// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// concord-login mints or validates a session token using any of the
// three login strategies, and can save the resulting session to a
// file for other tooling to pick up.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/concord-client/concord/client"
	"github.com/concord-client/concord/gateway"
	"github.com/concord-client/concord/lib/config"
	"github.com/concord-client/concord/lib/secret"
	"github.com/concord-client/concord/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "token":
		return runToken(os.Args[2:])
	case "password":
		return runPassword(os.Args[2:])
	case "device":
		return runDevice(os.Args[2:])
	case "approve":
		return runApprove(os.Args[2:])
	case "version":
		fmt.Printf("concord-login %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: concord-login <subcommand> [flags]

Subcommands:
  token     Log in with an existing token (file, stdin, or CONCORD_TOKEN)
  password  Log in with username and password, prompting for a 2FA code
  device    Register this device and wait for approval from another session
  approve   Approve a device handshake URL using an existing session
  version   Print version information

Run 'concord-login <subcommand> --help' for subcommand flags.
`)
}

// commonFlags holds the flags shared by every login subcommand.
type commonFlags struct {
	configPath  string
	apiBaseURL  string
	sessionFile string
}

func registerCommonFlags(flags *flag.FlagSet) *commonFlags {
	common := &commonFlags{}
	flags.StringVar(&common.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&common.apiBaseURL, "api-base-url", "", "override the REST API root")
	flags.StringVar(&common.sessionFile, "session-file", "", "write the session to this file (mode 0600)")
	return common
}

// session is a built client plus the inputs later steps still need.
type session struct {
	client     *client.Client
	overrides  config.EnvOverrides
	apiBaseURL string
}

// buildClient assembles a Client from the config file, the one-shot
// environment read, and the command-line flags. Flags win over the
// environment, which wins over the file.
func buildClient(common *commonFlags) (*session, error) {
	cfg := config.Default()
	if common.configPath != "" {
		loaded, err := config.LoadFile(common.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides, err := config.ReadEnv()
	if err != nil {
		return nil, err
	}

	baseURL := cfg.APIBaseURL
	if common.apiBaseURL != "" {
		baseURL = common.apiBaseURL
	}

	lifetime, err := cfg.MessageLifetimeDuration()
	if err != nil {
		return nil, err
	}
	interval, err := cfg.SweepIntervalDuration()
	if err != nil {
		return nil, err
	}

	shardCount := cfg.ShardCount
	if overrides.ShardCount > 0 {
		shardCount = overrides.ShardCount
	}

	c, err := client.New(client.Options{
		APIBaseURL:      baseURL,
		Gateway:         gateway.NewMemoryConn(),
		Shards:          config.ParseShardList(cfg.Shards),
		ShardCount:      shardCount,
		ShardOverride:   config.ParseShardList(overrides.Shards),
		MessageLifetime: lifetime,
		SweepInterval:   interval,
	})
	if err != nil {
		return nil, err
	}
	return &session{client: c, overrides: overrides, apiBaseURL: baseURL}, nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runToken(args []string) error {
	flags := flag.NewFlagSet("token", flag.ExitOnError)
	common := registerCommonFlags(flags)
	tokenPath := flags.String("token-file", "", "read the token from this file, or '-' for stdin")
	if err := flags.Parse(args); err != nil {
		return err
	}

	built, err := buildClient(common)
	if err != nil {
		return err
	}
	defer built.client.Destroy()

	var token string
	switch {
	case *tokenPath != "":
		buffer, err := secret.ReadFromPath(*tokenPath)
		if err != nil {
			return err
		}
		token = buffer.String()
		buffer.Close()
	case built.overrides.Token != "":
		token = built.overrides.Token
	default:
		return fmt.Errorf("no token: pass --token-file or set CONCORD_TOKEN")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := built.client.Login(ctx, token); err != nil {
		return err
	}
	return reportSession(ctx, built, common.sessionFile)
}

func runPassword(args []string) error {
	flags := flag.NewFlagSet("password", flag.ExitOnError)
	common := registerCommonFlags(flags)
	username := flags.String("username", "", "account email or phone number")
	mfaCode := flags.String("mfa", "", "two-factor code (6-digit TOTP or xxxx-xxxx backup code)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("--username is required")
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	defer password.Close()

	built, err := buildClient(common)
	if err != nil {
		return err
	}
	defer built.client.Destroy()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := built.client.PasswordLogin(ctx, *username, password.String(), *mfaCode); err != nil {
		return err
	}
	return reportSession(ctx, built, common.sessionFile)
}

// promptPassword reads a password without echo when stdin is a
// terminal, falling back to a plain line read otherwise (piped input).
func promptPassword() (*secret.Buffer, error) {
	stdin := int(os.Stdin.Fd())
	if !term.IsTerminal(stdin) {
		return secret.ReadFromPath("-")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	line, err := term.ReadPassword(stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("password is empty")
	}
	return secret.FromBytes(line)
}

func runDevice(args []string) error {
	flags := flag.NewFlagSet("device", flag.ExitOnError)
	common := registerCommonFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	built, err := buildClient(common)
	if err != nil {
		return err
	}
	defer built.client.Destroy()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintln(os.Stderr, "waiting for approval from an established session (Ctrl-C to abort)")
	token, err := built.client.CreateToken(ctx)
	if err != nil {
		return err
	}
	if _, err := built.client.Login(ctx, token); err != nil {
		return err
	}
	return reportSession(ctx, built, common.sessionFile)
}

func runApprove(args []string) error {
	flags := flag.NewFlagSet("approve", flag.ExitOnError)
	common := registerCommonFlags(flags)
	tokenPath := flags.String("token-file", "", "read the approving session's token from this file, or '-' for stdin")
	cancelHandshake := flags.Bool("cancel", false, "reject the handshake instead of approving it")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: concord-login approve [flags] <handshake-url>")
	}
	if *tokenPath == "" {
		return fmt.Errorf("--token-file is required")
	}

	built, err := buildClient(common)
	if err != nil {
		return err
	}
	defer built.client.Destroy()

	buffer, err := secret.ReadFromPath(*tokenPath)
	if err != nil {
		return err
	}
	token := buffer.String()
	buffer.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := built.client.Login(ctx, token); err != nil {
		return err
	}

	handshake, err := built.client.RemoteAuth(ctx, flags.Arg(0), !*cancelHandshake)
	if err != nil {
		return err
	}
	if *cancelHandshake {
		if err := handshake.Cancel(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "handshake rejected")
		return nil
	}
	fmt.Fprintln(os.Stderr, "handshake approved")
	return nil
}

// sessionFile is the JSON shape written by --session-file.
type sessionFile struct {
	APIBaseURL string `json:"api_base_url"`
	UserID     string `json:"user_id"`
	Token      string `json:"token"`
}

// reportSession prints the session summary and optionally saves the
// session file. The serialized bytes are zeroed after the write; the
// file itself is the caller's responsibility to protect.
func reportSession(ctx context.Context, built *session, path string) error {
	profile, err := built.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "logged in as %s#%s (session %s)\n",
		profile.Username, profile.Discriminator, built.client.SessionID())

	if path == "" {
		return nil
	}

	data, err := json.Marshal(sessionFile{
		APIBaseURL: built.apiBaseURL,
		UserID:     profile.ID,
		Token:      built.client.Token(),
	})
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}
	writeErr := os.WriteFile(path, data, 0o600)
	secret.Zero(data)
	if writeErr != nil {
		return fmt.Errorf("writing session file: %w", writeErr)
	}
	fmt.Fprintf(os.Stderr, "session saved to %s\n", path)
	return nil
}
