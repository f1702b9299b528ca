package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/app"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/config"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s [#/view]                 open the client (default #/board)\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s mcp [-t stdio|http]      serve the task tools over MCP\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s cli login -email <email> sign in without the client\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s cli status               show the stored session\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s [cli] logout             forget the stored session\n", os.Args[0])
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	command := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "#") {
		command = args[0]
	}

	switch command {
	case "":
		fragment := ""
		if len(args) > 0 {
			fragment = args[0]
		}
		runClient(ctx, cfg, fragment)
	case "mcp":
		runMCP(cfg, args[1:])
	case "cli":
		runCLI(ctx, cfg, args[1:])
	case "logout":
		runCLI(ctx, cfg, args)
	default:
		usage()
		os.Exit(2)
	}
}

func runClient(ctx context.Context, cfg *config.Config, fragment string) {
	a, err := app.New(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if err := a.Run(ctx, os.Stdin, os.Stdout, fragment); err != nil && !errors.Is(err, context.Canceled) {
		a.Close()
		log.Fatalf("Client error: %v", err)
	}
}

func runMCP(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	transport := fs.String("t", "stdio", "Transport type (stdio or http)")
	fs.StringVar(transport, "transport", "stdio", "Transport type (stdio or http)")
	fs.Parse(args)

	// stdout carries the protocol in stdio mode.
	a, err := app.New(cfg, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer a.Close()

	if !a.Session.Authenticated() {
		log.Printf("No stored session; tools will fail until you sign in with: %s cli login", os.Args[0])
	}

	kairoServer := NewKairoMCPServer(a)
	if err := kairoServer.serve(*transport); err != nil {
		a.Close()
		log.Fatalf("Server error: %v", err)
	}
}

func runCLI(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	email := fs.String("email", "", "Account email for login")
	fs.Parse(args[1:])

	a, err := app.New(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	var cmdErr error
	switch args[0] {
	case "login":
		if *email == "" {
			fmt.Fprintf(os.Stderr, "Email is required for login\n")
			fmt.Fprintf(os.Stderr, "Usage: %s cli login -email <email>\n", os.Args[0])
			a.Close()
			os.Exit(1)
		}
		cmdErr = login(ctx, a, *email)
	case "status":
		showStatus(a)
	case "logout":
		cmdErr = logout(a)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "Available commands: login, status, logout\n")
		a.Close()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", cmdErr)
		a.Close()
		os.Exit(1)
	}
}

func login(ctx context.Context, a *app.App, email string) error {
	fmt.Printf("Signing in as %s\n", email)

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return errors.New("password cannot be empty")
	}

	if _, err := a.Deps.Users.Login(ctx, models.Credentials{Email: email, Password: string(passwordBytes)}); err != nil {
		if api.IsStatus(err, 401) {
			return errors.New("login failed: invalid email or password")
		}
		return fmt.Errorf("login failed: %w", err)
	}
	if !a.Session.Authenticated() {
		return errors.New("login failed: the server did not return a token")
	}

	fmt.Printf("✓ Signed in\n")
	fmt.Printf("  Email: %s\n", a.Session.Email())
	fmt.Printf("  API: %s\n", a.Config.APIBaseURL())
	return nil
}

func showStatus(a *app.App) {
	if !a.Session.Authenticated() {
		fmt.Println("Not signed in")
		return
	}

	fmt.Println("Signed in")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Email: %s\n", a.Session.Email())
	fmt.Printf("API: %s\n", a.Config.APIBaseURL())
	fmt.Printf("Session store: %s\n", a.Config.Storage.DataDir)
}

func logout(a *app.App) error {
	if !a.Session.Authenticated() {
		fmt.Println("Not signed in")
		return nil
	}

	fmt.Printf("Forget the session for %s? (s/N): ", a.Session.Email())
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "s", "si", "sí", "y", "yes":
	default:
		fmt.Println("Logout cancelled")
		return nil
	}

	if err := a.Logout(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Println("✓ Session cleared")
	return nil
}
