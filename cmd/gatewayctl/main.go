// Command gatewayctl is the operator tool for managing gateway clients.
// It mints credentials and registers clients directly against the
// database; the gateway itself never writes credentials.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/lmnpay/gateway/pkg/clients"
)

var log = logrus.New()

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create-client":
		err = createClient(os.Args[2:])
	case "hash-secret":
		err = hashSecret(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		log.Errorf("Unknown command: %s", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal("Command failed")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: gatewayctl <command> [flags]

Commands:
  create-client   Register a client and mint its API credentials
  hash-secret     Print the stored hash for a secret (for verification)

Run "gatewayctl <command> -h" for command flags.
`)
}

func createClient(args []string) error {
	fs := flag.NewFlagSet("create-client", flag.ExitOnError)
	dbURL := fs.String("db-url", os.Getenv("LMN_POSTGRES_URL"), "PostgreSQL connection URL")
	name := fs.String("name", "", "Client display name (required)")
	email := fs.String("email", "", "Client contact email (required)")
	plan := fs.String("plan", string(clients.PlanFree), "Plan tier (free, basic, premium, enterprise)")
	scopes := fs.String("scopes", string(clients.ScopePaymentsRead), "Comma-separated scopes")
	allowedIPs := fs.String("allowed-ips", "", "Comma-separated IP allow-list (empty = unrestricted)")
	perMinute := fs.Int("per-minute", 0, "Requests per minute (0 = plan default)")
	perHour := fs.Int("per-hour", 0, "Requests per hour (0 = plan default)")
	perDay := fs.Int("per-day", 0, "Requests per day (0 = plan default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" || *email == "" {
		return fmt.Errorf("both -name and -email are required")
	}
	if *dbURL == "" {
		return fmt.Errorf("-db-url or LMN_POSTGRES_URL is required")
	}

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := clients.NewPostgresStore(db)
	if err != nil {
		return err
	}

	generator := clients.NewCredentialGenerator()
	apiKey, secret, secretHash, err := generator.GenerateKeyPair()
	if err != nil {
		return err
	}

	limits := clients.DefaultRateLimits()
	if *perMinute > 0 {
		limits.PerMinute = *perMinute
	}
	if *perHour > 0 {
		limits.PerHour = *perHour
	}
	if *perDay > 0 {
		limits.PerDay = *perDay
	}

	client := &clients.Client{
		ID:            uuid.NewString(),
		Name:          *name,
		Email:         *email,
		APIKey:        apiKey,
		APISecretHash: secretHash,
		Status:        clients.StatusActive,
		Plan:          clients.PlanTier(*plan),
		Scopes:        parseScopes(*scopes),
		AllowedIPs:    splitList(*allowedIPs),
		Limits:        limits,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.CreateClient(ctx, client); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"client_id": client.ID,
		"plan":      client.Plan,
		"scopes":    client.Scopes,
	}).Info("Client created")

	// The secret is shown exactly once; only its hash is stored.
	fmt.Printf("\nClient ID:  %s\n", client.ID)
	fmt.Printf("API key:    %s\n", apiKey)
	fmt.Printf("API secret: %s\n", secret)
	fmt.Println("\nStore the secret now. It cannot be recovered later.")
	return nil
}

func hashSecret(args []string) error {
	fs := flag.NewFlagSet("hash-secret", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: gatewayctl hash-secret <secret>")
	}
	fmt.Println(clients.HashSecret(fs.Arg(0)))
	return nil
}

func parseScopes(s string) []clients.Scope {
	var out []clients.Scope
	for _, part := range splitList(s) {
		out = append(out, clients.Scope(part))
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
