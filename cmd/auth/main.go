package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/stemsi/edutest/internal/apiclient"
	"github.com/stemsi/edutest/internal/auth"
	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/database"
	"github.com/stemsi/edutest/internal/logger"
	"github.com/stemsi/edutest/internal/model"
)

const usage = "usage: auth <login|logout|whoami>"

// auth signs the agent in ahead of time so the server starts with a stored
// token. It needs REDIS_URL; the in-memory store would be lost on exit.
func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.New(os.Stderr, cfg.LogLevel, "pretty")

	ctx := context.Background()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb == nil {
		fmt.Println("Error: REDIS_URL is required to store credentials")
		os.Exit(1)
	}
	defer rdb.Close()

	sess := auth.NewSession(auth.NewRedisStore(rdb), log)
	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, sess, log)

	switch os.Args[1] {
	case "login":
		err = login(ctx, client, sess)
	case "logout":
		err = sess.Clear(ctx)
		if err == nil {
			fmt.Println("Signed out.")
		}
	case "whoami":
		err = whoami(ctx, client, sess)
	default:
		fmt.Println(usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func login(ctx context.Context, client *apiclient.Client, sess *auth.Session) error {
	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Sign In ===")

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Newline after password input
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	resp, err := client.Login(ctx, model.LoginRequest{Email: email, Password: string(bytePassword)})
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			return errors.New(apiErr.UserMessage())
		}
		return err
	}

	if err := sess.Login(ctx, resp); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	if resp.User.Role != model.RoleStudent {
		fmt.Printf("Warning: %s is a %s account; tests can only be taken as a student.\n", resp.User.Email, resp.User.Role)
	}
	fmt.Printf("Signed in as %s %s (%s)\n", resp.User.FirstName, resp.User.LastName, resp.User.Email)
	return nil
}

func whoami(ctx context.Context, client *apiclient.Client, sess *auth.Session) error {
	if err := sess.Init(ctx, client); err != nil {
		return fmt.Errorf("stored credentials are no longer valid: %w", err)
	}
	u := sess.User()
	if u == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("%s %s <%s> role=%s id=%s\n", u.FirstName, u.LastName, u.Email, u.Role, u.ID)
	return nil
}
