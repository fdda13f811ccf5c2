package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spec-kit/storefront-service/internal/client/api"
	"github.com/spec-kit/storefront-service/internal/client/session"
	"github.com/spec-kit/storefront-service/internal/client/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	server := flags.String("server", "http://localhost:8080", "auth server base URL")
	dbPath := flags.String("db", defaultDBPath(), "local session database path")
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	name := flags.String("name", "", "account name (register only)")
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open session db: %v", err)
	}
	defer db.Close()

	store, err := storage.NewSQLiteStore(ctx, db)
	if err != nil {
		log.Fatalf("init session store: %v", err)
	}

	manager := session.NewManager(api.NewClient(*server), store)

	switch command {
	case "register":
		requireFlags(map[string]string{"email": *email, "password": *password, "name": *name})
		if err := manager.Register(ctx, *email, *password, *name); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		fmt.Printf("registered as %s\n", manager.Account().Email)
	case "login":
		requireFlags(map[string]string{"email": *email, "password": *password})
		if err := manager.Login(ctx, *email, *password); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		fmt.Printf("logged in as %s\n", manager.Account().Email)
	case "whoami":
		if err := manager.Restore(ctx); err != nil {
			log.Fatalf("restore failed: %v", err)
		}
		if !manager.IsAuthenticated() {
			fmt.Println("not logged in")
			os.Exit(1)
		}
		account := manager.Account()
		fmt.Printf("%s (%s, role=%s)\n", account.Email, account.Name, account.Role)
	case "logout":
		if err := manager.Restore(ctx); err != nil {
			log.Fatalf("restore failed: %v", err)
		}
		manager.Logout(ctx)
		fmt.Println("logged out")
	default:
		usage()
		os.Exit(2)
	}
}

func requireFlags(values map[string]string) {
	for flagName, value := range values {
		if value == "" {
			log.Fatalf("-%s is required", flagName)
		}
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "storefront-session.db"
	}
	return filepath.Join(home, ".storefront-session.db")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: client <register|login|whoami|logout> [flags]")
}
