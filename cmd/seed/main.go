// Command seed migrates the database and creates the initial admin login.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"classroll/internal/config"
	"classroll/internal/school"
	"classroll/internal/store"
)

func main() {
	cfg := config.Load()
	name := flag.String("name", cfg.AdminName, "admin display name")
	email := flag.String("email", cfg.AdminEmail, "admin email")
	password := flag.String("password", cfg.AdminPassword, "admin password")
	flag.Parse()

	if *password == "" {
		log.Fatal("admin password required (-password or ADMIN_PASSWORD)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	svc := school.NewService(school.NewPostgresRepository(db.Client))
	usr, created, err := svc.EnsureAdmin(ctx, *name, *email, *password)
	if err != nil {
		log.Fatalf("ensure admin failed: %v", err)
	}
	if created {
		log.Printf("created admin %s (%s)", usr.Email, usr.ID)
	} else {
		log.Printf("admin %s already exists", usr.Email)
	}
}
