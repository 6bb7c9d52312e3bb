// Command createadmin provisions an admin user directly in the database.
// The public signup route only ever creates plain users, so this tool is
// the single path for granting the admin role.
package main

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/dvmarques/sessionauth/internal/server/auth"
	"github.com/dvmarques/sessionauth/internal/server/config"
	"github.com/dvmarques/sessionauth/internal/server/models"
	"github.com/dvmarques/sessionauth/internal/server/repositories/repomanager"
)

func main() {

	defaults := &config.Config{}
	defaults.LoadDefaults()

	dsn := flag.String("d", defaults.DatabaseDSN, "database DSN")
	email := flag.String("e", "", "admin email")
	flag.Parse()

	if *email == "" {
		reader := bufio.NewReader(os.Stdin)
		fmt.Println("Enter admin email")
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Fatalf("%v", err)
		}
		*email = strings.TrimSpace(line)
	}

	password, err := promptPassword()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	passwordHash, err := auth.HashSecret(string(password))
	if err != nil {
		log.Fatalf("hash error: %v", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        *email,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}

	if _, err := rm.Users(db).Create(ctx, user); err != nil {
		log.Fatalf("error creating admin: %v", err)
	}

	fmt.Printf("Created admin %s (id=%s)\n", user.Email, user.ID)

}

func promptPassword() ([]byte, error) {
	fmt.Println("Enter password")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}

	fmt.Println("Repeat password")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(password, confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}

	return password, nil
}
