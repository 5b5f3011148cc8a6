// Seeds the database with the practice admin account and, outside
// production, a test patient and a weekday availability schedule.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/psipractice/booking-api/internal/availability"
	appconfig "github.com/psipractice/booking-api/internal/config"
	"github.com/psipractice/booking-api/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal("ADMIN_PASSWORD is required")
	}
	adminEmail := cfg.AdminEmail
	if adminEmail == "" {
		log.Fatal("ADMIN_EMAIL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	userRepo := users.NewPostgresRepository(pool)

	seedUser(ctx, userRepo, adminEmail, adminPassword, "Practice", "Admin", users.RoleAdmin)

	if cfg.Env != "production" {
		seedUser(ctx, userRepo, "patient@example.com", "patient-password", "Test", "Patient", users.RolePatient)
		seedSchedule(ctx, availability.NewPostgresRepository(pool))
	}

	log.Println("seed complete")
}

func seedUser(ctx context.Context, repo *users.PostgresRepository, email, password, first, last, role string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	_, err = repo.Create(ctx, &users.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    first,
		LastName:     last,
		Role:         role,
	})
	switch err {
	case nil:
		log.Printf("created %s user %s", role, email)
	case users.ErrEmailTaken:
		log.Printf("%s user %s already exists", role, email)
	default:
		log.Fatalf("create %s user: %v", role, err)
	}
}

// seedSchedule opens 40-minute weekday slots from 09:00 to 12:20 so a fresh
// environment has something to book.
func seedSchedule(ctx context.Context, repo *availability.PostgresRepository) {
	existing, err := repo.ListAll(ctx)
	if err != nil {
		log.Fatalf("list windows: %v", err)
	}
	if len(existing) > 0 {
		log.Println("availability windows already seeded")
		return
	}

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for day := 1; day <= 5; day++ {
		for slot := 0; slot < 5; slot++ {
			start := anchor.Add(9*time.Hour + time.Duration(slot)*40*time.Minute)
			end := start.Add(40 * time.Minute)
			_, err := repo.Create(ctx, &availability.CreateWindowRequest{
				IsRecurring: true,
				DayOfWeek:   &day,
				StartTime:   start,
				EndTime:     end,
			})
			if err != nil {
				log.Fatalf("create window: %v", err)
			}
		}
	}
	log.Println("seeded weekday availability windows")
}
