package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/annadaan/annadaan-backend/config"
	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	pginfra "github.com/annadaan/annadaan-backend/internal/infrastructure/postgres"
	"github.com/annadaan/annadaan-backend/pkg/helpers"
)

// Seeds a donor, a volunteer and one open donation for local development.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	donations := pginfra.NewDonationRepository(pool)

	hash, err := helpers.HashPassword("password123")
	if err != nil {
		log.Fatalf("hash: %v", err)
	}

	donor := &entity.User{
		FullName:     "Seed Donor",
		PhoneNumber:  "+919800000001",
		PasswordHash: hash,
		Role:         entity.RoleDonor,
		Location:     &entity.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
	}
	if err := users.Create(ctx, donor); err != nil {
		log.Fatalf("seed donor: %v", err)
	}

	volunteer := &entity.User{
		FullName:     "Seed Volunteer",
		PhoneNumber:  "+919800000002",
		PasswordHash: hash,
		Role:         entity.RoleVolunteer,
		Location:     &entity.GeoPoint{Longitude: 77.6, Latitude: 12.97},
	}
	if err := users.Create(ctx, volunteer); err != nil {
		log.Fatalf("seed volunteer: %v", err)
	}

	d := &entity.Donation{
		DonorID: donor.ID,
		FoodItems: []entity.FoodItem{
			{Name: "Rice", Quantity: "10 kg"},
			{Name: "Sambar", Quantity: "5 l"},
		},
		Serves:   40,
		PickupBy: time.Now().Add(24 * time.Hour),
		Status:   entity.StatusAvailable,
		Location: entity.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
	}
	if err := donations.Insert(ctx, d); err != nil {
		log.Fatalf("seed donation: %v", err)
	}

	log.Printf("seeded donor=%s volunteer=%s donation=%s", donor.ID, volunteer.ID, d.ID)
}
