// Command main runs the database seeder for Mosaic.
package main

import (
	"context"
	"flag"
	"log"

	"mosaic/internal/config"
	"mosaic/internal/database"
	"mosaic/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	postsPerUser := flag.Int("posts", 4, "Number of posts per user")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating data")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	seedValue := flag.Int64("seed", 0, "Random seed; 0 picks one")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	if *shouldClean {
		if err := seed.Clean(ctx, db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	s := seed.NewSeeder(db, seed.Options{
		Seed:       *seedValue,
		BcryptCost: cfg.BcryptCost,
		MaxDays:    90,
	})

	var sum seed.Summary
	if *fixture != "" {
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("Fixture is invalid: %v", err)
		}
		sum, err = s.ApplyFixture(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		sum, err = s.SeedSocialGraph(ctx, *numUsers, *postsPerUser)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Seeded %s", sum)
	log.Printf("Users without an explicit password use: %s", seed.DefaultPassword)
}
