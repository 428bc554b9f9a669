// Command seed populates the database with the fan community and optional generated fans.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/kvo5/marvel-madness/internal/config"
	"github.com/kvo5/marvel-madness/internal/database"
	"github.com/kvo5/marvel-madness/internal/seed"
)

func main() {
	fixturesPath := flag.String("fixtures", "", "YAML fixtures file (defaults to the built-in fan community)")
	numFans := flag.Int("fans", 0, "Number of generated fans to add")
	postsPerFan := flag.Int("posts", 3, "Maximum posts per generated fan")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	fx, err := seed.DefaultFixtures()
	if *fixturesPath != "" {
		fx, err = seed.LoadFixtures(*fixturesPath)
	}
	if err != nil {
		log.Fatalf("❌ Invalid fixtures: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.ApplyFixtures(ctx, fx); err != nil {
		log.Fatalf("❌ Fixture seeding failed: %v", err)
	}
	if _, err := s.SeedFans(ctx, *numFans, *postsPerFan); err != nil {
		log.Fatalf("❌ Fan generation failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
}
