// Command main fills the configured database with fake social data.
package main

import (
	"flag"
	"log"

	"github.com/marinaua13/social-media-api/internal/config"
	"github.com/marinaua13/social-media-api/internal/database"
	"github.com/marinaua13/social-media-api/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	postsPerUser := flag.Int("posts", defaults.PostsPerUser, "Posts per user")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Accounts each user follows")
	likes := flag.Int("likes", defaults.LikesPerPost, "Likes per post")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate without writing")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	opts := defaults
	opts.Users = *numUsers
	opts.PostsPerUser = *postsPerUser
	opts.FollowsPerUser = *follows
	opts.LikesPerPost = *likes
	opts.CommentsPerPost = *comments
	opts.DryRun = *dryRun

	s := seed.NewSeeder(db, opts)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run()
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %s", sum)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
