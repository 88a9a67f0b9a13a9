// Command seed inserts sample events and prints access tokens for a few
// demo users, for local runs against either database driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/event-registration/internal/config"
	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/utils"
)

type sample struct {
	name        string
	organizer   string
	location    string
	category    string
	description string
	tags        []string
	capacity    int
	inDays      int
}

var samples = []sample{
	{"Go Concurrency Workshop", "Gopher Guild", "Berlin", "Technology", "Hands-on channels, contexts and worker pools.", []string{"go", "workshop"}, 30, 7},
	{"Cloud Native Meetup", "CNCF Berlin", "Berlin", "Technology", "Talks on Kubernetes operators and service meshes.", []string{"kubernetes", "cloud"}, 80, 14},
	{"Jazz in the Park", "City Arts", "Paris", "Music", "An evening of open-air jazz.", []string{"jazz", "outdoor"}, 200, 10},
	{"Startup Pitch Night", "Founders Club", "Amsterdam", "Business", "Ten startups, five minutes each.", []string{"startups", "pitch"}, 50, 21},
	{"Intro to Pottery", "Clay Studio", "Paris", "Arts", "Beginner wheel throwing class.", []string{"craft"}, 12, 3},
	{"Data Engineering Summit", "DataOps EU", "Amsterdam", "Technology", "Pipelines, streaming and lakehouses.", []string{"data", "streaming"}, 150, 30},
	{"Chamber Music Evening", "Philharmonic Friends", "Vienna", "Music", "String quartets by candlelight.", []string{"classical"}, 60, 18},
	{"Trail Running Basics", "Alpine Runners", "Vienna", "Sports", "Technique and safety on mountain trails.", []string{"running", "outdoor"}, 25, 5},
	{"Sold Out Soon", "Tiny Venue", "Berlin", "Music", "A single-seat listening session.", []string{"intimate"}, 1, 2},
	{"Last Month's Hackathon", "Gopher Guild", "Berlin", "Technology", "Already happened; shows up on dashboards only.", []string{"go", "hackathon"}, 40, -30},
}

func main() {
	users := flag.Int("users", 3, "number of demo access tokens to print")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, dialect, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	events := repository.NewEventRepo(db, dialect)
	now := time.Now().UTC().Truncate(time.Hour)
	for _, s := range samples {
		ev := model.Event{
			Name:        s.name,
			Organizer:   s.organizer,
			Location:    s.location,
			Category:    s.category,
			Description: s.description,
			Tags:        s.tags,
			Capacity:    s.capacity,
			StartsAt:    now.AddDate(0, 0, s.inDays).Add(18 * time.Hour),
		}
		if err := events.Create(ctx, &ev); err != nil {
			log.Fatalf("seed %q: %v", s.name, err)
		}
		log.Printf("event %d: %s (%d seats, %s)", ev.ID, ev.Name, ev.Capacity, ev.StartsAt.Format(time.RFC3339))
	}

	for i := 1; i <= *users; i++ {
		userID := fmt.Sprintf("demo-user-%d", i)
		tok, err := utils.NewAccessToken(cfg.JWTSecret, userID, cfg.AccessTTLMin)
		if err != nil {
			log.Fatalf("token for %s: %v", userID, err)
		}
		fmt.Printf("%s\tBearer %s\n", userID, tok.Token)
	}
}
