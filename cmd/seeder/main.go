package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
	"github.com/mauv0809/catch-league/internal/remote/mongo"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{"MONGO_DB": "catch_league"}
	required := []string{"MONGO_URI"}

	for _, key := range required {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		} else {
			log.Fatalf("Error: Required environment variable %s is not set.", key)
		}
	}
	if value, ok := os.LookupEnv("MONGO_DB"); ok && value != "" {
		config["MONGO_DB"] = value
	}
	return config
}

var (
	seedUsers = []model.User{
		{ID: "seed-ana", Name: "Ana Seeder"},
		{ID: "seed-bia", Name: "Bia Seeder"},
		{ID: "seed-caio", Name: "Caio Seeder"},
		{ID: "seed-duda", Name: "Duda Seeder"},
	}
	seedSpecies = []string{"Tucunaré", "Tilápia", "Traíra", "Pacu", "Dourado", "Pintado", "Robalo"}
)

const (
	numTournaments       = 5
	catchesPerTournament = 200
)

func main() {
	log.Info("Starting remote store seeder...")
	cfg := loadConfig()
	ctx := context.Background()

	store, err := mongo.NewStore(ctx, cfg["MONGO_URI"], cfg["MONGO_DB"])
	if err != nil {
		log.Fatalf("Failed to connect to remote store: %s", err)
	}
	defer store.Close(ctx)

	startTime := time.Now()
	var writes []remote.Write
	for i := 0; i < numTournaments; i++ {
		tournament, catches := seedTournament(i, startTime)
		writes = append(writes, add(remote.CollTournaments, tournament.ID, tournament))
		for _, c := range catches {
			writes = append(writes, add(remote.CollCatches, c.ID, c))
		}
	}
	for _, u := range seedUsers {
		post := model.Post{
			ID:        remote.NewID(),
			UserID:    u.ID,
			UserName:  u.Name,
			Content:   fmt.Sprintf("%s went fishing!", u.Name),
			CreatedAt: model.FormatTime(startTime),
		}
		writes = append(writes, add(remote.CollPosts, post.ID, post))
	}

	log.Info("Preparing to write seed documents...", "total", len(writes), "batch_size", remote.MaxBatchSize)
	for start := 0; start < len(writes); start += remote.MaxBatchSize {
		end := min(start+remote.MaxBatchSize, len(writes))
		if err := store.BatchWrite(ctx, writes[start:end]); err != nil {
			log.Fatalf("Failed to write batch: %s", err)
		}
		log.Info("Wrote batch", "completed", end, "total", len(writes))
	}

	log.Info("Successfully seeded the remote store.", "duration", time.Since(startTime))
}

// seedTournament builds one finished-or-running tournament with all seed
// users enrolled and a spread of catches over its window.
func seedTournament(i int, now time.Time) (model.Tournament, []model.Catch) {
	start := now.AddDate(0, 0, -7*(i+1))
	end := start.AddDate(0, 0, 10)
	t := model.Tournament{
		ID:              remote.NewID(),
		Name:            fmt.Sprintf("Seeded Cup %d", i+1),
		CreatorID:       seedUsers[0].ID,
		CreatorName:     seedUsers[0].Name,
		CreatedAt:       model.FormatTime(start.AddDate(0, 0, -1)),
		StartDate:       model.FormatTime(start),
		EndDate:         model.FormatTime(end),
		Status:          model.StatusOpen,
		MaxParticipants: len(seedUsers) * 2,
	}
	for _, u := range seedUsers {
		t.AddParticipant(model.Participant{UserID: u.ID, UserName: u.Name, JoinedAt: t.CreatedAt})
	}

	catches := make([]model.Catch, 0, catchesPerTournament)
	window := end.Sub(start)
	for j := 0; j < catchesPerTournament; j++ {
		u := seedUsers[rand.Intn(len(seedUsers))]
		tournamentID := t.ID
		length := 20 + rand.Float64()*60
		catches = append(catches, model.Catch{
			ID:           remote.NewID(),
			UserID:       u.ID,
			UserName:     u.Name,
			Species:      seedSpecies[rand.Intn(len(seedSpecies))],
			Weight:       0.2 + rand.Float64()*8,
			Length:       &length,
			Location:     "Seeded Lake",
			TournamentID: &tournamentID,
			RegisteredAt: model.FormatTime(start.Add(time.Duration(rand.Int63n(int64(window))))),
		})
	}
	return t, catches
}

func add(collection, id string, v any) remote.Write {
	doc, err := remote.Encode(v)
	if err != nil {
		log.Fatalf("Failed to encode %s document: %s", collection, err)
	}
	return remote.Write{Kind: remote.WriteAdd, Collection: collection, ID: id, Data: doc}
}
