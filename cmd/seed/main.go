package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"earnflow/internal/config"
	"earnflow/internal/logger"
	"earnflow/internal/model"
	"earnflow/internal/repository"
	"earnflow/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	catalogPath := flag.String("catalog", "cmd/seed/catalog.yaml", "path to the opportunity catalog")
	configPath := flag.String("config", ".", "directory holding config.yaml")
	devUser := flag.String("dev-user", "", "also print a signed token for this user id")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg)
	defer log.Sync()

	opportunities, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatal("failed to load catalog", zap.String("path", *catalogPath), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.Mongo.Database)
	repository.EnsureIndexes(ctx, db, log)
	repo := repository.NewOpportunityRepo(db)

	now := time.Now()
	for _, o := range opportunities {
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		if err := repo.Upsert(ctx, o); err != nil {
			log.Fatal("failed to upsert opportunity", zap.String("id", o.ID), zap.Error(err))
		}
	}
	fmt.Printf("Seeded %d opportunities into %s\n", len(opportunities), cfg.Mongo.Database)

	if *devUser != "" {
		tok, err := service.NewAuthService(cfg.Auth).IssueUserToken(*devUser, *devUser+"@example.com", *devUser)
		if err != nil {
			log.Fatal("failed to issue dev token", zap.Error(err))
		}
		fmt.Printf("Token for %s:\n%s\n", tok.UserID, tok.Token)
	}
}

// loadCatalog reads and checks the YAML catalog
func loadCatalog(path string) ([]*model.Opportunity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out []*model.Opportunity
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(out))
	for _, o := range out {
		if o.ID == "" {
			return nil, fmt.Errorf("opportunity %q has no id", o.Title)
		}
		if seen[o.ID] {
			return nil, fmt.Errorf("duplicate opportunity id %s", o.ID)
		}
		seen[o.ID] = true

		if o.Kind != model.KindTask && o.Kind != model.KindSurvey {
			return nil, fmt.Errorf("opportunity %s: unknown kind %q", o.ID, o.Kind)
		}
		if len(o.Questions) == 0 {
			return nil, fmt.Errorf("opportunity %s has no questions", o.ID)
		}
		qids := make(map[string]bool, len(o.Questions))
		for i, q := range o.Questions {
			if q.ID == "" {
				return nil, fmt.Errorf("opportunity %s question at position %d has no id", o.ID, i)
			}
			if qids[q.ID] {
				return nil, fmt.Errorf("opportunity %s: duplicate question id %s", o.ID, q.ID)
			}
			qids[q.ID] = true
			if q.Kind == model.QuestionMultipleChoice && len(q.Choices) == 0 {
				return nil, fmt.Errorf("opportunity %s question %s has no choices", o.ID, q.ID)
			}
		}
	}
	return out, nil
}
