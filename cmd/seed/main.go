package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"knowledge/internal/config"
	"knowledge/internal/domain/services"
	"knowledge/internal/middleware"
	"knowledge/internal/repository/postgres"
	"knowledge/internal/service"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed notes")
	clearData := flag.Bool("clear-data", false, "Clear the user's notes and topics (keep schema)")
	userID := flag.String("user", middleware.DevUserID, "User to seed data for")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// Destructive operations are never allowed against production tables
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: --drop-tables and --clear-data are not allowed in production")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		logger.Info("tables dropped", "prefix", cfg.TablePrefix)
	}

	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	logger.Info("schema ready", "prefix", cfg.TablePrefix)

	if *schemaOnly {
		return
	}

	if err := clearUserData(ctx, pool, tables, *userID); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	logger.Info("user data cleared", "user_id", *userID)
	if *clearData {
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	noteRepo := postgres.NewNoteRepository(repoConfig)
	topicRepo := postgres.NewTopicRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	noteService := service.NewNoteService(noteRepo, logger)
	topicService := service.NewTopicService(topicRepo, noteRepo, txManager, logger)

	for i, seed := range seedNotes() {
		ensured, err := topicService.EnsurePath(ctx, *userID, seed.path)
		if err != nil {
			logger.Error("failed to ensure topic", "path", seed.path, "error", err)
			continue
		}
		seed.input.TopicID = &ensured.TopicID

		note, err := noteService.CreateNote(ctx, &services.CreateNoteRequest{
			NoteInput: seed.input,
			UserID:    *userID,
		})
		if err != nil {
			logger.Error("failed to create note", "title", seed.input.Title, "error", err)
			continue
		}
		logger.Info("note seeded", "n", i+1, "id", note.ID, "path", seed.path)
	}
}

// dropAllTables drops notes before topics to respect the foreign key
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Notes, tables.Topics} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

func clearUserData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, userID string) error {
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Notes+" WHERE user_id = $1", userID); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Topics+" WHERE user_id = $1", userID)
	return err
}

type seedNote struct {
	path  string
	input services.NoteInput
}

func stringPtr(s string) *string { return &s }

func seedNotes() []seedNote {
	return []seedNote{
		{
			path: "Work/Meetings",
			input: services.NoteInput{
				Title: "Weekly sync",
				Text:  "Agenda: release checklist, on-call rotation, hiring update.",
			},
		},
		{
			path: "Work/Meetings",
			input: services.NoteInput{
				Title: "Retro notes",
				Text:  "Keep: pairing on reviews. Change: fewer meetings on Fridays.",
			},
		},
		{
			path: "Work/Projects/2024",
			input: services.NoteInput{
				Title: "Search service",
				Text:  "Case-insensitive substring search first; ranking later.",
				URL:   stringPtr("https://www.postgresql.org/docs/current/functions-matching.html"),
			},
		},
		{
			path: "Reading/Go",
			input: services.NoteInput{
				Title:      "Effective Go",
				Text:       "Reread the section on embedding and interfaces.",
				URL:        stringPtr("https://go.dev/doc/effective_go"),
				IsFavorite: true,
			},
		},
		{
			path: "Home/Recipes",
			input: services.NoteInput{
				Title: "Weeknight dal",
				Text:  "Red lentils, turmeric, cumin, garlic. Temper with mustard seeds.",
			},
		},
	}
}
