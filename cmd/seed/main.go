package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"lessonplayer/internal/catalog"
	"lessonplayer/internal/config"
	"lessonplayer/internal/model"
	"lessonplayer/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// seed writes demo slide records and completions for one learner so the
// analytics and history queries have data to show in local development.
func main() {
	root := flag.String("root", ".", "Directory containing config/config.yaml")
	studentID := flag.String("student", "demo-student", "Student id to seed")
	classID := flag.String("class", "demo-class", "Class id to seed")
	flag.Parse()

	cfg, err := config.Load(*root)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Catalog.Path == "" {
		log.Fatal("catalog.path must be set to seed slide records")
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.Mongo.Database)
	slides := repository.NewSlideRecordRepo(db)
	completions := repository.NewCompletionRepo(db)

	now := time.Now().UTC()
	records := 0
	for _, m := range cat.Modules {
		for _, sub := range m.Submodules {
			for i, slide := range sub.Slides {
				if slide.Type == model.SlideTypeCompletion {
					continue
				}
				rec := &model.SlideRecord{
					SlideInteractionData: demoInteraction(m.ID, sub.ID, slide, i),
					SavedAt:              now,
				}
				rec.StudentID = *studentID
				rec.ClassID = *classID
				if err := slides.Create(ctx, rec); err != nil {
					log.Fatalf("Failed to insert slide record %s: %v", slide.ID, err)
				}
				records++
			}

			id := model.CompletionIdentity{
				StudentID:   *studentID,
				SubmoduleID: sub.ID,
				ModuleID:    m.ID,
				ClassID:     *classID,
			}
			if err := completions.Upsert(ctx, id, now); err != nil {
				log.Fatalf("Failed to upsert completion %s: %v", sub.ID, err)
			}
		}
	}

	fmt.Printf("Seeded %d slide records for student '%s'\n", records, *studentID)
}

func demoInteraction(moduleID, submoduleID string, slide model.SlideEntry, idx int) model.SlideInteractionData {
	correct := idx%2 == 0
	interactionID := slide.ID + "-q1"
	return model.SlideInteractionData{
		SlideID:     slide.ID,
		SlideTitle:  slide.Title,
		ModuleID:    moduleID,
		SubmoduleID: submoduleID,
		TimeSpent:   int64(8000 + 1500*idx),
		Interactions: map[string]model.InteractionResponse{
			interactionID: {
				InteractionID: interactionID,
				Value:         model.TextValue("demo answer"),
				IsCorrect:     &correct,
				Timestamp:     time.Now().UnixMilli(),
				ConceptID:     submoduleID + "-concept",
				ConceptName:   slide.Title,
			},
		},
	}
}
