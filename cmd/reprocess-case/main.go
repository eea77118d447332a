package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"legal_marketplace_go/config"
	"legal_marketplace_go/db"
	"legal_marketplace_go/services"

	"go.uber.org/zap"
)

func main() {
	caseID := flag.String("id", "", "Case ID to reprocess")
	manual := flag.Bool("manual", false, "Force the manual flow (includes the proposal)")
	flag.Parse()

	if *caseID == "" {
		fmt.Println("Usage: reprocess-case -id <case-id> [-manual]")
		fmt.Println("Runs the processing pipeline for one case synchronously, with the flow and files of its last request.")
		os.Exit(1)
	}

	flow := ""
	if *manual {
		flow = services.FlowManual
	}
	os.Exit(run(*caseID, flow))
}

// run returns the process exit code so deferred cleanup always happens
func run(caseID, flow string) int {
	cfg := config.Load()
	if err := config.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return 1
	}
	defer zap.L().Sync() //nolint:errcheck

	if err := db.Initialize(db.Options{
		Path:        cfg.DBPath,
		TursoURL:    cfg.TursoDatabaseURL,
		TursoToken:  cfg.TursoAuthToken,
		Environment: cfg.Environment,
	}); err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		return 1
	}
	defer db.Close()

	resolver, err := services.PrepareSpecialties(db.DB, cfg.FallbackSpecialty)
	if err != nil {
		fmt.Printf("Failed to prepare specialties: %v\n", err)
		return 1
	}

	c, err := services.GetCase(db.DB, caseID)
	if err != nil {
		fmt.Printf("Failed to load case: %v\n", err)
		return 1
	}

	pipeline := services.NewCasePipeline(services.PipelineOptions{
		DB:           db.DB,
		Generator:    services.NewAssistantRunner(cfg),
		Resolver:     resolver,
		Stores:       services.InitializeStorage(cfg),
		SourceBucket: cfg.SourceBucket,
	})

	job := services.JobFromCase(c, flow)
	if err := pipeline.Process(context.Background(), job); err != nil {
		fmt.Printf("Processing failed: %v\n", err)
		return 1
	}

	fmt.Printf("Case %s processed (%s flow)\n", c.ID, job.Flow)
	return 0
}
