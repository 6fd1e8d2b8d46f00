// main.go
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gewnthar/firelake/admin"
	"github.com/gewnthar/firelake/bronze"
	"github.com/gewnthar/firelake/config"
	"github.com/gewnthar/firelake/gold"
	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/registry"
	"github.com/gewnthar/firelake/scraper"
	"github.com/gewnthar/firelake/silver"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: probe standard locations)")
	stage := flag.String("stage", "all", "pipeline stage to run: all, bronze, silver, or gold")
	reset := flag.Bool("reset", false, "drop all lake tables and clear the landing area, then exit")
	flag.Parse()

	// A missing .env is fine; the yaml plus real env vars cover everything.
	if err := godotenv.Load(); err != nil {
		log.Println("Main: No .env file found, relying on environment and config file.")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	cfg := &config.AppConfig

	store, err := lake.OpenMySQL(cfg.Database)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to database: %v", err)
	}
	defer store.Close()

	if *reset {
		if err := admin.Reset(store, cfg, confirmReset); err != nil {
			log.Fatalf("FATAL: Reset failed: %v", err)
		}
		return
	}

	reg, err := registry.NewDefault()
	if err != nil {
		log.Fatalf("FATAL: Failed to build code registry: %v", err)
	}
	fetcher := scraper.New(cfg.Fetch.Timeout, cfg.Fetch.DownloadDelay, cfg.Fetch.Retries)

	runBronze := *stage == "all" || *stage == "bronze"
	runSilver := *stage == "all" || *stage == "silver"
	runGold := *stage == "all" || *stage == "gold"
	if !runBronze && !runSilver && !runGold {
		log.Fatalf("FATAL: Unknown stage %q (want all, bronze, silver, or gold)", *stage)
	}

	if runBronze {
		ingestor := &bronze.Ingestor{Store: store, Fetcher: fetcher, Cfg: cfg}

		if _, err := ingestor.IngestFireStats(); err != nil {
			log.Fatalf("FATAL: Fire statistics ingestion failed: %v", err)
		}
		if err := ingestor.IngestFamilyGroups(); err != nil {
			log.Fatalf("FATAL: NFCC family groups ingestion failed: %v", err)
		}
		if _, err := ingestor.IngestReferenceData(); err != nil {
			log.Fatalf("FATAL: Reference data ingestion failed: %v", err)
		}
	}

	if runSilver {
		transformer := &silver.Transformer{
			Store:    store,
			Registry: reg,
			MinYear:  cfg.Population.ScaffoldMinYear,
			MaxYear:  cfg.Population.ScaffoldMaxYear,
		}

		if _, err := transformer.TransformFireStats(); err != nil {
			log.Fatalf("FATAL: Fire statistics cleaning failed: %v", err)
		}
		if err := transformer.TransformPopulation(); err != nil {
			log.Fatalf("FATAL: Population cleaning failed: %v", err)
		}
		if _, err := transformer.TransformGeographyLookups(); err != nil {
			log.Fatalf("FATAL: Geography lookup cleaning failed: %v", err)
		}
		if err := transformer.TransformFamilyGroups(); err != nil {
			log.Fatalf("FATAL: NFCC family groups cleaning failed: %v", err)
		}
	}

	if runGold {
		modeler := &gold.Modeler{Store: store, Registry: reg}

		if err := modeler.BuildGeographyDim(); err != nil {
			log.Fatalf("FATAL: Geography dimension build failed: %v", err)
		}
		if err := modeler.BuildPopulationFacts(); err != nil {
			log.Fatalf("FATAL: Population fact build failed: %v", err)
		}
		if err := modeler.BuildFRSDim(); err != nil {
			log.Fatalf("FATAL: FRS dimension build failed: %v", err)
		}
		if err := modeler.BuildFinancialYearDim(); err != nil {
			log.Fatalf("FATAL: Financial year dimension build failed: %v", err)
		}
		if err := modeler.BuildIncidentTypeDim(); err != nil {
			log.Fatalf("FATAL: Incident type dimension build failed: %v", err)
		}
		if _, err := modeler.BuildFacts(); err != nil {
			log.Fatalf("FATAL: Fact table build failed: %v", err)
		}
		if err := modeler.BuildRiskProfileFact(); err != nil {
			log.Fatalf("FATAL: Risk profile fact build failed: %v", err)
		}
	}

	log.Println("Main: Pipeline run complete.")
}

// confirmReset asks on stdin before anything destructive happens.
func confirmReset() bool {
	fmt.Print("This drops every lake table and deletes downloaded files. Continue? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
