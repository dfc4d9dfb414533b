package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/proptrust/backend/internal/config"
	"github.com/proptrust/backend/internal/database"
	"github.com/proptrust/backend/internal/services"
)

// Monthly interest accrual batch job. Meant to run from cron shortly after
// month end; re-running it is safe because accrual is idempotent per account
// per month.
func main() {
	asOfFlag := flag.String("as-of", "", "accrual date YYYY-MM-DD (default: today)")
	accountFlag := flag.Int64("account", 0, "accrue a single account id instead of the full batch")
	flag.Parse()

	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		parsed, err := time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			log.Fatalf("Invalid -as-of date %q: %v", *asOfFlag, err)
		}
		asOf = parsed
	}

	ledgerCfg := config.LoadLedgerConfig()

	db := database.InitDatabase()
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	posting := services.NewPostingService(db, nil, ledgerCfg)
	interest := services.NewInterestService(db, posting)

	ctx, cancel := context.WithTimeout(context.Background(), ledgerCfg.AccrualTimeout)
	defer cancel()

	var results []*services.AccrualResult
	if *accountFlag > 0 {
		result, err := interest.AccrueMonth(ctx, *accountFlag, asOf)
		if err != nil {
			log.Fatalf("Accrual failed for account %d: %v", *accountFlag, err)
		}
		results = append(results, result)
	} else {
		var err error
		results, err = interest.RunMonthlyAccrual(ctx, asOf)
		if err != nil {
			log.Fatalf("Accrual batch failed: %v", err)
		}
	}

	applied, skipped, failed := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case services.AccrualApplied:
			applied++
			log.Printf("Account %d: applied %s for %s", result.AccountID, result.Interest.StringFixed(2), result.Month)
		case services.AccrualFailed:
			failed++
			log.Printf("Account %d: FAILED: %v", result.AccountID, result.Err)
		default:
			skipped++
			log.Printf("Account %d: %s", result.AccountID, result.Status)
		}
	}

	log.Printf("Accrual run complete: %d applied, %d skipped, %d failed", applied, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
