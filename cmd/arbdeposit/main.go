package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"

	"github.com/wnt/crucible/internal/arb"
	"github.com/wnt/crucible/internal/config"
	"github.com/wnt/crucible/internal/database"
	"github.com/wnt/crucible/internal/feemodel"
	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/logger"
	"github.com/wnt/crucible/internal/queue"
	"github.com/wnt/crucible/internal/store"
	"github.com/wnt/crucible/internal/vault"
)

// One-shot tool to route an arbitrage profit into a vault. Amounts are in
// base units (one whole token = 1000000).
func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	vaultID := flag.Uint("vault", 0, "Vault id to deposit into (required)")
	depositorStr := flag.String("depositor", "", "Depositor public key (required)")
	amount := flag.Int64("amount", 0, "Profit amount in base units (required)")
	flag.Parse()

	if *vaultID == 0 || *depositorStr == "" || *amount <= 0 {
		fmt.Println("Usage: arbdeposit -vault <id> -depositor <pubkey> -amount <base units>")
		os.Exit(1)
	}

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	baseLogger := logger.New(cfg.LogLevel)

	depositor, err := solana.PublicKeyFromBase58(*depositorStr)
	if err != nil {
		log.Fatalf("Invalid depositor public key: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	queueClient, err := queue.NewClient(cfg.RedisURL, baseLogger)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer queueClient.Close()

	s := store.New(db)
	engine := vault.NewEngine(feemodel.DefaultSchedule())
	router := arb.NewRouter(s, engine, queueClient.Redis(), arb.DefaultCooldown, baseLogger)

	result, err := router.DepositProfit(context.Background(), depositor, *vaultID, *amount)
	if err != nil {
		log.Fatalf("Deposit failed: %v", err)
	}

	fmt.Printf("Deposited %d into vault %d\n", *amount, *vaultID)
	fmt.Printf("  vault share:    %d\n", result.VaultShare)
	fmt.Printf("  treasury share: %d\n", result.TreasuryShare)
	fmt.Printf("  reward minted:  %d\n", result.RewardMinted)
	fmt.Printf("  exchange rate:  %.6f\n", fixedpoint.ToFloat(result.RateAfter))

	vaultTotal, treasuryTotal, err := s.VaultFeeTotals(context.Background(), *vaultID)
	if err != nil {
		log.Fatalf("Failed to read fee totals: %v", err)
	}
	fmt.Printf("Lifetime fee revenue for vault %d\n", *vaultID)
	fmt.Printf("  vault share:    %d\n", vaultTotal)
	fmt.Printf("  treasury share: %d\n", treasuryTotal)
}
