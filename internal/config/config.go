package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	RunAddress            string
	DatabaseURI           string
	LedgerURL             string
	OperatorKey           string
	EscrowContractAddress string
	TokenContractAddress  string
	CurrencyDecimals      int
	GasMargin             float64
	FeeRate               string
	SweepInterval         time.Duration
	StuckAfter            time.Duration
	SubmitTimeout         time.Duration
}

func New() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "server address and port")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (empty selects the in-memory store)")
	flag.StringVar(&cfg.LedgerURL, "l", "ws://localhost:8545", "ledger node websocket URL")
	flag.StringVar(&cfg.OperatorKey, "k", "", "operator private key (hex)")
	flag.StringVar(&cfg.EscrowContractAddress, "e", "", "escrow payment splitter contract address")
	flag.StringVar(&cfg.TokenContractAddress, "t", "", "unit of account token contract address")
	flag.IntVar(&cfg.CurrencyDecimals, "c", 2, "decimal places of the pricing currency")
	flag.Float64Var(&cfg.GasMargin, "g", 1.5, "gas estimate safety margin")
	flag.StringVar(&cfg.FeeRate, "f", "0.05", "service fee rate applied to the parts total")
	flag.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Minute, "stuck order sweep interval")
	flag.DurationVar(&cfg.StuckAfter, "stuck-after", 5*time.Minute, "age before a transitory order counts as stuck")
	flag.DurationVar(&cfg.SubmitTimeout, "submit-timeout", 2*time.Minute, "ledger transaction submission timeout")
	flag.Parse()

	cfg.RunAddress = getEnv("RUN_ADDRESS", cfg.RunAddress)
	cfg.DatabaseURI = getEnv("DATABASE_URI", cfg.DatabaseURI)
	cfg.LedgerURL = getEnv("LEDGER_URL", cfg.LedgerURL)
	cfg.OperatorKey = getEnv("OPERATOR_KEY", cfg.OperatorKey)
	cfg.EscrowContractAddress = getEnv("ESCROW_CONTRACT_ADDRESS", cfg.EscrowContractAddress)
	cfg.TokenContractAddress = getEnv("TOKEN_CONTRACT_ADDRESS", cfg.TokenContractAddress)
	cfg.FeeRate = getEnv("FEE_RATE", cfg.FeeRate)
	cfg.CurrencyDecimals = getEnvInt("CURRENCY_DECIMALS", cfg.CurrencyDecimals)

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
