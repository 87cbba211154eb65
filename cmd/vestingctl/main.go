package main

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"tokenvesting/cmd/vestingctl/cli"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug("failed to load .env file")
	}
}

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
