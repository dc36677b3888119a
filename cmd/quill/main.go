package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; configuration falls back to
	// environment variables and defaults.
	_ = godotenv.Load()

	Execute()
}
