package main

import (
	"github.com/joho/godotenv"

	"nativeai_backend/internal/app"
	"nativeai_backend/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, relying on environment and config file")
	}

	app.Run()
}
