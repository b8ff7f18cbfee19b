package main

//go:generate swag init

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/satheeshds/garage/cmd"
)

// @title           Garage API
// @version         1.0.0
// @description     Clients, vehicles, repair jobs, invoices and payments for an auto-repair shop.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.basic  BasicAuth

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cmd.Execute()
}
