package main

import (
	"os"
)

// @title Check-in Scheduler API
// @version 1.0
// @description Books coaching check-ins against a fixed slot grid and per-plan cycle quotas.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
