package main

import (
	"os"

	"counto/internal/cli"
)

// @title Counto API
// @version 1.0
// @description Conversational bookkeeping: chat-driven transaction capture, customers, vendors and analytics
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
