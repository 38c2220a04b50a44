package main

import (
	"fmt"
	"os"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/models"
)

// migrate runs AutoMigrate as a standalone job. Deploy with
// SKIP_MIGRATIONS=true on the API and run this off-hours instead, so DDL
// never blocks serving traffic.
func main() {
	db := config.ConnectDatabaseWithRetry()

	if err := models.Migrate(db); err != nil {
		fmt.Fprintln(os.Stderr, "migrate failed:", err)
		os.Exit(1)
	}
	fmt.Println("migrations applied")
}
