// Command issue_token mints a signed API token for a rater or an admin using
// the configured JWT secret.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/utils"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	userID := flag.Uint("user-id", 0, "numeric user id recorded as the rater")
	username := flag.String("username", "", "display name")
	role := flag.String("role", utils.RoleRater, "rater or admin")
	hours := flag.Int("hours", 0, "token lifetime in hours (defaults to jwt.expire_hour)")
	flag.Parse()

	if *userID == 0 {
		logger.Fatalf("-user-id is required")
	}
	if *role != utils.RoleRater && *role != utils.RoleAdmin {
		logger.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *hours <= 0 {
		*hours = cfg.JWT.ExpireHour
	}

	utils.SetJWTSecret(cfg.JWT.Secret)
	token, err := utils.GenerateToken(*userID, *username, *role, *hours)
	if err != nil {
		logger.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
