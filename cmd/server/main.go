package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/elegance/identity-provider/internal/server"
	"github.com/elegance/identity-provider/internal/server/config"
)

func main() {

	// a missing .env file is fine, environment variables still apply
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
