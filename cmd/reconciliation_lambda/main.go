package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/chris/custodial-ledger/pkg/bootstrap"
	"github.com/chris/custodial-ledger/pkg/config"
	"github.com/chris/custodial-ledger/pkg/ledger"
)

var maintenance ledger.Maintenance

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := bootstrap.NewLogger(cfg)

	components, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to build dependencies: %v", err)
	}
	maintenance = components.Engine
}

func main() {
	lambda.Start(newHandler(maintenance))
}
