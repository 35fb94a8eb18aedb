package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/chris/custodial-ledger/pkg/bootstrap"
	"github.com/chris/custodial-ledger/pkg/config"
	"github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/scheduler"
)

var (
	maintenance ledger.Maintenance
	requeue     scheduler.Scheduler
)

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
	if components.Scheduler == nil {
		log.Fatal("SQS_QUEUE_URL environment variable not set")
	}
	maintenance = components.Engine
	requeue = components.Scheduler
}

func main() {
	lambda.Start(newHandler(maintenance, requeue))
}
