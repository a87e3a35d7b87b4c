// Command streamworker is the Lambda entrypoint for the change-stream
// processor: it consumes DynamoDB stream batches from the item and
// membership tables and fans out subscription notifications.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/listsync/internal/config"
	"github.com/jacentio/listsync/notify"
	"github.com/jacentio/listsync/notify/appsync"
	"github.com/jacentio/listsync/repo"
	"github.com/jacentio/listsync/store"
	"github.com/jacentio/listsync/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	st := store.New(dynamodb.NewFromConfig(awsCfg), cfg.StoreConfig())
	memberships := repo.NewMembershipRepo(st)
	mutator := appsync.New(cfg.AppSyncURL, cfg.AppSyncAPIKey, nil)
	notifier := notify.NewService(st.Config(), memberships, mutator, logger)

	processor := stream.NewProcessor(st.Config(), notifier, logger)
	processor.SetDebug(cfg.Debug)

	lambda.Start(processor.Handle)
}
