// Command tasks-table provisions the task table for local development and
// tests.
//
// Usage:
//
//	tasks-table [-table NAME] [-endpoint URL] [-region REGION] create|delete|verify|truncate
//
// Flags default to TABLE_NAME, DYNAMODB_URL and AWS_REGION.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskmgr/tasks/config"
	"github.com/taskmgr/tasks/dynamodb"
)

const (
	exitSuccess           = 0
	exitFailure           = 1
	exitInvalidInvocation = 2
)

type invocation struct {
	command  string
	table    string
	endpoint string
	region   string
}

// tableAdmin is the part of the store the commands use.
type tableAdmin interface {
	CreateTable(ctx context.Context) error
	DeleteTable(ctx context.Context) error
	Init(ctx context.Context, skipSchemaValidation bool) error
	DropAllData(ctx context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv, err := parseInvocation(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, "usage: tasks-table [-table NAME] [-endpoint URL] [-region REGION] create|delete|verify|truncate")
		return exitInvalidInvocation
	}

	cfg := &config.Config{AWSRegion: inv.region}

	awsCfg, err := cfg.LoadAWS(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	store := dynamodb.New(&awsCfg, inv.table, dynamodb.WithEndpoint(inv.endpoint))
	if err := store.Connect(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	if err := execute(ctx, store, inv.command); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "%s: %s ok\n", inv.table, inv.command)

	return exitSuccess
}

func parseInvocation(args []string) (invocation, error) {
	fs := flag.NewFlagSet("tasks-table", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var inv invocation

	fs.StringVar(&inv.table, "table", os.Getenv("TABLE_NAME"), "DynamoDB table name")
	fs.StringVar(&inv.endpoint, "endpoint", os.Getenv("DYNAMODB_URL"), "alternate DynamoDB endpoint")
	fs.StringVar(&inv.region, "region", envOr("AWS_REGION", "us-east-1"), "AWS region")

	if err := fs.Parse(args); err != nil {
		return invocation{}, err
	}

	if fs.NArg() != 1 {
		return invocation{}, errors.New("exactly one command is required")
	}

	inv.command = fs.Arg(0)

	switch inv.command {
	case "create", "delete", "verify", "truncate":
	default:
		return invocation{}, fmt.Errorf("unknown command %q", inv.command)
	}

	if inv.table == "" {
		return invocation{}, errors.New("table name is required (-table or TABLE_NAME)")
	}

	return inv, nil
}

func execute(ctx context.Context, store tableAdmin, command string) error {
	switch command {
	case "create":
		if err := store.CreateTable(ctx); err != nil {
			return err
		}
		return store.Init(ctx, false)
	case "delete":
		return store.DeleteTable(ctx)
	case "verify":
		return store.Init(ctx, false)
	case "truncate":
		return store.DropAllData(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
