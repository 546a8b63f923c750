/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command guardianctl invokes recovery registry entry points against a
// configured slot store.
//
//	guardianctl [-config registry.yaml] [-env .env] <entry_point> '<json args>'
//	guardianctl slots
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/suparena/recoveryregistry"
	"github.com/suparena/recoveryregistry/codec"
	"github.com/suparena/recoveryregistry/config"
	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/datastore/ddb"
	"github.com/suparena/recoveryregistry/datastore/mock"
	"github.com/suparena/recoveryregistry/datastore/sqlite"
	"github.com/suparena/recoveryregistry/entrypoint"
	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/keyspace"
)

// Exit codes.
const (
	exitOK    = 0
	exitFault = 1
	exitUsage = 2
)

const slotsCommand = "slots"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("guardianctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	versionFlag := fs.Bool("version", false, "Show version information")
	vFlag := fs.Bool("v", false, "Show version information (short)")
	configFile := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env", ".env", "dotenv file, ignored when missing")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: guardianctl [flags] <entry_point> '<json args>'\n")
		fmt.Fprintf(stderr, "       guardianctl [flags] %s\n\n", slotsCommand)
		fmt.Fprintf(stderr, "entry points: %s\n\nflags:\n", strings.Join(entrypoint.EntryPoints(), ", "))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	if *versionFlag || *vFlag {
		printVersion(stdout)
		return exitOK
	}

	if fs.NArg() == 0 || fs.NArg() > 2 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: *configFile, DotEnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "backend", cfg.Backend, "error", err)
		return exitFault
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	if fs.Arg(0) == slotsCommand {
		if err := listSlots(ctx, store, stdout); err != nil {
			logger.Error("list slots", "error", err)
			return exitFault
		}
		return exitOK
	}

	name, payload := fs.Arg(0), []byte(fs.Arg(1))
	logger.Debug("invoke", "entry_point", name, "backend", cfg.Backend)

	out, err := entrypoint.NewDispatcher(recoveryregistry.New(store)).Invoke(ctx, name, payload)
	if err != nil {
		return reportFault(stderr, err)
	}
	fmt.Fprintln(stdout, string(out))
	return exitOK
}

func printVersion(w io.Writer) {
	info := recoveryregistry.GetVersionInfo()
	fmt.Fprintf(w, "guardianctl version %s\n", info.Version)
	fmt.Fprintf(w, "Git commit: %s\n", info.GitCommit)
	if t, ok := info.BuildTime(); ok {
		fmt.Fprintf(w, "Build date: %s\n", t.String())
	} else {
		fmt.Fprintf(w, "Build date: %s\n", info.BuildDate)
	}
	fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
}

// reportFault prints a registry fault as "<code name> (<code>): <message>".
func reportFault(w io.Writer, err error) int {
	switch {
	case errors.IsInvalidArgument(err), errors.IsUnknownEntryPoint(err):
		fmt.Fprintf(w, "error: %v\n", err)
		return exitUsage
	}
	if code, ok := errors.CodeOf(err); ok {
		fmt.Fprintf(w, "%s (%d): %v\n", code, uint16(code), err)
		return exitFault
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return exitFault
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (datastore.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("opened sqlite store", "path", cfg.SQLitePath)
		return store, store.Close, nil
	case config.BackendDynamoDB:
		client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Endpoint:  cfg.DynamoDBEndpoint,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := ddb.NewDynamodbDataStore(client, cfg.DynamoDBTable)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		logger.Warn("memory backend does not persist between runs")
		return mock.New(), noop, nil
	}
}

// listSlots prints every named key with its decoded value.
func listSlots(ctx context.Context, store datastore.Store, w io.Writer) error {
	keys, err := store.NamedKeys(ctx)
	if err != nil {
		return err
	}
	return store.View(ctx, func(r datastore.Reader) error {
		for _, k := range keys {
			raw, _, err := r.Read(ctx, k.Ref)
			if err != nil {
				return err
			}
			field, account, err := keyspace.Parse(k.Name)
			if err != nil {
				fmt.Fprintf(w, "%s\t%s\t-\t%x\n", k.Name, k.Ref, raw)
				continue
			}
			value, ok, err := codec.Decode(field, raw)
			switch {
			case err != nil:
				fmt.Fprintf(w, "%s\t%s\t%s\tcorrupt: %x\n", k.Name, k.Ref, account, raw)
			case !ok:
				fmt.Fprintf(w, "%s\t%s\t%s\t<empty>\n", k.Name, k.Ref, account)
			default:
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", k.Name, k.Ref, account, value)
			}
		}
		return nil
	})
}
