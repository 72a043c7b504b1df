package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/sshgate/policy-governance-backend/audit"
	"github.com/sshgate/policy-governance-backend/codec"
	"github.com/sshgate/policy-governance-backend/cmd/flags"
	"github.com/sshgate/policy-governance-backend/httpserver"
	"github.com/sshgate/policy-governance-backend/interfaces"
	"github.com/sshgate/policy-governance-backend/lifecycle"
	"github.com/sshgate/policy-governance-backend/resolver"
	"github.com/sshgate/policy-governance-backend/storage"
	"github.com/sshgate/policy-governance-backend/store"
)

func main() {
	app := &cli.App{
		Name:  "policyserver",
		Usage: "Serve the policy approval and commit API",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.DatabaseFlag,
			flags.ArtifactBackendsFlag,
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	s, err := store.Open(store.DefaultConfig(cCtx.String(flags.DatabaseFlag.Name)), logger)
	if err != nil {
		logger.Error("Failed to open record store", "err", err)
		return err
	}
	defer s.Close()

	// Optional content-addressed replication of committed artifacts.
	var artifacts interfaces.StorageBackend
	if uris := cCtx.StringSlice(flags.ArtifactBackendsFlag.Name); len(uris) > 0 {
		locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
		for _, uri := range uris {
			loc, err := interfaces.NewStorageBackendLocation(uri)
			if err != nil {
				logger.Error("Invalid artifact backend URI", "uri", uri, "err", err)
				return err
			}
			locations = append(locations, loc)
		}

		artifacts, err = storage.NewFactory(logger).CreateMultiBackend(locations)
		if err != nil {
			logger.Error("Failed to create artifact storage", "err", err)
			return err
		}
		logger.Info("Artifact replication enabled", "backends", len(locations))
	}

	mgr := lifecycle.NewManager(s, codec.NewStubCodec(), audit.NewAppender(s, logger), artifacts, logger)
	handler := httpserver.NewHandler(mgr, resolver.NewResolver(s, logger), logger)

	srv, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	srv.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}
