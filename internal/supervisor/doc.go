// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package supervisor runs the server's long-lived services under a suture v4
supervisor tree.

# Tree

	root ("cinematch")
	├── data-layer
	│   └── IndexReloadService
	└── api-layer
	    └── HTTPServerService

Each layer restarts its own children with exponential backoff. Suture
events are logged through sutureslog, which cmd/server points at the
zerolog-backed slog handler from package logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewIndexReloadService(engine, store, notifier, reloadCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.Addr(), cfg.Server.ShutdownTimeout, logger))
	err = tree.Serve(ctx)

See package services for the service wrappers.
*/
package supervisor
