// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

/*
Package supervisor runs the long-lived parts of readstream under a suture
supervisor tree.

	readstream (root)
	├── collection-layer
	│   └── collect-scheduler
	├── messaging-layer
	│   └── feedback-relay
	└── api-layer
	    └── http-server

Services live in the services subpackage. Supervisor events are logged
through sutureslog, using the zerolog-backed slog handler from the logging
package:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddCollectionService(services.NewCollectScheduler(orch, schedCfg))
	tree.AddMessagingService(services.NewFeedbackRelayService(relay))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	errCh := tree.ServeBackground(ctx)

A service that returns an error is restarted with suture's backoff. A service
returning suture.ErrDoNotRestart stays stopped.
*/
package supervisor
