// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package supervisor runs Archivist's long-running services under a suture v4
supervisor tree.

# Tree

	RootSupervisor ("archivist")
	├── LifecycleSupervisor ("lifecycle-layer")
	│   ├── backup.Sweeper ("retention-sweeper")
	│   └── services.ShutdownService ("backup-manager")
	├── MessagingSupervisor ("messaging-layer")
	│   └── websocket.Hub ("watch-hub")
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService ("http-server")

Each layer counts failures independently, so a sweeper that keeps failing
on an unreadable artifact directory backs off without restarting the HTTP
server or dropping watch connections.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddLifecycleService(backup.NewSweeper(manager, clock.WallClock))
	tree.AddLifecycleService(services.NewShutdownService("backup-manager", manager, 30*time.Second))
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

# Configuration

Zero TreeConfig fields take suture's defaults: 5 failures before backoff,
30 second decay, 15 second backoff and a 10 second per-service shutdown
timeout. Services that do not stop in time are listed by
UnstoppedServiceReport.

Supervisor events (starts, failures, backoff) are logged through sutureslog
into the application's zerolog output.
*/
package supervisor
