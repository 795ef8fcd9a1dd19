// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package services adapts Archivist components to suture's context-aware
Serve pattern.

Components that already implement suture.Service (backup.Sweeper and
websocket.Hub) are added to the tree directly. This package covers the
rest:

  - HTTPServerService turns ListenAndServe/Shutdown into Serve, with a
    bounded graceful shutdown.
  - ShutdownService idles until the tree stops and then runs a component's
    Shutdown, so the backup manager stops running exports and cancels its
    expiration timers together with everything else.

Every wrapper implements fmt.Stringer so supervisor events name the service.

	tree.AddAPIService(services.NewHTTPServerService(&http.Server{
	    Addr:    addr,
	    Handler: router.SetupChi(),
	}, 10*time.Second))
	tree.AddLifecycleService(services.NewShutdownService("backup-manager", manager, 30*time.Second))
*/
package services
