// Package convert orchestrates station builds.
//
// # Manager
//
// The Manager coordinates the entire build, one station at a time:
//
//  1. Scan the station directory into a tree
//  2. Open the station's Lua script
//  3. Copy the station icon
//  4. Read tags and materialize cover thumbnails, in tree order
//  5. Upload or copy audio, with bounded concurrency
//  6. Write the Lua script in tree order
//
// # Basic Usage
//
//	deps, err := convert.DefaultDeps(settings, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	manager := convert.NewManager(settings, deps, func(event convert.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	summary, err := manager.Run(ctx, []string{"/music/Lofi", "/music/Jazz"})
//	if err != nil {
//	    log.Fatal(err) // run-level failure: lock held or cancelled
//	}
//
// A failing station is reported in its StationResult and does not stop the
// ones after it.
//
// # Concurrency
//
// Stations are built sequentially. Within a station only audio
// materialization runs in parallel, bounded by uploads.max_concurrent.
// The output directory is locked for the duration of Run so two builds
// cannot write the same tree.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent.
// Callbacks are serialized, so the callback needs no locking of its own.
package convert
