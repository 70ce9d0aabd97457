// Package tasks runs playlist work in the background and tracks its progress.
//
// # Registry
//
// [Registry] is the in-memory table of task records polled by the HTTP front end. A record is created
// when work is dispatched (processing, 0%, "Initializing...") and then patched by the one job that owns it.
// Records live for the process lifetime unless [Registry.Sweep] is scheduled.
//
// # Engines
//
//  1. [SyncEngine] : scraped CSV → new private Spotify playlist
//     - Creates the playlist, searches each row by song and artist, drops misses
//     - Adds matches in batches of 100
//
//  2. [MergeEngine] : source playlist → target playlist
//     - Adds the source tracks whose URI is not already in the target ([NewTracks])
//     - Unfollows the source; a failed unfollow completes with a warning
//
// Each milestone is a [ProgressUpdate] built in updates.go and applied to the registry.
// Failures never escape a job: they become an error status on the task record.
//
// # Dispatch
//
// [Dispatcher] runs [Job]s on a fixed errgroup of workers fed by a bounded queue. Submit never blocks;
// a full queue marks the task failed with "Server busy, try again later".
//
// Engines get their Spotify client from a [ClientFactory] called with a copy of the caller's session,
// so jobs keep working after the request that started them has returned.
package tasks
