// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The RegisteredIndexManager keeps index rows in step with document writes;
// DocumentService calls it through DocumentHooks after every save and delete.
// Rebuilds run through ReindexJob, which checkpoints its cursor so an
// interrupted pass resumes where it stopped.
//
// Services are pure Go with no CGO.
package services
