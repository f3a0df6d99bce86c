// Package domain holds the shared types of the expfab control plane.
//
// The types here are pure data + invariants: experiments and their jobs,
// the lifecycle status set with its legal-transition policy, audit events,
// scope grants for worker callbacks, and queue command payloads.
//
// Persistence and transport live under subpackages
// (experiment/db, job/db, event/db, scope, command); this package
// never touches a database or a queue.
package domain
