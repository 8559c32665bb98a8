// Package store defines the persistence contracts for the research
// pipeline. Implementations live under internal/platform; the interfaces
// here keep the accept and worker paths independent of the storage backend.
package store
