// Package types provides core type definitions and interfaces for the
// scheduling core.
//
// This package contains shared types that are used across multiple packages:
// density chunks, partitions, scan results, partition progress, and the
// collaborator interfaces (RangeCounter, ProgressStore, ScanHistoryStore,
// Logger, MetricsCollector). By keeping these types in a separate leaf
// package, we avoid import cycles between the scan package and the store and
// progress implementations.
package types
