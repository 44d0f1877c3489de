// Package testing provides test utilities for the feedscan library.
//
// This package offers helpers for setting up test environments, particularly
// embedded NATS servers for progress-store integration testing. It follows
// Go's convention of providing testing utilities in a dedicated package
// (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: Logger that writes to testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    feedtest "github.com/shaunnez/diamond-opus-sub001/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := feedtest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
