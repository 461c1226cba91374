// Package gateway provides Persistence Gateway implementations for the
// tablestate cache.
//
//   - HTTPGateway posts the full merged state as JSON to the table state
//     endpoint and hands back the HTTP status code. Requests may carry a
//     bearer token (golang.org/x/oauth2) and always carry a User-Agent.
//   - MemoryGateway keeps the last persisted state per key in memory and
//     records every call. Responses can be scripted, which makes it the
//     gateway of choice for tests and examples.
//
// Both report remote rejections through the status code only; an error is
// returned solely when no status could be obtained.
package gateway
