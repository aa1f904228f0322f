// Package handler provides HTTP request handlers for the raid planning API.
//
// Each handler struct wraps the service it serves. Routes are registered in
// RegisterRoutes using net/http ServeMux patterns.
//
// # Response Format
//
//   - WriteData: single resource with optional HATEOAS links
//   - WriteCollection: list of resources with a count
//   - WriteError: RFC 9457 Problem Details error response
//
// Service errors go through MapServiceError so every endpoint reports lock
// conflicts, stale versions and incomplete rosters the same way.
//
// # Identity
//
// Write endpoints require the acting team leader, read from the
// X-Team-Leader-ID header by middleware.ServiceAuth.
package handler
