// Package pipeline implements the two-step resolution flow.
//
// A resolution runs exactly two dependent upstream calls:
//
//  1. lookup_identity: resolve the caller-supplied handle to the
//     canonical numeric identifier.
//  2. resolve_relations: fetch the accounts that identity follows and
//     normalize them to a list of handles.
//
// Step 2 never starts before step 1's identifier is known, and any
// failure is terminal for the request: a step-2 failure discards the
// already-resolved identity. Each resolution is a pure function of its
// own upstream responses plus the input handle, so concurrent
// resolutions share nothing but the adapter, the HTTP client, and the
// optional identity cache.
//
// Failures surface as *domain.APIError values carrying the canonical
// taxonomy type; callers map them to HTTP statuses via HTTPStatusCode.
package pipeline
