// Package browse holds the release browser's view-model: week anchoring,
// client-side paging, the local projection filter, and the request/result
// protocol that keeps superseded responses from overwriting newer ones.
//
// A ViewState is a plain value. Intent methods return the next state plus an
// optional *Request; the caller executes it (Execute) and hands the Result
// back to Resolve.
package browse
