// Package http provides the HTTP transport layer for the wrong-answer
// statistics service.
//
// Handlers are thin: they validate the incoming request, delegate to the
// service layer, and translate service errors into RFC 7807 problem
// responses through the shared error handler. Each handler owns a chi
// sub-router exposed via Routes() so the application can mount it under
// its path prefix.
//
// Dependencies are injected as interfaces, which keeps the handlers
// testable with httptest and lightweight service fakes.
package http
