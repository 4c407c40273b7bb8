// Package services implements the business logic layer between the
// HTTP handlers and the answer sheet domain packages. Handlers stay
// thin: parsing, aggregation, rendering, metrics, and tracing all
// happen here, so the CLI can drive the same pipeline without an HTTP
// server.
//
// Services follow these principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Cross-cutting concerns (logging, metrics) handled centrally
//	4. Errors transformed into renderable API errors at the boundary
package services
