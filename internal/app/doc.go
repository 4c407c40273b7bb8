// Package app provides application initialization and lifecycle
// management for the wrong-answer statistics service.
//
// All components are wired together at startup through dependency
// injection: configuration, logging, OpenTelemetry, the report and
// health services, and the chi router. The typical entry point is:
//
//	application, err := app.NewApplication(frontendFS)
//	if err != nil {
//	    ...
//	}
//	err = application.Run()
//
// Run blocks until an interrupt signal arrives or the server fails,
// then shuts everything down gracefully.
package app
