// Package logging builds the process-wide slog logger and provides attribute
// helpers plus the standardized field keys shared by every component.
package logging
