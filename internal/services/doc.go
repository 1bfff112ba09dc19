// Package services holds the error taxonomy and context annotation helpers
// shared by the remote-service clients and the workers that drive them.
package services
