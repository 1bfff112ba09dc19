// Package retry wraps operations with bounded automatic retry. It keeps the
// distinction between "not ready yet" and "broken" first-class: Waiting
// results are rescheduled without touching the failure budget, while Failed
// results consume it until the terminal error surfaces.
package retry
