// Package align pairs extracted frames with transcript segments by timestamp
// window. Pure functions over immutable inputs.
package align
