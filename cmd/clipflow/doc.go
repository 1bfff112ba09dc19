// Command clipflow is the CLI for the clipflow daemon: submit videos, watch
// progress, fetch transcripts, and manage the daemon process.
package main
