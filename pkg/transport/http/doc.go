// Package http serves an endpoint runner over HTTP: JSON or server-sent
// event completions, remote cancellation, health and metrics.
package http
