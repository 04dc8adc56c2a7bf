// Package http exposes the scheduling service over a JSON HTTP API: runs are
// created by posting an event table and retrieved, listed, or deleted by ID.
package http
