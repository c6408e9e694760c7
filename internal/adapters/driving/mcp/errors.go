// Package mcp provides an MCP (Model Context Protocol) server adapter for Dossier.
// It lets AI assistants search project context, read documents and generate reports.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrReportsUnavailable is returned by report tools when no report service is wired.
var ErrReportsUnavailable = errors.New("mcp: report generation is not available")
