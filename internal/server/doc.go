// Package server implements the MCP (Model Context Protocol) server for
// dataset preparation tools.
//
// This package provides a JSON-RPC 2.0 server that exposes annotation
// conversion, class counting and minority-aware splitting through the MCP
// protocol, so an MCP-compatible client can prepare a detection dataset
// without a shell.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - dataset_convert: VOC XML directory -> label files
//   - dataset_count_classes: per-class instance counts and distribution stats
//   - dataset_plan_split: dry-run minority-aware split
//   - dataset_split: split and copy into train/ and val/
//
// # Dimension Caching
//
// When dataset_convert is given an images_dir, sizes missing from XML files
// are read from the images. Those sizes are kept in a bounded cache for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Files missing during dataset_split are not errors; they are listed in the
// result's report.
package server
