// Package logging provides structured JSON logging with size-based file
// rotation. Serve mode writes to ~/.riptide/logs/ only, keeping stdout
// clean for the MCP protocol stream; CLI commands add stderr on top.
package logging
