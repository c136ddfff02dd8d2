// Package configs provides embedded configuration templates for riptide.
//
// Templates are embedded at build time using Go's //go:embed directive,
// so they ship inside the binary and `riptide init` / `riptide config --init`
// can write them without any install-time file dependencies.
//
// Template files:
//   - project-config.example.yaml: Project settings, version-controlled (.riptide.yaml)
//   - user-config.example.yaml: Machine settings (~/.config/riptide/config.yaml)
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/riptide/config.yaml)
//  3. Project config (.riptide.yaml)
//  4. Environment variables (RIPTIDE_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by `riptide config --init` at ~/.config/riptide/config.yaml.
// Holds machine-specific settings such as the Ollama host and tenant cache size.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Created by `riptide init` at .riptide.yaml in the project root.
// Holds settings that travel with the corpus: fusion weights, keyword backend,
// embedding dimensions.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
