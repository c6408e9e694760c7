// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with DOSSIER_ environment overrides
//   - TemplateStore: user-editable TOML report templates
package file
