// Package cli provides the interactive dropzone command-line client.
//
// It wires configuration, the store transport and the attachment engine to a
// REPL bound to one parent record. Typical flow: authenticate, resolve the
// configured relationship, load the attachment list, start a background
// connectivity watcher and execute user commands.
//
// Key features:
//   - List / Refresh attachments, with filter, sort and selection
//   - Upload local files (validated against the accept and size rules)
//   - Delete single files or the current selection
//   - Watch a folder and upload whatever lands in it
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
