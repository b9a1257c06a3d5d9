package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Help(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Refresh(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Select(ctx context.Context, args []string) error
	DeleteSelected(ctx context.Context, args []string) error
	Filter(ctx context.Context, args []string) error
	Sort(ctx context.Context, args []string) error
	Watch(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  list | l                    show attachments
  refresh                     reload attachments from the store
  upload <path...>            upload local files
  delete <index...>           delete files by index
  select <index...>           toggle selection
  deleteselected              delete every selected file
  filter [text]               show only names containing text
  sort <name|size|none> [asc|desc]
  watch <dir> | watch stop    upload files dropped into a folder
  status                      show connection and binding
  exit | quit                 leave the program`

// runREPL starts a simple read–eval–print loop for the dropzone CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches the remaining tokens to methods on 'a'. Unknown
// commands are reported back to the user. The loop exits on scanner EOF,
// when ctx is done or when the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("dz> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help":
			_ = a.Help(ctx, args)

		case "l", "list":
			_ = a.List(ctx, args)

		case "refresh":
			_ = a.Refresh(ctx, args)

		case "upload":
			_ = a.Upload(ctx, args)

		case "delete":
			_ = a.Delete(ctx, args)

		case "select":
			_ = a.Select(ctx, args)

		case "deleteselected":
			_ = a.DeleteSelected(ctx, args)

		case "filter":
			_ = a.Filter(ctx, args)

		case "sort":
			_ = a.Sort(ctx, args)

		case "watch":
			_ = a.Watch(ctx, args)

		case "status":
			_ = a.Status(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
