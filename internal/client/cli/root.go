package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

func (a *App) getStatus() string {
	mode := a.getMode()
	if a.config.ParentID == "" {
		return string(mode)
	}
	return fmt.Sprintf("%s %s(%s)", mode, a.config.ParentEntity, a.config.ParentID)
}

// Root signs in, loads the attachment list when possible and runs the REPL
// on stdin until the user leaves.
func (a *App) Root(ctx context.Context) {
	if err := a.session.Login(ctx); err != nil {
		a.log.Warn(ctx, "sign-in failed", "error", err)
		printlnFn("Store unavailable, commands will retry when it is back:", err)
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
		if c, err := a.bound(ctx); err != nil {
			_ = a.fail(err)
		} else if err := c.Refresh(ctx); err != nil {
			_ = a.fail(err)
		}
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	printlnFn("Welcome to dropzone. Type 'help' for commands.")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
