package workflow

import (
	"context"

	"github.com/deixis/exrun/internal/locator"
	"github.com/deixis/exrun/internal/runner"
)

// Chat launches the chat server attached to the terminal. The operator
// runs the client by hand in another terminal. It returns when the
// server exits or ctx is cancelled.
func (e *Engine) Chat(ctx context.Context) (*runner.PassthroughResult, error) {
	server, client := e.Config.ChatServer(), e.Config.ChatClient()

	var missing []string
	for _, name := range []string{server, client} {
		if !e.Location.Exists(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		e.printf("FAIL chat programs are not built\n")
		return nil, &locator.MissingError{Dir: e.Location.Dir, Names: missing}
	}

	e.printf("\nstarting chat server\n%s\n", rule)
	e.printf("run the client in another terminal:\n  %s\n", e.Location.Path(client))
	e.printf("press Ctrl+C to stop the server\n")

	res, err := e.Runner.Passthrough(ctx, e.Location.Path(server), e.Location.Dir, e.Stdio)
	if err != nil {
		return nil, err
	}

	switch {
	case res.Stopped && res.Exited:
		e.printf("\nserver stopped\n")
	case res.Stopped:
		e.printf("\nserver (pid %d) did not exit after interrupt; left running\n", res.PID)
	case res.ExitCode != 0:
		e.printf("\nserver exited with code %d\n", res.ExitCode)
	default:
		e.printf("\nserver exited\n")
	}
	return res, nil
}
