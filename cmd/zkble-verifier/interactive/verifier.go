// Package interactive provides the interactive command-line interface
// for zkble-verifier.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/zkble-protocol/zkble-go/pkg/service"
)

// Authenticator runs authentication attempts.
type Authenticator interface {
	AuthenticateByName(ctx context.Context, name string) *service.Report
	Authenticate(ctx context.Context, address string) *service.Report
}

// Factory builds an authenticator for a scheme.
type Factory func(scheme service.Scheme) (Authenticator, error)

// Verifier handles interactive mode for zkble-verifier.
type Verifier struct {
	factory Factory
	auth    Authenticator // built on first use
	scheme  service.Scheme
	name    string
	verbose bool
	history []*service.Report
	rl      *readline.Instance
}

// New creates a new interactive verifier. defaultName is used by "auth"
// without arguments.
func New(factory Factory, scheme service.Scheme, defaultName string) (*Verifier, error) {
	if _, err := factory(scheme); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "verifier> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Verifier{
		factory: factory,
		scheme:  scheme,
		name:    defaultName,
		rl:      rl,
	}, nil
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (v *Verifier) Stdout() io.Writer {
	return v.rl.Stdout()
}

// Run starts the interactive command loop.
func (v *Verifier) Run(ctx context.Context, cancel context.CancelFunc) {
	defer v.rl.Close()

	v.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := v.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(v.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		if !v.Execute(ctx, parts[0], parts[1:]) {
			cancel()
			return
		}
	}
}

// Execute runs one command. It returns false when the session should end.
func (v *Verifier) Execute(ctx context.Context, cmd string, args []string) bool {
	w := v.rl.Stdout()

	switch strings.ToLower(cmd) {
	case "help", "?":
		v.printHelp()

	case "auth", "a":
		v.cmdAuth(ctx, args)

	case "connect", "c":
		v.cmdConnect(ctx, args)

	case "scheme", "s":
		v.cmdScheme(args)

	case "history", "h":
		v.cmdHistory()

	case "show":
		v.cmdShow(args)

	case "verbose", "v":
		v.verbose = !v.verbose
		fmt.Fprintf(w, "Verbose output: %t\n", v.verbose)

	case "quit", "exit", "q":
		fmt.Fprintln(w, "Exiting...")
		return false

	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (v *Verifier) printHelp() {
	fmt.Fprintln(v.rl.Stdout(), `
ZKBLE Verifier Commands:
  Authentication:
    auth [name]        - Find a device by name and authenticate it
    connect <addr>     - Authenticate the device at host:port
    scheme [name]      - Show or set the scheme (schnorr, aes, hmac)

  Results:
    history            - List previous attempts
    show [n]           - Show attempt n in detail (default: last)
    verbose            - Toggle transcript values in output

  General:
    help               - Show this help
    quit               - Exit`)
}

func (v *Verifier) cmdAuth(ctx context.Context, args []string) {
	name := v.name
	if len(args) > 0 {
		name = strings.Join(args, " ")
	}
	if name == "" {
		fmt.Fprintln(v.rl.Stdout(), "Usage: auth <name>")
		return
	}
	auth, err := v.authenticator()
	if err != nil {
		fmt.Fprintf(v.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(v.rl.Stdout(), "Looking for %q...\n", name)
	v.record(auth.AuthenticateByName(ctx, name))
}

func (v *Verifier) cmdConnect(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(v.rl.Stdout(), "Usage: connect <host:port>")
		return
	}
	auth, err := v.authenticator()
	if err != nil {
		fmt.Fprintf(v.rl.Stdout(), "Error: %v\n", err)
		return
	}
	v.record(auth.Authenticate(ctx, args[0]))
}

func (v *Verifier) authenticator() (Authenticator, error) {
	if v.auth == nil {
		auth, err := v.factory(v.scheme)
		if err != nil {
			return nil, err
		}
		v.auth = auth
	}
	return v.auth, nil
}

func (v *Verifier) cmdScheme(args []string) {
	w := v.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintf(w, "Scheme: %s\n", v.scheme)
		return
	}
	scheme, err := service.ParseScheme(strings.ToLower(args[0]))
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	auth, err := v.factory(scheme)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	v.auth = auth
	v.scheme = scheme
	fmt.Fprintf(w, "Scheme: %s\n", scheme)
}

func (v *Verifier) cmdHistory() {
	w := v.rl.Stdout()
	if len(v.history) == 0 {
		fmt.Fprintln(w, "No attempts yet")
		return
	}
	for i, r := range v.history {
		fmt.Fprintf(w, "  %2d  %-13s %-7s %s\n", i+1, r.Outcome, r.Scheme, r.Address)
	}
}

func (v *Verifier) cmdShow(args []string) {
	w := v.rl.Stdout()
	if len(v.history) == 0 {
		fmt.Fprintln(w, "No attempts yet")
		return
	}
	idx := len(v.history)
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(v.history) {
			fmt.Fprintf(w, "Invalid attempt: %s (1-%d)\n", args[0], len(v.history))
			return
		}
		idx = n
	}
	PrintReport(w, v.history[idx-1], true)
}

func (v *Verifier) record(report *service.Report) {
	v.history = append(v.history, report)
	PrintReport(v.rl.Stdout(), report, v.verbose)
}
