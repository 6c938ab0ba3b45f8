//go:build linux

package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/alecthomas/kingpin/v2"
	"github.com/kballard/go-shellquote"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/DaGenix/closefds"
	"github.com/DaGenix/closefds/internal/forkexec"
)

type commandError struct {
	status int
}

func (e *commandError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.status)
}

type program struct {
	keepFds   []int
	keepBelow int
	probe     bool
	envFiles  []string
	env       []string
	verbose   bool
	args      []string
}

func newProgram() *program {
	return &program{
		keepBelow: 3,
		verbose:   term.IsTerminal(int(os.Stderr.Fd())),
	}
}

func (p *program) registerFlags(app *kingpin.Application) {
	app.Help = `Run a command while guaranteeing that no file descriptors beyond standard input/output/error and an explicit keep list leak into it.`

	app.Flag("keep", "File descriptor to hand to the command unchanged. May be given more than once.").
		PlaceHolder("FD").
		IntsVar(&p.keepFds)

	app.Flag("keep-below", "Preserve all file descriptors below the given number. The default covers standard input/output/error.").
		Default("3").
		IntVar(&p.keepBelow)

	app.Flag("probe", "Force brute-force descriptor enumeration instead of reading the kernel's descriptor listing.").
		BoolVar(&p.probe)

	app.Flag("env-file",
		`Read environment variables from a YAML or JSON file. The content must be a map from string to string or null.`).
		PlaceHolder("FILE").
		Envar("NOFDLEAK_ENV_FILE").
		ExistingFilesVar(&p.envFiles)

	app.Flag("env",
		`Set environment variable. Names without "=" mark pass-through variables copied from the local environment if defined.`).
		PlaceHolder("NAME=VALUE").
		StringsVar(&p.env)

	app.Flag("verbose", "Log the command before running it. Defaults to enabled if standard error is a TTY.").
		BoolVar(&p.verbose)

	app.Arg("command", "Command and its arguments.").
		Required().
		StringsVar(&p.args)
}

func (p *program) run() error {
	environ, err := buildEnviron(os.Environ(), p.envFiles, p.env)
	if err != nil {
		return err
	}

	path, err := exec.LookPath(p.args[0])
	if err != nil {
		return fmt.Errorf("unable to find command: %w", err)
	}

	hook, err := closefds.New(closefds.Options{
		Keep:      p.keepFds,
		KeepBelow: p.keepBelow,
		ProbeOnly: p.probe,
	})
	if err != nil {
		return err
	}

	defer hook.Close()

	if p.verbose {
		log.Printf("Running: %s", shellquote.Join(p.args...))
	}

	pid, err := forkexec.Spawn(forkexec.Attr{
		Args:     append([]string{path}, p.args[1:]...),
		Env:      environ,
		Files:    []uintptr{0, 1, 2},
		CloseFds: hook,
	})
	if err != nil {
		return fmt.Errorf("launching command: %w", err)
	}

	var ws unix.WaitStatus

	for {
		if _, err := unix.Wait4(pid, &ws, 0, nil); err == unix.EINTR {
			continue
		} else if err != nil {
			return fmt.Errorf("waiting for command: %w", err)
		}

		break
	}

	switch {
	case ws.Exited() && ws.ExitStatus() != 0:
		return &commandError{status: ws.ExitStatus()}
	case ws.Signaled():
		return &commandError{status: 128 + int(ws.Signal())}
	}

	return nil
}
