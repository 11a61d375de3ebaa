package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/atinyakov/GophChat/internal/client/database"
	"github.com/atinyakov/GophChat/internal/client/session"
	"github.com/atinyakov/GophChat/internal/models"
)

const helpText = `Available commands:
  login <user> <password>   log in on the selected server
  resume                    log in again with the stored token
  logout                    log out and open the provider's logout page
  switch <server> [add]     select another server, "add" to add it
  lang <tag>                change the interface language
  status                    show the selected server and login state
  help                      show this text
  exit                      quit`

// orchestrator is the part of session.Orchestrator the shell drives.
type orchestrator interface {
	Dispatch(ctx context.Context, ev session.Event) error
	Login(ctx context.Context, creds models.Credentials) error
	Phase() session.Phase
	Server() string
}

type serverRegistry interface {
	AddServer(srv models.ServerIdentity) error
}

type shell struct {
	o       orchestrator
	servers serverRegistry
	// services are the OAuth services given to servers added from the shell.
	services map[string]models.OAuthService
	locale   func() string
	out      io.Writer
}

// run reads commands from in until exit, EOF or ctx is done.
func (s *shell) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "gophchat> ")
		if !scanner.Scan() || ctx.Err() != nil {
			return
		}
		if s.exec(ctx, scanner.Text()) {
			fmt.Fprintln(s.out, "Bye")
			return
		}
	}
}

// exec runs one command line and reports whether the shell should quit.
func (s *shell) exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	var err error
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "login":
		if len(args) != 3 {
			fmt.Fprintln(s.out, "Usage: login <user> <password>")
			return false
		}
		err = s.o.Login(ctx, models.Credentials{User: args[1], Password: args[2]})
		if err == nil {
			fmt.Fprintln(s.out, "Credentials accepted")
		}
	case "resume":
		err = s.o.Dispatch(ctx, session.AppInitRequested{})
	case "logout":
		err = s.o.Dispatch(ctx, session.LogoutRequested{})
	case "switch":
		if len(args) < 2 || len(args) > 3 || (len(args) == 3 && args[2] != "add") {
			fmt.Fprintln(s.out, "Usage: switch <server> [add]")
			return false
		}
		adding := len(args) == 3
		if adding {
			if err := s.servers.AddServer(models.ServerIdentity{URL: args[1], Services: s.services}); err != nil && !errors.Is(err, database.ErrConflict) {
				fmt.Fprintln(s.out, "Error:", err)
				return false
			}
		}
		err = s.o.Dispatch(ctx, session.ServerSwitchRequested{Server: args[1], Adding: adding})
	case "lang":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "Usage: lang <tag>")
			return false
		}
		err = s.o.Dispatch(ctx, session.UserUpdated{User: models.User{Language: args[1]}})
	case "status":
		fmt.Fprintf(s.out, "server: %s\nstate:  %s\nlocale: %s\n", s.o.Server(), s.o.Phase(), s.locale())
	case "exit", "quit":
		return true
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	if err != nil {
		fmt.Fprintln(s.out, "Error:", err)
	}
	return false
}

// printer is the session.Emitter of the terminal client. It must not block,
// so the logout web flow is started on its own goroutine.
type printer struct {
	mu         sync.Mutex
	out        io.Writer
	openLogout func(url string)
}

func (p *printer) Emit(ev session.Event) {
	p.mu.Lock()
	fmt.Fprintf(p.out, "\n* %s\n", describe(ev))
	p.mu.Unlock()

	if e, ok := ev.(session.OpenLogoutWebFlow); ok && p.openLogout != nil {
		go p.openLogout(e.URL)
	}
}

func describe(ev session.Event) string {
	switch e := ev.(type) {
	case session.Connected:
		return "connected"
	case session.AppStateChanged:
		switch e.Target {
		case session.AppSetUsername:
			return "logged in, please pick a username on the web"
		case session.AppInside:
			return "logged in"
		case session.AppOutside:
			return "not logged in"
		case session.AppLogout:
			return "logged out"
		}
		return "app state: " + string(e.Target)
	case session.LoginFailed:
		return "login failed: " + e.Err.Error()
	case session.OpenLogoutWebFlow:
		return "opening logout page"
	case session.ServerAddFinished:
		return "server added: " + e.Server
	}
	return fmt.Sprintf("%T", ev)
}
