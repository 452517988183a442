package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

var errUsage = errors.New("usage")

type command struct {
	name  string
	usage string
	auth  bool // needs a signed-in session
	run   func(ctx context.Context, args []string) error
}

// execIface is what the REPL needs from App; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	commands() []command
}

func (a *App) commands() []command {
	return []command{
		{name: "register", usage: "register", run: a.Register},
		{name: "login", usage: "login", run: a.Login},
		{name: "logout", usage: "logout", auth: true, run: a.Logout},
		{name: "info", usage: "info", auth: true, run: a.Info},
		{name: "balance", usage: "balance [account]", auth: true, run: a.Balance},
		{name: "fund", usage: "fund <amount> [account]", auth: true, run: a.Fund},
		{name: "offer", usage: "offer <file> <price> <deposit> [hash|cid] [paid]", auth: true, run: a.Offer},
		{name: "remove", usage: "remove <offering>", auth: true, run: a.Remove},
		{name: "request", usage: "request <offering> [paid]", auth: true, run: a.Request},
		{name: "offering", usage: "offering <offering>", auth: true, run: a.Offering},
		{name: "offerings", usage: "offerings", auth: true, run: a.Offerings},
		{name: "requests", usage: "requests <offering>", auth: true, run: a.Requests},
		{name: "request-info", usage: "request-info <offering> <request>", auth: true, run: a.RequestInfo},
		{name: "deliver", usage: "deliver <offering> <request>", auth: true, run: a.Deliver},
		{name: "files", usage: "files", run: a.Files},
		{name: "keygen", usage: "keygen", run: a.Keygen},
		{name: "hash", usage: "hash <path>", run: a.Hash},
		{name: "open", usage: "open <sealed-file> <out-file>", run: a.Open},
		{name: "sync", usage: "sync", auth: true, run: a.Sync},
		{name: "events", usage: "events [offering]", run: a.Events},
		{name: "watch", usage: "watch", auth: true, run: a.Watch},
	}
}

func help(a execIface) string {
	var names []string
	for _, c := range a.commands() {
		if !c.auth || a.isLoggedIn() {
			names = append(names, c.name)
		}
	}
	return "Available commands: " + strings.Join(names, ", ") + ", exit"
}

// runREPL reads commands from reader until EOF, "exit" or "quit". Command
// errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	byName := map[string]command{}
	for _, c := range a.commands() {
		byName[c.name] = c
	}

	for {
		printlnFn(fmt.Sprintf("mkt %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printlnFn(help(a))
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		c, ok := byName[name]
		switch {
		case !ok:
			printlnFn("Unknown command:", name)
		case c.auth && !a.isLoggedIn():
			printlnFn("Please login first")
		default:
			if err := c.run(ctx, args); err != nil {
				if errors.Is(err, errUsage) {
					printlnFn("Usage:", c.usage)
				} else {
					printlnFn("Error:", err)
				}
			}
		}
	}
}
