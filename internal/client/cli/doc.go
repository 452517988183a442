// Package cli is the marketctl interactive client.
//
// It wires configuration, the local SQLite index, the daemon and file server
// clients, and a REPL. On start it resumes a saved session if there is one
// and probes the daemon in the background; the prompt shows the signed-in
// account and whether the daemon is reachable.
//
// Commands are parsed from a single line ("offer a.txt 100 20"); only
// credentials are prompted for. See commands in repl.go for the full list.
package cli
