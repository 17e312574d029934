// Command odooctl calls an Odoo server's JSON-RPC API from the shell.
//
// Connection settings come from a TOML file (default
// $XDG_CONFIG_HOME/odooctl/config.toml) and can be overridden by flags:
//
//	host = "erp.example.com"
//	port = 8069
//	database = "production"
//	username = "admin"
//	secure = true
//	log_level = "info"
//	timeout = "30s"
//
// The password is taken from --password, then $ODOO_PASSWORD, then the OS
// keyring entry written by "odooctl password set".
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openKeyring).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
