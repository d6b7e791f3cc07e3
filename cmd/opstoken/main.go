// Command opstoken mints an operator bearer token for the ops API using the
// configured auth.secret.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pharmacy/backend/internal/infrastructure/auth"
	"github.com/pharmacy/backend/internal/infrastructure/config"
)

func main() {
	var (
		operatorID int64
		scopes     string
	)
	flag.Int64Var(&operatorID, "operator", 0, "Operator (user) ID recorded in the token")
	flag.StringVar(&scopes, "scopes", auth.ScopeRead, "Comma-separated scopes: ops:read, ops:write")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Auth.Enabled() {
		fmt.Fprintln(os.Stderr, "auth.secret is not set; the ops API accepts unauthenticated requests")
		os.Exit(1)
	}

	token, err := auth.NewTokenService(cfg.Auth).Issue(operatorID, strings.Split(scopes, ",")...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(token)
}
