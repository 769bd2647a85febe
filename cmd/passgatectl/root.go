package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

const secretEnv = "JWT_SECRET"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "passgatectl",
		Short: "Operator tool for the passgate authentication server",
		Long: `passgatectl hashes passwords and issues or verifies access tokens
using the same formats as the passgate server.

Environment Variables:
  JWT_SECRET  HMAC secret for token commands (overridden by --secret)`,
		SilenceUsage: true,
	}
	root.AddCommand(newHashCmd())
	root.AddCommand(newTokenCmd())
	return root
}

// resolveSecret prefers the --secret flag over the environment.
func resolveSecret(flag string) ([]byte, error) {
	if flag != "" {
		return []byte(flag), nil
	}
	if env, ok := os.LookupEnv(secretEnv); ok && env != "" {
		return []byte(env), nil
	}
	return nil, errors.New("no secret: set JWT_SECRET or pass --secret")
}
