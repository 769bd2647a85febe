package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"git.sr.ht/~jakintosh/passgate/internal/password"
	"github.com/spf13/cobra"
)

func newHashCmd() *cobra.Command {
	var (
		algorithm string
		cost      int
		check     string
	)

	cmd := &cobra.Command{
		Use:   "hash [password]",
		Short: "Hash a password, read from stdin when not given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := readPassword(cmd, args)
			if err != nil {
				return err
			}

			hasher, err := password.NewHasher(password.Config{
				Algorithm:  password.Algorithm(algorithm),
				BcryptCost: cost,
				Argon2:     password.DefaultArgon2Params(),
			})
			if err != nil {
				return err
			}

			// --check verifies against an existing hash instead of hashing
			if check != "" {
				ok, err := hasher.Verify(plaintext, check)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("password does not match")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}

			encoded, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", string(password.AlgorithmBcrypt), "bcrypt or argon2id")
	cmd.Flags().IntVar(&cost, "cost", password.DefaultBcryptCost, "bcrypt cost")
	cmd.Flags().StringVar(&check, "check", "", "verify the password against this hash")
	return cmd
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return "", errors.New("empty password")
	}
	return line, nil
}
