package main

import (
	"encoding/json"
	"time"

	"git.sr.ht/~jakintosh/passgate/pkg/tokens"
	"github.com/spf13/cobra"
)

type tokenOutput struct {
	Token     string    `json:"token,omitempty"`
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer,omitempty"`
	ID        string    `json:"jti"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTokenCmd() *cobra.Command {
	var (
		secret string
		domain string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify access tokens",
	}
	cmd.PersistentFlags().StringVar(&secret, "secret", "", "HMAC secret (overrides JWT_SECRET)")
	cmd.PersistentFlags().StringVar(&domain, "issuer", "", "issuer claim to write and require")

	newIssuer := func() (*tokens.Issuer, error) {
		key, err := resolveSecret(secret)
		if err != nil {
			return nil, err
		}
		var opts []tokens.Option
		if domain != "" {
			opts = append(opts, tokens.WithIssuerDomain(domain))
		}
		return tokens.NewIssuer(key, opts...)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "issue <subject>",
		Short: "Issue a token for subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, err := newIssuer()
			if err != nil {
				return err
			}
			token, err := issuer.Issue(args[0])
			if err != nil {
				return err
			}
			return writeToken(cmd, token, true)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, err := newIssuer()
			if err != nil {
				return err
			}
			token, err := issuer.Verify(args[0])
			if err != nil {
				return err
			}
			return writeToken(cmd, token, false)
		},
	})

	return cmd
}

func writeToken(
	cmd *cobra.Command,
	token *tokens.AccessToken,
	withEncoded bool,
) error {
	out := tokenOutput{
		Subject:   token.Subject(),
		Issuer:    token.Issuer(),
		ID:        token.ID(),
		IssuedAt:  token.IssuedAt().UTC(),
		ExpiresAt: token.Expiration().UTC(),
	}
	if withEncoded {
		out.Token = token.Encoded()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
