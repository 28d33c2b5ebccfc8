package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/watizat/helpmap/internal/server"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for local testing",
	Long:  "Prints an HS256 token for --user signed with auth.jwt_secret. Refused outside the development environment.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.IsDevelopment() {
			return eris.Errorf("token: only available in development (env=%s)", cfg.Env)
		}
		tok, err := server.IssueToken([]byte(cfg.Auth.JWTSecret), tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(os.Stdout, tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to put in the subject claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
