package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/sheets/google"
)

const authTimeout = 5 * time.Minute

func sheetsAuthCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Obtain an OAuth token for the spreadsheet mirror",
		Long: `Runs the OAuth consent flow for the client in GOOGLE_OAUTH_CLIENT_JSON or
GOOGLE_OAUTH_CLIENT_FILE and stores the token. The OAuth client must list
http://localhost:<OAUTH_REDIRECT_PORT>/callback as an authorized redirect URI.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = appConfig.GoogleOAuthTokenFile
			}
			if out == "" {
				out = "token.json"
			}
			return runSheetsAuth(cmd.Context(), cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "token file (default GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	return cmd
}

func runSheetsAuth(ctx context.Context, stdout io.Writer, outFile string) error {
	clientJSON, err := google.ReadCredential(appConfig.GoogleOAuthClientJSON, appConfig.GoogleOAuthClientFile)
	if err != nil {
		return err
	}
	if clientJSON == nil {
		return errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	oc, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("oauth config: %w", err)
	}
	oc.RedirectURL = "http://localhost:" + appConfig.OAuthRedirectPort + "/callback"

	state := fmt.Sprintf("finanzas-%d", time.Now().UnixNano())
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization denied: %s", q.Get("error")))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			trySend(codeCh, q.Get("code"))
		}
	})
	srv := &http.Server{Addr: ":" + appConfig.OAuthRedirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			trySend(errCh, err)
		}
	}()
	defer srv.Close()

	fmt.Fprintf(stdout, "Open this URL to authorize:\n%s\n", oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := oc.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		if err := writeToken(outFile, tok); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved token to %s\n", outFile)
		return nil
	case err := <-errCh:
		return err
	case <-time.After(authTimeout):
		return errors.New("authorization timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// trySend drops v when the flow already has a result.
func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
