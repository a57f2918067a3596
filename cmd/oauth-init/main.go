package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"paytrack/internal/api"
	"paytrack/internal/cli"
	"paytrack/internal/config"
)

func main() {
	provider := flag.String("provider", "paytrack", "paytrack (API identity client) or google (Sheets export)")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := config.Load()

	// Start local server for redirect_uri http://localhost:8085/callback
	// Update the OAuth client to include this URI in authorized redirect URIs.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	redirectURL := "http://localhost:" + redirectPort + "/callback"

	var (
		oc      *oauth2.Config
		outFile string
		err     error
	)
	switch *provider {
	case "paytrack":
		if cfg.OAuthClientID == "" || cfg.OAuthAuthURL == "" || cfg.OAuthTokenURL == "" {
			log.Fatalf("set PAYTRACK_OAUTH_CLIENT_ID, PAYTRACK_OAUTH_AUTH_URL and PAYTRACK_OAUTH_TOKEN_URL")
		}
		oc = api.OAuthConfig{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			AuthURL:      cfg.OAuthAuthURL,
			TokenURL:     cfg.OAuthTokenURL,
			Scopes:       cfg.OAuthScopes,
		}.OAuth2(redirectURL)
		outFile = cfg.OAuthTokenFile
	case "google":
		oc, err = googleConfig(cfg)
		if err != nil {
			log.Fatalf("oauth config: %v", err)
		}
		oc.RedirectURL = redirectURL
		outFile = cfg.GoogleOAuthTokenFile
	default:
		log.Fatalf("unknown provider %q", *provider)
	}
	if outFile == "" {
		outFile = "token.json"
	}

	state, err := randomState()
	if err != nil {
		log.Fatalf("generate state: %v", err)
	}

	codeCh := make(chan string, 1)
	srv := &http.Server{Addr: ":" + redirectPort}
	http.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- code
		go func() { time.Sleep(500 * time.Millisecond); _ = srv.Close() }()
	})
	go func() { _ = srv.ListenAndServe() }()

	url := oc.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Printf("Open this URL to authorize:\n%s\n", url)

	select {
	case code := <-codeCh:
		tok, err := oc.Exchange(context.Background(), code)
		if err != nil {
			log.Fatalf("token exchange: %v", err)
		}
		if err := api.SaveToken(outFile, tok); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("Saved token to %s\n", outFile)
	case <-time.After(5 * time.Minute):
		log.Fatalf("authorization timed out")
	case <-signalChan():
		log.Fatalf("interrupted")
	}
}

func googleConfig(cfg *config.Config) (*oauth2.Config, error) {
	b := []byte(cfg.GoogleOAuthClientJSON)
	if len(b) == 0 {
		if cfg.GoogleOAuthClientFile == "" {
			return nil, fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
		}
		var err error
		if b, err = os.ReadFile(cfg.GoogleOAuthClientFile); err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	}
	return google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func signalChan() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	return c
}
