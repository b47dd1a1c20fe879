// Package web serves the PACT frontend: the go-app shell plus a
// same-origin proxy so the browser talks to one host. Requests under
// /api/ are forwarded to the API server with the prefix stripped;
// cookies pass through untouched in both directions.
package web

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/pactapp/pact/internal/config"
)

// Handler builds the frontend handler from cfg.
func Handler(cfg config.Config) (http.Handler, error) {
	apiURL, err := url.Parse(cfg.Web.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api_url %q: %w", cfg.Web.APIURL, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(apiURL)

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", proxy))
	mux.Handle("/", &app.Handler{
		Name:        "PACT",
		ShortName:   "PACT",
		Title:       "PACT",
		Description: "Shared task management for friends and groups.",
		Styles:      []string{"/web/app.css"},
	})

	return mux, nil
}
