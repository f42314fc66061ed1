package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/guard"
	"github.com/havenstay/authsession/metrics/export/prometheus"
	"github.com/havenstay/authsession/middleware"
)

func cmdServe(ctx context.Context, env *environment, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g := guardFor(env)
	stop := env.manager.Subscribe(func(st authsession.State) {
		env.logger.Debug("session state changed", "authenticated", st.IsAuthenticated(), "loading", st.Loading)
	})
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(env, g),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       env.cfg.Server.ReadTimeout,
		WriteTimeout:      env.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		env.logger.Info("serving guarded routes", "addr", *addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func guardFor(env *environment) *guard.Guard {
	return guard.New(env.manager, guard.DefaultRoutes(), guard.DefaultDestinations())
}

func newRouter(env *environment, g *guard.Guard) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/login", loginPage)
	r.Post("/login", signIn(env))
	r.Post("/logout", signOut(env))
	r.Get("/unauthorized", page("Access denied", "Your role cannot open this page."))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle(env.cfg.Server.MetricsPath, prometheus.NewExporter(env.manager).Handler())

	guarded := r.With(middleware.RequireRoute(g))
	for _, pattern := range g.Routes().Patterns() {
		guarded.Get(pattern, protectedPage(env))
	}

	return r
}

func page(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>%s</h1><p>%s</p>\n", html.EscapeString(title), html.EscapeString(body))
	}
}

func protectedPage(env *environment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := env.manager.State()
		name := ""
		if st.IsAuthenticated() {
			name = st.Session.User.Name
		}
		page(r.URL.Path, "Signed in as "+name)(w, r)
	}
}

const loginForm = `<h1>Sign in</h1>
<form method="post" action="/login">
<input type="hidden" name="from" value="%s">
<input name="email" type="email" placeholder="Email">
<input name="password" type="password" placeholder="Password">
<button type="submit">Sign in</button>
</form>
`

func loginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, loginForm, html.EscapeString(r.URL.Query().Get("from")))
}

// signIn returns the user to the page that redirected them here.
func signIn(env *environment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if err := env.manager.SignIn(r.Context(), r.PostFormValue("email"), r.PostFormValue("password")); err != nil {
			http.Redirect(w, r, "/login?"+url.Values{"from": {r.PostFormValue("from")}}.Encode(), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, safeReturn(r.PostFormValue("from")), http.StatusSeeOther)
	}
}

func signOut(env *environment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = env.manager.SignOut(r.Context())
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// safeReturn only follows local absolute paths.
func safeReturn(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return "/profile-settings"
	}
	return from
}
