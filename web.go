/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/sketchbox/internal/game"
	"github.com/Seednode/sketchbox/internal/socket"
	"github.com/Seednode/sketchbox/internal/token"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

// clientIP returns the caller's address without a port. The forwarding
// headers are honoured only when the TCP peer is a trusted proxy, since the
// result keys the join rate limit.
func clientIP(cfg *Config, r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peer, err := netip.ParseAddr(host)
	if err != nil || !cfg.trusts(peer) {
		return host
	}

	for _, header := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(header))); err == nil {
			return addr.Unmap().String()
		}
	}

	return host
}

func serveHealthCheck(cfg *Config, games *game.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Sketchbox-Rooms", strconv.Itoa(games.Len()))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	const data = "User-agent: *\nDisallow: /\n"

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := io.WriteString(w, data)
		if err != nil {
			errs <- err
		}
	}
}

func serveCategories(cfg *Config, games *game.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		err := json.NewEncoder(w).Encode(struct {
			Categories []string `json:"categories"`
		}{games.Categories()})
		if err != nil {
			errs <- err
		}
	}
}

func serveVersion(cfg *Config, log logrus.FieldLogger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := io.WriteString(w, "sketchbox v"+releaseVersion+"\n")
		if err != nil {
			errs <- err

			return
		}

		log.Infof("SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			clientIP(cfg, r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// signingSecret returns the configured secret, or a random one. Tokens
// signed with a random secret do not survive a restart.
func signingSecret(cfg *Config, log logrus.FieldLogger) ([]byte, error) {
	if cfg.secret != "" {
		return []byte(cfg.secret), nil
	}

	secret, err := token.RandomSecret()
	if err != nil {
		return nil, fmt.Errorf("generating signing secret: %w", err)
	}

	log.Warn("START: No --secret given, session tokens will not survive a restart")

	return secret, nil
}

// newRouter wires every route onto a fresh router.
func newRouter(cfg *Config, log logrus.FieldLogger, games *game.Manager, ws http.Handler, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.WithField("panic", i).Error("SERVE: Recovered from panic")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		_, _ = io.WriteString(w, newPage(cfg.prefix, "Server Error", "An error has occurred. Please try again."))
	}

	mux.GET(cfg.prefix+"/categories", serveCategories(cfg, games, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, games, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, log, errs))

	mux.GET(cfg.prefix+"/room/:code/qr", serveRoomQR(cfg, games, log, errs))

	mux.Handler(http.MethodGet, cfg.prefix+"/ws", ws)

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	return mux
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log := newLogger(cfg, os.Stderr)

	log.Infof("START: sketchbox v%s", releaseVersion)

	secret, err := signingSecret(cfg, log)
	if err != nil {
		return err
	}

	signer, err := token.NewSigner(secret)
	if err != nil {
		return err
	}

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	hub := socket.NewHub(log)
	games := game.New(cfg.gameConfig(), hub, signer, game.WithLogger(log))
	defer games.Close()

	ws := socket.NewServer(hub, games, socket.Options{
		AllowedOrigins: cfg.allowedOrigins,
		MaxMessageSize: int64(cfg.maxBufferSize),
		MessageRate:    cfg.messageRate,
		MessageBurst:   cfg.messageBurst,
		RemoteAddr:     func(r *http.Request) string { return clientIP(cfg, r) },
		Logger:         log,
	})

	errs := make(chan error, 64)
	go drainErrors(log, errs)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, log, games, ws, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go games.Run(ctx)

	listenErr := make(chan error, 1)

	go func() {
		var err error

		log.Infof("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	log.Info("SERVE: Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
