/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/sketchbox/internal/game"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// joinURL is the link a scanned invite opens: the site root with the room
// code in the query string.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": {code}}.Encode(),
	}

	return u.String()
}

// serveRoomQR renders a PNG invite for an open room.
func serveRoomQR(cfg *Config, games *game.Manager, log logrus.FieldLogger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		code := strings.ToUpper(strings.TrimSpace(p.ByName("code")))
		if !games.Exists(code) {
			http.NotFound(w, r)
			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			log.WithError(err).WithField("room", code).Error("SERVE: QR generation failed")
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		log.WithField("room", code).Infof("SERVE: Invite QR (%s) to %s in %s",
			humanReadableSize(int64(written)),
			clientIP(cfg, r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
