/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// newLogger returns the process logger. Without --verbose only warnings and
// errors are written.
func newLogger(cfg *Config, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: logDate,
	})

	if cfg.verbose {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	return log
}

// drainErrors logs write failures reported by handlers until errs is closed.
func drainErrors(log logrus.FieldLogger, errs <-chan error) {
	for err := range errs {
		log.WithError(err).Warn("SERVE: Response write failed")
	}
}

// newPage renders a minimal page whose only link returns to the site root
// under prefix.
func newPage(prefix, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"%s/\">%s</a></body></html>", html.EscapeString(prefix), html.EscapeString(body)))

	return htmlBody.String()
}
