/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/Seednode/sketchbox/internal/game"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	allowedOrigins []string
	bind           string
	chatLimit      int
	chatWindow     time.Duration
	gracePeriod    time.Duration
	joinLimit      int
	joinWindow     time.Duration
	maxBufferSize  int
	maxDrawingSize int
	maxPlayers     int
	messageBurst   int
	messageRate    float64
	port           int
	prefix         string
	profile        bool
	roomIdle       time.Duration
	secret         string
	sweepInterval  time.Duration
	tlsCert        string
	tlsKey         string
	trustedProxies []string
	verbose        bool
	version        bool

	proxies []netip.Prefix
}

func (c *Config) validate() error {
	switch {
	case (c.tlsCert == "") != (c.tlsKey == ""):
		return errors.New("both --tls-cert and --tls-key must be provided together")
	case c.port < 1 || c.port > 65535:
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	case c.maxPlayers < 2:
		return fmt.Errorf("invalid max players (must be at least 2): %d", c.maxPlayers)
	case c.maxDrawingSize < 1:
		return fmt.Errorf("invalid max drawing size (must be positive): %d", c.maxDrawingSize)
	case c.maxBufferSize < c.maxDrawingSize:
		return fmt.Errorf("max buffer size (%s) must be at least the max drawing size (%s)",
			humanReadableSize(int64(c.maxBufferSize)), humanReadableSize(int64(c.maxDrawingSize)))
	case c.roomIdle <= 0:
		return fmt.Errorf("invalid room idle timeout (must be positive): %s", c.roomIdle)
	case c.sweepInterval <= 0:
		return fmt.Errorf("invalid sweep interval (must be positive): %s", c.sweepInterval)
	case c.gracePeriod < 0:
		return fmt.Errorf("invalid grace period (must not be negative): %s", c.gracePeriod)
	case c.chatLimit < 0 || c.joinLimit < 0:
		return errors.New("rate limits must not be negative")
	case c.messageRate < 0 || c.messageBurst < 0:
		return errors.New("message rate and burst must not be negative")
	}

	proxies, err := parseProxies(c.trustedProxies)
	if err != nil {
		return err
	}
	c.proxies = proxies

	return nil
}

// parseProxies accepts CIDR prefixes and bare addresses.
func parseProxies(entries []string) ([]netip.Prefix, error) {
	proxies := make([]netip.Prefix, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: must be an address or CIDR prefix", entry)
		}
		addr = addr.Unmap()
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return proxies, nil
}

// trusts reports whether a peer may set the forwarded client address headers.
func (c *Config) trusts(peer netip.Addr) bool {
	peer = peer.Unmap()

	for _, prefix := range c.proxies {
		if prefix.Contains(peer) {
			return true
		}
	}

	return false
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// gameConfig maps the command line onto the coordinator's tunables.
func (c *Config) gameConfig() game.Config {
	gc := game.DefaultConfig()

	gc.MaxPlayers = c.maxPlayers
	gc.GracePeriod = c.gracePeriod
	gc.IdleTimeout = c.roomIdle
	gc.SweepInterval = c.sweepInterval
	gc.MaxDrawingBytes = c.maxDrawingSize
	gc.JoinLimit = c.joinLimit
	gc.JoinWindow = c.joinWindow
	gc.ChatLimit = c.chatLimit
	gc.ChatWindow = c.chatWindow

	return gc
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := game.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "sketchbox",
		Short:         "Room coordinator for a multiplayer drawing game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", nil, "origins allowed to open a websocket, empty allows any (env: SKETCHBOX_ALLOWED_ORIGINS)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SKETCHBOX_BIND)")
	fs.IntVar(&cfg.chatLimit, "chat-limit", defaults.ChatLimit, "chat messages allowed per player per window, 0 disables (env: SKETCHBOX_CHAT_LIMIT)")
	fs.DurationVar(&cfg.chatWindow, "chat-window", defaults.ChatWindow, "chat rate limit window (env: SKETCHBOX_CHAT_WINDOW)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", defaults.GracePeriod, "time a disconnected player keeps their seat (env: SKETCHBOX_GRACE_PERIOD)")
	fs.IntVar(&cfg.joinLimit, "join-limit", defaults.JoinLimit, "rooms joined or hosted per address per window, 0 disables (env: SKETCHBOX_JOIN_LIMIT)")
	fs.DurationVar(&cfg.joinWindow, "join-window", defaults.JoinWindow, "join rate limit window (env: SKETCHBOX_JOIN_WINDOW)")
	fs.IntVar(&cfg.maxBufferSize, "max-buffer-size", 4<<20, "largest inbound websocket frame, in bytes (env: SKETCHBOX_MAX_BUFFER_SIZE)")
	fs.IntVar(&cfg.maxDrawingSize, "max-drawing-size", defaults.MaxDrawingBytes, "largest decoded drawing, in bytes (env: SKETCHBOX_MAX_DRAWING_SIZE)")
	fs.IntVar(&cfg.maxPlayers, "max-players", defaults.MaxPlayers, "players allowed per room (env: SKETCHBOX_MAX_PLAYERS)")
	fs.IntVar(&cfg.messageBurst, "message-burst", 40, "inbound websocket messages a connection may send at once (env: SKETCHBOX_MESSAGE_BURST)")
	fs.Float64Var(&cfg.messageRate, "message-rate", 20, "sustained inbound websocket messages per second per connection, 0 disables (env: SKETCHBOX_MESSAGE_RATE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SKETCHBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SKETCHBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SKETCHBOX_PROFILE)")
	fs.DurationVar(&cfg.roomIdle, "room-idle-timeout", defaults.IdleTimeout, "time before idle rooms are closed (env: SKETCHBOX_ROOM_IDLE_TIMEOUT)")
	fs.StringVar(&cfg.secret, "secret", "", "key used to sign session tokens, random if unset (env: SKETCHBOX_SECRET)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", defaults.SweepInterval, "how often idle rooms are looked for (env: SKETCHBOX_SWEEP_INTERVAL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SKETCHBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SKETCHBOX_TLS_KEY)")
	fs.StringSliceVar(&cfg.trustedProxies, "trusted-proxies", nil, "addresses or CIDR prefixes allowed to set CF-Connecting-IP and X-Real-IP (env: SKETCHBOX_TRUSTED_PROXIES)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SKETCHBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SKETCHBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("sketchbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
