package util

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jzelinskie/cobrautil"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/authzed/connector-scim/pkg/config"
)

// ZeroLogPreRunEFunc returns a cobra PreRunE function that wires zerolog into
// the given IO streams
func ZeroLogPreRunEFunc(out io.Writer) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cobrautil.IsBuiltinCommand(cmd) {
			return nil // No-op for builtins
		}

		tty := false
		if f, ok := out.(*os.File); ok {
			tty = isatty.IsTerminal(f.Fd())
		}
		format := cobrautil.MustGetString(cmd, "log-format")
		if format == "human" || (format == "auto" && tty) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
		} else {
			log.Logger = log.Output(out)
		}

		levelString := strings.ToLower(cobrautil.MustGetString(cmd, "log-level"))
		level, err := zerolog.ParseLevel(levelString)
		if err != nil {
			return fmt.Errorf("unknown log level: %s", levelString)
		}
		zerolog.SetGlobalLevel(level)
		log.Debug().Str("new level", levelString).Msg("set log level")
		return nil
	}
}

// LoggedConnConfig wraps a pgx.ConnConfig to make it satisfy the
// zerolog.LogObjectMarshaler interface
type LoggedConnConfig struct {
	*pgx.ConnConfig
}

// MarshalZerologObject satisfies the zerolog.LogObjectMarshaler interface
func (l LoggedConnConfig) MarshalZerologObject(e *zerolog.Event) {
	e.Str("host", l.Host)
	e.Str("user", l.User)
	e.Str("database", l.Database)
}

// LoggedDestination wraps a destination so it can be embedded in log events
// without leaking credentials.
type LoggedDestination struct {
	config.Destination
}

// MarshalZerologObject satisfies the zerolog.LogObjectMarshaler interface
func (l LoggedDestination) MarshalZerologObject(e *zerolog.Event) {
	e.Str("kind", string(l.Kind))
	switch l.Kind {
	case config.DestinationREST:
		e.Str("url", l.BaseURL)
	case config.DestinationSQL:
		e.Str("driver", l.Driver)
		e.Str("dsn", RedactDSN(l.DSN))
	}
	if l.Auth.Kind != "" {
		e.Str("auth", l.Auth.Kind)
	}
}

// RedactDSN masks the password in URL, "key=value;" and "user:pass@" style
// DSNs.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if strings.Contains(dsn, ";") || strings.HasPrefix(strings.ToLower(dsn), "server=") {
			parts := strings.Split(dsn, ";")
			for i, p := range parts {
				k, _, ok := strings.Cut(p, "=")
				if !ok {
					continue
				}
				switch strings.ToLower(strings.TrimSpace(k)) {
				case "password", "pwd":
					parts[i] = k + "=xxxxx"
				}
			}
			return strings.Join(parts, ";")
		}
		if i := strings.LastIndex(dsn, "@"); i >= 0 {
			user, _, _ := strings.Cut(dsn[:i], ":")
			return user + ":xxxxx" + dsn[i:]
		}
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	q := u.Query()
	for _, k := range []string{"password", "pwd"} {
		if q.Has(k) {
			q.Set(k, "xxxxx")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
