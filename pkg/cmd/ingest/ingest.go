package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/authzed/connector-scim/pkg/auth"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/correlate"
	"github.com/authzed/connector-scim/pkg/importer"
	"github.com/authzed/connector-scim/pkg/mapping"
	"github.com/authzed/connector-scim/pkg/options"
	"github.com/authzed/connector-scim/pkg/streams"
	"github.com/authzed/connector-scim/pkg/util"
)

// NewIngestCmd configures a new cobra command that pulls identities out of a
// tenant's system and publishes them as a bulk request.
func NewIngestCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:   "ingest [document file]",
		Short: "map identities pulled from the tenant's system into a bulk request",
		Long: `Maps every record of a source document into a bulk request.

The document is read from the given file ("-" for stdin), or fetched from the
source configured in the tenant's inbound section when no file is given. The
bulk request is printed unless --publish-url is set.`,
		Example: `  connector-scim ingest --config=tenant.yaml users.json
  connector-scim ingest --config=tenant.yaml --publish-url=https://idp.example.com/bulk --await-reply`,
		Args: cobra.MaximumNArgs(1),
		// logs to stderr so that stdout only contains the bulk request
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.ErrOut),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(ctx, args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&o.ConfigFile, "config", "", "path to the tenant config (yaml, json or jsonc)")
	cmd.Flags().StringVar(&o.PostgresURI, "postgres", "", "address of the postgres instance inbound queries run against, defaults to the destination dsn")
	cmd.Flags().StringVar(&o.PublishURL, "publish-url", "", "ingestion endpoint bulk requests are posted to")
	cmd.Flags().StringVar(&o.PublishToken, "publish-token", "", "bearer token for the ingestion endpoint")
	cmd.Flags().BoolVar(&o.AwaitReply, "await-reply", false, "wait for the correlated acknowledgement of each published request")
	cmd.Flags().StringVar(&o.ReplyAddr, "reply-addr", ":8081", "address acknowledgements are received on")
	cmd.Flags().DurationVar(&o.ReplyTimeout, "reply-timeout", 30*time.Second, "how long to wait for an acknowledgement")
	cmd.Flags().IntVar(&o.BatchSize, "batch-size", 0, "publish at most this many operations per request, 0 for no limit")
	cobrautil.RegisterZeroLogFlags(cmd.Flags(), "log")

	return cmd
}

// Options holds options for the ingest command
type Options struct {
	streams.IO
	options.ConfigOptions
	options.PostgresOptions

	DocumentFile string

	PublishURL   string
	PublishToken string
	AwaitReply   bool
	ReplyAddr    string
	ReplyTimeout time.Duration
	BatchSize    int

	// Source and Publisher are built by Complete unless already set.
	Source    importer.Source
	Publisher importer.Publisher

	replyListener net.Listener
	waiter        *correlate.Waiter
	closers       []func()
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO:           ioStreams,
		ReplyAddr:    ":8081",
		ReplyTimeout: 30 * time.Second,
	}
}

// Complete loads the tenant config and sets up the source and publisher.
func (o *Options) Complete(ctx context.Context, args []string) error {
	if len(args) > 0 {
		o.DocumentFile = args[0]
	}
	if err := o.ConfigOptions.Complete(ctx, nil, o.IO); err != nil {
		return err
	}
	if o.Config.Inbound == nil {
		return fmt.Errorf("tenant %q has no inbound mapping configured", o.Config.AppID)
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative")
	}
	if err := o.completeSource(ctx); err != nil {
		o.Close()
		return err
	}
	if err := o.completePublisher(ctx); err != nil {
		o.Close()
		return err
	}
	return nil
}

func (o *Options) completeSource(ctx context.Context) error {
	if o.Source != nil {
		return nil
	}
	if o.DocumentFile != "" {
		data, err := o.ReadInput(o.DocumentFile)
		if err != nil {
			return err
		}
		o.Source = importer.ReaderSource{R: bytes.NewReader(data)}
		return nil
	}

	src := o.Config.Inbound.Source
	var querier importer.Querier
	if src.Query != "" {
		if !o.PostgresOptions.Configured() {
			if err := o.defaultPostgres(o.Config.Destination); err != nil {
				return err
			}
		}
		pool, err := o.Connect(ctx)
		if err != nil {
			return err
		}
		o.closers = append(o.closers, pool.Close)
		querier = pool
	}

	var tokens auth.TokenSource = auth.ConfigTokenSource{}
	source, err := importer.NewSource(o.Config.Destination, src, tokens, querier)
	if err != nil {
		return err
	}
	o.Source = source
	return nil
}

// defaultPostgres points inbound queries at the destination database when it
// is a postgres instance.
func (o *Options) defaultPostgres(dest config.Destination) error {
	if dest.Kind != config.DestinationSQL {
		return fmt.Errorf("inbound query needs --postgres when the destination is not a database")
	}
	backend, err := mapping.ClassifyDriver(dest.Driver)
	if err != nil {
		return err
	}
	if backend != mapping.BackendPostgres {
		return fmt.Errorf("inbound queries run against postgres, destination driver is %q", dest.Driver)
	}
	o.PostgresURI = dest.DSN
	return nil
}

func (o *Options) completePublisher(ctx context.Context) error {
	if o.Publisher != nil {
		return nil
	}
	if o.PublishURL == "" {
		if o.AwaitReply {
			return fmt.Errorf("--await-reply requires --publish-url")
		}
		o.Publisher = importer.NewBatchingPublisher(importer.NewWriterPublisher(o.Out), o.BatchSize)
		return nil
	}

	var tokens auth.TokenSource = auth.ConfigTokenSource{}
	if o.PublishToken != "" {
		tokens = auth.Static(o.PublishToken)
	}
	bus := importer.NewHTTPBus(o.PublishURL, o.Config.Destination.Auth, tokens, nil)

	if o.AwaitReply {
		l, err := net.Listen("tcp", o.ReplyAddr)
		if err != nil {
			return fmt.Errorf("listening for acknowledgements: %w", err)
		}
		o.replyListener = l
		o.waiter = correlate.NewWaiter(ctx)
	}
	o.Publisher = importer.NewBatchingPublisher(importer.NewBusPublisher(bus, o.waiter, o.ReplyTimeout), o.BatchSize)
	return nil
}

// ReplyAddress is the address acknowledgements are received on, once
// Complete has started listening.
func (o *Options) ReplyAddress() net.Addr {
	if o.replyListener == nil {
		return nil
	}
	return o.replyListener.Addr()
}

// Close releases connections and listeners opened by Complete.
func (o *Options) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
	o.closers = nil
	if o.replyListener != nil {
		o.replyListener.Close()
		o.replyListener = nil
	}
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	defer o.Close()

	if o.replyListener != nil {
		srv := &http.Server{Handler: correlate.Handler(o.waiter)}
		l := o.replyListener
		o.replyListener = nil
		log.Info().Stringer("addr", l.Addr()).Msg("receiving acknowledgements")
		go func() {
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("acknowledgement listener failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("error shutting down acknowledgement listener")
			}
		}()
	}

	imp := importer.NewInboundImporter(o.Config.Inbound, o.Source, o.Publisher)
	bulk, err := imp.Import(ctx)
	if err != nil {
		log.Error().Err(err).Int("status", mapping.StatusFor(err)).Msg("ingest failed")
		return err
	}
	log.Info().Str("app", o.Config.AppID).Int("operations", len(bulk.Operations)).Msg("ingest complete")
	return nil
}
