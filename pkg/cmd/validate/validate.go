package validate

import (
	"context"
	"errors"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/authzed/connector-scim/pkg/cmd/render"
	"github.com/authzed/connector-scim/pkg/options"
	"github.com/authzed/connector-scim/pkg/streams"
	"github.com/authzed/connector-scim/pkg/util"
	"github.com/authzed/connector-scim/pkg/validate"
)

// ErrInvalid is returned by Run when any checked document is invalid.
var ErrInvalid = errors.New("validation failed")

// NewValidateCmd configures a new cobra command that checks a tenant config
// and, optionally, a bulk payload.
func NewValidateCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "check a tenant config and optionally a bulk payload",
		Example: `  connector-scim validate --config=tenant.yaml
  connector-scim validate --config=tenant.yaml --payload=bulk.json`,
		Args:    cobra.NoArgs,
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.ErrOut),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(ctx); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&o.ConfigFile, "config", "", "path to the tenant config (yaml, json or jsonc)")
	cmd.Flags().StringVar(&o.PayloadFile, "payload", "", "bulk request to validate, \"-\" for stdin")
	cobrautil.RegisterZeroLogFlags(cmd.Flags(), "log")

	return cmd
}

// Options holds options for the validate command
type Options struct {
	streams.IO
	options.ConfigOptions

	PayloadFile string
	payload     []byte
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{IO: ioStreams}
}

// Complete loads the tenant config and the payload, if any.
func (o *Options) Complete(ctx context.Context) error {
	if err := o.ConfigOptions.Complete(ctx, nil, o.IO); err != nil {
		return err
	}
	if o.PayloadFile == "" {
		return nil
	}
	data, err := o.ReadInput(o.PayloadFile)
	if err != nil {
		return err
	}
	o.payload = data
	return nil
}

// Output is the printed validation report.
type Output struct {
	Config  validate.Result  `json:"config"`
	Payload *validate.Result `json:"payload,omitempty"`
}

// Valid reports whether every checked document passed.
func (out Output) Valid() bool {
	return out.Config.Valid && (out.Payload == nil || out.Payload.Valid)
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	out := Output{Config: validate.Config(o.Config)}
	if o.PayloadFile != "" {
		res := validate.BulkPayload(o.payload)
		out.Payload = &res
	}
	if err := render.PrintJSON(o.Out, out); err != nil {
		return err
	}
	if !out.Valid() {
		log.Warn().Str("app", o.Config.AppID).Msg("tenant documents are invalid")
		return ErrInvalid
	}
	log.Info().Str("app", o.Config.AppID).Msg("tenant documents are valid")
	return nil
}
