package provision

import (
	"context"
	"errors"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/authzed/connector-scim/pkg/cmd/render"
	"github.com/authzed/connector-scim/pkg/mapping"
	"github.com/authzed/connector-scim/pkg/options"
	"github.com/authzed/connector-scim/pkg/provision"
	"github.com/authzed/connector-scim/pkg/streams"
	"github.com/authzed/connector-scim/pkg/util"
	"github.com/authzed/connector-scim/pkg/write"
)

// NewProvisionCmd configures a new cobra command that maps a canonical
// resource and performs the call against the tenant's destination.
func NewProvisionCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "provision <resource file>",
		Short:   "provision a resource into the tenant's destination",
		Example: "  connector-scim provision --config=tenant.yaml --request-kind=POST user.json",
		Args:    cobra.ExactArgs(1),
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.ErrOut),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(ctx, args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	render.RegisterFlags(cmd, &o.Options)
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "log the rendered request without calling the destination")
	cmd.Flags().StringVar(&o.Token, "destination-token", "", "bearer token for the destination, overriding the tenant config")
	cobrautil.RegisterZeroLogFlags(cmd.Flags(), "log")

	return cmd
}

// Options holds options for the provision command
type Options struct {
	render.Options
	options.DestinationOptions
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		Options: *render.NewOptions(ioStreams),
	}
}

// Complete fills out default values before running
func (o *Options) Complete(ctx context.Context, args []string) error {
	if err := o.Options.Complete(ctx, args); err != nil {
		return err
	}
	return o.DestinationOptions.Complete(o.Config.Destination)
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	res, err := provision.NewProvisioner(o.Config, o.Writer).Provision(ctx, o.RequestKind, o.Resource)
	if err != nil {
		log.Error().Err(err).Int("status", Status(err)).Msg("provisioning failed")
		return err
	}
	return render.PrintJSON(o.Out, res)
}

// Status is the protocol-level failure category for err: the destination's
// own status for rejected calls, otherwise the mapping error category.
func Status(err error) int {
	var derr *write.DestinationError
	if errors.As(err, &derr) {
		return derr.Status
	}
	return mapping.StatusFor(err)
}
