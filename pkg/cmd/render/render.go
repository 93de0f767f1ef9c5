package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jzelinskie/cobrautil"
	"github.com/spf13/cobra"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/mapping"
	"github.com/authzed/connector-scim/pkg/options"
	"github.com/authzed/connector-scim/pkg/provision"
	"github.com/authzed/connector-scim/pkg/streams"
	"github.com/authzed/connector-scim/pkg/util"
	"github.com/authzed/connector-scim/pkg/write"
)

// NewRenderCmd configures a new cobra command that renders the destination
// call for a canonical resource without performing it.
func NewRenderCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "render <resource file>",
		Short:   "render the payload or stored procedure call a resource maps to",
		Example: "  connector-scim render --config=tenant.yaml --request-kind=PUT user.json",
		Args:    cobra.ExactArgs(1),
		// logs to stderr so that stdout only contains the rendered request
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.ErrOut),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(ctx, args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	RegisterFlags(cmd, o)
	cobrautil.RegisterZeroLogFlags(cmd.Flags(), "log")

	return cmd
}

// RegisterFlags adds the flags shared by commands that map a resource.
func RegisterFlags(cmd *cobra.Command, o *Options) {
	cmd.Flags().StringVar(&o.ConfigFile, "config", "", "path to the tenant config (yaml, json or jsonc)")
	cmd.Flags().StringVar(&o.RequestKindName, "request-kind", "POST", "provisioning operation to render: POST, GET, PUT, PATCH or DELETE")
	cmd.Flags().StringVar(&o.ResourceType, "resource-type", "", "resource type of the input, detected from its schemas when unset")
}

// Options holds options shared by commands that map a resource
type Options struct {
	streams.IO
	options.ConfigOptions
	options.ResourceOptions

	RequestKindName string
	RequestKind     config.RequestKind
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO:              ioStreams,
		RequestKindName: string(config.RequestPost),
	}
}

// Complete loads the tenant config and the resource named by args.
func (o *Options) Complete(ctx context.Context, args []string) error {
	if len(args) > 0 {
		o.ResourceFile = args[0]
	}
	if err := o.RequestKind.UnmarshalText([]byte(strings.TrimSpace(o.RequestKindName))); err != nil {
		return err
	}
	if o.RequestKind == "" {
		return fmt.Errorf("must provide a request kind")
	}
	if err := o.ConfigOptions.Complete(ctx, nil, o.IO); err != nil {
		return err
	}
	return o.ResourceOptions.Complete(o.IO)
}

// Output is the printed form of a rendered request.
type Output struct {
	RequestKind  config.RequestKind       `json:"request_kind"`
	ResourceType string                   `json:"resource_type"`
	Path         string                   `json:"path,omitempty"`
	ID           string                   `json:"id,omitempty"`
	Payload      map[string]any           `json:"payload,omitempty"`
	Routine      string                   `json:"routine,omitempty"`
	Command      string                   `json:"command,omitempty"`
	Params       []mapping.TypedParameter `json:"params,omitempty"`
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	rendered, err := provision.NewProvisioner(o.Config, write.DiscardingWriter{}).Render(o.RequestKind, o.Resource)
	if err != nil {
		return err
	}
	req := rendered.Request
	return PrintJSON(o.Out, Output{
		RequestKind:  req.Kind,
		ResourceType: req.ResourceType,
		Path:         req.Path,
		ID:           req.ID,
		Payload:      req.Payload,
		Routine:      req.Routine,
		Command:      rendered.Command,
		Params:       req.Params,
	})
}

// PrintJSON writes v as indented JSON followed by a newline.
func PrintJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
