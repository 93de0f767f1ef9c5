package options

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"sigs.k8s.io/yaml"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/pgschema"
	"github.com/authzed/connector-scim/pkg/streams"
)

type ConfigPrinter func(c *config.Config) error

func DiscardConfigPrinter(*config.Config) error {
	return nil
}

var _ ConfigPrinter = DiscardConfigPrinter

func JSONConfigPrinter(w io.Writer) ConfigPrinter {
	return func(c *config.Config) error {
		configJSON, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(configJSON)); err != nil {
			return err
		}
		return nil
	}
}

func YAMLConfigPrinter(w io.Writer) ConfigPrinter {
	return func(c *config.Config) error {
		configYaml, err := yaml.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprint(w, string(configYaml)); err != nil {
			return err
		}
		return nil
	}
}

// PrinterFor returns the printer for an output format, "yaml" or "json".
func PrinterFor(format string, w io.Writer) (ConfigPrinter, error) {
	switch format {
	case "", "yaml":
		return YAMLConfigPrinter(w), nil
	case "json":
		return JSONConfigPrinter(w), nil
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}

// ConfigOptions holds options for loading a tenant config from a file or
// generating a provisional one from a postgres schema.
type ConfigOptions struct {
	ConfigFile string

	// AppID, RoutineSchema and Routines drive generation.
	AppID         string
	RoutineSchema string
	Routines      []string
	OutputFormat  string

	Config *config.Config

	ConfigPrinter ConfigPrinter
}

// Complete loads the config from ConfigFile, or generates one from the
// routines in postgres when no file is set and pg is configured. Generated
// configs are printed to the output stream; loaded configs are not.
func (o *ConfigOptions) Complete(ctx context.Context, pg *PostgresOptions, streams streams.IO) error {
	if o.Config != nil {
		log.Debug().Msg("tenant config already set, skipping config option validation")
		o.ConfigPrinter = DiscardConfigPrinter
		return nil
	}
	if len(o.ConfigFile) > 0 {
		log.Info().Str("config", o.ConfigFile).Msg("loading tenant config from file")
		c, err := config.ReadFile(o.ConfigFile)
		if err != nil {
			return err
		}
		o.Config = c
		o.ConfigPrinter = DiscardConfigPrinter
		return nil
	}
	if pg == nil || !pg.Configured() {
		return fmt.Errorf("must provide a tenant config file")
	}

	log.Info().Msg("generating tenant config from postgres routines")
	conn, err := pg.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	schema := o.RoutineSchema
	if schema == "" {
		schema = "public"
	}
	log.Info().Str("schema", schema).Strs("routines", o.Routines).Msg("syncing postgres routines")
	routines, err := pgschema.SyncRoutines(ctx, conn, schema, o.Routines...)
	if err != nil {
		return err
	}
	for _, r := range routines {
		log.Debug().Str("routine", r.QualifiedName()).Int("params", len(r.Params)).Msg("found routine")
	}
	o.Config = pgschema.ToConfig(o.AppID, pg.PostgresURI, routines)

	printer, err := PrinterFor(o.OutputFormat, streams.Out)
	if err != nil {
		return err
	}
	o.ConfigPrinter = printer
	return nil
}
