package options

import (
	"fmt"

	"github.com/authzed/connector-scim/pkg/scim"
	"github.com/authzed/connector-scim/pkg/streams"
)

// ResourceOptions holds options for reading a canonical resource
type ResourceOptions struct {
	// ResourceFile is a JSON resource document, or "-" for stdin.
	ResourceFile string
	// ResourceType forces the resource type instead of detecting it.
	ResourceType string

	Resource scim.Resource
}

// Complete reads and parses the resource unless one is already set.
func (o *ResourceOptions) Complete(streams streams.IO) error {
	if o.Resource != nil {
		return nil
	}
	if o.ResourceFile == "" {
		return fmt.Errorf("must provide a resource file")
	}
	data, err := streams.ReadInput(o.ResourceFile)
	if err != nil {
		return err
	}
	o.Resource, err = scim.ParseResource(data, o.ResourceType)
	return err
}
