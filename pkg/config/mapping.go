package config

// Config holds everything a tenant ("application") supplies to provision
// against its destination and to pull identities back from it.
type Config struct {
	AppID       string      `json:"app_id"`
	Destination Destination `json:"destination"`
	Endpoints   []Endpoint  `json:"endpoints,omitempty"`
	Inbound     *Inbound    `json:"inbound,omitempty"`
}

// DestinationKind selects the transport used for a destination.
type DestinationKind string

const (
	DestinationREST DestinationKind = "rest"
	DestinationSQL  DestinationKind = "sql"
)

// Destination describes how to reach the downstream system.
type Destination struct {
	Kind DestinationKind `json:"kind"`

	// BaseURL is used by REST destinations.
	BaseURL string `json:"base_url,omitempty"`

	// Driver and DSN are used by SQL destinations. Driver is classified into
	// one of the supported relational backends.
	Driver string `json:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty"`

	Auth Auth `json:"auth,omitempty"`
}

// Auth configures token acquisition for a destination. The engine treats it
// as opaque; the auth collaborator interprets it.
type Auth struct {
	Kind     string `json:"kind,omitempty"`
	Token    string `json:"token,omitempty"`
	TokenEnv string `json:"token_env,omitempty"`
}

// Endpoint binds a provisioning operation to a destination call and the
// schema that renders its payload.
type Endpoint struct {
	RequestKind RequestKind `json:"request_kind"`
	// ResourceType is the canonical resource type, e.g. "User" or "Group".
	ResourceType string `json:"resource_type,omitempty"`

	// Path is appended to Destination.BaseURL for REST destinations. An
	// "{id}" placeholder is replaced with the resolved identifier.
	Path string `json:"path,omitempty"`
	// Routine is the stored procedure or function invoked for SQL
	// destinations.
	Routine string `json:"routine,omitempty"`

	Schema Schema `json:"schema"`
}

// Endpoint returns the endpoint configured for kind and resource type. An
// endpoint without a resource type matches any resource type.
func (c *Config) Endpoint(kind RequestKind, resourceType string) (*Endpoint, bool) {
	for i := range c.Endpoints {
		e := &c.Endpoints[i]
		if e.RequestKind != kind {
			continue
		}
		if e.ResourceType == "" || e.ResourceType == resourceType {
			return e, true
		}
	}
	return nil, false
}

// Index assigns node ids within every endpoint schema.
func (c *Config) Index() {
	for i := range c.Endpoints {
		c.Endpoints[i].Schema.Index()
		for j := range c.Endpoints[i].Schema {
			setAppID(&c.Endpoints[i].Schema[j], c.AppID)
		}
	}
}

func setAppID(n *SchemaNode, appID string) {
	if n.AppID == "" {
		n.AppID = appID
	}
	for i := range n.ChildSchemas {
		setAppID(&n.ChildSchemas[i], appID)
	}
}
