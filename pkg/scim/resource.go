// Package scim holds the canonical identity resources exchanged with the
// upstream identity authority and the bulk-request document used to ingest
// identities upstream.
package scim

// Schema URNs used by canonical resources and bulk requests.
const (
	SchemaUser        = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaGroup       = "urn:ietf:params:scim:schemas:core:2.0:Group"
	SchemaEnterprise  = "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"
	SchemaBulkRequest = "urn:ietf:params:scim:api:messages:2.0:BulkRequest"
)

// Resource is implemented by canonical resources. Mapping never inspects a
// resource beyond path resolution; the type name selects endpoints.
type Resource interface {
	ResourceType() string
}

// Core carries the attributes shared by every canonical resource.
type Core struct {
	Schemas            []string `json:"schemas,omitempty"`
	Identifier         string   `json:"id,omitempty"`
	ExternalIdentifier string   `json:"externalId,omitempty"`
	Metadata           *Meta    `json:"meta,omitempty"`
}

// Meta is resource metadata.
type Meta struct {
	ResourceType string `json:"resourceType,omitempty"`
	Created      string `json:"created,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
	Version      string `json:"version,omitempty"`
}

// Name is a user's structured name.
type Name struct {
	Formatted       string `json:"formatted,omitempty"`
	FamilyName      string `json:"familyName,omitempty"`
	GivenName       string `json:"givenName,omitempty"`
	MiddleName      string `json:"middleName,omitempty"`
	HonorificPrefix string `json:"honorificPrefix,omitempty"`
	HonorificSuffix string `json:"honorificSuffix,omitempty"`
}

// TypedValue is a multi-valued attribute entry: emails, phone numbers, roles.
type TypedValue struct {
	Value    string `json:"value"`
	ItemType string `json:"type,omitempty"`
	Display  string `json:"display,omitempty"`
	Primary  bool   `json:"primary,omitempty"`
}

// Address is a user's postal address.
type Address struct {
	Formatted     string `json:"formatted,omitempty"`
	StreetAddress string `json:"streetAddress,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	Country       string `json:"country,omitempty"`
	ItemType      string `json:"type,omitempty"`
	Primary       bool   `json:"primary,omitempty"`
}

// Manager references a user's manager.
type Manager struct {
	Value       string `json:"value,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// EnterpriseExtension is the enterprise user schema extension.
type EnterpriseExtension struct {
	EmployeeNumber string   `json:"employeeNumber,omitempty"`
	CostCenter     string   `json:"costCenter,omitempty"`
	Organization   string   `json:"organization,omitempty"`
	Division       string   `json:"division,omitempty"`
	Department     string   `json:"department,omitempty"`
	Manager        *Manager `json:"manager,omitempty"`
}

// User is the canonical user resource.
type User struct {
	Core

	UserName            string               `json:"userName"`
	Name                *Name                `json:"name,omitempty"`
	DisplayName         string               `json:"displayName,omitempty"`
	NickName            string               `json:"nickName,omitempty"`
	Title               string               `json:"title,omitempty"`
	UserType            string               `json:"userType,omitempty"`
	PreferredLanguage   string               `json:"preferredLanguage,omitempty"`
	Locale              string               `json:"locale,omitempty"`
	TimeZone            string               `json:"timezone,omitempty"`
	Active              bool                 `json:"active"`
	Emails              []TypedValue         `json:"emails,omitempty"`
	PhoneNumbers        []TypedValue         `json:"phoneNumbers,omitempty"`
	Addresses           []Address            `json:"addresses,omitempty"`
	Roles               []TypedValue         `json:"roles,omitempty"`
	EnterpriseExtension *EnterpriseExtension `json:"urn:ietf:params:scim:schemas:extension:enterprise:2.0:User,omitempty"`
}

// ResourceType implements Resource.
func (*User) ResourceType() string { return "User" }

// Member is a group membership entry.
type Member struct {
	Value    string `json:"value"`
	Display  string `json:"display,omitempty"`
	ItemType string `json:"type,omitempty"`
}

// Group is the canonical group resource.
type Group struct {
	Core

	DisplayName string   `json:"displayName"`
	Members     []Member `json:"members,omitempty"`
}

// ResourceType implements Resource.
func (*Group) ResourceType() string { return "Group" }
