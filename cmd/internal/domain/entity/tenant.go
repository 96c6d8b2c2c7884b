package entity

import (
	"regexp"
	"strings"
)

type IsolationMode string

const (
	IsolationSchema IsolationMode = "schema"
	IsolationPrefix IsolationMode = "prefix"
)

// Tenant is a row of the shared tenant registry. Rows are written by the
// provisioning and billing systems; the engine only reads them and flips Active.
type Tenant struct {
	ID                    string        `gorm:"primaryKey;size:64"`
	Name                  string        `gorm:"size:128;not null"`
	Namespace             string        `gorm:"size:48;not null;uniqueIndex"`
	IsolationMode         IsolationMode `gorm:"size:16;not null"`
	Active                bool          `gorm:"not null"`
	SubscriptionExpiresAt *int64
	CreatedAt             int64 `gorm:"not null"`
	UpdatedAt             int64 `gorm:"not null"`
}

var namespacePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)

// ValidNamespaceName reports whether name is safe to embed in table and index names.
func ValidNamespaceName(name string) bool {
	return namespacePattern.MatchString(name)
}

// Namespace is the resolved data partition of one tenant. Its fields are
// unexported: callers receive it from the tenant resolver and pass it along.
type Namespace struct {
	tenantID string
	name     string
	mode     IsolationMode
}

func NewNamespace(tenantID, name string, mode IsolationMode) Namespace {
	if mode != IsolationSchema {
		mode = IsolationPrefix
	}
	return Namespace{tenantID: tenantID, name: name, mode: mode}
}

func (n Namespace) TenantID() string {
	return n.tenantID
}

// Table returns the qualified name of a per-tenant table.
func (n Namespace) Table(base string) string {
	if n.mode == IsolationSchema {
		return n.name + "." + base
	}
	return n.name + "_" + base
}

// Schema is the schema to create for schema isolation, empty otherwise.
func (n Namespace) Schema() string {
	if n.mode == IsolationSchema {
		return n.name
	}
	return ""
}

func (n Namespace) IndexName(suffix string) string {
	return n.name + "_" + suffix
}

// LockKey builds a key that is unique across tenants.
func (n Namespace) LockKey(parts ...string) string {
	return n.name + "|" + strings.Join(parts, "|")
}

func (n Namespace) String() string {
	return n.name
}
