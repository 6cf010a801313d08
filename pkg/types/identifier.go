// Package types holds the wire-level and cross-package data model for the
// model repository manager: identifiers, parsed model configuration, and the
// HTTP DTOs served by internal/httpapi.
package types

import "fmt"

// ModelIdentifier is a namespace-scoped model key. Namespace is empty when
// namespacing is disabled; two identifiers are equal iff both fields match,
// which makes ModelIdentifier usable directly as a map key.
//
// example: {"namespace":"repo_a","name":"preprocess"}
type ModelIdentifier struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// String renders the identifier for logs and error messages.
func (id ModelIdentifier) String() string {
	if id.Namespace == "" {
		return id.Name
	}
	return fmt.Sprintf("%s::%s", id.Namespace, id.Name)
}
