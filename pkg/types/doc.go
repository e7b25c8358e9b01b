// Package types defines the Record, Query, and Gateway types, the standard
// collection schemas, configuration, and the error taxonomy shared by the
// agencydesk view model, its gateways, and the CLI.
package types
