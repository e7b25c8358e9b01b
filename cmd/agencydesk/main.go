// Command agencydesk browses and edits the collections of an agency CRM.
package main

import "github.com/mesh-intelligence/agencydesk/internal/cli"

func main() {
	cli.Execute()
}
