// assets/embed.go
//
// Embedded SQL migrations. Shipping the schema inside the binary means a
// fresh deployment only needs a writable data directory.

package assets

import (
	"embed"
	"sort"
)

//go:embed *.sql
var FS embed.FS

// MigrationFiles lists the embedded migration names in apply order.
func MigrationFiles() ([]string, error) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
