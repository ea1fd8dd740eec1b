// Package resources bundles the version-partitioned FOCUS query
// library and the specification metadata shipped with the server.
package resources

import "embed"

//go:embed queries specifications
var FS embed.FS
