// Arboretum publishes the tree map dataset of an arboretum website.
//
// It reads the published tree posts of the host site, converts their
// Lambert CC44 coordinates to WGS84 and writes carte-data/arbres.json
// under the site's upload directory for the map front end.
//
// Usage:
//
//	# Regenerate the dataset now
//	arboretum generate
//
//	# Check whether trees changed since the last generation
//	arboretum status
//
//	# Serve the operator API and /metrics
//	arboretum serve --config arboretum.yaml
//
//	# Follow the tree change feed and log staleness
//	arboretum watch
package main

func main() {
	Execute()
}
