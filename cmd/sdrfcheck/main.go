// sdrfcheck validates SDRF (Sample and Data Relationship Format) files
// against layered YAML templates.
//
// Usage:
//
//	# Validate a file against the default template
//	sdrfcheck validate --sdrf PXD000001.sdrf.tsv
//
//	# Validate against the human template using only the local term index
//	sdrfcheck validate --sdrf PXD000001.sdrf.tsv --template human --use-ols-cache-only
//
//	# List and inspect templates
//	sdrfcheck templates list
//	sdrfcheck templates show human
//
//	# Build the local ontology term index
//	sdrfcheck ontology import --ontology efo efo_terms.tsv
//
//	# Re-validate on change and expose metrics
//	sdrfcheck watch --sdrf PXD000001.sdrf.tsv
package main

func main() {
	Execute()
}
