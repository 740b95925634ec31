// Package datasource provides the sources notebook files can be fetched from
// and a registry for managing them.
//
//   - Source interface for file providers (local directory, web, S3)
//   - Registry for managing sources and constructing them by kind
//   - Catalog for listing and fetching across all enabled sources
//   - Preview for summarizing CSV files
//
// # Registry
//
//	registry := datasource.NewRegistry()
//	registry.Register(local.New("samples", "./testdata"))
//
//	catalog := datasource.NewCatalog(registry)
//	files, _ := catalog.ListAll(ctx)
//	data, _ := catalog.Fetch(ctx, "samples:penguins.csv")
package datasource
