// Package headlines holds the domain types, collaborator interfaces and error
// kinds shared by the scrape pipeline, the stores and the HTTP surface.
package headlines
