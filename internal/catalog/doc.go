// Package catalog is the HTTP client for the external job catalog and
// execution API. Every operation authenticates with the service-login
// endpoint and sends the bearer token it gets back.
package catalog
