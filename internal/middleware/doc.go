// Package middleware provides HTTP middleware for the admin server:
// W3C-format request logging, Prometheus request metrics and HTTP basic
// auth for the admin routes.
package middleware
