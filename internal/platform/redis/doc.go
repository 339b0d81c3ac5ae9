// Package redis provides redis-backed implementations of the response status
// cache and refresh token revocations.
package redis
