// Package api handles incoming HTTP requests, request validation, and
// response formatting. It adapts HTTP calls to the process bridge and the
// user task registry, and translates engine failures into HTTP statuses.
package api
