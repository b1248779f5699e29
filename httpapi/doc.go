// Package httpapi serves the account flows over HTTP with a chi router.
//
// All routes live under /api/users. Login sets the refresh token as an
// HttpOnly cookie; refresh and logout read it back from there. Routes that
// need an authenticated caller sit behind middleware.Guard.
package httpapi
