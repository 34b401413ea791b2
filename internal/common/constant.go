package common

// ServiceTokenHeaderName carries the signed service token that proves a
// request came through a trusted internal caller.
const ServiceTokenHeaderName = "X-Service-Token"

// AuthorizationHeaderName carries the end-user session token as
// "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the auth scheme expected in AuthorizationHeaderName.
const BearerScheme = "Bearer"

// RequestIDHeaderName is echoed back on every response.
const RequestIDHeaderName = "X-Request-Id"
