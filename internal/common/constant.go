package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer
// credential on inbound requests.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the only accepted authorization scheme (compared
// case-insensitively).
const BearerScheme = "bearer"
