package common

// ProtocolVersion is the client/server protocol version. Clients with a
// different version are refused before any other RPC is served.
const ProtocolVersion = "1.0.0"

// VersionHeaderName is the gRPC metadata key used to carry the client
// protocol version on outbound requests.
const VersionHeaderName = "client-version"
