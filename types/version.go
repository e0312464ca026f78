package types

// Version is the canonical project version.
// The CLI, the invocation-completed event contract and the capture record
// schema share this version.
const Version = "0.3.0"

// EventContractVersion is stamped on every published adapter event.
const EventContractVersion = Version
