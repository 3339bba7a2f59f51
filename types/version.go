package types

// Version is the canonical project version.
// The CLI, the trace format and the export contract share this version.
const Version = "0.3.0"

// ContractVersion is the version stamped into export records and
// completion events. It moves in lockstep with Version.
const ContractVersion = Version
