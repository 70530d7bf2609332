package protocol

// ProtocolVersion is the state schema version stamped on new engine states.
const ProtocolVersion = "1.0.0"
