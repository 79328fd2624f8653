package ir

// Version is the proofslot release version.
const Version = "0.1.0"
