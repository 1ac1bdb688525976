package common

const (
	// AppName is the name of the application
	AppName = "blacklist-collector"
)

// Canonical source labels stamped on every collected record
const (
	// SourceRegtech is the FSEC REGTECH portal source
	SourceRegtech = "REGTECH"
	// SourceSecudium is the SECUDIUM threat intelligence portal source
	SourceSecudium = "SECUDIUM"
	// SourceManual is operator-entered records
	SourceManual = "MANUAL"
	// SourcePublicFeed is the public plaintext threat feeds source
	SourcePublicFeed = "PUBLICFEED"
)
