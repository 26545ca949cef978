package object

// Reserved type and version for the one kind of object this
// implementation interprets: a self-published I2P destination
// advertisement. These are constants of the deployment, not of the
// protocol in general, and must never be invented ad hoc at a call site.
const (
	I2PDestinationObjectType    uint32 = 0x49325031 // ASCII "I2P1"
	I2PDestinationObjectVersion uint64 = 1
)
