package storage

// ScopeSize is the size of a key scope (an instance address).
const ScopeSize = 20

// Scope isolates the state of one instance.
type Scope [ScopeSize]byte

// Space names a typed key space inside a scope.
type Space byte

const (
	SpaceMeta      Space = iota + 1 // SpaceMeta holds per-instance singletons
	SpaceNote                       // SpaceNote maps note hash to note record
	SpaceApproval                   // SpaceApproval maps note hash to shared secret
	SpaceRegistry                   // SpaceRegistry maps asset address to registry
	SpaceVersion                    // SpaceVersion maps role and version to version info
	SpaceProxy                      // SpaceProxy maps owner and role to bound address
	SpaceInstance                   // SpaceInstance maps instance address to metadata
	SpaceNonce                      // SpaceNonce maps creator address to deploy nonce
	SpaceBalance                    // SpaceBalance maps token and account to balance
	SpaceName                       // SpaceName maps identifiers to address and manager
)

// Key builds scope || space || parts.
func Key(scope Scope, space Space, parts ...[]byte) []byte {
	size := ScopeSize + 1
	for _, p := range parts {
		size += len(p)
	}

	key := make([]byte, 0, size)
	key = append(key, scope[:]...)
	key = append(key, byte(space))

	for _, p := range parts {
		key = append(key, p...)
	}

	return key
}

// ScopePrefix returns the prefix shared by every key of scope.
func ScopePrefix(scope Scope) []byte {
	prefix := make([]byte, ScopeSize)
	copy(prefix, scope[:])

	return prefix
}

// SpacePrefix returns the prefix shared by every key of space in scope.
func SpacePrefix(scope Scope, space Space) []byte {
	return Key(scope, space)
}
