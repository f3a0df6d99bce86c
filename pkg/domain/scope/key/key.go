package key

import (
	"time"
)

type Key interface {
	// Name of the algorithm
	Alg() string

	// Expiration time of the key
	Exp() time.Time

	// Key to sign messages.
	//
	// Almost always it is Private key
	ToSign() any

	// Key to verify messages.
	//
	// Almost always it is Public key.
	ToVerify() any

	// Equal returns true if the key is equal to the other key
	Equal(k Key) bool

	// String returns the key in string format
	String() string
}

type KeyPolicy interface {
	// Issue a new key
	Issue() (Key, error)
}
