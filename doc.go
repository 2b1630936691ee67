/*
Package main is an application package for findy-alice, a credential holder
and prover. Alice connects to an issuer or a verifier with an out-of-band
invitation, accepts the credential offers and proof requests sent over the
connection, and exchanges basic messages with it.

The Aries protocols are run by a findy agency cloud agent, which alice uses
over the agency gRPC API. Alice itself keeps an encrypted wallet file, where
the Ethereum keypair of the user is created at the first start, and the
connections accepted earlier are saved.

# Sub-packages

	agent    includes framework packages like alice, aries, cloud, ether, ..
	cmd      the cobra commands of the CLI
	cmds     the command implementations which the CLI calls
	protocol includes the holder and prover handlers
	std      a root package for Aries message models, e.g. the invitation
*/
package main
