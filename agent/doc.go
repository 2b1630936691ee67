/*
Package agent holds the runtime of the Alice test agent. The alice.Alice type
is the most important abstraction of the package. It owns one aries.Agent, the
wallet storage, and the Ethereum keypair provisioned into that storage.

The agent package is empty itself. All the functionality is inside
sub-packages. Summary of the packages:

 alice      the agent runtime: build, accept, message, listen, restart, exit
 aries      the minimal agent abstraction the runtime drives, plus polling
 bus        event station between the agent event stream and the listeners
 cloud      aries.Agent implementation that talks to a findy agency over gRPC
 ether      secp256k1 keypair generation and idempotent wallet provisioning
 output     fixed status lines printed to the user
 pairwise   the single connection slot and its state
 prot       trust policies deciding which protocol offers are accepted
 storage    bolt based record and connection storage
 utils      helpers for version, settings, nonce, and home directory
*/
package agent
