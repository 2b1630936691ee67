/*
Package protocol is package for the participant side protocol handlers. The
protocol state machines are run by the external agent runtime. The handlers
here only decide the participant's answer when the runtime stops to wait for
it, and pass that answer back to the runtime.

The credential handlers are in issuecredential/holder and the proof handlers in
presentproof/prover. Both use the trust policy of agent/prot.
*/
package protocol
