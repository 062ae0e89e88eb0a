// Package harness runs registry scenarios written in YAML and checks the
// resulting repository state.
//
// # Scenario Format
//
//	name: forward_mirror
//	description: "Forwarding mirrors existing and future members"
//	classes: |
//	  class: I_Note: fields: title: string | *""
//	  class: Note: base: "I_Note"
//	repos: [alpha, beta]
//	steps:
//	  - create: { repo: alpha, type: Note, as: first, props: { title: hi } }
//	  - forward: { repo: beta, from: alpha }
//	  - set: { object: first, field: title, value: changed }
//	  - drain: { repo: alpha }
//	  - forward: { repo: beta, from: alpha }
//	    fails: true
//	assertions:
//	  - type: objects
//	    repo: beta
//	    objects: [first]
//	  - type: batches
//	    repo: alpha
//	    count: 1
//
// Objects are referred to by the label given in create.as, repositories by
// name. A step that reports failure (a refused forward, a rejected create)
// is an error unless it is marked fails: true, and the reverse.
//
// # Step Types
//
//   - create: Factory-create an entity under a repository or object
//   - set: Assign a field, checked against its declared kind
//   - forward, unforward: Link or unlink a source repository
//   - destroy: Destroy an object or a repository
//   - available: Set availability of an object or repository
//   - loading: Toggle the loading flag of a repository
//   - clear, remove: Remove members
//   - drain: Drain pending changes into a journal batch
//   - default: Make a repository the core default
//   - send: Send a message to named repositories, remote ids, or everyone
//
// # Assertion Types
//
//   - objects: Exact member set of a repository
//   - added, updated, deleted: Pending differential logs, in order
//   - forwarded: Source repositories, in link order
//   - available: Availability of an object or repository
//   - field: Current value of an object field
//   - batches: Number of drained batches of a repository
//   - messages: Messages received by a repository, or sent to the transport
//   - default: Name of the core default repository
//   - repos: Names of the repositories known to the core
//
// # Deterministic Testing
//
// Every run uses a fixed core id (testutil.CoreID), sequential object ids,
// and a resettable logical clock, so golden snapshots are byte-identical
// across runs.
package harness
