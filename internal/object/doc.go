// Package object implements the identity-and-replication layer: objects,
// repositories, change observation, availability, and forwarding.
//
// # Objects and repositories
//
// Every entity embeds Object, which carries a UUID, an availability flag, a
// Class, a structural parent, and a membership back reference to at most one
// Repository. A Repository is itself an entity holding members by key (the
// string form of the member's id).
//
// An object created under a parent joins the parent's repository. Joining
// copies the repository's id prefix into an unscoped object id (see package
// ident), registers the object, and then moves its structural children along.
//
// # Differential logs
//
// A repository records members added, members updated, and keys deleted since
// the logs were last drained. Each log is insertion ordered and deduplicated.
// Consumers drain them with TakeChanges or the Reset methods.
//
// # Observation
//
// Classes declare their fields statically. A repository subscribes to each
// member's FieldChanged signal and folds changes to observed fields into the
// updated log. When the class chain contains an interface class (name
// prefixed with "I_"), only fields of the interface and its ancestors are
// observed; fields prefixed with "_" never are.
//
// # Forwarding
//
// Forward makes one repository mirror another's membership. Mirrored entities
// are shared by reference, so field changes are visible on both sides; only
// adds and removals are relayed.
//
// # Thread-safety
//
// None. The object graph belongs to a single goroutine and delivers every
// notification synchronously on it.
package object
