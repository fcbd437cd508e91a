// Package ref implements the translation tables that stand between a
// process's native pointers and the opaque integers it shows its peer.
//
// Neither side of a connection ever dereferences memory owned by the other
// process. Instead, when a "create" call is dispatched the receiving side
// stores its local object in a Table and sends back a Ref; every later call
// names the object by that Ref, and the "destroy" call removes the entry.
//
// A Ref packs a slot index and a generation counter. Removing an entry
// bumps the slot's generation, so a stale Ref held past the destroy call
// is detected and rejected instead of silently resolving to whatever
// object reused the slot.
//
// Each model-object kind gets its own Table, and each direction of
// ownership its own instance: one table for host-assigned refs, one for
// plug-in-assigned refs.
package ref
