// Package formstate reconciles server records, in-flight form values and
// lookup lists for multi-mode (create/edit/view) entity forms.
//
// The pieces are pure and safe to call repeatedly with the same inputs:
// ResolveGuard decides whether initial values still need applying, Projector
// maps a record onto a FieldSet, Merge/MergeLists reconcile option lists,
// Validator gates submission and Builder produces the wire payload.
package formstate
