// Package normalisers provides the mapping from raw source payloads to
// the unified adverse-event schema. The unified sub-package holds the
// default alias-map normaliser; sources whose payloads differ materially
// implement their own normalisation and are picked up via the
// driven.EntryNormaliser upgrade interface.
package normalisers
