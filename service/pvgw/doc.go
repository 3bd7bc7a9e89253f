// SPDX-License-Identifier: BSD-3-Clause

// Package pvgw is the Governor's channel binding layer. It owns the
// mapping between the internal object graph and the published channel
// namespace: every status change is pushed eagerly on pv.update
// subjects, reads on pv.get subjects are served from the last published
// values, and writes on pv.put subjects are decoded into commands for
// the supervisor, the machines, or the target store.
//
// The gateway holds no domain state of its own; it caches channel values
// purely so reads can be answered without consulting the owning
// component.
package pvgw
